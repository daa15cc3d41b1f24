package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbourn/go-job-backend/internal/domain"
	"github.com/tbourn/go-job-backend/internal/quota"
	"github.com/tbourn/go-job-backend/internal/repo"
)

func newLimiter(t *testing.T) *quota.Limiter {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), fmt.Sprintf("proxy_%d.db", time.Now().UnixNano())))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return &quota.Limiter{Store: quota.SQLStore{DB: db}}
}

func TestBackend_Forward_Verbatim(t *testing.T) {
	var gotMethod, gotPath, gotQuery, gotCT, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotQuery = r.Method, r.URL.Path, r.URL.RawQuery
		gotCT = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"profile":{"skills":["go"]},"score":12345678901234}`))
	}))
	defer srv.Close()

	b := NewBackend(srv.URL+"/", time.Second)
	out, err := b.Forward(context.Background(), Request{
		Method:      http.MethodPost,
		Path:        "/enrich-profile",
		RawQuery:    "lang=fr&x=%20y",
		Body:        []byte(`{"cv":"raw  text"}`),
		ContentType: "application/json; charset=utf-8",
	})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/enrich-profile" || gotQuery != "lang=fr&x=%20y" {
		t.Fatalf("unexpected request line: %s %s ?%s", gotMethod, gotPath, gotQuery)
	}
	if gotBody != `{"cv":"raw  text"}` || gotCT != "application/json; charset=utf-8" {
		t.Fatalf("body/content-type not forwarded verbatim: %q %q", gotBody, gotCT)
	}
	if n, ok := out["score"].(json.Number); !ok || n.String() != "12345678901234" {
		t.Fatalf("numbers must round-trip: %#v", out["score"])
	}
}

func TestBackend_Forward_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"non 2xx", 502, `{"detail":"model crashed"}`, func(t *testing.T, err error) {
			var ue *UpstreamError
			if !errors.As(err, &ue) || ue.Status != 502 || ue.Body == "" {
				t.Fatalf("expected *UpstreamError, got %v", err)
			}
		}},
		{"array", 200, `[1,2]`, func(t *testing.T, err error) {
			if !errors.Is(err, ErrNotObject) {
				t.Fatalf("expected ErrNotObject, got %v", err)
			}
		}},
		{"null", 200, `null`, func(t *testing.T, err error) {
			if !errors.Is(err, ErrNotObject) {
				t.Fatalf("expected ErrNotObject, got %v", err)
			}
		}},
		{"garbage", 200, `<html>`, func(t *testing.T, err error) {
			if err == nil || errors.Is(err, ErrNotObject) {
				t.Fatalf("expected parse error, got %v", err)
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			_, err := NewBackend(srv.URL, time.Second).Forward(context.Background(), Request{Path: "match-jobs"})
			tc.check(t, err)
		})
	}
}

func TestBackend_Forward_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	if _, err := NewBackend(srv.URL, 20*time.Millisecond).Forward(context.Background(), Request{Path: "/x"}); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestBackend_Forward_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	if _, err := NewBackend(url, time.Second).Forward(context.Background(), Request{Path: "/x"}); err == nil {
		t.Fatalf("expected transport error")
	}
}

type stubClient struct {
	calls   atomic.Int32
	payload map[string]any
	err     error
}

func (s *stubClient) Forward(context.Context, Request) (map[string]any, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]any, len(s.payload))
	for k, v := range s.payload {
		out[k] = v
	}
	return out, nil
}

// Two prior actions with limit 3: the third is forwarded with remaining=0,
// the fourth is declined without a backend call.
func TestForwarder_Do_QuotaFlow(t *testing.T) {
	backend := &stubClient{payload: map[string]any{"matches": []any{"j1"}}}
	f := &Forwarder{Limiter: newLimiter(t), Backend: backend, Limit: 3}
	ctx := context.Background()

	for i, want := range []int{2, 1, 0} {
		out, err := f.Do(ctx, "u1", domain.ActionMatchJobs, Request{Path: "/match-jobs"})
		if err != nil || out.RateLimited || out.Remaining != want {
			t.Fatalf("call %d: %+v err=%v", i+1, out, err)
		}
		if out.Payload["remaining"] != want || out.Payload["matches"] == nil {
			t.Fatalf("payload must be merged with remaining: %#v", out.Payload)
		}
	}

	out, err := f.Do(ctx, "u1", domain.ActionMatchJobs, Request{Path: "/match-jobs"})
	if err != nil || !out.RateLimited || out.Remaining != 0 || out.Payload != nil {
		t.Fatalf("expected soft decline: %+v err=%v", out, err)
	}
	if backend.calls.Load() != 3 {
		t.Fatalf("declined call must not reach the backend; calls=%d", backend.calls.Load())
	}
}

func TestForwarder_Do_BackendFailure_ConsumesQuota(t *testing.T) {
	limiter := newLimiter(t)
	f := &Forwarder{Limiter: limiter, Backend: &stubClient{err: &UpstreamError{Status: 500}}, Limit: 1}

	if _, err := f.Do(context.Background(), "u1", domain.ActionEnrichProfile, Request{}); err == nil {
		t.Fatalf("expected backend error")
	}
	used, remaining, err := limiter.Usage(context.Background(), "u1", domain.ActionEnrichProfile, 1)
	if err != nil || used != 1 || remaining != 0 {
		t.Fatalf("quota must stay consumed: used=%d remaining=%d err=%v", used, remaining, err)
	}
}

func TestForwarder_Do_QuotaError(t *testing.T) {
	backend := &stubClient{}
	f := &Forwarder{Limiter: newLimiter(t), Backend: backend, Limit: 3}
	if _, err := f.Do(context.Background(), "", domain.ActionMatchJobs, Request{}); !errors.Is(err, quota.ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
	if backend.calls.Load() != 0 {
		t.Fatalf("backend must not be called")
	}
}

func TestOutcomeOf(t *testing.T) {
	cases := map[string]error{
		"ok":             nil,
		"upstream_error": fmt.Errorf("wrap: %w", &UpstreamError{Status: 503}),
		"timeout":        context.DeadlineExceeded,
		"error":          errors.New("boom"),
	}
	for want, err := range cases {
		if got := outcomeOf(err); got != want {
			t.Errorf("outcomeOf(%v) = %q; want %q", err, got, want)
		}
	}
}
