package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-job-backend/internal/domain"
)

type stubFetcher struct {
	items []any
	err   error
	calls int
	ids   []string
}

func (s *stubFetcher) Items(_ context.Context, id string) ([]any, error) {
	s.calls++
	s.ids = append(s.ids, id)
	return s.items, s.err
}

func newIngestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("ingest_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if migrate {
		if err := db.AutoMigrate(&domain.Job{}); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func newNormalizer(db *gorm.DB, f DatasetFetcher) *Normalizer {
	return &Normalizer{
		DB:            db,
		Fetcher:       f,
		Secret:        "s3cret",
		Actors:        map[string]string{"actor-indeed": "indeed"},
		DefaultSource: domain.SourceLinkedIn,
		Now:           func() time.Time { return fetched },
	}
}

func countJobs(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.Job{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

const apifyPayload = `{"eventType":"ACTOR.RUN.SUCCEEDED","eventData":{"actorId":"x"},"resource":{"defaultDatasetId":"ds-1"}}`

func TestIngest_WrongOrMissingToken_NoFetchNoWrite(t *testing.T) {
	db := newIngestDB(t, true)
	f := &stubFetcher{items: []any{map[string]any{"id": "1"}}}
	n := newNormalizer(db, f)

	for _, tok := range []string{"", "wrong", "s3cret-but-longer"} {
		_, err := n.Ingest(context.Background(), tok, "", []byte(apifyPayload))
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("token %q: expected ErrUnauthorized, got %v", tok, err)
		}
	}
	if f.calls != 0 {
		t.Fatalf("dataset store must not be contacted, got %d calls", f.calls)
	}
	if countJobs(t, db) != 0 {
		t.Fatalf("no rows may be written on auth failure")
	}
}

func TestIngest_EmptySecret_RejectsEverything(t *testing.T) {
	n := newNormalizer(nil, &stubFetcher{})
	n.Secret = ""
	if _, err := n.Ingest(context.Background(), "", "", []byte(apifyPayload)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestIngest_ValidationErrors_BeforeFetch(t *testing.T) {
	cases := []struct {
		name    string
		source  string
		payload string
		want    error
	}{
		{"not json", "", `nope`, ErrInvalidPayload},
		{"array body", "", `[]`, ErrInvalidPayload},
		{"no dataset", "", `{"resource":{}}`, ErrMissingDataset},
		{"blank dataset", "", `{"datasetId":"  "}`, ErrMissingDataset},
		{"unknown explicit source", "monster", `{"datasetId":"d"}`, ErrUnknownSource},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &stubFetcher{}
			_, err := newNormalizer(nil, f).Ingest(context.Background(), "s3cret", tc.source, []byte(tc.payload))
			if !errors.Is(err, tc.want) || !IsValidation(err) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if f.calls != 0 {
				t.Fatalf("fetch must not happen on validation error")
			}
		})
	}
}

func TestIngest_DatasetIDSources(t *testing.T) {
	cases := map[string]string{
		`{"resource":{"defaultDatasetId":"r"},"datasetId":"d"}`: "r",
		`{"datasetId":"d"}`:                            "d",
		`{"eventData":{"defaultDatasetId":"e"}}`:       "e",
	}
	for body, want := range cases {
		f := &stubFetcher{}
		if _, err := newNormalizer(newIngestDB(t, true), f).Ingest(context.Background(), "s3cret", "", []byte(body)); err != nil {
			t.Fatalf("%s: %v", body, err)
		}
		if len(f.ids) != 1 || f.ids[0] != want {
			t.Fatalf("%s: fetched %v; want %q", body, f.ids, want)
		}
	}
}

func TestResolveSource(t *testing.T) {
	n := newNormalizer(nil, nil)
	cases := []struct {
		explicit, actor string
		want            domain.Source
	}{
		{"Indeed", "", domain.SourceIndeed},
		{"france_travail", "actor-indeed", domain.SourceFranceTravail},
		{"", "actor-indeed", domain.SourceIndeed},
		{"", "unmapped", domain.SourceLinkedIn},
		{"", "", domain.SourceLinkedIn},
	}
	for _, c := range cases {
		got, err := n.resolveSource(c.explicit, c.actor)
		if err != nil || got != c.want {
			t.Errorf("resolveSource(%q,%q) = %q, %v; want %q", c.explicit, c.actor, got, err, c.want)
		}
	}
	n.Actors["bad"] = "monster"
	if _, err := n.resolveSource("", "bad"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("mapped unknown tag must be rejected, got %v", err)
	}
}

func TestIngest_UpstreamError(t *testing.T) {
	db := newIngestDB(t, true)
	upstream := &HTTPError{StatusCode: 404, Err: errors.New("not found")}
	_, err := newNormalizer(db, &stubFetcher{err: upstream}).Ingest(context.Background(), "s3cret", "", []byte(apifyPayload))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Fatalf("cause must stay inspectable: %v", err)
	}
	if IsValidation(err) {
		t.Fatalf("upstream failure is not a validation error")
	}
}

func TestIngest_PersistenceError_CarriesStorageMessage(t *testing.T) {
	db := newIngestDB(t, false) // no jobs table
	f := &stubFetcher{items: []any{map[string]any{"id": "1", "title": "t"}}}
	_, err := newNormalizer(db, f).Ingest(context.Background(), "s3cret", "", []byte(apifyPayload))

	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PersistenceError, got %T %v", err, err)
	}
	if pe.Error() == "" || pe.Error() != pe.Err.Error() {
		t.Fatalf("message must be the storage error's: %q", pe.Error())
	}
}

// Three items, one without an id: all three stored, the unkeyed one with a NULL key.
func TestIngest_ThreeItems_OneMissingID(t *testing.T) {
	db := newIngestDB(t, true)
	f := &stubFetcher{items: []any{
		map[string]any{"id": "a", "title": "A"},
		map[string]any{"title": "no id"},
		map[string]any{"id": "c", "title": "C"},
	}}
	n := newNormalizer(db, f)

	res, err := n.Ingest(context.Background(), "s3cret", "linkedin", []byte(apifyPayload))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Processed != 3 || res.Unkeyed != 1 || res.Source != domain.SourceLinkedIn || res.DatasetID != "ds-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if countJobs(t, db) != 3 {
		t.Fatalf("expected 3 rows")
	}
	var unkeyed domain.Job
	if err := db.Where("source_job_id IS NULL").First(&unkeyed).Error; err != nil {
		t.Fatalf("NULL-key row missing: %v", err)
	}
	if unkeyed.Title == nil || *unkeyed.Title != "no id" || !unkeyed.FetchedAt.Equal(fetched) {
		t.Fatalf("unexpected NULL-key row: %+v", unkeyed)
	}
}

// Ingesting the same dataset twice leaves one row per (source, source_job_id).
func TestIngest_Idempotent(t *testing.T) {
	db := newIngestDB(t, true)
	f := &stubFetcher{items: []any{
		map[string]any{"id": "a", "title": "A"},
		map[string]any{"id": 2, "title": "B"},
	}}
	n := newNormalizer(db, f)
	for i := 0; i < 2; i++ {
		if _, err := n.Ingest(context.Background(), "s3cret", "", []byte(apifyPayload)); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if countJobs(t, db) != 2 {
		t.Fatalf("expected 2 rows after re-ingest, got %d", countJobs(t, db))
	}
	var b domain.Job
	if err := db.Where("source = ? AND source_job_id = ?", "linkedin", "2").First(&b).Error; err != nil || *b.Title != "B" {
		t.Fatalf("numeric id must be stringified: %v %+v", err, b)
	}
}

func TestIngestDataset_EmptyDataset(t *testing.T) {
	db := newIngestDB(t, false) // an empty batch never touches the table
	res, err := newNormalizer(db, &stubFetcher{}).IngestDataset(context.Background(), "ds", domain.SourceIndeed)
	if err != nil || res.Processed != 0 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}

func TestIngestDataset_UnknownSource(t *testing.T) {
	f := &stubFetcher{}
	if _, err := newNormalizer(nil, f).IngestDataset(context.Background(), "ds", "monster"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("fetch must not happen for an unknown source")
	}
}
