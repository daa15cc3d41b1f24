// Package proxy forwards quota-gated AI actions to the external compute
// backend and relays its JSON answer.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes caps how much of a backend answer is read.
const maxResponseBytes = 8 << 20

// ErrNotObject is returned when the backend answers 2xx with JSON that is not an object.
var ErrNotObject = errors.New("backend response is not a JSON object")

// UpstreamError is a non-2xx answer from the backend. Body is kept for
// server-side logs only.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d", e.Status)
}

// Request is forwarded as-is: method, path on the backend, raw query string
// and body bytes are not reinterpreted.
type Request struct {
	Method      string
	Path        string
	RawQuery    string
	Body        []byte
	ContentType string
}

// Client is the backend contract used by Forwarder.
type Client interface {
	Forward(ctx context.Context, req Request) (map[string]any, error)
}

// Backend calls the AI compute service over HTTP.
type Backend struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackend creates a Backend for baseURL. Every call is bounded by timeout.
func NewBackend(baseURL string, timeout time.Duration) *Backend {
	return &Backend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Forward sends req to the backend and decodes the JSON object it returns.
func (b *Backend) Forward(ctx context.Context, req Request) (map[string]any, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	url := b.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if req.RawQuery != "" {
		url += "?" + req.RawQuery
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create backend request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if len(req.Body) > 0 {
		ct := req.ContentType
		if ct == "" {
			ct = "application/json"
		}
		httpReq.Header.Set("Content-Type", ct)
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: truncate(string(respBytes), 2048)}
	}

	dec := json.NewDecoder(bytes.NewReader(respBytes))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotObject
		}
		return nil, fmt.Errorf("parse backend response: %w", err)
	}
	if payload == nil {
		return nil, ErrNotObject
	}
	return payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
