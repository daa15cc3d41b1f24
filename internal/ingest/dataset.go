package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// maxDatasetBytes caps how much of a dataset response is read.
const maxDatasetBytes = 64 << 20

// HTTPError wraps a non-200 status from the dataset store.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// DatasetFetcher returns the raw items of a crawler dataset.
type DatasetFetcher interface {
	Items(ctx context.Context, datasetID string) ([]any, error)
}

// DatasetClient reads datasets from an Apify-compatible API.
type DatasetClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewDatasetClient builds a client for baseURL (e.g. https://api.apify.com/v2).
// An empty token sends no Authorization header (public datasets).
func NewDatasetClient(baseURL, token string, timeout time.Duration) *DatasetClient {
	return &DatasetClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Items fetches GET {base}/datasets/{id}/items?clean=true&format=json.
// Numbers are decoded as json.Number so large numeric ids survive intact.
func (c *DatasetClient) Items(ctx context.Context, datasetID string) ([]any, error) {
	endpoint := fmt.Sprintf("%s/datasets/%s/items?clean=true&format=json", c.baseURL, url.PathEscape(datasetID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("dataset %s: unexpected status %d", datasetID, resp.StatusCode),
		}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxDatasetBytes))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("dataset %s: decode: %w", datasetID, err)
	}
	items, ok := payload.([]any)
	if !ok {
		return nil, fmt.Errorf("dataset %s: expected a JSON array, got %T", datasetID, payload)
	}
	return items, nil
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
