package ingest

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-job-backend/internal/domain"
	"github.com/tbourn/go-job-backend/internal/repo"
	"github.com/tbourn/go-job-backend/internal/sysutil"
)

var (
	ingestRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Dataset ingestion attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	ingestItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_items_total",
			Help: "Dataset items mapped and upserted, by source.",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(ingestRuns, ingestItems)
}

// Result summarizes one ingestion.
type Result struct {
	Processed int           // items mapped and sent to the upsert
	Unkeyed   int           // items without a source id (stored with NULL key)
	Source    domain.Source // adapter used
	DatasetID string
}

// Normalizer runs the webhook ingestion flow: token check, dataset id
// extraction, source resolution, fetch, map, upsert. It performs exactly one
// write per call and never retries.
type Normalizer struct {
	DB      *gorm.DB
	Fetcher DatasetFetcher
	Secret  string

	// Actors maps crawler actor ids to source tags (from SOURCES_FILE).
	Actors map[string]string
	// DefaultSource is used when neither the request nor Actors names one.
	DefaultSource domain.Source

	// Now is the ingestion clock; nil means time.Now.
	Now func() time.Time
}

type webhookPayload struct {
	DatasetID string `json:"datasetId"`
	Resource  struct {
		DefaultDatasetID string `json:"defaultDatasetId"`
		ActID            string `json:"actId"`
	} `json:"resource"`
	EventData struct {
		ActorID          string `json:"actorId"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"eventData"`
}

// Ingest handles one webhook call. token is the caller-supplied shared
// secret, source an optional explicit source tag, payload the raw body.
//
// Errors, in check order: ErrUnauthorized (before anything else),
// ErrInvalidPayload / ErrMissingDataset / ErrUnknownSource (before any
// network call), ErrUpstream (fetch), *PersistenceError (write).
func (n *Normalizer) Ingest(ctx context.Context, token, source string, payload []byte) (Result, error) {
	if !n.tokenOK(token) {
		return Result{}, ErrUnauthorized
	}

	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	datasetID := strings.TrimSpace(sysutil.FirstNonEmpty(p.Resource.DefaultDatasetID, p.DatasetID, p.EventData.DefaultDatasetID))
	if datasetID == "" {
		return Result{}, ErrMissingDataset
	}
	src, err := n.resolveSource(source, strings.TrimSpace(sysutil.FirstNonEmpty(p.EventData.ActorID, p.Resource.ActID)))
	if err != nil {
		return Result{}, err
	}

	return n.IngestDataset(ctx, datasetID, src)
}

// IngestDataset fetches datasetID, maps every item with src's adapter and
// upserts the batch. It skips the webhook checks and is used for manual replays.
func (n *Normalizer) IngestDataset(ctx context.Context, datasetID string, src domain.Source) (res Result, err error) {
	ctx, span := otel.Tracer("ingest/Normalizer").Start(ctx, "IngestDataset",
		trace.WithAttributes(
			attribute.String("dataset.id", datasetID),
			attribute.String("job.source", string(src)),
		),
	)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = outcomeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		ingestRuns.WithLabelValues(string(src), outcome).Inc()
		span.End()
	}()

	adapter, ok := ForSource(src)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}

	items, err := n.Fetcher.Items(ctx, datasetID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	fetchedAt := n.now().UTC()
	jobs := make([]domain.Job, 0, len(items))
	unkeyed := 0
	for _, it := range items {
		j := adapter.Map(it, fetchedAt)
		if j.SourceJobID == nil {
			unkeyed++
		}
		jobs = append(jobs, j)
	}

	if _, err := repo.UpsertJobs(ctx, n.DB, jobs); err != nil {
		return Result{}, &PersistenceError{Err: err}
	}
	ingestItems.WithLabelValues(string(src)).Add(float64(len(jobs)))
	span.SetAttributes(attribute.Int("jobs.processed", len(jobs)))

	return Result{Processed: len(jobs), Unkeyed: unkeyed, Source: src, DatasetID: datasetID}, nil
}

func (n *Normalizer) tokenOK(token string) bool {
	if token == "" || n.Secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(n.Secret)) == 1
}

// resolveSource picks the explicit tag, then the actor mapping, then the default.
func (n *Normalizer) resolveSource(explicit, actorID string) (domain.Source, error) {
	tag := strings.ToLower(strings.TrimSpace(explicit))
	if tag == "" && actorID != "" {
		tag = n.Actors[actorID]
	}
	if tag == "" {
		tag = string(n.DefaultSource)
	}
	src := domain.Source(tag)
	if !src.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, tag)
	}
	return src, nil
}

func (n *Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func outcomeOf(err error) string {
	switch {
	case IsValidation(err):
		return "invalid"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	default:
		return "persistence_error"
	}
}
