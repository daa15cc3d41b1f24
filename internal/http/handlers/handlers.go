package handlers

import (
	"context"

	"github.com/tbourn/go-job-backend/internal/domain"
	"github.com/tbourn/go-job-backend/internal/ingest"
	"github.com/tbourn/go-job-backend/internal/proxy"
	"github.com/tbourn/go-job-backend/internal/repo"
)

//
// Service contracts (context-aware)
//

// JobService defines the read operations behind /jobs, /companies and /sources.
type JobService interface {
	ListPage(ctx context.Context, f repo.JobFilter, page, pageSize int) ([]domain.Job, int64, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	Companies(ctx context.Context) ([]repo.CompanyCount, error)
	Sources(ctx context.Context) ([]repo.SourceStat, error)
}

// Ingestor runs one webhook delivery end to end.
type Ingestor interface {
	Ingest(ctx context.Context, token, source string, payload []byte) (ingest.Result, error)
}

// Forwarder runs a quota-gated AI action.
type Forwarder interface {
	Do(ctx context.Context, userID string, action domain.Action, req proxy.Request) (proxy.Outcome, error)
}

// UsageReader reports quota consumption without consuming.
type UsageReader interface {
	Usage(ctx context.Context, userID string, action domain.Action, limit int) (used, remaining int, err error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	jobs       JobService
	ingestor   Ingestor
	ai         Forwarder
	usage      UsageReader
	dailyLimit int
}

// New constructs a Handlers instance bound to the given services.
// dailyLimit is the per-action quota reported by the quota endpoint.
func New(jobs JobService, ing Ingestor, ai Forwarder, usage UsageReader, dailyLimit int) *Handlers {
	return &Handlers{jobs: jobs, ingestor: ing, ai: ai, usage: usage, dailyLimit: dailyLimit}
}
