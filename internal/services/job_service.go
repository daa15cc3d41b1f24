// Package services – JobService
//
// This file implements the read side of the job board: paginated job
// listings with filters, single-job lookup, the company directory and
// per-source freshness. Writes happen only through ingestion.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/google/uuid"

	"github.com/tbourn/go-job-backend/internal/domain"
	"github.com/tbourn/go-job-backend/internal/repo"
	"github.com/tbourn/go-job-backend/internal/utils"
)

// JobRepo defines the repository contract required by JobService.
type JobRepo interface {
	ListJobs(ctx context.Context, db *gorm.DB, f repo.JobFilter, offset, limit int) ([]domain.Job, error)
	CountJobs(ctx context.Context, db *gorm.DB, f repo.JobFilter) (int64, error)
	GetJob(ctx context.Context, db *gorm.DB, id string) (*domain.Job, error)
	ListCompanies(ctx context.Context, db *gorm.DB, limit int) ([]repo.CompanyCount, error)
	SourceStats(ctx context.Context, db *gorm.DB) ([]repo.SourceStat, error)
}

// JobService serves job and company listings.
type JobService struct {
	DB   *gorm.DB
	Repo JobRepo

	// DefaultPageSize applies when the caller passes pageSize <= 0.
	DefaultPageSize int
	// MaxCompanies caps the company directory.
	MaxCompanies int
}

// NewJobService constructs a JobService with default paging.
func NewJobService(db *gorm.DB, r JobRepo) *JobService {
	return &JobService{
		DB:              db,
		Repo:            r,
		DefaultPageSize: 20,
		MaxCompanies:    500,
	}
}

// ListPage returns a page of jobs matching f, newest first, and the total count.
func (s *JobService) ListPage(ctx context.Context, f repo.JobFilter, page, pageSize int) ([]domain.Job, int64, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("job.source", f.Source),
			attribute.Int("page", page),
		),
	)
	defer span.End()

	if f.Source != "" {
		src := domain.Source(strings.ToLower(strings.TrimSpace(f.Source)))
		if !src.Valid() {
			return nil, 0, ErrInvalidFilter
		}
		f.Source = string(src)
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.DefaultPageSize
	}
	offset := utils.Offset(page, pageSize)

	total, err := s.Repo.CountJobs(ctx, s.DB, f)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Job{}, 0, nil
	}

	items, err := s.Repo.ListJobs(ctx, s.DB, f, offset, pageSize)
	if err != nil {
		span.RecordError(err)
	}
	return items, total, err
}

// Get returns one job by id.
func (s *JobService) Get(ctx context.Context, id string) (*domain.Job, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("job.id", id)))
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrJobNotFound
	}
	j, err := s.Repo.GetJob(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return j, nil
}

// Companies returns company names with their posting counts, busiest first.
func (s *JobService) Companies(ctx context.Context) ([]repo.CompanyCount, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "Companies")
	defer span.End()

	out, err := s.Repo.ListCompanies(ctx, s.DB, s.MaxCompanies)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if out == nil {
		out = []repo.CompanyCount{}
	}
	return out, nil
}

// Sources reports job counts and the latest ingestion time per source.
func (s *JobService) Sources(ctx context.Context) ([]repo.SourceStat, error) {
	tr := otel.Tracer("services/JobService")
	ctx, span := tr.Start(ctx, "Sources")
	defer span.End()

	out, err := s.Repo.SourceStats(ctx, s.DB)
	if err != nil {
		span.RecordError(err)
	}
	return out, err
}
