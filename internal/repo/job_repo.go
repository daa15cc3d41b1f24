package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-job-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertBatchSize bounds the number of rows per INSERT statement.
const UpsertBatchSize = 500

// JobFilter narrows ListJobs and CountJobs. Empty fields do not filter.
// Company and City match case-insensitively.
type JobFilter struct {
	Source  string
	Company string
	City    string
}

// CompanyCount is one row of ListCompanies.
type CompanyCount struct {
	Name string `json:"name"`
	Jobs int64  `json:"jobs"`
}

// UpsertJobs writes jobs keyed on (source, source_job_id) inside a single
// transaction. Rows whose key already exists are fully overwritten (except
// id and created_at); other rows are inserted. Either every row is written
// or none is.
//
// Rows without a SourceJobID never conflict and are always inserted. When a
// batch repeats the same key, the last occurrence wins.
//
// It returns the number of rows sent to the database.
func UpsertJobs(ctx context.Context, db *gorm.DB, jobs []domain.Job) (int, error) {
	rows := dedupeByKey(jobs)
	if len(rows) == 0 {
		return 0, nil
	}
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}, {Name: "source_job_id"}},
			UpdateAll: true,
		}).CreateInBatches(&rows, UpsertBatchSize).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// dedupeByKey keeps the last job for each non-NULL (source, source_job_id),
// preserving first-seen order. Postgres rejects an ON CONFLICT statement that
// touches the same row twice.
func dedupeByKey(jobs []domain.Job) []domain.Job {
	out := make([]domain.Job, 0, len(jobs))
	seen := make(map[string]int, len(jobs))
	for _, j := range jobs {
		if j.SourceJobID == nil {
			out = append(out, j)
			continue
		}
		k := string(j.Source) + "\x00" + *j.SourceJobID
		if i, ok := seen[k]; ok {
			out[i] = j
			continue
		}
		seen[k] = len(out)
		out = append(out, j)
	}
	return out
}

func applyJobFilter(q *gorm.DB, f JobFilter) *gorm.DB {
	if s := strings.TrimSpace(f.Source); s != "" {
		q = q.Where("source = ?", s)
	}
	if c := strings.TrimSpace(f.Company); c != "" {
		q = q.Where("LOWER(company_name) = ?", strings.ToLower(c))
	}
	if c := strings.TrimSpace(f.City); c != "" {
		q = q.Where("LOWER(location_city) = ?", strings.ToLower(c))
	}
	return q
}

// ListJobs returns a page of jobs matching f, most recently fetched first.
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListJobs(ctx context.Context, db *gorm.DB, f JobFilter, offset, limit int) ([]domain.Job, error) {
	var out []domain.Job
	err := applyJobFilter(db.WithContext(ctx).Model(&domain.Job{}), f).
		Order("fetched_at desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountJobs returns the number of jobs matching f.
func CountJobs(ctx context.Context, db *gorm.DB, f JobFilter) (int64, error) {
	var total int64
	err := applyJobFilter(db.WithContext(ctx).Model(&domain.Job{}), f).
		Count(&total).Error
	return total, err
}

// GetJob fetches a single job by its surrogate ID, or ErrNotFound.
func GetJob(ctx context.Context, db *gorm.DB, id string) (*domain.Job, error) {
	var j domain.Job
	if err := db.WithContext(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// ListCompanies returns company names with their job counts, busiest first.
// Jobs without a company name are ignored.
func ListCompanies(ctx context.Context, db *gorm.DB, limit int) ([]CompanyCount, error) {
	out := []CompanyCount{}
	err := db.WithContext(ctx).
		Model(&domain.Job{}).
		Select("company_name AS name, COUNT(*) AS jobs").
		Where("company_name IS NOT NULL AND company_name <> ''").
		Group("company_name").
		Order("jobs DESC").
		Order("name ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}
