package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-job-backend/internal/domain"
	"github.com/tbourn/go-job-backend/internal/repo"
)

// Janitor periodically deletes SQL usage counters older than Retention.
// Counters for past days are never read again, so this only bounds table size.
type Janitor struct {
	DB        *gorm.DB
	Retention time.Duration
	Now       func() time.Time

	cron *cron.Cron
	spec string // cron spec, e.g. "@every 6h"
}

// NewJanitor creates a Janitor that fires on the given cron schedule.
func NewJanitor(db *gorm.DB, spec string, retention time.Duration) *Janitor {
	return &Janitor{
		DB:        db,
		Retention: retention,
		cron:      cron.New(),
		spec:      spec,
	}
}

// Start registers the purge job and starts the scheduler.
func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.spec, func() {
		if _, err := j.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("quota janitor: purge failed")
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", j.spec, err)
	}
	j.cron.Start()
	log.Info().Str("spec", j.spec).Dur("retention", j.Retention).Msg("quota janitor started")
	return nil
}

// Stop stops the scheduler and waits for a running purge to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("quota janitor stopped")
}

// RunOnce deletes counters whose day is older than now - Retention.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	cutoff := domain.QuotaDay(now().Add(-j.Retention))
	n, err := repo.PurgeUsageBefore(ctx, j.DB, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("rows", n).Str("before", cutoff).Msg("quota janitor: purged usage counters")
	}
	return n, nil
}
