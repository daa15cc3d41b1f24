// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries describing how
// fresh the ingested data is per source.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-job-backend/internal/domain"
)

// SourceStat summarizes the jobs stored for one source.
type SourceStat struct {
	Source        string     `json:"source"`
	Jobs          int64      `json:"jobs"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`
}

// SourceStats returns one SourceStat per known source, in domain.KnownSources
// order. Sources with no rows report Jobs=0 and a nil LastFetchedAt.
//
// It runs two lightweight queries per source; the number of sources is small
// and fixed.
func SourceStats(ctx context.Context, db *gorm.DB) ([]SourceStat, error) {
	out := make([]SourceStat, 0, len(domain.KnownSources))
	for _, src := range domain.KnownSources {
		count, last, err := sourceStat(ctx, db, string(src))
		if err != nil {
			return nil, err
		}
		out = append(out, SourceStat{Source: string(src), Jobs: count, LastFetchedAt: last})
	}
	return out, nil
}

func sourceStat(ctx context.Context, db *gorm.DB, source string) (count int64, lastFetchedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Job{}).Where("source = ?", source)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest fetched_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		FetchedAt time.Time
	}
	if err = db.WithContext(ctx).Model(&domain.Job{}).
		Where("source = ?", source).
		Select("fetched_at").Order("fetched_at DESC").Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.FetchedAt, nil
}
