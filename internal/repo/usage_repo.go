package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-job-backend/internal/domain"
)

// ConsumeUsage atomically takes one unit of quota for (userID, action, day).
//
// The day row is created lazily with INSERT ... ON CONFLICT DO NOTHING, then a
// single conditional UPDATE increments the counter only while count < limit.
// Two concurrent callers can never both pass on the last remaining unit: the
// database serializes the UPDATE and re-evaluates the predicate.
//
// It returns the new count and true when a unit was taken, or (0, false) when
// the quota for that day is exhausted.
func ConsumeUsage(ctx context.Context, db *gorm.DB, userID, action, day string, limit int) (int, bool, error) {
	now := time.Now().UTC()
	db = db.WithContext(ctx)

	seed := domain.UsageCounter{UserID: userID, Action: action, Day: day, Count: 0, Limit: limit, UpdatedAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, false, err
	}

	var counts []struct{ Count int }
	err := db.Raw(
		`UPDATE usage_counters
		    SET count = count + 1, limit_value = ?, updated_at = ?
		  WHERE user_id = ? AND action = ? AND day = ? AND count < ?
		RETURNING count`,
		limit, now, userID, action, day, limit,
	).Scan(&counts).Error
	if err != nil {
		return 0, false, err
	}
	if len(counts) == 0 {
		return 0, false, nil
	}
	return counts[0].Count, true, nil
}

// GetUsage returns the counter for (userID, action, day) without modifying it.
// A missing row is reported as a zero count, not ErrNotFound.
func GetUsage(ctx context.Context, db *gorm.DB, userID, action, day string) (int, error) {
	var c domain.UsageCounter
	err := db.WithContext(ctx).
		Where("user_id = ? AND action = ? AND day = ?", userID, action, day).
		Limit(1).
		Find(&c).Error
	if err != nil {
		return 0, err
	}
	return c.Count, nil
}

// PurgeUsageBefore deletes counters whose day sorts before the given day
// (YYYY-MM-DD compares lexically) and returns the number of rows removed.
func PurgeUsageBefore(ctx context.Context, db *gorm.DB, day string) (int64, error) {
	res := db.WithContext(ctx).
		Where("day < ?", day).
		Delete(&domain.UsageCounter{})
	return res.RowsAffected, res.Error
}
