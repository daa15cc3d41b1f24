// Package quota enforces per-user daily limits on AI actions.
//
// A counter is keyed by (user, bucket, UTC day); a new day means a new key, so
// quotas reset implicitly at midnight UTC. Every check is one atomic
// compare-and-increment in the backing store: two concurrent requests can
// never both take the last unit.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tbourn/go-job-backend/internal/repo"
)

// Store is an atomic per-day counter.
type Store interface {
	// Consume takes one unit for (userID, bucket, day) if count < limit and
	// returns the new count. allowed is false, and the counter untouched,
	// when the quota is exhausted.
	Consume(ctx context.Context, userID, bucket, day string, limit int) (count int, allowed bool, err error)
	// Used returns the current count without modifying it.
	Used(ctx context.Context, userID, bucket, day string) (int, error)
}

// SQLStore keeps counters in the usage_counters table.
type SQLStore struct {
	DB *gorm.DB
}

func (s SQLStore) Consume(ctx context.Context, userID, bucket, day string, limit int) (int, bool, error) {
	return repo.ConsumeUsage(ctx, s.DB, userID, bucket, day, limit)
}

func (s SQLStore) Used(ctx context.Context, userID, bucket, day string) (int, error) {
	return repo.GetUsage(ctx, s.DB, userID, bucket, day)
}

// consumeScript increments KEYS[1] only while it is below ARGV[1] and sets a
// PX expiry of ARGV[2] on first use. Returns {allowed(0|1), count}.
var consumeScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
if cur >= limit then
  return {0, cur}
end
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, n}
`)

// DefaultRedisTTL keeps a day's key around long enough to cover every time
// zone's view of that day; stale keys then expire on their own.
const DefaultRedisTTL = 48 * time.Hour

// RedisStore keeps counters in Redis under quota:{bucket}:{user}:{day}.
type RedisStore struct {
	Client redis.Cmdable
	TTL    time.Duration
}

func redisKey(userID, bucket, day string) string {
	return fmt.Sprintf("quota:%s:%s:%s", bucket, userID, day)
}

func (s RedisStore) Consume(ctx context.Context, userID, bucket, day string, limit int) (int, bool, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	res, err := consumeScript.Run(ctx, s.Client, []string{redisKey(userID, bucket, day)}, limit, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("redis quota script: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("redis quota script: unexpected reply %v", res)
	}
	if res[0] == 0 {
		return 0, false, nil
	}
	return int(res[1]), true, nil
}

func (s RedisStore) Used(ctx context.Context, userID, bucket, day string) (int, error) {
	n, err := s.Client.Get(ctx, redisKey(userID, bucket, day)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}
