package quota

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-job-backend/internal/domain"
)

// ErrNoUser is returned when Check is called without a user identity.
var ErrNoUser = errors.New("quota: empty user id")

var quotaDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quota_decisions_total",
		Help: "Quota checks by action and outcome (allowed|denied|error).",
	},
	[]string{"action", "outcome"},
)

func init() {
	prometheus.MustRegister(quotaDecisions)
}

// Decision is the outcome of one quota check.
type Decision struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

// Limiter gates actions to a fixed number per user per UTC day.
type Limiter struct {
	Store Store
	// Now is the clock used to pick the quota day; nil means time.Now.
	Now func() time.Time
}

// Check consumes one unit of action's daily quota for userID.
//
// If usage < limit the counter is incremented and the decision is
// {Allowed: true, Remaining: limit - newCount}. Otherwise it is
// {Allowed: false, Remaining: 0} and nothing is incremented. A limit <= 0
// denies without touching the store.
func (l *Limiter) Check(ctx context.Context, userID string, action domain.Action, limit int) (Decision, error) {
	if strings.TrimSpace(userID) == "" {
		return Decision{}, ErrNoUser
	}
	if limit <= 0 {
		quotaDecisions.WithLabelValues(string(action), "denied").Inc()
		return Decision{Allowed: false, Remaining: 0}, nil
	}

	count, allowed, err := l.Store.Consume(ctx, userID, action.Bucket(), l.day(), limit)
	if err != nil {
		quotaDecisions.WithLabelValues(string(action), "error").Inc()
		return Decision{}, err
	}
	if !allowed {
		quotaDecisions.WithLabelValues(string(action), "denied").Inc()
		return Decision{Allowed: false, Remaining: 0}, nil
	}
	quotaDecisions.WithLabelValues(string(action), "allowed").Inc()
	return Decision{Allowed: true, Remaining: max(limit-count, 0)}, nil
}

// Usage reports today's consumption for action without consuming anything.
func (l *Limiter) Usage(ctx context.Context, userID string, action domain.Action, limit int) (used, remaining int, err error) {
	if strings.TrimSpace(userID) == "" {
		return 0, 0, ErrNoUser
	}
	used, err = l.Store.Used(ctx, userID, action.Bucket(), l.day())
	if err != nil {
		return 0, 0, err
	}
	return used, max(limit-used, 0), nil
}

func (l *Limiter) day() string {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	return domain.QuotaDay(now())
}
