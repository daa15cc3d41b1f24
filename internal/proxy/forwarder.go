package proxy

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/go-job-backend/internal/domain"
	"github.com/tbourn/go-job-backend/internal/quota"
)

var backendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ai_backend_request_duration_seconds",
		Help:    "AI backend call latency by action and outcome.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	},
	[]string{"action", "outcome"},
)

func init() {
	prometheus.MustRegister(backendDuration)
}

// Outcome is the result of one forwarded action.
type Outcome struct {
	// RateLimited is set when the daily quota was exhausted; no backend call was made.
	RateLimited bool
	Remaining   int
	// Payload is the backend answer with "remaining" merged in.
	Payload map[string]any
}

// Forwarder gates backend calls behind the daily quota.
type Forwarder struct {
	Limiter *quota.Limiter
	Backend Client
	Limit   int
}

// Do consumes one unit of action's quota for userID and, if allowed, forwards
// req. The unit stays consumed when the backend call fails.
func (f *Forwarder) Do(ctx context.Context, userID string, action domain.Action, req Request) (Outcome, error) {
	ctx, span := otel.Tracer("proxy/Forwarder").Start(ctx, "Forwarder.Do")
	defer span.End()
	span.SetAttributes(attribute.String("ai.action", string(action)))

	dec, err := f.Limiter.Check(ctx, userID, action, f.Limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quota check failed")
		return Outcome{}, err
	}
	if !dec.Allowed {
		span.SetAttributes(attribute.Bool("ai.rate_limited", true))
		return Outcome{RateLimited: true, Remaining: 0}, nil
	}

	start := time.Now()
	payload, err := f.Backend.Forward(ctx, req)
	backendDuration.WithLabelValues(string(action), outcomeOf(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend call failed")
		return Outcome{Remaining: dec.Remaining}, err
	}

	payload["remaining"] = dec.Remaining
	return Outcome{Remaining: dec.Remaining, Payload: payload}, nil
}

func outcomeOf(err error) string {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &upstream):
		return "upstream_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
