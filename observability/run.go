package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunScope tracks the span and metrics of a single pipeline run.
// A nil Metrics skips metric recording.
type RunScope struct {
	RunID     string
	StartTime time.Time
	Metrics   *Metrics
}

// NewRunScope creates a scope for runID.
func NewRunScope(runID string, metrics *Metrics) *RunScope {
	return &RunScope{
		RunID:     runID,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

type runScopeKey struct{}

// WithRunScope stores rs in ctx.
func WithRunScope(ctx context.Context, rs *RunScope) context.Context {
	return context.WithValue(ctx, runScopeKey{}, rs)
}

// RunScopeFromContext returns the RunScope stored in ctx, or nil.
func RunScopeFromContext(ctx context.Context) *RunScope {
	if rs, ok := ctx.Value(runScopeKey{}).(*RunScope); ok {
		return rs
	}
	return nil
}

// Start opens the run span and records the run start.
func (rs *RunScope) Start(ctx context.Context) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, SpanRun)
	span.SetAttributes(attribute.String(AttrRunID, rs.RunID))
	if rs.Metrics != nil {
		rs.Metrics.RecordRunStart(ctx)
	}
	return WithRunScope(ctx, rs), span
}

// End closes the span and records the run outcome.
func (rs *RunScope) End(ctx context.Context, span trace.Span, err error) {
	duration := rs.Duration()
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	if rs.Metrics != nil {
		rs.Metrics.RecordRunEnd(ctx, status, duration)
		if err != nil {
			rs.Metrics.RecordError(ctx, "run", rs.RunID)
		}
	}
	span.End()
}

// Duration returns the time elapsed since the scope was created.
func (rs *RunScope) Duration() time.Duration {
	return time.Since(rs.StartTime)
}
