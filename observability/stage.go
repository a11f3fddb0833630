package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StageScope tracks one pipeline stage: a span plus the stage.duration
// histogram. A nil Metrics skips metric recording.
type StageScope struct {
	Stage   string
	start   time.Time
	span    trace.Span
	metrics *Metrics
}

// StartStage opens a span named "stage.<name>".
func StartStage(ctx context.Context, metrics *Metrics, stage string) (context.Context, *StageScope) {
	ctx, span := StartSpan(ctx, "stage."+stage, trace.WithAttributes(attribute.String(AttrStage, stage)))
	return ctx, &StageScope{Stage: stage, start: time.Now(), span: span, metrics: metrics}
}

// Elapsed returns the time since the stage started.
func (s *StageScope) Elapsed() time.Duration {
	return time.Since(s.start)
}

// End closes the span and records the stage outcome.
func (s *StageScope) End(ctx context.Context, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		SetSpanError(ctx, err)
	}
	s.span.End()
	if s.metrics != nil {
		s.metrics.RecordStage(ctx, s.Stage, status, s.Elapsed())
	}
}
