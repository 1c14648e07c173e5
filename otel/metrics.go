package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/petal-labs/fractions/runtime"
)

// MetricsHandler translates evaluation events into OpenTelemetry metrics.
type MetricsHandler struct {
	evaluations metric.Int64Counter
	failures    metric.Int64Counter
	duration    metric.Float64Histogram
	sessions    metric.Int64UpDownCounter
}

// NewMetricsHandler creates a MetricsHandler that uses the given meter to create
// its instruments.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	evaluations, err := meter.Int64Counter("fractions.evaluations",
		metric.WithDescription("Number of evaluated expressions"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("fractions.failures",
		metric.WithDescription("Number of expressions that evaluated to an error message"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("fractions.evaluation.duration",
		metric.WithDescription("Duration of an evaluation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	sessions, err := meter.Int64UpDownCounter("fractions.sessions.active",
		metric.WithDescription("Number of open sessions"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		evaluations: evaluations,
		failures:    failures,
		duration:    duration,
		sessions:    sessions,
	}, nil
}

// Handle records the metrics for one event.
// It implements runtime.EventHandler semantics.
func (h *MetricsHandler) Handle(e runtime.Event) {
	ctx := context.Background()

	switch e.Kind {
	case runtime.EventEvalFinished, runtime.EventEvalFailed:
		opAttrs := metric.WithAttributes(attribute.String("operator", e.PayloadString("operator")))
		h.evaluations.Add(ctx, 1, opAttrs)
		h.duration.Record(ctx, e.Elapsed.Seconds(), opAttrs)
		if e.Kind == runtime.EventEvalFailed {
			h.failures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("error_kind", e.PayloadString("error_kind")),
			))
		}
	case runtime.EventSessionStarted:
		h.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", e.PayloadString("kind"))))
	case runtime.EventSessionFinished:
		h.sessions.Add(ctx, -1, metric.WithAttributes(attribute.String("kind", e.PayloadString("kind"))))
	}
}
