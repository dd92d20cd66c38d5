package schedule

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"mealprep"
)

// InstrumentedBuilder wraps a Builder with tracing and build metrics.
type InstrumentedBuilder struct {
	builder *Builder
	tracer  trace.Tracer
	meter   metric.Meter
}

// NewInstrumentedBuilder initializes a builder whose phases are traced with tracer and whose
// builds are counted on meter.
func NewInstrumentedBuilder(b *Builder, tracer trace.Tracer, meter metric.Meter) *InstrumentedBuilder {
	WithTracer(tracer)(b)
	return &InstrumentedBuilder{builder: b, tracer: tracer, meter: meter}
}

// Profile returns the kitchen profile of the wrapped builder.
func (ib *InstrumentedBuilder) Profile() Profile { return ib.builder.Profile() }

// Scheduler returns the scheduler of the wrapped builder.
func (ib *InstrumentedBuilder) Scheduler() *Scheduler { return ib.builder.Scheduler() }

// Build runs the wrapped build and records its outcome.
func (ib *InstrumentedBuilder) Build(ctx context.Context, meals []PlannedMeal) (*Plan, error) {
	ctx, span := ib.tracer.Start(ctx, "InstrumentedBuilder.Build")
	defer span.End()

	buildsCounter, _ := ib.meter.Int64Counter("timeline_builds_total",
		metric.WithDescription("Total number of timeline builds started"))
	failuresCounter, _ := ib.meter.Int64Counter("timeline_build_failures_total",
		metric.WithDescription("Total number of timeline builds that failed"))
	conflictsCounter, _ := ib.meter.Int64Counter("resource_conflicts_total",
		metric.WithDescription("Total number of equipment conflicts reported by builds"))
	stepsGauge, _ := ib.meter.Int64Gauge("timeline_steps",
		metric.WithDescription("Number of steps in the latest timeline"))
	durationHist, _ := ib.meter.Float64Histogram("timeline_build_duration_seconds",
		metric.WithDescription("Duration of timeline builds in seconds"))

	buildsCounter.Add(ctx, 1)
	span.SetAttributes(attribute.Int("meals", len(meals)))

	start := time.Now()
	plan, err := ib.builder.Build(ctx, meals)
	durationHist.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		class := mealprep.Classify(err).String()
		failuresCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("error_class", class)))
		span.SetStatus(codes.Error, "timeline build failed")
		span.RecordError(err)
		slog.Warn("BUILDER: Build failed", "error", err, "error_class", class)
		return nil, err
	}

	conflictsCounter.Add(ctx, int64(len(plan.Timeline.Conflicts)))
	stepsGauge.Record(ctx, int64(len(plan.Timeline.Steps)))
	span.SetAttributes(
		attribute.Int("steps", len(plan.Timeline.Steps)),
		attribute.Int("conflicts", len(plan.Timeline.Conflicts)),
		attribute.Int("total_minutes", plan.Timeline.TotalMinutes),
	)
	span.SetStatus(codes.Ok, "")
	return plan, nil
}
