package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mealprep"
)

func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestInstrumentedBuilder_RecordsBuilds(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ib := NewInstrumentedBuilder(
		NewBuilder(ketoCatalog(), DefaultProfile()),
		tp.Tracer(mealprep.TracerNameBuilder),
		mp.Meter(mealprep.TracerNameBuilder),
	)

	_, err := ib.Build(ctx, []PlannedMeal{{ID: "lunch", RecipeID: "chicken_sandwich", Multiplier: 1, Date: sunday}})
	require.NoError(t, err)
	_, err = ib.Build(ctx, nil)
	require.ErrorIs(t, err, ErrNoMeals)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), counterValue(t, rm, "timeline_builds_total"))
	assert.Equal(t, int64(1), counterValue(t, rm, "timeline_build_failures_total"))
	assert.Equal(t, int64(0), counterValue(t, rm, "resource_conflicts_total"))

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "InstrumentedBuilder.Build")
	assert.Contains(t, names, "Builder.Resolve")
	assert.Contains(t, names, "Builder.Schedule")
}
