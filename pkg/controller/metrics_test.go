package controller

import (
	"context"
	"testing"
	"testing/synctest"

	"github.com/hyperion-energy/hyperion/pkg/metrics"
	"github.com/hyperion-energy/hyperion/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// countsBy sums the data points of the named int64 sum by the value of attr.
func countsBy(t *testing.T, reader *sdkmetric.ManualReader, name, attr string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key(attr))
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestSessionMetrics(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		m, err := metrics.NewControllerWithMeter(
			sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"),
		)
		require.NoError(t, err)

		ctx := context.Background()
		sim := newFakeSimulator()
		c := NewController(sim, &mockProposer{}, Options{Initial: types.DefaultInputs(), Metrics: m})
		s := c.NewSession(ctx)
		defer s.Close()

		assert.Equal(t, map[string]int64{"": 1}, countsBy(t, reader, "hyperion.sessions.active", ""))

		// generation 1 is superseded by generation 2 and comes back cancelled
		settle(t)
		first := sim.next(t)
		_, err = s.Edit(ctx, types.FieldSolarMW, 40)
		require.NoError(t, err)
		settle(t)
		require.ErrorIs(t, first.ctx.Err(), context.Canceled)
		sim.next(t).succeed(makeResult(40))
		waitIdle()

		_, err = s.Edit(ctx, types.FieldSolarMW, 45)
		require.NoError(t, err)
		settle(t)
		sim.next(t).fail(errUnavailable)
		waitIdle()

		assert.Equal(t, map[string]int64{
			string(metrics.OutcomeStale):    1,
			string(metrics.OutcomeAccepted): 1,
			string(metrics.OutcomeFailed):   1,
		}, countsBy(t, reader, "hyperion.simulation.completions", "outcome"))
		assert.Equal(t, map[string]int64{"": 3}, countsBy(t, reader, "hyperion.simulation.requests", ""))

		s.Close()
		assert.Equal(t, map[string]int64{"": 0}, countsBy(t, reader, "hyperion.sessions.active", ""))
	})
}
