package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestRecorder(t *testing.T) (Recorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})
	rec, err := New(provider.Meter("test"))
	require.NoError(t, err)
	return rec, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func sumOf(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestRecorderCounters(t *testing.T) {
	rec, reader := newTestRecorder(t)
	ctx := context.Background()

	rec.CacheLookup(ctx, "sessions", true)
	rec.CacheLookup(ctx, "sessions", false)
	rec.CacheEviction(ctx, "sessions", "lazy")
	rec.CacheSweep(ctx, "sessions", 3)
	rec.WaiterCompleted(ctx, "timeout")
	rec.PromptRetry(ctx)
	rec.PromptRetry(ctx)
	rec.SendCompleted(ctx, "send.text", "ok", 1)
	rec.SendCompleted(ctx, "send.text", "fail", 3)

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(rm, "openspace.cache.lookups"))
	assert.Equal(t, int64(1), sumOf(rm, "openspace.cache.evictions"))
	assert.Equal(t, int64(1), sumOf(rm, "openspace.cache.sweeps"))
	assert.Equal(t, int64(1), sumOf(rm, "openspace.waiter.completed"))
	assert.Equal(t, int64(2), sumOf(rm, "openspace.prompt.retries"))
	assert.Equal(t, int64(2), sumOf(rm, "openspace.sender.calls"))
}

func TestOrDefault(t *testing.T) {
	assert.NotNil(t, OrDefault(nil))
	assert.Equal(t, Noop{}, OrDefault(Noop{}))
}
