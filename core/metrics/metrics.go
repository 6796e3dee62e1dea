// Package metrics exposes OpenTelemetry instruments for the conversation
// and cache core. Instruments are created against the global meter provider;
// configure it with otel.SetMeterProvider before the first call to Default.
package metrics

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/m3rciful/openspace/core/logger"
)

const meterName = "github.com/m3rciful/openspace"

// Recorder receives core events worth counting.
type Recorder interface {
	// CacheLookup records a TryGet outcome for the named cache.
	CacheLookup(ctx context.Context, cache string, hit bool)
	// CacheEviction records an automatic eviction; reason is "lazy" or "sweep".
	CacheEviction(ctx context.Context, cache, reason string)
	// CacheSweep records one completed background sweep.
	CacheSweep(ctx context.Context, cache string, evicted int)
	// WaiterCompleted records how a waiter finished: "resolved" or "timeout".
	WaiterCompleted(ctx context.Context, outcome string)
	// PromptRetry records a failed validation shown back to the user.
	PromptRetry(ctx context.Context)
	// SendCompleted records an outbound Telegram call; status is "ok" or "fail".
	SendCompleted(ctx context.Context, action, status string, attempts int)
}

type otelRecorder struct {
	lookups   metric.Int64Counter
	evictions metric.Int64Counter
	sweeps    metric.Int64Counter
	swept     metric.Int64Histogram
	waiters   metric.Int64Counter
	retries   metric.Int64Counter
	sends     metric.Int64Counter
	attempts  metric.Int64Histogram
}

var (
	defaultOnce sync.Once
	defaultRec  Recorder
)

// Default returns the process-wide recorder, falling back to Noop when the
// instruments cannot be created.
func Default() Recorder {
	defaultOnce.Do(func() {
		rec, err := New(otel.Meter(meterName))
		if err != nil {
			logger.Warn(context.Background(), "metrics", "metrics.init",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			defaultRec = Noop{}
			return
		}
		defaultRec = rec
	})
	return defaultRec
}

// New builds a Recorder from the provided meter.
func New(meter metric.Meter) (Recorder, error) {
	lookups, err := meter.Int64Counter("openspace.cache.lookups",
		metric.WithDescription("Cache lookups by outcome"),
	)
	if err != nil {
		return nil, err
	}
	evictions, err := meter.Int64Counter("openspace.cache.evictions",
		metric.WithDescription("Entries evicted after expiry"),
	)
	if err != nil {
		return nil, err
	}
	sweeps, err := meter.Int64Counter("openspace.cache.sweeps",
		metric.WithDescription("Background sweeps executed"),
	)
	if err != nil {
		return nil, err
	}
	swept, err := meter.Int64Histogram("openspace.cache.sweep_evicted",
		metric.WithDescription("Entries evicted per sweep"),
	)
	if err != nil {
		return nil, err
	}
	waiters, err := meter.Int64Counter("openspace.waiter.completed",
		metric.WithDescription("Input waiters completed by outcome"),
	)
	if err != nil {
		return nil, err
	}
	retries, err := meter.Int64Counter("openspace.prompt.retries",
		metric.WithDescription("Rejected inputs that triggered a retry"),
	)
	if err != nil {
		return nil, err
	}
	sends, err := meter.Int64Counter("openspace.sender.calls",
		metric.WithDescription("Outbound Telegram calls by action and status"),
	)
	if err != nil {
		return nil, err
	}
	attempts, err := meter.Int64Histogram("openspace.sender.attempts",
		metric.WithDescription("Attempts spent per outbound Telegram call"),
	)
	if err != nil {
		return nil, err
	}
	return &otelRecorder{
		lookups:   lookups,
		evictions: evictions,
		sweeps:    sweeps,
		swept:     swept,
		waiters:   waiters,
		retries:   retries,
		sends:     sends,
		attempts:  attempts,
	}, nil
}

func (r *otelRecorder) CacheLookup(ctx context.Context, cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}

func (r *otelRecorder) CacheEviction(ctx context.Context, cache, reason string) {
	r.evictions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("reason", reason),
	))
}

func (r *otelRecorder) CacheSweep(ctx context.Context, cache string, evicted int) {
	attrs := metric.WithAttributes(attribute.String("cache", cache))
	r.sweeps.Add(ctx, 1, attrs)
	r.swept.Record(ctx, int64(evicted), attrs)
}

func (r *otelRecorder) WaiterCompleted(ctx context.Context, outcome string) {
	r.waiters.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (r *otelRecorder) PromptRetry(ctx context.Context) {
	r.retries.Add(ctx, 1)
}

func (r *otelRecorder) SendCompleted(ctx context.Context, action, status string, attempts int) {
	r.sends.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", status),
	))
	r.attempts.Record(ctx, int64(attempts), metric.WithAttributes(attribute.String("action", action)))
}

// Noop discards everything.
type Noop struct{}

func (Noop) CacheLookup(context.Context, string, bool) {}

func (Noop) CacheEviction(context.Context, string, string) {}

func (Noop) CacheSweep(context.Context, string, int) {}

func (Noop) WaiterCompleted(context.Context, string) {}

func (Noop) PromptRetry(context.Context) {}

func (Noop) SendCompleted(context.Context, string, string, int) {}

// OrDefault returns r, or Default when r is nil.
func OrDefault(r Recorder) Recorder {
	if r == nil {
		return Default()
	}
	return r
}
