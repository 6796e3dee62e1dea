package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/openspace/core/clock"
	"github.com/m3rciful/openspace/core/kv"
	"github.com/m3rciful/openspace/core/metrics"
)

type fakeConnector struct {
	userID int64
	store  kv.Store
	paused atomic.Int32
}

func (c *fakeConnector) Pause() { c.paused.Add(1) }

type factoryLog struct {
	calls atomic.Int32
	gate  chan struct{}
}

func (f *factoryLog) build(_ context.Context, userID int64, store kv.Store) (Connector, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return &fakeConnector{userID: userID, store: store}, nil
}

func newTestPool(fc *clock.Fake, f *factoryLog, store kv.Store) *Pool {
	return NewPool(Options{
		Sliding:       2 * time.Minute,
		SweepInterval: 10 * time.Minute,
		Store:         store,
		Factory:       f.build,
		Clock:         fc,
		Metrics:       metrics.Noop{},
	})
}

func TestGetCachesConnector(t *testing.T) {
	fc := clock.NewFake(time.Time{})
	f := &factoryLog{}
	p := newTestPool(fc, f, nil)
	ctx := context.Background()

	a, err := p.Get(ctx, 1)
	require.NoError(t, err)
	b, err := p.Get(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, int32(1), f.calls.Load())

	_, err = p.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
	assert.Equal(t, 2, p.Len())
}

func TestColdConnectorIsPausedOnce(t *testing.T) {
	fc := clock.NewFake(time.Time{})
	f := &factoryLog{}
	p := newTestPool(fc, f, nil)
	ctx := context.Background()

	c, err := p.Get(ctx, 1)
	require.NoError(t, err)
	conn := c.(*fakeConnector)

	fc.Advance(2 * time.Minute)
	again, err := p.Get(ctx, 1)
	require.NoError(t, err)
	assert.NotSame(t, c, again, "expired connector is replaced")
	assert.Equal(t, int32(1), conn.paused.Load())

	assert.Zero(t, p.Sweep())
	assert.Equal(t, int32(1), conn.paused.Load())
}

func TestSweepPausesIdleConnectors(t *testing.T) {
	fc := clock.NewFake(time.Time{})
	f := &factoryLog{}
	p := newTestPool(fc, f, nil)
	ctx := context.Background()

	var conns []*fakeConnector
	for id := int64(1); id <= 3; id++ {
		c, err := p.Get(ctx, id)
		require.NoError(t, err)
		conns = append(conns, c.(*fakeConnector))
	}

	fc.Advance(time.Minute)
	_, err := p.Get(ctx, 3)
	require.NoError(t, err)
	fc.Advance(90 * time.Second)

	assert.Equal(t, 2, p.Sweep())
	assert.Equal(t, int32(1), conns[0].paused.Load())
	assert.Equal(t, int32(1), conns[1].paused.Load())
	assert.Zero(t, conns[2].paused.Load())
	assert.Equal(t, 1, p.Len())
}

func TestConcurrentMissesShareFactoryCall(t *testing.T) {
	fc := clock.NewFake(time.Time{})
	f := &factoryLog{gate: make(chan struct{})}
	p := newTestPool(fc, f, nil)

	const n = 16
	var wg sync.WaitGroup
	got := make([]Connector, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := p.Get(context.Background(), 7)
			assert.NoError(t, err)
			got[i] = c
		}(i)
	}
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	for _, c := range got {
		assert.Same(t, got[0], c)
	}
}

func TestConnectorStoreIsNamespaced(t *testing.T) {
	fc := clock.NewFake(time.Time{})
	base := kv.NewMemory()
	p := newTestPool(fc, &factoryLog{}, base)
	ctx := context.Background()

	c, err := p.Get(ctx, 42)
	require.NoError(t, err)
	require.NoError(t, c.(*fakeConnector).store.Set(ctx, "client_id", "abc"))

	raw, err := base.Get(ctx, "session:42:client_id")
	require.NoError(t, err)
	assert.Equal(t, "abc", raw)
}

func TestFactoryErrorIsNotCached(t *testing.T) {
	fc := clock.NewFake(time.Time{})
	boom := errors.New("bridge unavailable")
	calls := 0
	p := NewPool(Options{
		Clock: fc,
		Factory: func(context.Context, int64, kv.Store) (Connector, error) {
			calls++
			if calls == 1 {
				return nil, boom
			}
			return &fakeConnector{}, nil
		},
	})

	_, err := p.Get(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	_, err = p.Get(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestForgetDoesNotPause(t *testing.T) {
	fc := clock.NewFake(time.Time{})
	p := newTestPool(fc, &factoryLog{}, nil)
	c, err := p.Get(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, p.Forget(1))
	assert.Zero(t, c.(*fakeConnector).paused.Load())
	assert.Zero(t, p.Len())
}

func TestGetWithoutFactory(t *testing.T) {
	p := NewPool(Options{})
	_, err := p.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoFactory)
}
