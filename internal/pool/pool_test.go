package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgate/internal/testutil"
	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, opts Options) (*Manager, *testutil.FakeEngine, *fakeClock) {
	t.Helper()
	engine := &testutil.FakeEngine{}
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := NewManager(opts, testutil.NewTestLogger(t), WithOpenFunc(engine.Open), WithClock(clock.Now))
	t.Cleanup(func() { _ = m.Close() })
	return m, engine, clock
}

func source(id string) core.DataSource {
	return core.DataSource{
		ID:     id,
		Kind:   core.EnginePostgres,
		Active: true,
		Config: core.ConnectionConfig{Host: "db", Database: id, Password: "pw"},
	}
}

func TestManager_ReusesIdleConnection(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t, Options{})
	ds := source("sales")

	c1, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, StateInUse, c1.State)
	m.Release(c1)
	assert.Equal(t, StateIdle, c1.State)

	c2, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	assert.Same(t, c1.Adapter, c2.Adapter)
	assert.Equal(t, 1, engine.Opens())
	m.Release(c2)

	m.Release(c2) // double release is ignored
	stats := m.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, SourceStats{DataSourceID: "sales", Fingerprint: c1.Fingerprint, Open: 1, Idle: 1}, stats[0])
}

func TestManager_AcquireTimeout(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, Options{MaxPerSource: 1, AcquireTimeout: 30 * time.Millisecond})
	ds := source("sales")

	held, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	defer m.Release(held)

	_, err = m.Acquire(ctx, ds)
	var connErr *core.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.True(t, connErr.Timeout)
	assert.Equal(t, "sales", connErr.DataSourceID)
	assert.Equal(t, core.CodeConnectionError, core.ErrorCode(err))
}

func TestManager_AcquireTimeoutBoundsConnect(t *testing.T) {
	hanging := func(ctx context.Context, _ core.DataSource) (adapter.Adapter, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	m := NewManager(Options{AcquireTimeout: 50 * time.Millisecond}, testutil.NewTestLogger(t), WithOpenFunc(hanging))
	t.Cleanup(func() { _ = m.Close() })

	start := time.Now()
	_, err := m.Acquire(context.Background(), source("sales"))
	elapsed := time.Since(start)

	var connErr *core.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "connect", connErr.Op)
	assert.True(t, connErr.Timeout)
	assert.Less(t, elapsed, time.Second)

	// The failed open gave its slot back.
	assert.Empty(t, m.Stats()[0].InUse)
}

func TestManager_AcquireTimeoutBoundsIdlePing(t *testing.T) {
	m, engine, clock := newTestManager(t, Options{AcquireTimeout: 50 * time.Millisecond, ValidateAfterIdle: time.Second})
	ds := source("sales")

	c, err := m.Acquire(context.Background(), ds)
	require.NoError(t, err)
	m.Release(c)
	clock.Advance(time.Minute)

	var deadline bool
	engine.Set(func(e *testutil.FakeEngine) {
		e.PingHook = func(ctx context.Context) error {
			_, deadline = ctx.Deadline()
			return nil
		}
	})
	c, err = m.Acquire(context.Background(), ds)
	require.NoError(t, err)
	m.Release(c)
	assert.True(t, deadline, "idle validation should run under the acquire deadline")
}

func TestManager_ExhaustionIsPerSource(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, Options{MaxPerSource: 1, AcquireTimeout: 30 * time.Millisecond})

	held, err := m.Acquire(ctx, source("sales"))
	require.NoError(t, err)
	defer m.Release(held)

	other, err := m.Acquire(ctx, source("hr"))
	require.NoError(t, err)
	m.Release(other)
}

func TestManager_WaiterGetsReleasedConnection(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t, Options{MaxPerSource: 1, AcquireTimeout: 2 * time.Second})
	ds := source("sales")

	held, err := m.Acquire(ctx, ds)
	require.NoError(t, err)

	got := make(chan *PooledConnection)
	go func() {
		c, err := m.Acquire(ctx, ds)
		assert.NoError(t, err)
		got <- c
	}()

	time.Sleep(20 * time.Millisecond)
	m.Release(held)

	select {
	case c := <-got:
		assert.Same(t, held.Adapter, c.Adapter)
		m.Release(c)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never received a connection")
	}
	assert.Equal(t, 1, engine.Opens())
}

func TestManager_FingerprintChangeRetiresPool(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t, Options{})
	ds := source("sales")

	idle, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	busy, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	m.Release(idle)

	changed := ds
	changed.Config.Password = "rotated"
	fresh, err := m.Acquire(ctx, changed)
	require.NoError(t, err)

	opened := engine.Opened()
	require.Len(t, opened, 3)
	assert.NotEqual(t, idle.Fingerprint, fresh.Fingerprint)
	assert.True(t, opened[0].Closed(), "idle connection of the old pool closed at once")
	assert.False(t, opened[1].Closed(), "in-use connection survives until release")

	m.Release(busy)
	assert.True(t, opened[1].Closed(), "old connection never returns to idle")
	assert.Equal(t, StateClosed, busy.State)

	m.Release(fresh)
	stats := m.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, fresh.Fingerprint, stats[0].Fingerprint)
	assert.Equal(t, 1, stats[0].Open)
}

func TestManager_InvalidConnectionIsNotReused(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t, Options{})
	ds := source("sales")

	c1, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	c1.Invalidate()
	m.Release(c1)
	assert.True(t, engine.Opened()[0].Closed())

	c2, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	assert.NotSame(t, c1.Adapter, c2.Adapter)
	m.Release(c2)
}

func TestManager_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t, Options{})
	ds := source("sales")

	idle, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	busy, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	m.Release(idle)

	m.InvalidateAll("sales")
	assert.True(t, engine.Opened()[0].Closed())
	assert.False(t, engine.Opened()[1].Closed())
	assert.Empty(t, m.Stats())

	m.Release(busy)
	assert.True(t, engine.Opened()[1].Closed())

	again, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, 3, engine.Opens())
	m.Release(again)
}

func TestManager_ValidatesLongIdleConnections(t *testing.T) {
	ctx := context.Background()
	m, engine, clock := newTestManager(t, Options{ValidateAfterIdle: time.Minute})
	ds := source("sales")

	c, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	m.Release(c)

	clock.Advance(10 * time.Second)
	c, err = m.Acquire(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, 0, engine.Pings(), "recently used connections are not pinged")
	m.Release(c)

	clock.Advance(2 * time.Minute)
	engine.Set(func(e *testutil.FakeEngine) { e.PingErr = errors.New("server has gone away") })
	c, err = m.Acquire(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.Pings())
	assert.Equal(t, 2, engine.Opens(), "dead connection replaced")
	assert.True(t, engine.Opened()[0].Closed())
	m.Release(c)

	stats := m.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Open)
}

func TestManager_Sweep(t *testing.T) {
	ctx := context.Background()
	m, engine, clock := newTestManager(t, Options{IdleTimeout: time.Minute})
	ds := source("sales")

	old, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	recent, err := m.Acquire(ctx, ds)
	require.NoError(t, err)

	m.Release(old)
	clock.Advance(50 * time.Second)
	m.Release(recent)
	clock.Advance(20 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	assert.True(t, engine.Opened()[0].Closed())
	assert.False(t, engine.Opened()[1].Closed())
	assert.Equal(t, 1, m.Stats()[0].Idle)
}

func TestManager_RunStopsWithContext(t *testing.T) {
	m, _, _ := newTestManager(t, Options{SweepInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestManager_OpenErrorReleasesCapacity(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t, Options{MaxPerSource: 1, AcquireTimeout: 50 * time.Millisecond})
	ds := source("sales")

	engine.Set(func(e *testutil.FakeEngine) { e.OpenErr = errors.New("password pw rejected") })
	for i := 0; i < 3; i++ {
		_, err := m.Acquire(ctx, ds)
		var connErr *core.ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.False(t, connErr.Timeout, "capacity must not leak on open failure")
		assert.Equal(t, "connect", connErr.Op)
		assert.NotContains(t, err.Error(), " pw ")
	}
}

func TestManager_Close(t *testing.T) {
	ctx := context.Background()
	m, engine, _ := newTestManager(t, Options{})
	ds := source("sales")

	idle, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	busy, err := m.Acquire(ctx, ds)
	require.NoError(t, err)
	m.Release(idle)

	require.NoError(t, m.Close())
	assert.True(t, engine.Opened()[0].Closed())

	_, err = m.Acquire(ctx, ds)
	assert.ErrorIs(t, err, ErrClosed)

	m.Release(busy)
	assert.True(t, engine.Opened()[1].Closed())
	require.NoError(t, m.Close())
}

func TestManager_ConcurrentDemandBeyondCapacity(t *testing.T) {
	const (
		capacity = 3
		workers  = 24
	)
	m, engine, _ := newTestManager(t, Options{MaxPerSource: capacity, AcquireTimeout: 5 * time.Second})
	ds := source("sales")

	var active, peak atomic.Int32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := m.Acquire(context.Background(), ds)
			if err != nil {
				errs <- err
				return
			}
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			m.Release(c)
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("workers hung")
	}
	close(errs)
	for err := range errs {
		t.Errorf("acquire failed: %v", err)
	}
	assert.LessOrEqual(t, int(peak.Load()), capacity)
	assert.LessOrEqual(t, engine.Opens(), capacity)
	assert.Equal(t, 0, m.Stats()[0].InUse)
}
