// Package pool manages engine connections per data source.
//
// A Manager keeps at most one active pool per data source id. Each pool is
// bound to the configuration fingerprint it was created with; acquiring with
// a different fingerprint retires the old pool, whose connections are closed
// and never handed out again. Capacity is enforced with a weighted semaphore
// per pool, so exhausting one data source never blocks another.
package pool

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("connection manager is closed")

// Default pool settings.
const (
	DefaultMaxPerSource      = 4
	DefaultAcquireTimeout    = 5 * time.Second
	DefaultIdleTimeout       = 5 * time.Minute
	DefaultSweepInterval     = 30 * time.Second
	DefaultValidateAfterIdle = 30 * time.Second
)

// Options configures a Manager. Zero fields take the defaults.
type Options struct {
	MaxPerSource      int
	AcquireTimeout    time.Duration
	IdleTimeout       time.Duration
	SweepInterval     time.Duration
	ValidateAfterIdle time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxPerSource <= 0 {
		o.MaxPerSource = DefaultMaxPerSource
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = DefaultAcquireTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.ValidateAfterIdle <= 0 {
		o.ValidateAfterIdle = DefaultValidateAfterIdle
	}
	return o
}

// OpenFunc creates a connected adapter for a data source.
type OpenFunc func(ctx context.Context, ds core.DataSource) (adapter.Adapter, error)

// Manager owns every engine connection of the process.
type Manager struct {
	opts   Options
	open   OpenFunc
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex // guards pools and closed only
	pools  map[string]*sourcePool
	closed bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithOpenFunc replaces the adapter factory (tests use fake engines).
func WithOpenFunc(fn OpenFunc) Option {
	return func(m *Manager) { m.open = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager. Adapters are created through the adapter
// registry unless WithOpenFunc is given. A nil logger discards output.
func NewManager(opts Options, logger *slog.Logger, options ...Option) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		opts:   opts.withDefaults(),
		logger: logger,
		now:    time.Now,
		pools:  make(map[string]*sourcePool),
	}
	m.open = func(ctx context.Context, ds core.DataSource) (adapter.Adapter, error) {
		return adapter.Open(ctx, ds, m.logger)
	}
	for _, o := range options {
		o(m)
	}
	return m
}

// Options returns the effective settings.
func (m *Manager) Options() Options {
	return m.opts
}

// poolFor returns the active pool for ds, replacing one with a stale fingerprint.
func (m *Manager) poolFor(ds core.DataSource, fp string) (*sourcePool, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	p := m.pools[ds.ID]
	var stale *sourcePool
	if p == nil || p.fingerprint != fp {
		stale = p
		p = newSourcePool(ds.ID, fp, m.opts.MaxPerSource)
		m.pools[ds.ID] = p
	}
	m.mu.Unlock()

	if stale != nil {
		m.logger.Debug("configuration changed, retiring pool",
			slog.String("datasource", ds.ID),
			slog.String("old_fingerprint", stale.fingerprint),
			slog.String("new_fingerprint", fp))
		m.retire(stale)
	}
	return p, nil
}

// Acquire returns a connection for ds, reusing an idle one when possible.
// AcquireTimeout bounds the whole call: waiting for capacity, validating an
// idle connection and opening a new one. Running out of it fails with a
// ConnectionError whose Timeout flag is set.
func (m *Manager) Acquire(ctx context.Context, ds core.DataSource) (*PooledConnection, error) {
	fp, err := adapter.Fingerprint(ds)
	if err != nil {
		return nil, &core.ConnectionError{DataSourceID: ds.ID, Op: "acquire", Err: err}
	}
	p, err := m.poolFor(ds, fp)
	if err != nil {
		return nil, &core.ConnectionError{DataSourceID: ds.ID, Op: "acquire", Err: err}
	}

	start := m.now()
	waitCtx, cancel := context.WithTimeout(ctx, m.opts.AcquireTimeout)
	defer cancel()
	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		return nil, &core.ConnectionError{
			DataSourceID: ds.ID,
			Op:           "acquire",
			Elapsed:      m.now().Sub(start),
			Timeout:      true,
			Err:          err,
		}
	}
	if p.isRetired() {
		// Invalidated while we waited; start over on the current pool.
		p.sem.Release(1)
		return m.Acquire(ctx, ds)
	}

	for {
		conn := p.popIdle()
		if conn == nil {
			break
		}
		if m.now().Sub(conn.LastUsedAt) < m.opts.ValidateAfterIdle {
			return conn, nil
		}
		if err := conn.Adapter.Ping(waitCtx); err == nil {
			return conn, nil
		}
		m.logger.Debug("idle connection failed validation", slog.String("datasource", ds.ID))
		p.forget(conn)
		m.closeAdapter(conn)
	}

	adp, err := m.open(waitCtx, ds)
	if err != nil {
		p.sem.Release(1)
		return nil, &core.ConnectionError{
			DataSourceID: ds.ID,
			Op:           "connect",
			Elapsed:      m.now().Sub(start),
			Timeout:      errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil,
			Err:          core.Redact(err, ds.Config.Password),
		}
	}
	now := m.now()
	conn := &PooledConnection{
		DataSourceID: ds.ID,
		Fingerprint:  fp,
		Adapter:      adp,
		State:        StateInUse,
		CreatedAt:    now,
		LastUsedAt:   now,
		pool:         p,
	}
	p.track(conn)
	m.logger.Debug("opened connection", slog.String("datasource", ds.ID), slog.String("fingerprint", fp))
	return conn, nil
}

// Release hands a connection back. Invalid connections and connections of a
// retired pool are closed; everything else goes back to idle. Releasing the
// same connection twice is a no-op.
func (m *Manager) Release(conn *PooledConnection) {
	if conn == nil || conn.pool == nil {
		return
	}
	p := conn.pool

	p.mu.Lock()
	if conn.State != StateInUse && conn.State != StateInvalid {
		p.mu.Unlock()
		return
	}
	p.inUse--
	keep := conn.State == StateInUse && !p.retired
	if keep {
		conn.State = StateIdle
		conn.LastUsedAt = m.now()
		p.idle = append(p.idle, conn)
	} else {
		conn.State = StateClosed
	}
	p.mu.Unlock()
	p.sem.Release(1)

	if !keep {
		m.closeAdapter(conn)
	}
}

// InvalidateAll closes every connection of a data source: idle ones now,
// in-use ones when they are released. The next Acquire starts a fresh pool.
func (m *Manager) InvalidateAll(id string) {
	m.mu.Lock()
	p := m.pools[id]
	delete(m.pools, id)
	m.mu.Unlock()

	if p != nil {
		m.logger.Debug("invalidating pool", slog.String("datasource", id))
		m.retire(p)
	}
}

// Run sweeps idle connections every SweepInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep closes connections idle for longer than IdleTimeout and returns how many it closed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	pools := make([]*sourcePool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.Unlock()

	cutoff := m.now().Add(-m.opts.IdleTimeout)
	closed := 0
	for _, p := range pools {
		for _, conn := range p.expire(cutoff) {
			m.closeAdapter(conn)
			closed++
		}
	}
	if closed > 0 {
		m.logger.Debug("swept idle connections", slog.Int("closed", closed))
	}
	return closed
}

// Close shuts the manager down. Idle connections close immediately, in-use
// ones on release, and further Acquire calls fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	pools := m.pools
	m.pools = make(map[string]*sourcePool)
	m.mu.Unlock()

	for _, p := range pools {
		m.retire(p)
	}
	return nil
}

// SourceStats describes the pool of one data source.
type SourceStats struct {
	DataSourceID string `json:"dataSourceId"`
	Fingerprint  string `json:"fingerprint"`
	Open         int    `json:"open"`
	Idle         int    `json:"idle"`
	InUse        int    `json:"inUse"`
}

// Stats reports every active pool, ordered by data source id.
func (m *Manager) Stats() []SourceStats {
	m.mu.Lock()
	pools := make([]*sourcePool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.Unlock()

	out := make([]SourceStats, 0, len(pools))
	for _, p := range pools {
		p.mu.Lock()
		out = append(out, SourceStats{
			DataSourceID: p.id,
			Fingerprint:  p.fingerprint,
			Open:         len(p.idle) + p.inUse,
			Idle:         len(p.idle),
			InUse:        p.inUse,
		})
		p.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DataSourceID < out[j].DataSourceID })
	return out
}

func (m *Manager) retire(p *sourcePool) {
	for _, conn := range p.retire() {
		m.closeAdapter(conn)
	}
}

func (m *Manager) closeAdapter(conn *PooledConnection) {
	if err := conn.Adapter.Close(); err != nil {
		m.logger.Debug("error closing connection",
			slog.String("datasource", conn.DataSourceID),
			slog.String("error", err.Error()))
		return
	}
	m.logger.Debug("closed connection", slog.String("datasource", conn.DataSourceID))
}
