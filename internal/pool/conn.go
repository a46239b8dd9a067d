package pool

import (
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/leapstack-labs/leapgate/pkg/adapter"
)

// State is the lifecycle state of a pooled connection.
type State string

// Connection states.
const (
	StateIdle    State = "idle"
	StateInUse   State = "in_use"
	StateInvalid State = "invalid"
	StateClosed  State = "closed"
)

// PooledConnection is an adapter checked out of a pool. It is used by one
// caller at a time and must be given back with Manager.Release.
type PooledConnection struct {
	DataSourceID string
	Fingerprint  string
	Adapter      adapter.Adapter
	State        State
	CreatedAt    time.Time
	LastUsedAt   time.Time

	pool *sourcePool
}

// Invalidate marks the connection as unusable. It is closed on release
// instead of going back to idle. Call it after a timeout or driver error.
func (c *PooledConnection) Invalidate() {
	if c.pool == nil {
		c.State = StateInvalid
		return
	}
	c.pool.mu.Lock()
	if c.State == StateInUse {
		c.State = StateInvalid
	}
	c.pool.mu.Unlock()
}

type sourcePool struct {
	id          string
	fingerprint string
	sem         *semaphore.Weighted

	mu      sync.Mutex
	idle    []*PooledConnection
	inUse   int
	retired bool
}

func newSourcePool(id, fingerprint string, capacity int) *sourcePool {
	return &sourcePool{
		id:          id,
		fingerprint: fingerprint,
		sem:         semaphore.NewWeighted(int64(capacity)),
	}
}

func (p *sourcePool) isRetired() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retired
}

// popIdle checks out the most recently used idle connection.
func (p *sourcePool) popIdle() *PooledConnection {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.idle)
	if n == 0 || p.retired {
		return nil
	}
	conn := p.idle[n-1]
	p.idle[n-1] = nil
	p.idle = p.idle[:n-1]
	conn.State = StateInUse
	p.inUse++
	return conn
}

func (p *sourcePool) track(conn *PooledConnection) {
	p.mu.Lock()
	p.inUse++
	p.mu.Unlock()
}

// forget drops a checked-out connection that is about to be closed.
func (p *sourcePool) forget(conn *PooledConnection) {
	p.mu.Lock()
	p.inUse--
	conn.State = StateClosed
	p.mu.Unlock()
}

// expire removes idle connections last used before cutoff.
func (p *sourcePool) expire(cutoff time.Time) []*PooledConnection {
	p.mu.Lock()
	defer p.mu.Unlock()
	var expired []*PooledConnection
	kept := p.idle[:0]
	for _, conn := range p.idle {
		if conn.LastUsedAt.Before(cutoff) {
			conn.State = StateClosed
			expired = append(expired, conn)
			continue
		}
		kept = append(kept, conn)
	}
	for i := len(kept); i < len(p.idle); i++ {
		p.idle[i] = nil
	}
	p.idle = kept
	return expired
}

// retire stops the pool from handing out connections and returns its idle
// ones for closing. In-use connections are closed on release.
func (p *sourcePool) retire() []*PooledConnection {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retired = true
	idle := p.idle
	p.idle = nil
	for _, conn := range idle {
		conn.State = StateClosed
	}
	return idle
}
