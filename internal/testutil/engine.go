package testutil

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

// FakeAdapter is an in-memory adapter.Adapter. Catalog answers come from the
// engine it was opened by; Query runs the engine's QueryFunc.
type FakeAdapter struct {
	Serial     int
	DataSource core.DataSource

	engine *FakeEngine

	mu     sync.Mutex
	closed bool
}

// Connect is a no-op; FakeEngine.Open returns connected adapters.
func (f *FakeAdapter) Connect(context.Context, core.ConnectionConfig) error { return nil }

// Ping runs the engine's PingHook, then fails with its PingErr.
func (f *FakeAdapter) Ping(ctx context.Context) error {
	f.engine.mu.Lock()
	f.engine.pings++
	hook, err := f.engine.PingHook, f.engine.PingErr
	f.engine.mu.Unlock()
	if hook != nil {
		if herr := hook(ctx); herr != nil {
			return herr
		}
	}
	return err
}

// Query delegates to the engine's QueryFunc.
func (f *FakeAdapter) Query(ctx context.Context, query string) (*sql.Rows, error) {
	f.engine.mu.Lock()
	fn := f.engine.QueryFunc
	f.engine.mu.Unlock()
	if fn == nil {
		return nil, errors.New("fake engine cannot run queries")
	}
	return fn(ctx, query)
}

// ListRelations returns the engine's relations.
func (f *FakeAdapter) ListRelations(ctx context.Context) ([]core.RelationRef, error) {
	e := f.engine
	e.mu.Lock()
	e.listCalls++
	hook, refs, err := e.BeforeList, append([]core.RelationRef(nil), e.Relations...), e.ListErr
	e.mu.Unlock()
	if hook != nil {
		if herr := hook(ctx); herr != nil {
			return nil, herr
		}
	}
	return refs, err
}

// DescribeRelation returns the engine's columns for ref.
func (f *FakeAdapter) DescribeRelation(_ context.Context, ref core.RelationRef) ([]core.CatalogColumn, error) {
	e := f.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	e.describeCalls++
	if err, ok := e.DescribeErr[ref.QualifiedName()]; ok {
		return nil, err
	}
	cols, ok := e.Columns[ref.QualifiedName()]
	if !ok {
		return nil, adapter.ErrRelationNotFound
	}
	return append([]core.CatalogColumn(nil), cols...), nil
}

// Dialect reports SQLite syntax.
func (f *FakeAdapter) Dialect() *adapter.Dialect { return adapter.SQLite }

// Close marks the adapter closed.
func (f *FakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeAdapter) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// FakeEngine hands out FakeAdapters and counts what happens to them.
// Exported fields may be set before use or under test control.
type FakeEngine struct {
	mu sync.Mutex

	OpenErr   error
	PingErr   error
	PingHook  func(ctx context.Context) error
	QueryFunc func(ctx context.Context, query string) (*sql.Rows, error)

	Relations   []core.RelationRef
	Columns     map[string][]core.CatalogColumn
	DescribeErr map[string]error
	ListErr     error
	// BeforeList runs before every listing; returning an error fails it.
	BeforeList func(ctx context.Context) error

	opened        []*FakeAdapter
	pings         int
	listCalls     int
	describeCalls int
}

// Open implements pool.OpenFunc.
func (e *FakeEngine) Open(_ context.Context, ds core.DataSource) (adapter.Adapter, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	a := &FakeAdapter{Serial: len(e.opened) + 1, DataSource: ds, engine: e}
	e.opened = append(e.opened, a)
	return a, nil
}

// Set runs fn with the engine locked, for changing fields during a test.
func (e *FakeEngine) Set(fn func(e *FakeEngine)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e)
}

// Opened returns the adapters opened so far.
func (e *FakeEngine) Opened() []*FakeAdapter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*FakeAdapter(nil), e.opened...)
}

// Opens returns how many adapters were opened.
func (e *FakeEngine) Opens() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.opened)
}

// Pings returns how many Ping calls were made.
func (e *FakeEngine) Pings() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pings
}

// ListCalls returns how many catalog listings were made.
func (e *FakeEngine) ListCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listCalls
}

// DescribeCalls returns how many relations were described.
func (e *FakeEngine) DescribeCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.describeCalls
}

var _ adapter.Adapter = (*FakeAdapter)(nil)
