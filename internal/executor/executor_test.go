package executor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgate/internal/audit"
	"github.com/leapstack-labs/leapgate/internal/pool"
	"github.com/leapstack-labs/leapgate/internal/testutil"
	"github.com/leapstack-labs/leapgate/pkg/core"
	"github.com/leapstack-labs/leapgate/pkg/validator"

	_ "github.com/leapstack-labs/leapgate/pkg/adapters/sqlite"
)

type mapSources map[string]core.DataSource

func (m mapSources) Resolve(id string) (core.DataSource, error) {
	ds, ok := m[id]
	if !ok {
		return core.DataSource{}, &core.DataSourceNotFoundError{ID: id}
	}
	if !ds.Active {
		return core.DataSource{}, &core.DataSourceNotFoundError{ID: id, Inactive: true}
	}
	return ds, nil
}

type countingConns struct {
	*pool.Manager
	acquires atomic.Int32
}

func (c *countingConns) Acquire(ctx context.Context, ds core.DataSource) (*pool.PooledConnection, error) {
	c.acquires.Add(1)
	return c.Manager.Acquire(ctx, ds)
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *memoryRecorder) Record(_ context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *memoryRecorder) all() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Entry(nil), r.entries...)
}

type harness struct {
	exec  *Executor
	conns *countingConns
	audit *memoryRecorder
}

// newSQLiteHarness seeds a database with 100 items and returns an executor
// over it.
func newSQLiteHarness(t *testing.T, opts Options, poolOpts pool.Options) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL, price REAL, active BOOLEAN, added TIMESTAMP)`)
	require.NoError(t, err)
	for i := 1; i <= 100; i++ {
		_, err = db.Exec(`INSERT INTO items (id, name, price, active) VALUES (?, ?, ?, ?)`,
			i, fmt.Sprintf("item-%03d", i), float64(i)+0.5, i%2 == 0)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	logger := testutil.NewTestLogger(t)
	m := pool.NewManager(poolOpts, logger)
	t.Cleanup(func() { _ = m.Close() })

	h := &harness{conns: &countingConns{Manager: m}, audit: &memoryRecorder{}}
	sources := mapSources{
		"shop":    {ID: "shop", Kind: core.EngineSQLite, Active: true, Config: core.ConnectionConfig{Path: path}},
		"retired": {ID: "retired", Kind: core.EngineSQLite, Active: false, Config: core.ConnectionConfig{Path: path}},
	}
	h.exec = New(sources, h.conns, validator.Plain{}, h.audit, opts, logger)
	return h
}

func intPtr(n int) *int { return &n }

func TestExecute_LimitAndTruncation(t *testing.T) {
	h := newSQLiteHarness(t, NewOptions(), pool.Options{})
	ctx := context.Background()

	tests := []struct {
		name      string
		sql       string
		limit     *int
		rows      int
		truncated bool
	}{
		{"more rows than limit", "SELECT id FROM items", intPtr(5), 5, true},
		{"exact fit", "SELECT id FROM items WHERE id <= 5", intPtr(5), 5, false},
		{"fewer rows", "SELECT id FROM items WHERE id <= 3", intPtr(5), 3, false},
		{"default limit", "SELECT id FROM items", nil, 100, false},
		{"trailing comment and semicolon", "SELECT id FROM items -- all of them\n;", intPtr(2), 2, true},
		{"ordered", "SELECT id FROM items ORDER BY id DESC", intPtr(1), 1, true},
		{"own limit above cap", "SELECT id FROM items LIMIT 50", intPtr(5), 5, true},
		{"own limit below cap", "SELECT id FROM items LIMIT 3", intPtr(5), 3, false},
		{"own offset", "SELECT id FROM items ORDER BY id LIMIT 10 OFFSET 97", intPtr(5), 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.exec.Execute(ctx, core.ExecutionRequest{SQL: tt.sql, DataSourceID: "shop", Limit: tt.limit})
			require.NoError(t, err)
			assert.Equal(t, tt.rows, res.RowCount)
			assert.Len(t, res.Rows, tt.rows)
			assert.Equal(t, tt.truncated, res.Truncated)
		})
	}
}

func TestExecute_DuplicateColumnNames(t *testing.T) {
	h := newSQLiteHarness(t, NewOptions(), pool.Options{})
	ctx := context.Background()

	res, err := h.exec.Execute(ctx, core.ExecutionRequest{
		SQL:          "SELECT a.id, b.id FROM items a JOIN items b ON a.id = b.id ORDER BY a.id",
		DataSourceID: "shop",
		Limit:        intPtr(3),
	})
	require.NoError(t, err)
	require.Len(t, res.Columns, 2)
	assert.Equal(t, "id", res.Columns[0].Name)
	assert.Equal(t, "id", res.Columns[1].Name)
	assert.Equal(t, 3, res.RowCount)
	assert.True(t, res.Truncated)
	assert.Equal(t, core.Row{{Column: "id", Value: int64(1)}, {Column: "id", Value: int64(1)}}, res.Rows[0])

	res, err = h.exec.Execute(ctx, core.ExecutionRequest{
		SQL:          "SELECT * FROM items a JOIN items b ON a.id = b.id",
		DataSourceID: "shop",
		Limit:        intPtr(2),
	})
	require.NoError(t, err)
	assert.Len(t, res.Columns, 10)
	assert.Equal(t, "name", res.Columns[6].Name)
	assert.Equal(t, 2, res.RowCount)
}

func TestExecute_StatementSentToEngine(t *testing.T) {
	var mu sync.Mutex
	var sent []string
	engine := &testutil.FakeEngine{
		QueryFunc: func(_ context.Context, query string) (*sql.Rows, error) {
			mu.Lock()
			sent = append(sent, query)
			mu.Unlock()
			return nil, errors.New("not a real engine")
		},
	}
	logger := testutil.NewTestLogger(t)
	m := pool.NewManager(pool.Options{}, logger, pool.WithOpenFunc(engine.Open))
	t.Cleanup(func() { _ = m.Close() })
	sources := mapSources{"orders": {ID: "orders", Kind: core.EngineMySQL, Active: true,
		Config: core.ConnectionConfig{Host: "db", Password: "pw"}}}
	exec := New(sources, m, validator.Plain{}, &memoryRecorder{}, NewOptions(), logger)
	ctx := context.Background()

	_, err := exec.Execute(ctx, core.ExecutionRequest{SQL: "SELECT id FROM t # newest first\n;", DataSourceID: "orders", Limit: intPtr(10)})
	require.Error(t, err)
	_, err = exec.Execute(ctx, core.ExecutionRequest{SQL: "SELECT id FROM t LIMIT 2, 5", DataSourceID: "orders", Limit: intPtr(10)})
	require.Error(t, err)

	mu.Lock()
	assert.Equal(t, []string{
		"SELECT id FROM t # newest first\nLIMIT 11",
		"SELECT id FROM t LIMIT 2, 5",
	}, sent)
	mu.Unlock()

	opens := engine.Opens()
	_, err = exec.Execute(ctx, core.ExecutionRequest{SQL: "SELECT 1 # 'x\nDELETE FROM t -- '", DataSourceID: "orders"})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, opens, engine.Opens(), "rejected before a connection is opened")
}

func TestExecute_ServerCap(t *testing.T) {
	opts := NewOptions()
	opts.MaxLimit = 10
	h := newSQLiteHarness(t, opts, pool.Options{})

	res, err := h.exec.Execute(context.Background(), core.ExecutionRequest{
		SQL: "SELECT * FROM items", DataSourceID: "shop", Limit: intPtr(1000000),
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.RowCount)
	assert.True(t, res.Truncated)
}

func TestExecute_NormalizesResult(t *testing.T) {
	h := newSQLiteHarness(t, NewOptions(), pool.Options{})

	res, err := h.exec.Execute(context.Background(), core.ExecutionRequest{
		SQL:          "SELECT id, name, price, active, added, id * 2 AS doubled FROM items WHERE id = 2",
		DataSourceID: "shop",
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.RowCount)

	types := map[string]core.TypeCategory{}
	for _, c := range res.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, map[string]core.TypeCategory{
		"id":      core.TypeInteger,
		"name":    core.TypeText,
		"price":   core.TypeFloat,
		"active":  core.TypeBoolean,
		"added":   core.TypeDatetime,
		"doubled": core.TypeInteger,
	}, types)

	data, err := json.Marshal(res.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, `{"id":2,"name":"item-002","price":2.5,"active":true,"added":null,"doubled":4}`, string(data))

	full, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(full), `"rowCount":1`)
	assert.Contains(t, string(full), `"truncated":false`)
}

func TestExecute_ForbiddenNeverAcquires(t *testing.T) {
	h := newSQLiteHarness(t, NewOptions(), pool.Options{})

	for _, sql := range []string{
		"DELETE FROM items",
		"WITH gone AS (DELETE FROM items RETURNING *) SELECT * FROM gone",
		"DROP TABLE items",
	} {
		_, err := h.exec.Execute(context.Background(), core.ExecutionRequest{SQL: sql, DataSourceID: "shop"})
		var forbidden *core.ForbiddenOperationError
		require.ErrorAs(t, err, &forbidden, sql)
	}
	assert.Zero(t, h.conns.acquires.Load())

	entries := h.audit.all()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, audit.OutcomeForbidden, e.Outcome)
		assert.False(t, e.ReadOnly)
	}

	res, err := h.exec.Execute(context.Background(), core.ExecutionRequest{SQL: "SELECT count(*) AS n FROM items", DataSourceID: "shop"})
	require.NoError(t, err)
	n, _ := res.Rows[0].Get("n")
	assert.EqualValues(t, 100, n)
}

func TestExecute_WriteModeAllowsMutations(t *testing.T) {
	opts := NewOptions()
	opts.ReadOnly = false
	h := newSQLiteHarness(t, opts, pool.Options{})
	ctx := context.Background()

	res, err := h.exec.Execute(ctx, core.ExecutionRequest{
		SQL: "DELETE FROM items WHERE id > 90 RETURNING id", DataSourceID: "shop", Limit: intPtr(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowCount)
	assert.True(t, res.Truncated)

	res, err = h.exec.Execute(ctx, core.ExecutionRequest{SQL: "SELECT count(*) AS n FROM items", DataSourceID: "shop"})
	require.NoError(t, err)
	n, _ := res.Rows[0].Get("n")
	assert.EqualValues(t, 90, n)
}

func TestExecute_NotFound(t *testing.T) {
	h := newSQLiteHarness(t, NewOptions(), pool.Options{})

	for _, id := range []string{"missing", "retired"} {
		_, err := h.exec.Execute(context.Background(), core.ExecutionRequest{SQL: "SELECT 1", DataSourceID: id})
		var nf *core.DataSourceNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, id == "retired", nf.Inactive)
	}

	entries := h.audit.all()
	require.Len(t, entries, 2)
	assert.Equal(t, audit.OutcomeNotFound, entries[0].Outcome)
	assert.Equal(t, "missing", entries[0].DataSourceID)
	assert.Equal(t, audit.HashSQL("SELECT 1"), entries[0].SQLHash)
	assert.Zero(t, h.conns.acquires.Load())
}

func TestExecute_InvalidInput(t *testing.T) {
	h := newSQLiteHarness(t, NewOptions(), pool.Options{})
	ctx := context.Background()

	_, err := h.exec.Execute(ctx, core.ExecutionRequest{SQL: "  \n", DataSourceID: "shop"})
	var invalid *core.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, h.audit.all(), "nothing was attempted")

	_, err = h.exec.Execute(ctx, core.ExecutionRequest{SQL: "SELECT 1", DataSourceID: "shop", Limit: intPtr(0)})
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, err.Error(), "limit must be at least 1")

	_, err = h.exec.Execute(ctx, core.ExecutionRequest{SQL: "SELECT 1", DataSourceID: "shop", TimeoutMs: intPtr(-5)})
	require.ErrorAs(t, err, &invalid)

	assert.Zero(t, h.conns.acquires.Load())
	for _, e := range h.audit.all() {
		assert.Equal(t, audit.OutcomeError, e.Outcome)
	}
}

func TestExecute_ValidationFailure(t *testing.T) {
	h := newSQLiteHarness(t, NewOptions(), pool.Options{})

	_, err := h.exec.Execute(context.Background(), core.ExecutionRequest{SQL: "SELECT 1; SELECT 2", DataSourceID: "shop"})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Issues, 1)
	assert.Equal(t, "multiple statements are not supported", verr.Issues[0].Message)
	assert.Zero(t, h.conns.acquires.Load())

	entries := h.audit.all()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OutcomeValidationFailed, entries[0].Outcome)
}

func TestExecute_EngineErrorTaintsConnection(t *testing.T) {
	h := newSQLiteHarness(t, NewOptions(), pool.Options{})
	ctx := context.Background()

	_, err := h.exec.Execute(ctx, core.ExecutionRequest{SQL: "SELECT * FROM no_such_table", DataSourceID: "shop"})
	var qerr *core.QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, err.Error(), "no_such_table")
	assert.Equal(t, core.CodeQueryFailed, core.ErrorCode(err))
	assert.Zero(t, h.conns.Stats()[0].Open, "errored connection is not pooled")

	_, err = h.exec.Execute(ctx, core.ExecutionRequest{SQL: "SELECT 1", DataSourceID: "shop"})
	require.NoError(t, err)

	entries := h.audit.all()
	require.Len(t, entries, 2)
	assert.Equal(t, audit.OutcomeError, entries[0].Outcome)
	assert.Equal(t, audit.OutcomeSuccess, entries[1].Outcome)
	assert.True(t, entries[1].ReadOnly)
}

func newFakeExecutor(t *testing.T, engine *testutil.FakeEngine, opts Options) (*Executor, *memoryRecorder) {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	m := pool.NewManager(pool.Options{}, logger, pool.WithOpenFunc(engine.Open))
	t.Cleanup(func() { _ = m.Close() })
	rec := &memoryRecorder{}
	sources := mapSources{"slow": {ID: "slow", Kind: core.EnginePostgres, Active: true,
		Config: core.ConnectionConfig{Host: "db", Password: "pw"}}}
	return New(sources, m, validator.Plain{}, rec, opts, logger), rec
}

func TestExecute_TimeoutTaintsConnection(t *testing.T) {
	engine := &testutil.FakeEngine{
		QueryFunc: func(ctx context.Context, query string) (*sql.Rows, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	exec, rec := newFakeExecutor(t, engine, NewOptions())

	_, err := exec.Execute(context.Background(), core.ExecutionRequest{SQL: "SELECT pg_sleep(10)", DataSourceID: "slow", TimeoutMs: intPtr(20)})
	var timeout *core.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 20*time.Millisecond, timeout.Budget)
	assert.Equal(t, core.CodeTimeout, core.ErrorCode(err))

	require.Eventually(t, func() bool { return engine.Opened()[0].Closed() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, audit.OutcomeTimeout, rec.all()[0].Outcome)
}

func TestExecute_TimeoutReturnsWhileDriverIsStuck(t *testing.T) {
	gate := make(chan struct{})
	engine := &testutil.FakeEngine{
		QueryFunc: func(ctx context.Context, query string) (*sql.Rows, error) {
			<-gate // ignores cancellation
			return nil, errors.New("interrupted")
		},
	}
	opts := NewOptions()
	opts.MaxTimeout = 30 * time.Millisecond
	exec, _ := newFakeExecutor(t, engine, opts)

	start := time.Now()
	_, err := exec.Execute(context.Background(), core.ExecutionRequest{SQL: "SELECT 1", DataSourceID: "slow", TimeoutMs: intPtr(60000)})
	var timeout *core.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 30*time.Millisecond, timeout.Budget, "capped by MaxTimeout")
	assert.Less(t, time.Since(start), time.Second)

	assert.False(t, engine.Opened()[0].Closed(), "released only after the driver returns")
	close(gate)
	require.Eventually(t, func() bool { return engine.Opened()[0].Closed() }, time.Second, 5*time.Millisecond)
}

func TestExecute_CallerCancellation(t *testing.T) {
	engine := &testutil.FakeEngine{
		QueryFunc: func(ctx context.Context, query string) (*sql.Rows, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	exec, rec := newFakeExecutor(t, engine, NewOptions())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	_, err := exec.Execute(ctx, core.ExecutionRequest{SQL: "SELECT 1", DataSourceID: "slow"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, audit.OutcomeError, rec.all()[0].Outcome)
}

func TestExecute_ConnectionFailure(t *testing.T) {
	engine := &testutil.FakeEngine{OpenErr: errors.New("auth failed for pw")}
	exec, rec := newFakeExecutor(t, engine, NewOptions())

	_, err := exec.Execute(context.Background(), core.ExecutionRequest{SQL: "SELECT 1", DataSourceID: "slow"})
	var connErr *core.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.NotContains(t, err.Error(), "pw")
	assert.Equal(t, audit.OutcomeConnectionError, rec.all()[0].Outcome)
	assert.NotContains(t, rec.all()[0].Error, "pw")
}

func TestExecute_ConcurrentBeyondPoolCapacity(t *testing.T) {
	h := newSQLiteHarness(t, NewOptions(), pool.Options{MaxPerSource: 2, AcquireTimeout: 10 * time.Second})

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.exec.Execute(context.Background(), core.ExecutionRequest{
				SQL: fmt.Sprintf("SELECT id FROM items WHERE id > %d", i), DataSourceID: "shop", Limit: intPtr(3),
			})
			if err != nil {
				errs <- err
				return
			}
			if res.RowCount != 3 {
				errs <- fmt.Errorf("worker %d got %d rows", i, res.RowCount)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatal("executions hung")
	}
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Len(t, h.audit.all(), workers)
	assert.LessOrEqual(t, h.conns.Stats()[0].Open, 2)
}
