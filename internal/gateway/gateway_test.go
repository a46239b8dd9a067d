package gateway

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgate/internal/audit"
	"github.com/leapstack-labs/leapgate/internal/config"
	"github.com/leapstack-labs/leapgate/internal/testutil"
	"github.com/leapstack-labs/leapgate/pkg/core"

	_ "github.com/leapstack-labs/leapgate/pkg/adapters/sqlite"
)

func createDB(t *testing.T, path string, stmts ...string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
}

type fixture struct {
	gw        *Gateway
	cfg       *config.Config
	dir       string
	auditPath string
}

func newFixture(t *testing.T, edit func(cfg *config.Config)) *fixture {
	t.Helper()
	dir := t.TempDir()
	shop := filepath.Join(dir, "shop.db")
	createDB(t, shop,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, total REAL NOT NULL)`,
		`INSERT INTO orders (id, total) VALUES (1, 9.5), (2, 20), (3, 7.25)`)

	cfg := config.Default()
	cfg.Audit.Path = filepath.Join(dir, "audit.db")
	cfg.DataSources = []config.DataSourceConfig{
		{ID: "shop", Kind: "sqlite", Path: shop, Password: "hunter22"},
	}
	if edit != nil {
		edit(cfg)
	}
	require.NoError(t, cfg.Validate())

	gw, err := New(context.Background(), cfg, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close(context.Background()) })
	return &fixture{gw: gw, cfg: cfg, dir: dir, auditPath: cfg.Audit.Path}
}

// tail closes the gateway to flush the audit log and reads it back.
func (f *fixture) tail(t *testing.T) []audit.Entry {
	t.Helper()
	require.NoError(t, f.gw.Close(context.Background()))
	store, err := audit.OpenStore(context.Background(), f.auditPath)
	require.NoError(t, err)
	defer store.Close()
	entries, err := store.Tail(context.Background(), audit.TailFilter{})
	require.NoError(t, err)
	return entries
}

func TestGateway_ExecuteAndSchemaAreAudited(t *testing.T) {
	f := newFixture(t, nil)
	ctx := core.WithActor(context.Background(), "alice")

	res, err := f.gw.Execute(ctx, core.ExecutionRequest{
		SQL:          "SELECT id, total FROM orders ORDER BY id",
		DataSourceID: "shop",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowCount)
	assert.False(t, res.Truncated)

	snap, err := f.gw.GetSchema(ctx, "shop", false)
	require.NoError(t, err)
	require.Len(t, snap.Tables, 1)
	assert.Equal(t, "orders", snap.Tables[0].Name)

	_, err = f.gw.Execute(ctx, core.ExecutionRequest{SQL: "DELETE FROM orders", DataSourceID: "shop"})
	assert.Equal(t, core.CodeForbiddenOperation, core.ErrorCode(err))

	_, err = f.gw.GetSchema(ctx, "nope", false)
	assert.Equal(t, core.CodeNotFound, core.ErrorCode(err))

	entries := f.tail(t)
	require.Len(t, entries, 4)
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		assert.Equal(t, "alice", e.Actor)
		got = append(got, string(e.Action)+"/"+string(e.Outcome))
	}
	assert.ElementsMatch(t, []string{
		"execute/success",
		"schema/success",
		"execute/forbidden",
		"schema/not_found",
	}, got)
}

func TestGateway_DataSourcesAreRedacted(t *testing.T) {
	f := newFixture(t, nil)

	list := f.gw.DataSources()
	require.Len(t, list, 1)
	assert.Equal(t, "shop", list[0].ID)
	assert.Equal(t, "********", list[0].Config.Password)

	ds, err := f.gw.Registry().Resolve("shop")
	require.NoError(t, err)
	assert.Equal(t, "hunter22", ds.Config.Password, "registry keeps the real credentials")
}

func TestGateway_ChangeInvalidatesPoolAndSchema(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.gw.GetSchema(ctx, "shop", false)
	require.NoError(t, err)
	require.Len(t, f.gw.Health().Pools, 1)

	other := filepath.Join(f.dir, "other.db")
	createDB(t, other, `CREATE TABLE customers (id INTEGER PRIMARY KEY)`, `CREATE TABLE invoices (id INTEGER)`)
	ds, _ := f.gw.Registry().Get("shop")
	ds.Config.Path = other
	require.NoError(t, f.gw.Registry().Upsert(ds))

	assert.Empty(t, f.gw.Health().Pools, "pool retired on configuration change")

	snap, err := f.gw.GetSchema(ctx, "shop", false)
	require.NoError(t, err)
	require.Len(t, snap.Tables, 2)
	assert.Equal(t, "customers", snap.Tables[0].Name)

	ds.Active = false
	require.NoError(t, f.gw.Registry().Upsert(ds))
	_, err = f.gw.Execute(ctx, core.ExecutionRequest{SQL: "SELECT 1", DataSourceID: "shop"})
	var nf *core.DataSourceNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.True(t, nf.Inactive)
}

func TestGateway_DataSourceFile(t *testing.T) {
	dir := t.TempDir()
	hr := filepath.Join(dir, "hr.db")
	createDB(t, hr, `CREATE TABLE staff (id INTEGER PRIMARY KEY, name TEXT)`, `INSERT INTO staff VALUES (1, 'ann')`)
	sources := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(sources, []byte("datasources:\n  - id: hr\n    kind: sqlite\n    path: "+hr+"\n"), 0o600))

	f := newFixture(t, func(cfg *config.Config) { cfg.DataSourcesFile = sources })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.gw.Run(ctx) }()

	ids := func() []string {
		var out []string
		for _, ds := range f.gw.DataSources() {
			out = append(out, ds.ID)
		}
		return out
	}
	assert.Equal(t, []string{"hr", "shop"}, ids())

	res, err := f.gw.Execute(context.Background(), core.ExecutionRequest{SQL: "SELECT name FROM staff", DataSourceID: "hr"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(sources, []byte("datasources: []\n"), 0o600))
	require.Eventually(t, func() bool { return len(ids()) == 1 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestGateway_Health(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.Audit.Path = "" })

	_ = f.gw.Validate("SELECT 1")
	h := f.gw.Health()
	assert.Equal(t, "ok", h.Status)
	assert.True(t, h.ReadOnly)
	assert.Equal(t, 1, h.DataSources)
	assert.Equal(t, 1, h.ValidatorCache)
	assert.Zero(t, h.AuditDropped)
}

func TestNew_BadDataSourceFile(t *testing.T) {
	cfg := config.Default()
	cfg.DataSourcesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load data sources")
}
