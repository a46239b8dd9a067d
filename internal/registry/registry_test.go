package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapgate/internal/testutil"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

type changeLog struct {
	mu      sync.Mutex
	changes []Change
}

func (l *changeLog) record(c Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, c)
}

// kinds returns "id:kind" pairs, sorted, and resets the log.
func (l *changeLog) kinds() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.changes))
	for _, c := range l.changes {
		out = append(out, c.ID+":"+string(c.Kind))
	}
	l.changes = nil
	sort.Strings(out)
	return out
}

func newTestRegistry(t *testing.T) (*Registry, *changeLog) {
	t.Helper()
	r := New(testutil.NewTestLogger(t))
	log := &changeLog{}
	r.OnChange(log.record)
	return r, log
}

func pg(id, password string) core.DataSource {
	return core.DataSource{
		ID:     id,
		Name:   id,
		Kind:   core.EnginePostgres,
		Active: true,
		Config: core.ConnectionConfig{Host: "db", Database: id, Password: password},
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r, _ := newTestRegistry(t)
	inactive := pg("old", "pw")
	inactive.Active = false
	require.NoError(t, r.Replace([]core.DataSource{pg("sales", "pw"), inactive}))

	ds, err := r.Resolve("sales")
	require.NoError(t, err)
	assert.Equal(t, "sales", ds.ID)

	tests := []struct {
		id           string
		wantInactive bool
	}{
		{id: "missing"},
		{id: "old", wantInactive: true},
	}
	for _, tt := range tests {
		_, err := r.Resolve(tt.id)
		var nf *core.DataSourceNotFoundError
		require.ErrorAs(t, err, &nf, tt.id)
		assert.Equal(t, tt.wantInactive, nf.Inactive)
		assert.Equal(t, core.CodeNotFound, core.ErrorCode(err))
	}

	got, ok := r.Get("old")
	assert.True(t, ok, "Get returns inactive sources")
	assert.False(t, got.Active)
}

func TestRegistry_ChangeNotifications(t *testing.T) {
	r, log := newTestRegistry(t)

	require.NoError(t, r.Replace([]core.DataSource{pg("a", "1"), pg("b", "1")}))
	assert.Equal(t, []string{"a:added", "b:added"}, log.kinds())

	// Same definitions: nothing to announce.
	require.NoError(t, r.Replace([]core.DataSource{pg("a", "1"), pg("b", "1")}))
	assert.Empty(t, log.kinds())

	// Rename only.
	renamed := pg("a", "1")
	renamed.Name = "Alpha"
	require.NoError(t, r.Upsert(renamed))
	assert.Empty(t, log.kinds())
	got, _ := r.Get("a")
	assert.Equal(t, "Alpha", got.Name)

	require.NoError(t, r.Upsert(pg("a", "2")))
	assert.Equal(t, []string{"a:updated"}, log.kinds())

	off := pg("b", "1")
	off.Active = false
	require.NoError(t, r.Upsert(off))
	assert.Equal(t, []string{"b:deactivated"}, log.kinds())

	require.NoError(t, r.Replace([]core.DataSource{pg("a", "2"), pg("c", "1")}))
	assert.Equal(t, []string{"b:removed", "c:added"}, log.kinds())

	assert.True(t, r.Remove("c"))
	assert.False(t, r.Remove("c"))
	assert.Equal(t, []string{"c:removed"}, log.kinds())
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_ChangeCarriesDefinitions(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Upsert(pg("a", "1")))

	var got Change
	r.OnChange(func(c Change) { got = c })
	require.NoError(t, r.Upsert(pg("a", "2")))

	assert.Equal(t, Updated, got.Kind)
	assert.Equal(t, "1", got.Old.Config.Password)
	assert.Equal(t, "2", got.New.Config.Password)
}

func TestRegistry_ListenersMayReadRegistry(t *testing.T) {
	r, _ := newTestRegistry(t)
	var seen core.DataSource
	r.OnChange(func(c Change) { seen, _ = r.Get(c.ID) })

	require.NoError(t, r.Upsert(pg("a", "1")))
	assert.Equal(t, "a", seen.ID)
}

func TestRegistry_ReplaceRejectsBadInput(t *testing.T) {
	r, log := newTestRegistry(t)
	require.NoError(t, r.Upsert(pg("a", "1")))
	log.kinds()

	err := r.Replace([]core.DataSource{pg("x", "1"), pg("x", "2")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate data source id "x"`)

	require.Error(t, r.Replace([]core.DataSource{{Kind: core.EngineSQLite}}))
	assert.Empty(t, log.kinds())
	assert.Equal(t, 1, r.Count(), "failed replace keeps the current set")
}

func TestRegistry_ListIsSorted(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.Replace([]core.DataSource{pg("c", ""), pg("a", ""), pg("b", "")}))

	var ids []string
	for _, ds := range r.List() {
		ids = append(ids, ds.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HR_PASSWORD", "from-env")

	tests := []struct {
		name    string
		content string
		want    []string
		wantErr string
	}{
		{
			name: "valid",
			content: `datasources:
  - id: hr
    kind: mysql
    host: mysql.internal
    password: ${HR_PASSWORD}
  - id: local
    kind: duckdb
    path: /tmp/local.duckdb
`,
			want: []string{"hr", "local"},
		},
		{name: "empty", content: "", want: []string{}},
		{name: "bad yaml", content: "datasources: [", wantErr: "failed to parse"},
		{
			name:    "bad kind",
			content: "datasources:\n  - id: x\n    kind: oracle\n",
			wantErr: "datasources[0].kind: must be one of",
		},
		{
			name:    "duplicate",
			content: "datasources:\n  - {id: x, kind: sqlite}\n  - {id: x, kind: sqlite}\n",
			wantErr: "duplicate data source id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			list, err := LoadFile(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			ids := []string{}
			for _, ds := range list {
				ids = append(ids, ds.ID)
			}
			assert.Equal(t, tt.want, ids)
			if tt.name == "valid" {
				assert.Equal(t, "from-env", list[0].Config.Password)
				assert.True(t, list[0].Active)
			}
		})
	}

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestMerge(t *testing.T) {
	inline := []core.DataSource{pg("a", "inline"), pg("b", "inline")}
	fromFile := []core.DataSource{pg("b", "file"), pg("c", "file")}

	got := Merge(inline, fromFile)
	require.Len(t, got, 3)
	assert.Equal(t, "inline", got[0].Config.Password)
	assert.Equal(t, "file", got[1].Config.Password, "file wins")
	assert.Equal(t, "c", got[2].ID)
}

func TestRegistry_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	write := func(content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	write("datasources:\n  - {id: hr, kind: sqlite, path: /tmp/hr.db}\n")

	r, log := newTestRegistry(t)
	inline := []core.DataSource{pg("sales", "pw")}
	require.NoError(t, r.Seed(inline, path))
	assert.Equal(t, []string{"hr:added", "sales:added"}, log.kinds())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, inline, path) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Let the watcher register before the first write.
	time.Sleep(50 * time.Millisecond)

	write("datasources:\n  - {id: hr, kind: sqlite, path: /tmp/hr2.db}\n")
	require.Eventually(t, func() bool {
		ds, ok := r.Get("hr")
		return ok && ds.Config.Path == "/tmp/hr2.db"
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"hr:updated"}, log.kinds())

	// A broken file keeps the current set.
	write("datasources: [")
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 2, r.Count())
	assert.Empty(t, log.kinds())

	write("datasources: []\n")
	require.Eventually(t, func() bool { return r.Count() == 1 }, 5*time.Second, 20*time.Millisecond)
	_, err := r.Resolve("sales")
	assert.NoError(t, err, "inline sources survive file reloads")
}
