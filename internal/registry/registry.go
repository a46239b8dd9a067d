// Package registry keeps the set of data sources the gateway may connect to.
// It maps data source ids to their definitions and notifies listeners when a
// definition changes in a way that invalidates open connections or cached
// schemas.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

// ChangeKind describes what happened to a data source.
type ChangeKind string

// Change kinds.
const (
	Added       ChangeKind = "added"
	Updated     ChangeKind = "updated"
	Deactivated ChangeKind = "deactivated"
	Removed     ChangeKind = "removed"
)

// Change is delivered to listeners. Old is the zero value for Added, New
// for Removed.
type Change struct {
	ID   string
	Kind ChangeKind
	Old  core.DataSource
	New  core.DataSource
}

// Listener receives changes after the registry lock is released.
type Listener func(Change)

type entry struct {
	ds          core.DataSource
	fingerprint string
}

// Registry maps data source ids to definitions.
type Registry struct {
	mu        sync.RWMutex
	byID      map[string]entry
	listeners []Listener

	logger *slog.Logger
}

// New creates an empty registry. A nil logger discards output.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		byID:   make(map[string]entry),
		logger: logger,
	}
}

// OnChange registers fn for future changes.
func (r *Registry) OnChange(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Upsert adds or replaces one data source.
func (r *Registry) Upsert(ds core.DataSource) error {
	e, err := newEntry(ds)
	if err != nil {
		return err
	}
	r.mu.Lock()
	var changes []Change
	if c, ok := diff(r.byID[ds.ID], e, r.has(ds.ID)); ok {
		changes = append(changes, c)
	}
	r.byID[ds.ID] = e
	listeners := r.listeners
	r.mu.Unlock()

	r.notify(listeners, changes)
	return nil
}

// Remove deletes a data source. It reports whether the id was known.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	old, ok := r.byID[id]
	delete(r.byID, id)
	listeners := r.listeners
	r.mu.Unlock()

	if ok {
		r.notify(listeners, []Change{{ID: id, Kind: Removed, Old: old.ds}})
	}
	return ok
}

// Replace swaps the whole set. Ids missing from list are removed.
func (r *Registry) Replace(list []core.DataSource) error {
	next := make(map[string]entry, len(list))
	for _, ds := range list {
		if _, dup := next[ds.ID]; dup {
			return fmt.Errorf("duplicate data source id %q", ds.ID)
		}
		e, err := newEntry(ds)
		if err != nil {
			return err
		}
		next[ds.ID] = e
	}

	r.mu.Lock()
	var changes []Change
	for id, e := range next {
		if c, ok := diff(r.byID[id], e, r.has(id)); ok {
			changes = append(changes, c)
		}
	}
	for id, old := range r.byID {
		if _, kept := next[id]; !kept {
			changes = append(changes, Change{ID: id, Kind: Removed, Old: old.ds})
		}
	}
	r.byID = next
	listeners := r.listeners
	r.mu.Unlock()

	r.notify(listeners, changes)
	return nil
}

// Resolve returns an active data source, or a *core.DataSourceNotFoundError.
func (r *Registry) Resolve(id string) (core.DataSource, error) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return core.DataSource{}, &core.DataSourceNotFoundError{ID: id}
	}
	if !e.ds.Active {
		return core.DataSource{}, &core.DataSourceNotFoundError{ID: id, Inactive: true}
	}
	return e.ds, nil
}

// Get returns a data source whether or not it is active.
func (r *Registry) Get(id string) (core.DataSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e.ds, ok
}

// List returns every data source ordered by id.
func (r *Registry) List() []core.DataSource {
	r.mu.RLock()
	out := make([]core.DataSource, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e.ds)
	}
	r.mu.RUnlock()
	core.SortDataSources(out)
	return out
}

// Count returns the number of registered data sources.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// has must be called with r.mu held.
func (r *Registry) has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

func (r *Registry) notify(listeners []Listener, changes []Change) {
	for _, c := range changes {
		r.logger.Info("data source changed",
			slog.String("datasource", c.ID),
			slog.String("change", string(c.Kind)))
		for _, fn := range listeners {
			fn(c)
		}
	}
}

func newEntry(ds core.DataSource) (entry, error) {
	if ds.ID == "" {
		return entry{}, fmt.Errorf("data source id is required")
	}
	fp, err := adapter.Fingerprint(ds)
	if err != nil {
		return entry{}, err
	}
	return entry{ds: ds, fingerprint: fp}, nil
}

// diff decides whether replacing old with next must be announced. Renames
// and reactivation are silent: neither invalidates connections or schemas.
func diff(old, next entry, existed bool) (Change, bool) {
	switch {
	case !existed:
		return Change{ID: next.ds.ID, Kind: Added, New: next.ds}, true
	case old.fingerprint != next.fingerprint:
		return Change{ID: next.ds.ID, Kind: Updated, Old: old.ds, New: next.ds}, true
	case old.ds.Active && !next.ds.Active:
		return Change{ID: next.ds.ID, Kind: Deactivated, Old: old.ds, New: next.ds}, true
	}
	return Change{}, false
}
