// Package schema introspects engine catalogs and caches normalized snapshots
// per data source.
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/leapgate/internal/pool"
	"github.com/leapstack-labs/leapgate/pkg/adapter"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

// PartialPolicy decides what happens when some relations cannot be described.
type PartialPolicy string

// Partial introspection policies.
const (
	// PartialOmit skips the relation and records a warning on the snapshot.
	PartialOmit PartialPolicy = "omit"
	// PartialFail fails the whole refresh.
	PartialFail PartialPolicy = "fail"
)

// ParsePartialPolicy parses a policy name. The empty string means omit.
func ParsePartialPolicy(s string) (PartialPolicy, error) {
	switch PartialPolicy(s) {
	case "", PartialOmit:
		return PartialOmit, nil
	case PartialFail:
		return PartialFail, nil
	}
	return "", fmt.Errorf("unknown partial policy %q (want omit or fail)", s)
}

// Defaults.
const (
	DefaultTTL            = 5 * time.Minute
	DefaultRefreshTimeout = 30 * time.Second
)

// Options configures an Introspector.
type Options struct {
	TTL            time.Duration
	PartialPolicy  PartialPolicy
	RefreshTimeout time.Duration
}

// Resolver looks up data sources. Unknown and inactive ids fail with
// *core.DataSourceNotFoundError.
type Resolver interface {
	Resolve(id string) (core.DataSource, error)
}

// Connections hands out pooled engine connections.
type Connections interface {
	Acquire(ctx context.Context, ds core.DataSource) (*pool.PooledConnection, error)
	Release(conn *pool.PooledConnection)
}

// Introspector serves schema snapshots from a cache, refreshing them from
// the engine on miss, expiry, configuration change or explicit request.
type Introspector struct {
	sources Resolver
	conns   Connections
	opts    Options
	logger  *slog.Logger
	now     func() time.Time

	cache sync.Map // data source id -> *core.SchemaSnapshot
	group singleflight.Group
}

// New creates an Introspector. A nil logger discards output.
func New(sources Resolver, conns Connections, opts Options, logger *slog.Logger) *Introspector {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	if opts.PartialPolicy == "" {
		opts.PartialPolicy = PartialOmit
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Introspector{
		sources: sources,
		conns:   conns,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock replaces time.Now. Tests only.
func (in *Introspector) SetClock(now func() time.Time) {
	in.now = now
}

// GetSchema returns the snapshot for a data source. Cached snapshots are
// served while they are fresh and were taken with the current configuration.
// Concurrent misses for the same data source share one refresh.
func (in *Introspector) GetSchema(ctx context.Context, id string, forceRefresh bool) (*core.SchemaSnapshot, error) {
	ds, err := in.sources.Resolve(id)
	if err != nil {
		return nil, err
	}
	fp, err := adapter.Fingerprint(ds)
	if err != nil {
		return nil, fmt.Errorf("fingerprint data source %q: %w", id, err)
	}

	if !forceRefresh {
		if snap := in.cached(id, fp); snap != nil {
			return snap, nil
		}
	}

	// The refresh outlives any single caller so that one caller giving up
	// does not fail the others waiting on it.
	refreshCtx := context.WithoutCancel(ctx)
	ch := in.group.DoChan(id+"\x00"+fp, func() (any, error) {
		return in.refresh(refreshCtx, ds, fp)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*core.SchemaSnapshot), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &core.TimeoutError{DataSourceID: id, Op: "schema refresh", Budget: in.opts.RefreshTimeout}
		}
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached snapshot of a data source.
func (in *Introspector) Invalidate(id string) {
	if _, ok := in.cache.LoadAndDelete(id); ok {
		in.logger.Debug("schema cache invalidated", slog.String("datasource", id))
	}
}

func (in *Introspector) cached(id, fp string) *core.SchemaSnapshot {
	v, ok := in.cache.Load(id)
	if !ok {
		return nil
	}
	snap := v.(*core.SchemaSnapshot)
	if snap.Fingerprint != fp || snap.Expired(in.now()) {
		return nil
	}
	return snap
}

func (in *Introspector) refresh(ctx context.Context, ds core.DataSource, fp string) (*core.SchemaSnapshot, error) {
	start := in.now()
	ctx, cancel := context.WithTimeout(ctx, in.opts.RefreshTimeout)
	defer cancel()

	conn, err := in.conns.Acquire(ctx, ds)
	if err != nil {
		return nil, err
	}
	defer in.conns.Release(conn)

	fail := func(op string, err error) error {
		if ctx.Err() != nil {
			conn.Invalidate()
			return &core.TimeoutError{
				DataSourceID: ds.ID,
				Op:           "schema refresh",
				Elapsed:      in.now().Sub(start),
				Budget:       in.opts.RefreshTimeout,
			}
		}
		return &core.ConnectionError{
			DataSourceID: ds.ID,
			Op:           op,
			Elapsed:      in.now().Sub(start),
			Err:          core.Redact(err, ds.Config.Password),
		}
	}

	refs, err := conn.Adapter.ListRelations(ctx)
	if err != nil {
		return nil, fail("list relations", err)
	}

	snap := &core.SchemaSnapshot{
		DataSourceID: ds.ID,
		Tables:       []core.Relation{},
		Views:        []core.Relation{},
		Fingerprint:  fp,
	}
	for _, ref := range refs {
		cols, err := conn.Adapter.DescribeRelation(ctx, ref)
		if err != nil {
			if ctx.Err() != nil || in.opts.PartialPolicy == PartialFail {
				return nil, fail("describe "+ref.QualifiedName(), err)
			}
			msg := describeWarning(ref, core.Redact(err, ds.Config.Password))
			in.logger.Warn("skipping relation during introspection",
				slog.String("datasource", ds.ID),
				slog.String("relation", ref.QualifiedName()),
				slog.String("error", msg))
			snap.Warnings = append(snap.Warnings, msg)
			continue
		}
		rel := normalizeRelation(ref, cols)
		if ref.Kind == core.RelationView {
			snap.Views = append(snap.Views, rel)
		} else {
			snap.Tables = append(snap.Tables, rel)
		}
	}
	sortRelations(snap.Tables)
	sortRelations(snap.Views)

	snap.FetchedAt = in.now()
	snap.TTLExpiresAt = snap.FetchedAt.Add(in.opts.TTL)
	in.cache.Store(ds.ID, snap)

	in.logger.Debug("schema refreshed",
		slog.String("datasource", ds.ID),
		slog.Int("tables", len(snap.Tables)),
		slog.Int("views", len(snap.Views)),
		slog.Int("warnings", len(snap.Warnings)),
		slog.Duration("elapsed", snap.FetchedAt.Sub(start)))
	return snap, nil
}

func describeWarning(ref core.RelationRef, err error) string {
	if errors.Is(err, adapter.ErrRelationNotFound) {
		return fmt.Sprintf("%s: dropped while introspecting", ref.QualifiedName())
	}
	return fmt.Sprintf("%s: %v", ref.QualifiedName(), err)
}

func normalizeRelation(ref core.RelationRef, cols []core.CatalogColumn) core.Relation {
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })
	out := core.Relation{
		Schema:  ref.Schema,
		Name:    ref.Name,
		Columns: make([]core.SchemaColumn, 0, len(cols)),
	}
	for _, c := range cols {
		out.Columns = append(out.Columns, core.SchemaColumn{
			Name:         c.Name,
			Type:         core.NormalizeType(c.Type),
			DatabaseType: c.Type,
			Nullable:     c.Nullable,
			Position:     c.Position,
		})
	}
	return out
}

func sortRelations(rels []core.Relation) {
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Schema != rels[j].Schema {
			return rels[i].Schema < rels[j].Schema
		}
		return rels[i].Name < rels[j].Name
	})
}
