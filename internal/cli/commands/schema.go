package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// SchemaOptions holds options for the schema command.
type SchemaOptions struct {
	Source  string
	Format  string
	Refresh bool
	Table   string
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	opts := &SchemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the tables, views and columns of a data source",
		Long: `Introspect a data source's catalog. Snapshots are cached for schema.ttl;
--refresh bypasses the cache.`,
		Example: `  # List relations
  leapgate schema --source warehouse

  # Columns of one table
  leapgate schema -s warehouse --table orders

  # Fresh snapshot as JSON
  leapgate schema -s warehouse --refresh --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "Data source ID")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(ModeAuto), "Output format: "+strings.Join(OutputModes, ", "))
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "Bypass the schema cache")
	cmd.Flags().StringVarP(&opts.Table, "table", "t", "", "Show the columns of one table or view")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.RegisterFlagCompletionFunc("format", formatCompletion)

	return cmd
}

func runSchema(cmd *cobra.Command, opts *SchemaOptions) error {
	cc, cleanup, err := NewCommandContext(cmd, opts.Format)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := core.WithActor(cmd.Context(), cliActor())
	snap, err := cc.Gateway.GetSchema(ctx, opts.Source, opts.Refresh)
	if err != nil {
		return err
	}
	r := cc.Renderer

	if opts.Table != "" {
		rel, ok := findRelation(snap, opts.Table)
		if !ok {
			return fmt.Errorf("no table or view named %q in %s", opts.Table, opts.Source)
		}
		if r.EffectiveMode() == ModeJSON {
			return r.JSON(rel)
		}
		return r.Grid(columnsGrid(rel))
	}

	if r.EffectiveMode() == ModeJSON {
		return r.JSON(snap)
	}
	for _, w := range snap.Warnings {
		r.Warnf("warning: %s", w)
	}
	return r.Grid(relationsGrid(snap))
}

func relationsGrid(snap *core.SchemaSnapshot) Grid {
	g := Grid{Header: []string{"kind", "schema", "name", "columns"}}
	add := func(kind core.RelationKind, rels []core.Relation) {
		for _, rel := range rels {
			g.Rows = append(g.Rows, []any{string(kind), rel.Schema, rel.Name, len(rel.Columns)})
		}
	}
	add(core.RelationTable, snap.Tables)
	add(core.RelationView, snap.Views)
	g.Footer = fmt.Sprintf("(%d tables, %d views, fetched %s)",
		len(snap.Tables), len(snap.Views), snap.FetchedAt.Format("2006-01-02 15:04:05"))
	return g
}

func columnsGrid(rel core.Relation) Grid {
	ref := core.RelationRef{Schema: rel.Schema, Name: rel.Name}
	g := Grid{
		Title:  ref.QualifiedName(),
		Header: []string{"#", "column", "type", "database type", "nullable"},
	}
	for _, c := range rel.Columns {
		g.Rows = append(g.Rows, []any{c.Position, c.Name, string(c.Type), c.DatabaseType, c.Nullable})
	}
	return g
}
