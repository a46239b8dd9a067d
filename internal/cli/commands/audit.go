package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapgate/internal/audit"
)

// AuditOptions holds options for the audit tail command.
type AuditOptions struct {
	Format  string
	Source  string
	Outcome string
	Limit   int
}

// NewAuditCommand creates the audit command.
func NewAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
		Long: `Read the SQLite audit store configured by audit.path. Entries record who
ran what against which data source, with the SQL stored as a sha256 hash.`,
	}
	cmd.AddCommand(newAuditTailCommand())
	return cmd
}

func newAuditTailCommand() *cobra.Command {
	opts := &AuditOptions{}

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent audit entries",
		Example: `  # Last 50 entries
  leapgate audit tail

  # Failures against one source
  leapgate audit tail --source warehouse --outcome error -n 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuditTail(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(ModeAuto), "Output format: "+strings.Join(OutputModes, ", "))
	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "Only entries for this data source")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "Only entries with this outcome (success, error, timeout, ...)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 50, "Maximum entries to show")
	cmd.Flags().String("audit-db", "", "Path to the audit database (overrides audit.path)")
	_ = cmd.RegisterFlagCompletionFunc("format", formatCompletion)

	return cmd
}

func runAuditTail(cmd *cobra.Command, opts *AuditOptions) error {
	cc := NewCommandContextWithoutGateway(cmd, opts.Format)
	path := cc.Cfg.Audit.Path
	if path == "" {
		return fmt.Errorf("no audit database configured (set audit.path or --audit-db)")
	}

	store, err := audit.OpenStore(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Tail(cmd.Context(), audit.TailFilter{
		DataSourceID: opts.Source,
		Outcome:      audit.Outcome(opts.Outcome),
		Limit:        opts.Limit,
	})
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == ModeJSON {
		if entries == nil {
			entries = []audit.Entry{}
		}
		return r.JSON(entries)
	}

	g := Grid{Header: []string{"at", "actor", "action", "source", "outcome", "ms", "sql hash", "error"}}
	for _, e := range entries {
		g.Rows = append(g.Rows, []any{
			e.At.Local().Format(time.DateTime), e.Actor, string(e.Action), e.DataSourceID,
			string(e.Outcome), e.DurationMs, shortHash(e.SQLHash), e.Error,
		})
	}
	return r.Grid(g)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
