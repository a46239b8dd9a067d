package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/leapgate/internal/gateway"
	"github.com/leapstack-labs/leapgate/pkg/core"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Source  string
	Format  string
	Input   string
	Limit   int
	Timeout time.Duration
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Execute SQL against a data source",
		Long: `Execute a statement against a registered data source through the gateway.

The statement is validated, checked against the read-only policy, run with
the configured row and time limits, and audited exactly as an API call would be.

When invoked without SQL on a terminal, enters interactive REPL mode.`,
		Example: `  # One-shot query
  leapgate query --source warehouse "SELECT * FROM orders"

  # Read SQL from a file and print JSON
  leapgate query -s warehouse -i report.sql --format json

  # Cap the rows returned
  leapgate query -s warehouse --limit 10 "SELECT * FROM events"

  # Interactive mode
  leapgate query -s warehouse`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "Data source ID")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(ModeAuto), "Output format: "+strings.Join(OutputModes, ", "))
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Maximum rows to return (default from limits.default_rows)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Statement timeout (default from limits.default_timeout)")
	cmd.Flags().Bool("read-only", true, "Reject statements that modify data")
	cmd.Flags().Int("max-rows", 0, "Upper bound for --limit")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.RegisterFlagCompletionFunc("format", formatCompletion)

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	sqlText, err := readSQL(cmd, args, opts.Input)
	if err != nil {
		return err
	}

	cc, cleanup, err := NewCommandContext(cmd, opts.Format)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := core.WithActor(cmd.Context(), cliActor())

	if sqlText == "" {
		if !isTerminal(cmd.InOrStdin()) {
			return fmt.Errorf("no SQL given (pass it as an argument, with -i, or on stdin)")
		}
		return runQueryREPL(ctx, cmd, cc, opts)
	}
	return executeAndRender(ctx, cc.Gateway, cc.Renderer, opts.request(sqlText))
}

func (o *QueryOptions) request(sqlText string) core.ExecutionRequest {
	req := core.ExecutionRequest{SQL: sqlText, DataSourceID: o.Source}
	if o.Limit > 0 {
		req.Limit = &o.Limit
	}
	if o.Timeout > 0 {
		ms := int(o.Timeout.Milliseconds())
		req.TimeoutMs = &ms
	}
	return req
}

func executeAndRender(ctx context.Context, gw *gateway.Gateway, r *Renderer, req core.ExecutionRequest) error {
	res, err := gw.Execute(ctx, req)
	if err != nil {
		return err
	}
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(res)
	}
	return r.Grid(resultGrid(res))
}

func resultGrid(res *core.ExecutionResult) Grid {
	g := Grid{Header: make([]string, len(res.Columns))}
	for i, c := range res.Columns {
		g.Header[i] = c.Name
	}
	for _, row := range res.Rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c.Value
		}
		g.Rows = append(g.Rows, cells)
	}
	g.Footer = fmt.Sprintf("(%d rows, %d ms)", res.RowCount, res.ExecutionTimeMs)
	if res.Truncated {
		g.Footer = fmt.Sprintf("(%d rows, truncated, %d ms)", res.RowCount, res.ExecutionTimeMs)
	}
	return g
}

// readSQL takes SQL from the arguments, then the -i file, then piped stdin.
// It returns "" when none was given.
func readSQL(cmd *cobra.Command, args []string, input string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.TrimSpace(strings.Join(args, " ")), nil
	case input != "":
		content, err := os.ReadFile(input)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	case !isTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return "", nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// cliActor identifies CLI callers in the audit log.
func cliActor() string {
	if u := os.Getenv("USER"); u != "" {
		return "cli:" + u
	}
	return "cli"
}
