package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapgate/pkg/core"
	"github.com/leapstack-labs/leapgate/pkg/validator"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Format string
	Input  string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [SQL]",
		Short: "Check SQL without executing it",
		Long: `Parse and classify a SQL statement the same way the gateway does before
execution. Reports syntax errors, the statement type, whether it is
read-only, named parameters and advisory warnings.

Exits with an error when the statement is invalid.`,
		Example: `  # Validate a statement
  leapgate validate "SELECT id FROM orders WHERE id = :id"

  # Validate a file and print JSON
  leapgate validate -i report.sql --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlText, err := readSQL(cmd, args, opts.Input)
			if err != nil {
				return err
			}
			if sqlText == "" {
				return fmt.Errorf("no SQL given (pass it as an argument, with -i, or on stdin)")
			}
			return runValidate(cmd, sqlText, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(ModeAuto), "Output format: "+strings.Join(OutputModes, ", "))
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	_ = cmd.RegisterFlagCompletionFunc("format", formatCompletion)

	return cmd
}

func runValidate(cmd *cobra.Command, sqlText string, opts *ValidateOptions) error {
	r := NewCommandContextWithoutGateway(cmd, opts.Format).Renderer
	res := validator.Validate(sqlText)

	if r.EffectiveMode() == ModeJSON {
		if err := r.JSON(res); err != nil {
			return err
		}
	} else {
		if err := r.Grid(validationGrid(res)); err != nil {
			return err
		}
		if res.Valid {
			r.Status(true, fmt.Sprintf("valid %s statement", res.StatementType))
		} else {
			r.Status(false, fmt.Sprintf("%d error(s)", len(res.Errors)))
		}
	}

	if !res.Valid {
		return fmt.Errorf("statement is invalid")
	}
	return nil
}

func validationGrid(res core.ValidationResult) Grid {
	g := Grid{Header: []string{"check", "result"}}
	g.Rows = append(g.Rows,
		[]any{"valid", res.Valid},
		[]any{"statement type", string(res.StatementType)},
		[]any{"read-only", res.ReadOnly},
	)
	if len(res.Parameters) > 0 {
		g.Rows = append(g.Rows, []any{"parameters", strings.Join(res.Parameters, ", ")})
	}
	for _, e := range res.Errors {
		msg := e.Message
		if e.Line > 0 {
			msg = fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
		}
		g.Rows = append(g.Rows, []any{"error", msg})
	}
	for _, w := range res.Warnings {
		msg := w.Message
		if w.Rule != "" {
			msg = w.Rule + ": " + msg
		}
		g.Rows = append(g.Rows, []any{"warning", msg})
	}
	return g
}

func formatCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return OutputModes, cobra.ShellCompDirectiveNoFileComp
}
