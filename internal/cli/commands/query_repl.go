package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

const (
	replPrompt     = "leapgate> "
	replContinuing = "     ...> "
)

func runQueryREPL(ctx context.Context, cmd *cobra.Command, cc *CommandContext, opts *QueryOptions) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    newRelationCompleter(ctx, cc, opts.Source),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "leapgate query REPL (source: %s, read-only: %t)\n", opts.Source, cc.Cfg.ReadOnly)
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	repl := &replSession{ctx: ctx, cc: cc, opts: opts, out: out, errOut: cmd.ErrOrStderr()}

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := repl.dotCommand(line); quit {
				break
			}
			continue
		}

		// Accumulate multi-line SQL until a semicolon.
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString(" ")
			rl.SetPrompt(replContinuing)
			continue
		}
		rl.SetPrompt(replPrompt)

		query := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()
		repl.execute(query)
	}
	return nil
}

// replSession runs REPL input against one data source.
type replSession struct {
	ctx    context.Context
	cc     *CommandContext
	opts   *QueryOptions
	out    io.Writer
	errOut io.Writer
}

func (s *replSession) execute(query string) {
	if err := executeAndRender(s.ctx, s.cc.Gateway, s.cc.Renderer, s.opts.request(query)); err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
	_, _ = fmt.Fprintln(s.out)
}

// dotCommand handles a REPL command and reports whether to exit.
func (s *replSession) dotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	var err error
	switch command {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(s.out)
	case ".sources":
		err = renderSources(s.cc.Renderer, s.cc.Gateway.DataSources())
	case ".tables":
		err = s.tables()
	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(s.errOut, "Usage: .schema <table>")
			return false
		}
		err = s.describe(parts[1])
	case ".refresh":
		_, err = s.cc.Gateway.GetSchema(s.ctx, s.opts.Source, true)
		if err == nil {
			_, _ = fmt.Fprintln(s.out, "schema refreshed")
		}
	default:
		_, _ = fmt.Fprintf(s.errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	if err != nil {
		_, _ = fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
	return false
}

func (s *replSession) tables() error {
	snap, err := s.cc.Gateway.GetSchema(s.ctx, s.opts.Source, false)
	if err != nil {
		return err
	}
	return s.cc.Renderer.Grid(relationsGrid(snap))
}

func (s *replSession) describe(name string) error {
	snap, err := s.cc.Gateway.GetSchema(s.ctx, s.opts.Source, false)
	if err != nil {
		return err
	}
	rel, ok := findRelation(snap, name)
	if !ok {
		return fmt.Errorf("no table or view named %q in %s", name, s.opts.Source)
	}
	return s.cc.Renderer.Grid(columnsGrid(rel))
}

// findRelation matches a bare or schema-qualified name, case-insensitively.
func findRelation(snap *core.SchemaSnapshot, name string) (core.Relation, bool) {
	for _, group := range [][]core.Relation{snap.Tables, snap.Views} {
		for _, rel := range group {
			ref := core.RelationRef{Schema: rel.Schema, Name: rel.Name}
			if strings.EqualFold(rel.Name, name) || strings.EqualFold(ref.QualifiedName(), name) {
				return rel, true
			}
		}
	}
	return core.Relation{}, false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .sources        List registered data sources
  .tables         List tables and views of the current source
  .schema <name>  Show columns of a table or view
  .refresh        Re-read the schema from the database
  .quit / .exit   Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newRelationCompleter completes dot-commands and the source's relation names.
func newRelationCompleter(ctx context.Context, cc *CommandContext, source string) *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".sources"),
		readline.PcItem(".tables"),
		readline.PcItem(".refresh"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}

	// Completion is best effort; errors surface on first use instead.
	snap, err := cc.Gateway.GetSchema(ctx, source, false)
	if err != nil {
		return readline.NewPrefixCompleter(items...)
	}
	var names []readline.PrefixCompleterInterface
	for _, group := range [][]core.Relation{snap.Tables, snap.Views} {
		for _, rel := range group {
			names = append(names, readline.PcItem(rel.Name))
		}
	}
	items = append(items, readline.PcItem(".schema", names...))
	items = append(items, names...)
	return readline.NewPrefixCompleter(items...)
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "leapgate")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ""
	}
	return filepath.Join(dir, "query_history")
}
