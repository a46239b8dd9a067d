package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects how command output is rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeTable    Mode = "table"
	ModeJSON     Mode = "json"
	ModeCSV      Mode = "csv"
	ModeMarkdown Mode = "md"
)

// OutputModes lists the values accepted by --format.
var OutputModes = []string{string(ModeAuto), string(ModeTable), string(ModeJSON), string(ModeCSV), string(ModeMarkdown)}

// Styles color status lines. They render plain when the stream is not a terminal.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
}

func newStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w, termenv.WithColorCache(true))
	return Styles{
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		Success: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Muted:   r.NewStyle().Faint(true),
	}
}

// Renderer writes command results in the selected mode.
type Renderer struct {
	out       io.Writer
	err       io.Writer
	mode      Mode
	styles    Styles
	errStyles Styles
}

// NewRenderer creates a renderer. ModeAuto renders tables on a terminal
// and JSON when output is piped.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{out: out, err: errOut, mode: mode, styles: newStyles(out), errStyles: newStyles(errOut)}
}

// EffectiveMode resolves ModeAuto against the output stream.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if f, ok := r.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ModeTable
	}
	return ModeJSON
}

// Writer returns the output stream.
func (r *Renderer) Writer() io.Writer { return r.out }

// Println writes a line to the output stream.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Warnf writes a highlighted line to the error stream.
func (r *Renderer) Warnf(format string, a ...any) {
	_, _ = fmt.Fprintln(r.err, r.errStyles.Warning.Render(fmt.Sprintf(format, a...)))
}

// Status writes a one-line verdict in table mode.
func (r *Renderer) Status(ok bool, msg string) {
	if r.EffectiveMode() != ModeTable {
		return
	}
	if ok {
		r.Println(r.styles.Success.Render("✓ " + msg))
		return
	}
	r.Println(r.styles.Error.Render("✗ " + msg))
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Grid is tabular output: a header, rows and an optional footer line.
type Grid struct {
	Title  string
	Header []string
	Rows   [][]any
	Footer string
}

// Grid renders g in the non-JSON modes. In JSON mode callers pass their
// own value to JSON instead.
func (r *Renderer) Grid(g Grid) error {
	switch r.EffectiveMode() {
	case ModeCSV:
		return r.csv(g)
	case ModeMarkdown:
		return r.markdown(g)
	default:
		return r.table(g)
	}
}

func (r *Renderer) table(g Grid) error {
	if g.Title != "" {
		r.Println(g.Title)
	}
	if len(g.Rows) == 0 {
		r.Println("(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(g.Header))
	for i, h := range g.Header {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, row := range g.Rows {
		cells := make(table.Row, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		t.AppendRow(cells)
	}

	t.Render()
	if g.Footer != "" {
		r.Println(r.styles.Muted.Render(g.Footer))
	}
	return nil
}

func (r *Renderer) csv(g Grid) error {
	r.Println(strings.Join(g.Header, ","))
	for _, row := range g.Rows {
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = escapeCSV(formatValue(v))
		}
		r.Println(strings.Join(values, ","))
	}
	return nil
}

func (r *Renderer) markdown(g Grid) error {
	if g.Title != "" {
		r.Println("## " + g.Title)
		r.Println()
	}
	if len(g.Rows) == 0 {
		r.Println("(0 rows)")
		return nil
	}

	_, _ = fmt.Fprintf(r.out, "| %s |\n", strings.Join(g.Header, " | "))
	seps := make([]string, len(g.Header))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(r.out, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range g.Rows {
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = strings.ReplaceAll(formatValue(v), "|", `\|`)
		}
		_, _ = fmt.Fprintf(r.out, "| %s |\n", strings.Join(values, " | "))
	}
	if g.Footer != "" {
		r.Println()
		r.Println(g.Footer)
	}
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case bool:
		if x {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%v", v)
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
