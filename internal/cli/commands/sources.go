package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapgate/pkg/core"
)

// NewSourcesCommand creates the sources command.
func NewSourcesCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List registered data sources",
		Long: `List the data sources from the configuration file and datasources_file.
Credentials are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd, format)
			if err != nil {
				return err
			}
			defer cleanup()
			return renderSources(cc.Renderer, cc.Gateway.DataSources())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(ModeAuto), "Output format: "+strings.Join(OutputModes, ", "))
	_ = cmd.RegisterFlagCompletionFunc("format", formatCompletion)

	return cmd
}

func renderSources(r *Renderer, list []core.DataSource) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(list)
	}
	g := Grid{Header: []string{"id", "name", "kind", "target", "active"}}
	for _, ds := range list {
		g.Rows = append(g.Rows, []any{ds.ID, ds.Name, string(ds.Kind), target(ds), ds.Active})
	}
	g.Footer = fmt.Sprintf("(%d data sources)", len(list))
	return r.Grid(g)
}

// target describes where a data source points without credentials.
func target(ds core.DataSource) string {
	c := ds.Config
	if ds.Kind.IsEmbedded() {
		if c.Path == "" {
			return ":memory:"
		}
		return c.Path
	}
	host := c.Host
	if c.Port > 0 {
		host = fmt.Sprintf("%s:%d", host, c.Port)
	}
	if c.Database != "" {
		host += "/" + c.Database
	}
	return host
}
