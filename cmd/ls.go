package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"martforge/internal/config"
	"martforge/internal/ui"
)

var lsTags []string

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List models in dependency order",
	RunE:  runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().StringSliceVarP(&lsTags, "tags", "t", nil, "Only list models with these tags")
}

func runLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		return err
	}

	g, _, err := loadGraph(cfg)
	if err != nil {
		ui.ShowError(err)
		return err
	}

	selected, err := g.Select(nil, lsTags)
	if err != nil {
		ui.ShowError(err)
		return err
	}

	table := ui.NewTable()
	table.AddHeader("MODEL", "MATERIALIZED", "TAGS", "DEPENDS ON")
	for _, name := range selected {
		m := g.Model(name)
		deps := append(append([]string{}, m.Refs...), m.Sources...)
		table.AddRow(
			m.Name,
			string(m.Materialized),
			strings.Join(m.Tags, ","),
			strings.Join(deps, ","),
		)
	}
	table.Render()

	fmt.Printf("\n%d models\n", len(selected))
	return nil
}
