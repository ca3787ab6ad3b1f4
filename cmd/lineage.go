package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"martforge/internal/config"
	"martforge/internal/ui"
)

var lineageCmd = &cobra.Command{
	Use:   "lineage [model]",
	Short: "Show model dependencies and dependents",
	Long: `Show the dependency lineage of one model, or a table of the whole
graph in build order when no model is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLineage,
}

func init() {
	rootCmd.AddCommand(lineageCmd)
}

func runLineage(cmd *cobra.Command, args []string) error {
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

	if len(args) == 0 {
		fmt.Print(g.RenderOverview())
		return nil
	}

	out, err := g.RenderLineage(args[0])
	if err != nil {
		ui.ShowError(err)
		return err
	}
	fmt.Print(out)
	return nil
}
