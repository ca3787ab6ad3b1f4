package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"martforge/internal/config"
	"martforge/internal/ui"
)

var compileTags []string

var compileCmd = &cobra.Command{
	Use:   "compile [model...]",
	Short: "Render model DDL without executing it",
	Long: `Render the CREATE statements for the selected models, with template
variables substituted, in dependency order. With no arguments every
model is rendered.`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringSliceVarP(&compileTags, "tags", "t", nil, "Only render models with these tags")
}

func runCompile(cmd *cobra.Command, args []string) error {
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

	selected, err := g.Select(args, compileTags)
	if err != nil {
		ui.ShowError(err)
		return err
	}

	for _, name := range selected {
		m := g.Model(name)
		ddl, err := m.DDL(cfg.Vars)
		if err != nil {
			ui.ShowError(err)
			return err
		}
		fmt.Printf("-- %s\n%s\n\n", name, ddl)
	}
	return nil
}
