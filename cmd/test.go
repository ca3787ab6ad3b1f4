package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"martforge/internal/checks"
	"martforge/internal/model"
	"martforge/internal/ui"
	"martforge/pkg/errors"
)

var testSelect []string

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run data quality checks against materialized models",
	Long: `Evaluate the declared data quality checks (not-null, accepted values,
bounds, expressions) against the materialized models in the warehouse.
Individual checks can be skipped via the checks.skip list in the config.`,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringSliceVarP(&testSelect, "select", "s", nil, "Only check these models")
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, target, err := loadProject()
	if err != nil {
		ui.ShowError(err)
		return err
	}

	if !cfg.Checks.Enabled {
		ui.ShowWarning("Checks are disabled in the configuration")
		return nil
	}

	_, catalog, err := loadGraph(cfg)
	if err != nil {
		ui.ShowError(err)
		return err
	}

	if len(testSelect) > 0 {
		selected := catalog[:0:0]
		for _, name := range testSelect {
			m := model.Find(catalog, name)
			if m == nil {
				err := errors.New(errors.ErrCodeModelNotFound,
					fmt.Sprintf("model %q not found", name)).
					WithSuggestions("Run 'martforge ls' to list models")
				ui.ShowError(err)
				return err
			}
			selected = append(selected, *m)
		}
		catalog = selected
	}

	u := ui.NewUI(flagVerbose, flagQuiet)

	u.StartProgress(fmt.Sprintf("Connecting to %s (%s)", target.Name, target.Adapter))
	svc, err := openWarehouse(target)
	u.StopProgress()
	if err != nil {
		ui.ShowError(err)
		return err
	}
	defer svc.Close()

	results, err := checks.Run(cmd.Context(), svc, catalog, cfg.Checks)
	ui.ShowCheckResults(results)
	return err
}
