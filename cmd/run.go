package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"martforge/internal/runner"
	"martforge/internal/ui"
)

var (
	runSelect      []string
	runTags        []string
	runFullRefresh bool
	runDryRun      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Materialize models against the warehouse",
	Long: `Build the selected models in dependency order. Staging models are
materialized as views and mart models as tables. Selecting a model pulls
in its upstream dependencies; a failed model skips its dependents.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVarP(&runSelect, "select", "s", nil, "Models to build (upstream dependencies included)")
	runCmd.Flags().StringSliceVarP(&runTags, "tags", "t", nil, "Only build models with these tags")
	runCmd.Flags().BoolVar(&runFullRefresh, "full-refresh", false, "Drop and rebuild instead of replacing in place")
	runCmd.Flags().BoolVarP(&runDryRun, "dry-run", "d", false, "Render DDL without executing")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, target, err := loadProject()
	if err != nil {
		ui.ShowError(err)
		return err
	}

	g, _, err := loadGraph(cfg)
	if err != nil {
		ui.ShowError(err)
		return err
	}

	opts := runner.Options{
		Select:      runSelect,
		Tags:        runTags,
		FullRefresh: runFullRefresh,
		DryRun:      runDryRun,
	}

	u := ui.NewUI(flagVerbose, flagQuiet)

	if runDryRun {
		r := runner.New(nil, g, cfg.Vars)
		summary, err := r.Run(cmd.Context(), opts)
		if err != nil {
			ui.ShowError(err)
			return err
		}
		for _, res := range summary.Results {
			fmt.Printf("-- %s\n%s\n\n", res.Model, res.SQL)
		}
		u.Info(fmt.Sprintf("%d models rendered", len(summary.Results)))
		return nil
	}

	u.StartProgress(fmt.Sprintf("Connecting to %s (%s)", target.Name, target.Adapter))
	svc, err := openWarehouse(target)
	u.StopProgress()
	if err != nil {
		ui.ShowError(err)
		return err
	}
	defer svc.Close()

	r := runner.New(svc, g, cfg.Vars)
	var progress *ui.RunProgress
	if !flagQuiet {
		progress = ui.NewRunProgress()
		opts.OnResult = progress.Record
	}
	summary, err := r.Run(cmd.Context(), opts)
	if progress != nil {
		progress.Finish()
	}
	if summary != nil {
		ui.ShowRunSummary(summary)
	}
	if err != nil {
		return err
	}
	if summary.Failed() > 0 {
		return fmt.Errorf("%d models failed", summary.Failed())
	}

	u.Success("All models materialized")
	return nil
}
