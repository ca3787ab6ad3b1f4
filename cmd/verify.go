package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"martforge/internal/config"
	"martforge/internal/ui"
	"martforge/internal/verify"
)

var verifySeed int64

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify mart logic in-process without a warehouse",
	Long: `Generate a synthetic dataset, evaluate the sessionization, cohort,
funnel and window analytics in-process, and check structural invariants
of the results. No warehouse connection is required.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Int64Var(&verifySeed, "seed", 0, "Random seed (overrides config)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		return err
	}

	seedCfg := cfg.Seed
	if verifySeed != 0 {
		seedCfg.RandomSeed = verifySeed
	}

	u := ui.NewUI(flagVerbose, flagQuiet)
	u.StartProgress("Evaluating analytics engine")
	report, err := verify.Run(seedCfg, cfg.Vars)
	u.StopProgress()

	for _, p := range report.Properties {
		if p.Passed {
			u.Printf("  %s %s\n", ui.ColorSuccess("✓"), p.Name)
		} else {
			u.Printf("  %s %s\n", ui.ColorError("✗"), p.Name)
			u.Printf("    %s\n", ui.ColorDim(p.Detail))
		}
	}

	if err != nil {
		return err
	}

	u.Success(fmt.Sprintf("%d properties verified", len(report.Properties)))
	return nil
}
