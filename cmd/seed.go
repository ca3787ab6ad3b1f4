package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"martforge/internal/seed"
	"martforge/internal/ui"
)

var (
	seedUsers    int
	seedEvents   int
	seedSales    int
	seedProducts int
	seedRandom   int64
	seedTruncate bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate and load synthetic raw data",
	Long: `Generate a deterministic synthetic dataset (users, products, events,
sales) and load it into the raw_* tables of the active target. The same
random seed always produces the same dataset.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntVar(&seedUsers, "users", 0, "Number of users (overrides config)")
	seedCmd.Flags().IntVar(&seedEvents, "events", 0, "Number of events (overrides config)")
	seedCmd.Flags().IntVar(&seedSales, "sales", 0, "Number of sales (overrides config)")
	seedCmd.Flags().IntVar(&seedProducts, "products", 0, "Number of products (overrides config)")
	seedCmd.Flags().Int64Var(&seedRandom, "seed", 0, "Random seed (overrides config)")
	seedCmd.Flags().BoolVar(&seedTruncate, "truncate", false, "Clear existing raw tables instead of recreating them")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, target, err := loadProject()
	if err != nil {
		ui.ShowError(err)
		return err
	}

	seedCfg := cfg.Seed
	if seedUsers > 0 {
		seedCfg.Users = seedUsers
	}
	if seedEvents > 0 {
		seedCfg.Events = seedEvents
	}
	if seedSales > 0 {
		seedCfg.Sales = seedSales
	}
	if seedProducts > 0 {
		seedCfg.Products = seedProducts
	}
	if seedRandom != 0 {
		seedCfg.RandomSeed = seedRandom
	}

	u := ui.NewUI(flagVerbose, flagQuiet)

	u.StartProgress("Generating dataset")
	ds := seed.Generate(seedCfg)
	u.StopProgress()

	u.Printf("Generated %d users, %d products, %d events, %d sales (seed %d)\n",
		len(ds.Users), len(ds.Products), len(ds.Events), len(ds.Sales), seedCfg.RandomSeed)

	u.StartProgress(fmt.Sprintf("Connecting to %s (%s)", target.Name, target.Adapter))
	svc, err := openWarehouse(target)
	u.StopProgress()
	if err != nil {
		ui.ShowError(err)
		return err
	}
	defer svc.Close()

	u.StartProgress("Loading raw tables")
	if seedTruncate {
		err = seed.LoadTruncate(cmd.Context(), svc, ds, seedCfg.BatchSize)
	} else {
		err = seed.Load(cmd.Context(), svc, ds, seedCfg.BatchSize)
	}
	u.StopProgress()
	if err != nil {
		ui.ShowError(err)
		return err
	}

	u.Success("Raw tables loaded")
	return nil
}
