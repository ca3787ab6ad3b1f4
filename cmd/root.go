package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"martforge/internal/config"
	"martforge/internal/graph"
	"martforge/internal/model"
	"martforge/internal/secrets"
	"martforge/internal/warehouse"
	"martforge/pkg/errors"
	"martforge/pkg/models"
)

var (
	flagTarget  string
	flagVerbose bool
	flagQuiet   bool

	rootCmd = &cobra.Command{
		Use:   "martforge",
		Short: "Materialize an e-commerce analytics mart",
		Long: `martforge builds a layered analytics mart from raw e-commerce data:
staging views over raw users, products, events and sales, and mart tables
for sessionization, cohort retention, funnel conversion and window-function
sales analytics. Models are declared as SQL with ref() dependencies and
materialized in dependency order against Snowflake, Postgres or MySQL.`,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&flagTarget, "target", "", "Target from martforge.yaml (defaults to project.target)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().SetNormalizeFunc(normalizeFlags)
}

// normalizeFlags accepts underscore spellings like --full_refresh
func normalizeFlags(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func initConfig() {
	viper.SetConfigName("martforge")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(home, ".martforge"))
	}

	viper.SetEnvPrefix("MARTFORGE")
	viper.AutomaticEnv()

	// Missing config is fine; commands fall back to defaults.
	_ = viper.ReadInConfig()
}

// loadProject loads the configuration and resolves the active target.
func loadProject() (*models.Config, *models.Target, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	name := flagTarget
	if name == "" {
		name = cfg.Project.Target
	}
	if name == "" {
		name = viper.GetString("project.target")
	}
	if name == "" {
		name = "dev"
	}

	target, ok := cfg.FindTarget(name)
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeTargetNotFound,
			fmt.Sprintf("target %q not found in configuration", name)).
			WithContext("target", name).
			WithSuggestions("Run 'martforge setup' to configure a target")
	}
	return cfg, target, nil
}

// loadGraph builds the dependency graph from the configured models
// directory, falling back to the built-in catalog.
func loadGraph(cfg *models.Config) (*graph.Graph, []model.Model, error) {
	catalog, err := model.LoadDir(cfg.Project.ModelsDir)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.Build(catalog)
	if err != nil {
		return nil, nil, err
	}
	return g, catalog, nil
}

// openWarehouse resolves credentials and opens a connection to the
// active target.
func openWarehouse(target *models.Target) (*warehouse.Service, error) {
	resolved := *target
	resolved.Password = secrets.ResolvePassword(target)

	if err := warehouse.ValidateTarget(resolved); err != nil {
		return nil, err
	}

	svc := warehouse.NewService(resolved)
	if err := svc.Connect(); err != nil {
		return nil, err
	}
	return svc, nil
}
