package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"martforge/internal/ui"
)

var initSkipExamples bool

var initCmd = &cobra.Command{
	Use:   "init [project-name]",
	Short: "Initialize a new martforge project",
	Long: `Create a project directory with a starter martforge.yaml and a models
directory. The built-in model catalog is used as-is; .sql files placed in
the models directory override or extend it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initSkipExamples, "skip-examples", false, "Skip creating the example model override")
}

const starterConfig = `project:
  name: %s
  models_dir: models
  target: dev

targets:
  - name: dev
    adapter: postgres
    host: localhost
    port: 5432
    username: analytics
    database: analytics
    schema: public
    timeout: 30s

vars:
  session_timeout_minutes: 30

seed:
  random_seed: 42
  users: 1000
  products: 100
  events: 50000
  sales: 5000
  batch_size: 500

checks:
  enabled: true
  skip: []
`

const exampleModel = `-- materialized: table
-- tags: mart, custom
-- refs: stg_sales
-- description: Daily revenue by category, an example custom model.
SELECT
    sale_date,
    SUM(net_amount) AS daily_revenue,
    COUNT(*) AS transactions
FROM stg_sales
GROUP BY sale_date
`

func runInit(cmd *cobra.Command, args []string) error {
	projectName := "analytics-mart"
	if len(args) > 0 {
		projectName = args[0]
	}

	projectDir, err := filepath.Abs(projectName)
	if err != nil {
		return err
	}

	if _, err := os.Stat(projectDir); err == nil {
		overwrite := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Directory %s already exists. Continue?", projectName),
			Default: false,
		}
		if err := survey.AskOne(prompt, &overwrite); err != nil {
			return err
		}
		if !overwrite {
			return fmt.Errorf("init cancelled")
		}
	}

	if err := os.MkdirAll(filepath.Join(projectDir, "models"), 0755); err != nil {
		return err
	}

	configPath := filepath.Join(projectDir, "martforge.yaml")
	content := fmt.Sprintf(starterConfig, projectName)
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		return err
	}

	if !initSkipExamples {
		examplePath := filepath.Join(projectDir, "models", "mart_daily_revenue.sql")
		if err := os.WriteFile(examplePath, []byte(exampleModel), 0644); err != nil {
			return err
		}
	}

	ui.ShowSuccess(fmt.Sprintf("Project %s initialized", projectName))
	fmt.Println("\nNext steps:")
	fmt.Printf("  cd %s\n", projectName)
	fmt.Println("  martforge setup     # configure warehouse credentials")
	fmt.Println("  martforge seed      # load synthetic raw data")
	fmt.Println("  martforge run       # materialize the mart")
	fmt.Println("  martforge test      # run data quality checks")
	return nil
}
