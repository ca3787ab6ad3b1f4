package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"martforge/internal/model"
	"martforge/internal/ui"
	"martforge/pkg/errors"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [analysis]",
	Short: "Run a built-in analysis query against the mart",
	Long: `Run one of the built-in analysis queries over the materialized mart
tables and print the result. With no arguments the available analyses
are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		names := make([]string, 0, len(model.Analyses))
		for name := range model.Analyses {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	query, ok := model.Analyses[args[0]]
	if !ok {
		err := errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown analysis %q", args[0])).
			WithSuggestions("Run 'martforge analyze' to list available analyses")
		ui.ShowError(err)
		return err
	}

	_, target, err := loadProject()
	if err != nil {
		ui.ShowError(err)
		return err
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

	rows, err := svc.Query(cmd.Context(), query)
	if err != nil {
		ui.ShowError(err)
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(cols)
	table.SetBorder(false)

	values := make([]interface{}, len(cols))
	scan := make([]interface{}, len(cols))
	for i := range values {
		scan[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return err
		}
		record := make([]string, len(cols))
		for i, v := range values {
			record[i] = formatValue(v)
		}
		table.Append(record)
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	table.Render()
	fmt.Printf("\n%d rows\n", count)
	return nil
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
