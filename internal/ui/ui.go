package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/olekukonko/tablewriter"

	"martforge/internal/checks"
	"martforge/internal/runner"
)

// UI represents the main UI interface
type UI struct {
	Verbose bool
	Quiet   bool
	spinner *Spinner
}

// NewUI creates a new UI instance
func NewUI(verbose, quiet bool) *UI {
	return &UI{
		Verbose: verbose,
		Quiet:   quiet,
	}
}

// Printf prints formatted output if not in quiet mode
func (u *UI) Printf(format string, args ...interface{}) {
	if !u.Quiet {
		fmt.Printf(format, args...)
	}
}

// Println prints a line if not in quiet mode
func (u *UI) Println(args ...interface{}) {
	if !u.Quiet {
		fmt.Println(args...)
	}
}

// VerbosePrintf prints formatted output only in verbose mode
func (u *UI) VerbosePrintf(format string, args ...interface{}) {
	if u.Verbose && !u.Quiet {
		fmt.Printf(format, args...)
	}
}

// StartProgress starts a spinner with a message
func (u *UI) StartProgress(message string) {
	if !u.Quiet {
		u.spinner = NewSpinner(message)
		u.spinner.Start()
	}
}

// StopProgress stops the spinner
func (u *UI) StopProgress() {
	if u.spinner != nil && !u.Quiet {
		u.spinner.Stop(true, "Done")
		u.spinner = nil
	}
}

// Warning prints a warning message
func (u *UI) Warning(message string) {
	if !u.Quiet {
		fmt.Printf("%s %s\n", ColorWarning("⚠"), message)
	}
}

// Error prints an error message
func (u *UI) Error(message string) {
	if !u.Quiet {
		fmt.Printf("%s %s\n", ColorError("✗"), message)
	}
}

// Info prints an information message
func (u *UI) Info(message string) {
	if !u.Quiet {
		ShowInfo(message)
	}
}

// Success prints a success message
func (u *UI) Success(message string) {
	if !u.Quiet {
		ShowSuccess(message)
	}
}

// PrintSection prints a section header
func PrintSection(title string) {
	fmt.Printf("\n%s %s\n", ColorBold("▶"), ColorBold(title))
	fmt.Println(strings.Repeat("─", 50))
}

// PrintKeyValue prints a key-value pair in a formatted way
func PrintKeyValue(key, value string) {
	fmt.Printf("  %-20s %s\n", ColorDim(key+":"), value)
}

// Input displays a text input prompt
func Input(message, defaultValue, help string) (string, error) {
	var result string
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
		Help:    help,
	}

	err := survey.AskOne(prompt, &result)
	return result, err
}

// Password displays a password input prompt
func Password(message, help string) (string, error) {
	var result string
	prompt := &survey.Password{
		Message: message,
		Help:    help,
	}

	err := survey.AskOne(prompt, &result)
	return result, err
}

// Select displays a selection prompt
func Select(message string, options []string) (string, error) {
	var result string
	prompt := &survey.Select{
		Message:  message,
		Options:  options,
		PageSize: 10,
	}

	err := survey.AskOne(prompt, &result)
	return result, err
}

// MultiSelect displays a multi-select prompt
func MultiSelect(message string, options []string) ([]string, error) {
	selected := []string{}
	prompt := &survey.MultiSelect{
		Message:  message,
		Options:  options,
		PageSize: 10,
	}

	err := survey.AskOne(prompt, &selected)
	return selected, err
}

// ShowModelExecution displays the model currently being materialized
func ShowModelExecution(model string, current, total int) {
	fmt.Printf("\n%s Materializing [%d/%d]: %s\n",
		ColorProgress("►"),
		current,
		total,
		ColorBold(model),
	)
}

// ShowRunSummary renders the per-model results of a run as a table.
func ShowRunSummary(summary *runner.Summary) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Model", "Status", "Duration"})
	table.SetBorder(false)
	table.SetColumnSeparator(" ")

	for _, r := range summary.Results {
		status := string(r.Status)
		switch r.Status {
		case runner.StatusSuccess:
			status = ColorSuccess(status)
		case runner.StatusFailed:
			status = ColorError(status)
		case runner.StatusSkipped:
			status = ColorDim(status)
		}
		table.Append([]string{r.Model, status, formatDuration(r.Duration)})
	}
	table.Render()

	fmt.Printf("\n%s %d succeeded, %d failed, %d skipped in %s\n",
		ColorBold("Run:"),
		summary.Succeeded(),
		summary.Failed(),
		summary.Skipped(),
		formatDuration(summary.Duration),
	)
	if summary.LatencyMax > 0 {
		fmt.Printf("%s p50=%dms p95=%dms max=%dms\n",
			ColorDim("Latency:"),
			summary.LatencyP50,
			summary.LatencyP95,
			summary.LatencyMax,
		)
	}

	for _, r := range summary.Results {
		if r.Error != nil {
			fmt.Printf("\n  %s %s: %v\n", ColorError("✗"), r.Model, r.Error)
		}
	}
}

// ShowCheckResults renders data quality check outcomes as a table.
func ShowCheckResults(results []checks.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Check", "Status", "Violations"})
	table.SetBorder(false)
	table.SetColumnSeparator(" ")

	passed, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
			table.Append([]string{r.Name, ColorDim("skipped"), "-"})
		case r.Error != nil:
			failed++
			table.Append([]string{r.Name, ColorError("error"), "-"})
		case r.Passed:
			passed++
			table.Append([]string{r.Name, ColorSuccess("pass"), "0"})
		default:
			failed++
			table.Append([]string{r.Name, ColorError("fail"), fmt.Sprintf("%d", r.Violations)})
		}
	}
	table.Render()

	fmt.Printf("\n%s %d passed, %d failed, %d skipped\n",
		ColorBold("Checks:"), passed, failed, skipped)

	for _, r := range results {
		if r.Error != nil {
			fmt.Printf("  %s %s: %v\n", ColorError("✗"), r.Name, r.Error)
		}
	}
}
