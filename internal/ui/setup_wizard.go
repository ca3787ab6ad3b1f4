package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"martforge/pkg/models"
)

// SetupWizard provides an interactive project setup
type SetupWizard struct {
	currentStep int
	totalSteps  int
}

// NewSetupWizard creates a new setup wizard
func NewSetupWizard() *SetupWizard {
	return &SetupWizard{
		currentStep: 1,
		totalSteps:  4,
	}
}

// Run executes the setup wizard. The target password is returned
// separately so the caller can store it outside the config file.
func (w *SetupWizard) Run() (*models.Config, string, error) {
	ShowHeader("martforge - Project Setup")

	config := &models.Config{
		Vars: models.DefaultVars(),
		Seed: models.DefaultSeed(),
	}

	if err := w.configureProjectStep(config); err != nil {
		return nil, "", cancelled(err)
	}

	password, err := w.configureTargetStep(config)
	if err != nil {
		return nil, "", cancelled(err)
	}

	if err := w.configureSeedStep(config); err != nil {
		return nil, "", cancelled(err)
	}

	if err := w.reviewConfiguration(config); err != nil {
		return nil, "", err
	}

	return config, password, nil
}

func cancelled(err error) error {
	if err == terminal.InterruptErr {
		return fmt.Errorf("setup cancelled")
	}
	return err
}

func (w *SetupWizard) configureProjectStep(config *models.Config) error {
	w.showProgress("Project Settings")

	questions := []*survey.Question{
		{
			Name: "name",
			Prompt: &survey.Input{
				Message: "Project Name:",
				Default: "analytics",
				Help:    "Used as a prefix in logs and output",
			},
			Validate: survey.Required,
		},
		{
			Name: "modelsDir",
			Prompt: &survey.Input{
				Message: "Models Directory:",
				Default: "models",
				Help:    "Directory with .sql model overrides (built-in catalog used when absent)",
			},
			Validate: survey.Required,
		},
	}

	answers := struct {
		Name      string
		ModelsDir string
	}{}

	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	config.Project = models.Project{
		Name:      answers.Name,
		ModelsDir: answers.ModelsDir,
		Target:    "dev",
	}

	w.currentStep++
	return nil
}

func (w *SetupWizard) configureTargetStep(config *models.Config) (string, error) {
	w.showProgress("Warehouse Target")

	adapter, err := Select("Warehouse adapter:", []string{"snowflake", "postgres", "mysql"})
	if err != nil {
		return "", err
	}

	target := models.Target{
		Name:    "dev",
		Adapter: adapter,
		Timeout: "30s",
	}

	var questions []*survey.Question
	if adapter == "snowflake" {
		questions = []*survey.Question{
			{
				Name: "account",
				Prompt: &survey.Input{
					Message: "Snowflake Account:",
					Help:    "Account identifier (e.g., xy12345.us-east-1)",
				},
				Validate: survey.Required,
			},
			{
				Name: "warehouse",
				Prompt: &survey.Input{
					Message: "Warehouse:",
					Default: "COMPUTE_WH",
				},
				Validate: survey.Required,
			},
			{
				Name: "role",
				Prompt: &survey.Input{
					Message: "Role:",
					Default: "SYSADMIN",
				},
			},
		}
	} else {
		defaultPort := "5432"
		if adapter == "mysql" {
			defaultPort = "3306"
		}
		questions = []*survey.Question{
			{
				Name: "host",
				Prompt: &survey.Input{
					Message: "Host:",
					Default: "localhost",
				},
				Validate: survey.Required,
			},
			{
				Name: "port",
				Prompt: &survey.Input{
					Message: "Port:",
					Default: defaultPort,
				},
				Validate: func(val interface{}) error {
					s, _ := val.(string)
					if _, err := strconv.Atoi(s); err != nil {
						return fmt.Errorf("port must be a number")
					}
					return nil
				},
			},
		}
	}

	questions = append(questions,
		&survey.Question{
			Name: "username",
			Prompt: &survey.Input{
				Message: "Username:",
			},
			Validate: survey.Required,
		},
		&survey.Question{
			Name: "password",
			Prompt: &survey.Password{
				Message: "Password:",
				Help:    "Stored in the system keyring, not in the config file",
			},
		},
		&survey.Question{
			Name: "database",
			Prompt: &survey.Input{
				Message: "Database:",
				Default: "ANALYTICS",
			},
			Validate: survey.Required,
		},
		&survey.Question{
			Name: "schema",
			Prompt: &survey.Input{
				Message: "Schema:",
				Default: "PUBLIC",
			},
		},
	)

	answers := struct {
		Account   string
		Warehouse string
		Role      string
		Host      string
		Port      string
		Username  string
		Password  string
		Database  string
		Schema    string
	}{}

	if err := survey.Ask(questions, &answers); err != nil {
		return "", err
	}

	target.Account = answers.Account
	target.Warehouse = answers.Warehouse
	target.Role = answers.Role
	target.Host = answers.Host
	if answers.Port != "" {
		target.Port, _ = strconv.Atoi(answers.Port)
	}
	target.Username = answers.Username
	target.Database = answers.Database
	target.Schema = answers.Schema

	config.Targets = []models.Target{target}

	w.currentStep++
	return answers.Password, nil
}

func (w *SetupWizard) configureSeedStep(config *models.Config) error {
	w.showProgress("Synthetic Data")

	useDefaults := true
	prompt := &survey.Confirm{
		Message: "Use default seed volumes (1000 users, 50000 events, 5000 sales)?",
		Default: true,
	}
	if err := survey.AskOne(prompt, &useDefaults); err != nil {
		return err
	}
	if useDefaults {
		w.currentStep++
		return nil
	}

	questions := []*survey.Question{
		{
			Name: "users",
			Prompt: &survey.Input{
				Message: "Users:",
				Default: "1000",
			},
		},
		{
			Name: "events",
			Prompt: &survey.Input{
				Message: "Events:",
				Default: "50000",
			},
		},
		{
			Name: "sales",
			Prompt: &survey.Input{
				Message: "Sales:",
				Default: "5000",
			},
		},
		{
			Name: "randomSeed",
			Prompt: &survey.Input{
				Message: "Random Seed:",
				Default: "42",
				Help:    "Same seed always produces the same dataset",
			},
		},
	}

	answers := struct {
		Users      string
		Events     string
		Sales      string
		RandomSeed string
	}{}

	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	if n, err := strconv.Atoi(answers.Users); err == nil {
		config.Seed.Users = n
	}
	if n, err := strconv.Atoi(answers.Events); err == nil {
		config.Seed.Events = n
	}
	if n, err := strconv.Atoi(answers.Sales); err == nil {
		config.Seed.Sales = n
	}
	if n, err := strconv.ParseInt(answers.RandomSeed, 10, 64); err == nil {
		config.Seed.RandomSeed = n
	}

	w.currentStep++
	return nil
}

func (w *SetupWizard) reviewConfiguration(config *models.Config) error {
	w.showProgress("Review Configuration")

	fmt.Println("\n" + ColorInfo("Configuration Summary:"))
	fmt.Println(strings.Repeat("─", 50))

	fmt.Println(ColorBold("\nProject:"))
	fmt.Printf("  Name:       %s\n", config.Project.Name)
	fmt.Printf("  Models Dir: %s\n", config.Project.ModelsDir)

	if len(config.Targets) > 0 {
		t := config.Targets[0]
		fmt.Println(ColorBold("\nTarget:"))
		fmt.Printf("  Adapter:   %s\n", t.Adapter)
		if t.Adapter == "snowflake" {
			fmt.Printf("  Account:   %s\n", t.Account)
			fmt.Printf("  Warehouse: %s\n", t.Warehouse)
		} else {
			fmt.Printf("  Host:      %s:%d\n", t.Host, t.Port)
		}
		fmt.Printf("  Username:  %s\n", t.Username)
		fmt.Printf("  Database:  %s\n", t.Database)
	}

	fmt.Println(ColorBold("\nSeed:"))
	fmt.Printf("  Users: %d  Events: %d  Sales: %d  (seed %d)\n",
		config.Seed.Users, config.Seed.Events, config.Seed.Sales, config.Seed.RandomSeed)

	fmt.Println(strings.Repeat("─", 50))

	confirm := false
	prompt := &survey.Confirm{
		Message: "Save this configuration?",
		Default: true,
	}

	if err := survey.AskOne(prompt, &confirm); err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled")
	}

	return nil
}

func (w *SetupWizard) showProgress(step string) {
	fmt.Printf("\n%s [Step %d/%d] %s\n\n",
		ColorProgress("►"),
		w.currentStep,
		w.totalSteps,
		ColorBold(step),
	)
}
