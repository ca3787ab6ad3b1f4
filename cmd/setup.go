package cmd

import (
	"github.com/spf13/cobra"

	"martforge/internal/config"
	"martforge/internal/secrets"
	"martforge/internal/ui"
	"martforge/internal/warehouse"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively configure the project and warehouse target",
	Long: `Walk through project and warehouse target configuration. The target
password is stored in the system keyring (or an encrypted file when no
keyring is available), never in the config file.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	wizard := ui.NewSetupWizard()
	cfg, password, err := wizard.Run()
	if err != nil {
		ui.ShowError(err)
		return err
	}

	target := cfg.Targets[0]
	if err := warehouse.ValidateTarget(target); err != nil {
		ui.ShowError(err)
		return err
	}

	if password != "" {
		manager, err := secrets.NewManager()
		if err != nil {
			ui.ShowError(err)
			return err
		}
		if err := manager.Set(target.Name, password); err != nil {
			ui.ShowError(err)
			return err
		}
	}

	if err := config.Save(cfg); err != nil {
		ui.ShowError(err)
		return err
	}

	ui.ShowSuccess("Configuration saved to " + config.GetConfigFile())
	return nil
}
