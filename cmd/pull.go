package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"martforge/internal/config"
	"martforge/internal/gitrepo"
	"martforge/internal/ui"
)

var pullCmd = &cobra.Command{
	Use:   "pull [repository]",
	Short: "Sync configured model repositories",
	Long: `Clone or update the git repositories listed under repositories in the
config. With no arguments every configured repository is synced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		ui.ShowError(err)
		return err
	}

	repos := cfg.Repositories
	if len(args) == 1 {
		repos = repos[:0:0]
		for _, r := range cfg.Repositories {
			if r.Name == args[0] {
				repos = append(repos, r)
			}
		}
		if len(repos) == 0 {
			err := fmt.Errorf("repository %q not found in configuration", args[0])
			ui.ShowError(err)
			return err
		}
	}

	if len(repos) == 0 {
		ui.ShowWarning("No repositories configured")
		return nil
	}

	svc := gitrepo.NewService()
	u := ui.NewUI(flagVerbose, flagQuiet)

	failed := 0
	for _, repo := range repos {
		u.StartProgress(fmt.Sprintf("Syncing %s", repo.Name))
		err := svc.Sync(cmd.Context(), repo)
		u.StopProgress()

		if err != nil {
			failed++
			ui.ShowError(err)
			continue
		}

		branch, _ := svc.CurrentBranch(repo)
		u.Printf("  %s %s (%s) -> %s\n",
			ui.ColorSuccess("✓"), repo.Name, branch, svc.LocalPath(repo))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d repositories failed to sync", failed, len(repos))
	}
	return nil
}
