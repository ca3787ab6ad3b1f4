// Package gitrepo syncs git repositories holding model overrides into
// a local cache so 'martforge pull' can refresh project SQL.
package gitrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"martforge/pkg/errors"
	"martforge/pkg/models"
)

// Service clones and updates configured model repositories.
type Service struct {
	cacheDir string
}

// NewService creates a git service over the default cache directory.
func NewService() *Service {
	return &Service{cacheDir: CacheDirectory()}
}

// CacheDirectory returns the local checkout root for synced
// repositories.
func CacheDirectory() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".martforge", "repos")
}

// LocalPath returns where the repository is (or would be) checked out.
// A configured path wins over the cache location.
func (s *Service) LocalPath(repo models.Repository) string {
	if repo.Path != "" {
		return repo.Path
	}
	safeName := strings.ReplaceAll(repo.Name, "/", "_")
	safeName = strings.ReplaceAll(safeName, "\\", "_")
	return filepath.Join(s.cacheDir, safeName)
}

// Sync clones or updates the repository and checks out its configured
// branch. Network failures retry with backoff.
func (s *Service) Sync(ctx context.Context, repo models.Repository) error {
	localPath := s.LocalPath(repo)

	err := errors.RetryWithBackoff(ctx, func(ctx context.Context) error {
		if err := cloneOrPull(repo.GitURL, localPath); err != nil {
			msg := err.Error()
			if strings.Contains(msg, "connection") ||
				strings.Contains(msg, "timeout") ||
				strings.Contains(msg, "unreachable") {
				return errors.New(errors.ErrCodeNetworkUnavailable,
					"Network error while syncing repository").
					WithContext("repository", repo.Name).
					WithContext("url", repo.GitURL).
					AsRecoverable()
			}
			if strings.Contains(msg, "authentication") || strings.Contains(msg, "unauthorized") {
				return errors.New(errors.ErrCodeAuthenticationFailed,
					"Authentication failed for repository").
					WithContext("repository", repo.Name).
					WithSuggestions(
						"Check your git credentials",
						"Set GIT_USERNAME/GIT_PASSWORD or GITHUB_TOKEN",
					)
			}
			return errors.Wrap(err, errors.ErrCodeRepoSyncFailed,
				fmt.Sprintf("Failed to sync repository %s", repo.Name))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if repo.Branch != "" && repo.Branch != "main" && repo.Branch != "master" {
		if err := checkoutBranch(localPath, repo.Branch); err != nil {
			return errors.Wrap(err, errors.ErrCodeRepoSyncFailed,
				fmt.Sprintf("Failed to checkout branch %s", repo.Branch)).
				WithContext("branch", repo.Branch).
				WithSuggestions(fmt.Sprintf("Verify branch %q exists on the remote", repo.Branch))
		}
	}
	return nil
}

// CurrentBranch reports the checked-out branch of a synced repository.
func (s *Service) CurrentBranch(repo models.Repository) (string, error) {
	r, err := git.PlainOpen(s.LocalPath(repo))
	if err != nil {
		return "", fmt.Errorf("failed to open repository: %w", err)
	}
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is not pointing to a branch")
	}
	return head.Name().Short(), nil
}

func cloneOrPull(gitURL, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	auth := authMethod(gitURL)

	if _, err := os.Stat(filepath.Join(localPath, ".git")); err == nil {
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repository: %w", err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree: %w", err)
		}
		err = worktree.Pull(&git.PullOptions{
			RemoteName: "origin",
			Auth:       auth,
		})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return fmt.Errorf("failed to pull updates: %w", err)
		}
		return nil
	}

	_, err := git.PlainClone(localPath, false, &git.CloneOptions{
		URL:  gitURL,
		Auth: auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	return nil
}

func checkoutBranch(repoPath, branchName string) error {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	branchRef := plumbing.ReferenceName("refs/heads/" + branchName)
	if _, err := repo.Reference(branchRef, false); err == nil {
		return worktree.Checkout(&git.CheckoutOptions{Branch: branchRef})
	}

	remoteRef := plumbing.ReferenceName("refs/remotes/origin/" + branchName)
	if ref, err := repo.Reference(remoteRef, false); err == nil {
		return worktree.Checkout(&git.CheckoutOptions{
			Branch: branchRef,
			Hash:   ref.Hash(),
			Create: true,
		})
	}

	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	return worktree.Checkout(&git.CheckoutOptions{
		Branch: branchRef,
		Hash:   head.Hash(),
		Create: true,
	})
}

func authMethod(gitURL string) transport.AuthMethod {
	if strings.HasPrefix(gitURL, "git@") || strings.HasPrefix(gitURL, "ssh://") {
		sshKeyPath := filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
		if _, err := os.Stat(sshKeyPath); err == nil {
			if auth, err := ssh.NewPublicKeysFromFile("git", sshKeyPath, ""); err == nil {
				return auth
			}
		}
	}

	if strings.HasPrefix(gitURL, "https://") {
		username := os.Getenv("GIT_USERNAME")
		password := os.Getenv("GIT_PASSWORD")
		if username != "" && password != "" {
			return &http.BasicAuth{Username: username, Password: password}
		}
		if token := os.Getenv("GITHUB_TOKEN"); token != "" {
			return &http.BasicAuth{Username: "token", Password: token}
		}
	}
	return nil
}
