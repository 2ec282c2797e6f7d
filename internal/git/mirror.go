package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/cortex/internal/logfields"
)

// EnsureCloned clones the tracked branch into localPath when the path does not
// exist. An existing path is left untouched; when it holds a repository its
// HEAD becomes the last synced commit. On failure the partially created
// directory is removed so the next attempt starts clean.
func (c *Client) EnsureCloned(ctx context.Context, localPath string) error {
	if _, err := os.Stat(localPath); err == nil {
		slog.Debug("Local mirror present, skipping clone", logfields.Path(localPath))
		c.adoptExisting(localPath)
		return nil
	} else if !os.IsNotExist(err) {
		return c.mirrorErr(OpClone, fmt.Errorf("stat local path: %w", err))
	}

	auth, err := c.auth()
	if err != nil {
		return c.mirrorErr(OpAuth, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	slog.Info("Cloning exercise repository", logfields.URL(c.url), logfields.Branch(c.branch), logfields.Path(localPath))
	repo, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
		URL:           c.url,
		ReferenceName: plumbing.NewBranchReferenceName(c.branch),
		SingleBranch:  true,
		Tags:          git.NoTags,
		Auth:          auth,
	})
	if err != nil {
		if rmErr := os.RemoveAll(localPath); rmErr != nil {
			slog.Warn("Failed to remove partial clone", logfields.Path(localPath), logfields.Error(rmErr))
		}
		return c.mirrorErr(OpClone, withDeadline(ctx, err))
	}

	head, err := repo.Head()
	if err != nil {
		return c.mirrorErr(OpResolve, fmt.Errorf("resolve HEAD after clone: %w", err))
	}
	c.recordSynced(localPath, head.Hash().String())
	slog.Info("Exercise repository cloned", logfields.URL(c.url), logfields.Commit(head.Hash().String()), logfields.Path(localPath))
	return nil
}

// CheckAndPull fetches origin and pulls when the remote branch moved past the
// local HEAD. It reports whether new commits were applied. The working copy is
// either fast-forwarded or left at its prior commit.
func (c *Client) CheckAndPull(ctx context.Context, localPath string) (bool, error) {
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return false, c.mirrorErr(OpOpen, err)
	}
	if err := c.ensureOrigin(repo); err != nil {
		return false, err
	}
	auth, err := c.auth()
	if err != nil {
		return false, c.mirrorErr(OpAuth, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.fetchOrigin(ctx, repo, auth); err != nil {
		return false, err
	}

	oldHead, err := headHash(repo)
	if err != nil {
		return false, c.mirrorErr(OpResolve, err)
	}

	if _, err := repo.Branch(c.branch); errors.Is(err, git.ErrBranchNotFound) {
		slog.Warn("Branch not tracking origin, setting upstream", logfields.Branch(c.branch), logfields.Path(localPath))
		if err := c.trackRemoteBranch(ctx, repo, auth); err != nil {
			return false, err
		}
	} else if err != nil {
		return false, c.mirrorErr(OpTrack, err)
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(originRemote, c.branch), true)
	if err != nil {
		return false, c.mirrorErr(OpResolve, fmt.Errorf("resolve %s/%s: %w", originRemote, c.branch, err))
	}

	if remoteRef.Hash() == oldHead {
		slog.Info("No new changes in exercise repository", logfields.Branch(c.branch), logfields.Commit(oldHead.String()))
		return false, nil
	}

	if err := c.pull(ctx, repo, auth, false); err != nil {
		return false, err
	}
	newHead, err := headHash(repo)
	if err != nil {
		return false, c.mirrorErr(OpResolve, err)
	}
	c.recordSynced(localPath, newHead.String())
	slog.Info("New exercise commits pulled",
		logfields.Branch(c.branch),
		slog.String("from", shortHash(oldHead)),
		logfields.Commit(newHead.String()))
	return true, nil
}

// ensureOrigin adds the origin remote with the configured URL when it is missing.
func (c *Client) ensureOrigin(repo *git.Repository) error {
	_, err := repo.Remote(originRemote)
	if err == nil {
		return nil
	}
	if !errors.Is(err, git.ErrRemoteNotFound) {
		return c.mirrorErr(OpRemote, err)
	}
	slog.Warn("Remote origin not configured, adding it", logfields.URL(c.url))
	if _, err := repo.CreateRemote(&ggitcfg.RemoteConfig{Name: originRemote, URLs: []string{c.url}}); err != nil {
		return c.mirrorErr(OpRemote, err)
	}
	return nil
}

func (c *Client) fetchOrigin(ctx context.Context, repo *git.Repository, auth transport.AuthMethod) error {
	refSpec := ggitcfg.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", c.branch, originRemote, c.branch))
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: originRemote,
		RefSpecs:   []ggitcfg.RefSpec{refSpec},
		Tags:       git.NoTags,
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return c.mirrorErr(OpFetch, withDeadline(ctx, err))
	}
	return nil
}

// trackRemoteBranch configures the local branch to track origin and
// force-pulls it. Working copies created by clone already carry this config;
// a repository initialized in place does not.
func (c *Client) trackRemoteBranch(ctx context.Context, repo *git.Repository, auth transport.AuthMethod) error {
	err := repo.CreateBranch(&ggitcfg.Branch{
		Name:   c.branch,
		Remote: originRemote,
		Merge:  plumbing.NewBranchReferenceName(c.branch),
	})
	if err != nil && !errors.Is(err, git.ErrBranchExists) {
		return c.mirrorErr(OpTrack, err)
	}
	return c.pull(ctx, repo, auth, true)
}

// adoptExisting records HEAD of an existing working copy as last synced when
// nothing has been recorded yet. Paths that are not repositories are ignored.
func (c *Client) adoptExisting(localPath string) {
	if c.State().LastSyncedCommit != "" {
		return
	}
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return
	}
	head, err := headHash(repo)
	if err != nil || head.IsZero() {
		return
	}
	c.recordSynced(localPath, head.String())
}

func (c *Client) pull(ctx context.Context, repo *git.Repository, auth transport.AuthMethod, force bool) error {
	wt, err := repo.Worktree()
	if err != nil {
		return c.mirrorErr(OpPull, fmt.Errorf("worktree: %w", err))
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    originRemote,
		ReferenceName: plumbing.NewBranchReferenceName(c.branch),
		SingleBranch:  true,
		Force:         force,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return c.mirrorErr(OpPull, withDeadline(ctx, err))
	}
	return nil
}

// headHash resolves HEAD, returning the zero hash for a repository without commits.
func headHash(repo *git.Repository) (plumbing.Hash, error) {
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash(), nil
}

// withDeadline makes an expired network budget visible in the error chain even
// when go-git reports it as a transport failure.
func withDeadline(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w (%w)", err, ctxErr)
	}
	return err
}

func shortHash(h plumbing.Hash) string {
	s := h.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
