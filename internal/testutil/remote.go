// Package testutil holds test helpers shared across packages.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// DefaultBranch is the branch test repositories are initialized on.
const DefaultBranch = "main"

// Remote is a bare repository fed through a separate seed working copy, usable
// as a local exercise remote.
type Remote struct {
	BarePath string
	SeedPath string
	Seed     *git.Repository
}

// InitRepo initializes a repository at path on DefaultBranch.
func InitRepo(t *testing.T, path string, bare bool) *git.Repository {
	t.Helper()
	repo, err := git.PlainInitWithOptions(path, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(DefaultBranch)},
		Bare:        bare,
	})
	require.NoError(t, err)
	return repo
}

// NewRemote creates an empty bare remote and its seed under t.TempDir().
func NewRemote(t *testing.T) *Remote {
	t.Helper()
	tmp := t.TempDir()
	r := &Remote{BarePath: filepath.Join(tmp, "remote.git"), SeedPath: filepath.Join(tmp, "seed")}
	InitRepo(t, r.BarePath, true)
	r.Seed = InitRepo(t, r.SeedPath, false)
	_, err := r.Seed.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{r.BarePath}})
	require.NoError(t, err)
	return r
}

// Commit writes files (relative path to content) into the seed, commits them
// and pushes to the bare remote.
func (r *Remote) Commit(t *testing.T, files map[string]string) plumbing.Hash {
	t.Helper()
	h := CommitFiles(t, r.Seed, r.SeedPath, files)
	require.NoError(t, r.Seed.Push(&git.PushOptions{RemoteName: "origin"}))
	return h
}

// CommitFiles writes and commits files in the working copy at repoPath.
func CommitFiles(t *testing.T, repo *git.Repository, repoPath string, files map[string]string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		full := filepath.Join(repoPath, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
		_, err = wt.Add(filepath.ToSlash(name))
		require.NoError(t, err)
	}
	h, err := wt.Commit("update exercises", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return h
}

// Head returns the HEAD commit of the repository at path.
func Head(t *testing.T, path string) plumbing.Hash {
	t.Helper()
	repo, err := git.PlainOpen(path)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	return head.Hash()
}
