package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	appcfg "git.home.luguber.info/inful/cortex/internal/config"
	"git.home.luguber.info/inful/cortex/internal/testutil"
)

func newTestClient(remoteURL, localPath string) *Client {
	return NewClient(appcfg.ExercisesConfig{RepoURL: remoteURL, LocalPath: localPath, Branch: testutil.DefaultBranch})
}

func TestEnsureCloned_ClonesMissingPath(t *testing.T) {
	remote := testutil.NewRemote(t)
	want := remote.Commit(t, map[string]string{"exercises/python/practice/two-fer/.docs/instructions.md": "Instructions"})

	localPath := filepath.Join(t.TempDir(), "mirror")
	client := newTestClient(remote.BarePath, localPath)
	require.NoError(t, client.EnsureCloned(context.Background(), localPath))

	require.Equal(t, want, testutil.Head(t, localPath))
	data, err := os.ReadFile(filepath.Join(localPath, "exercises", "python", "practice", "two-fer", ".docs", "instructions.md"))
	require.NoError(t, err)
	require.Equal(t, "Instructions", string(data))

	state := client.State()
	require.Equal(t, want.String(), state.LastSyncedCommit)
	require.Equal(t, localPath, state.LocalPath)
	require.False(t, state.LastSyncedAt.IsZero())
}

func TestEnsureCloned_ExistingPathUntouched(t *testing.T) {
	localPath := t.TempDir()
	marker := filepath.Join(localPath, "keep.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o600))

	client := newTestClient(filepath.Join(t.TempDir(), "does-not-exist.git"), localPath)
	require.NoError(t, client.EnsureCloned(context.Background(), localPath))
	require.FileExists(t, marker)
	require.Empty(t, client.State().LastSyncedCommit)
}

func TestEnsureCloned_ExistingCloneRecordsHead(t *testing.T) {
	remote := testutil.NewRemote(t)
	want := remote.Commit(t, map[string]string{"a.txt": "a"})

	localPath := filepath.Join(t.TempDir(), "mirror")
	require.NoError(t, newTestClient(remote.BarePath, localPath).EnsureCloned(context.Background(), localPath))

	// A fresh client, as after a restart, sees the clone already in place.
	client := newTestClient(remote.BarePath, localPath)
	require.NoError(t, client.EnsureCloned(context.Background(), localPath))
	require.Equal(t, want.String(), client.State().LastSyncedCommit)
}

func TestEnsureCloned_FailureLeavesNoDirectory(t *testing.T) {
	localPath := filepath.Join(t.TempDir(), "mirror")
	client := newTestClient(filepath.Join(t.TempDir(), "does-not-exist.git"), localPath)

	err := client.EnsureCloned(context.Background(), localPath)
	require.Error(t, err)
	me, ok := AsMirrorError(err)
	require.True(t, ok)
	require.Equal(t, OpClone, me.Op)
	require.NoDirExists(t, localPath)
}

func TestCheckAndPull_Unchanged(t *testing.T) {
	remote := testutil.NewRemote(t)
	remote.Commit(t, map[string]string{"a.txt": "a"})

	localPath := filepath.Join(t.TempDir(), "mirror")
	client := newTestClient(remote.BarePath, localPath)
	require.NoError(t, client.EnsureCloned(context.Background(), localPath))
	before := client.State()

	changed, err := client.CheckAndPull(context.Background(), localPath)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, before.LastSyncedCommit, client.State().LastSyncedCommit)
}

func TestCheckAndPull_FastForwardsNewCommits(t *testing.T) {
	remote := testutil.NewRemote(t)
	remote.Commit(t, map[string]string{"a.txt": "a"})

	localPath := filepath.Join(t.TempDir(), "mirror")
	client := newTestClient(remote.BarePath, localPath)
	require.NoError(t, client.EnsureCloned(context.Background(), localPath))

	want := remote.Commit(t, map[string]string{"b.txt": "b"})
	changed, err := client.CheckAndPull(context.Background(), localPath)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, want, testutil.Head(t, localPath))
	require.Equal(t, want.String(), client.State().LastSyncedCommit)
	require.FileExists(t, filepath.Join(localPath, "b.txt"))

	changed, err = client.CheckAndPull(context.Background(), localPath)
	require.NoError(t, err)
	require.False(t, changed, "second check without new commits must report no changes")
}

func TestCheckAndPull_AddsMissingOrigin(t *testing.T) {
	remote := testutil.NewRemote(t)
	remote.Commit(t, map[string]string{"a.txt": "a"})

	localPath := filepath.Join(t.TempDir(), "mirror")
	client := newTestClient(remote.BarePath, localPath)
	require.NoError(t, client.EnsureCloned(context.Background(), localPath))

	repo, err := git.PlainOpen(localPath)
	require.NoError(t, err)
	require.NoError(t, repo.DeleteRemote("origin"))

	want := remote.Commit(t, map[string]string{"b.txt": "b"})
	changed, err := client.CheckAndPull(context.Background(), localPath)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, want, testutil.Head(t, localPath))

	repo, err = git.PlainOpen(localPath)
	require.NoError(t, err)
	origin, err := repo.Remote("origin")
	require.NoError(t, err)
	require.Equal(t, []string{remote.BarePath}, origin.Config().URLs)
}

func TestCheckAndPull_DivergedLeavesWorkingCopy(t *testing.T) {
	remote := testutil.NewRemote(t)
	remote.Commit(t, map[string]string{"a.txt": "a"})

	localPath := filepath.Join(t.TempDir(), "mirror")
	client := newTestClient(remote.BarePath, localPath)
	require.NoError(t, client.EnsureCloned(context.Background(), localPath))

	local, err := git.PlainOpen(localPath)
	require.NoError(t, err)
	localCommit := testutil.CommitFiles(t, local, localPath, map[string]string{"local.txt": "local"})
	remote.Commit(t, map[string]string{"remote.txt": "remote"})

	changed, err := client.CheckAndPull(context.Background(), localPath)
	require.Error(t, err)
	require.False(t, changed)
	me, ok := AsMirrorError(err)
	require.True(t, ok)
	require.Equal(t, OpPull, me.Op)
	require.Equal(t, localCommit, testutil.Head(t, localPath))
}

func TestCheckAndPull_NotARepository(t *testing.T) {
	localPath := t.TempDir()
	client := newTestClient("https://example.invalid/exercises.git", localPath)

	_, err := client.CheckAndPull(context.Background(), localPath)
	me, ok := AsMirrorError(err)
	require.True(t, ok)
	require.Equal(t, OpOpen, me.Op)
}

func TestCheckAndPull_TracksBranchInInitializedRepository(t *testing.T) {
	remote := testutil.NewRemote(t)
	want := remote.Commit(t, map[string]string{"exercises/python/practice/two-fer/.docs/instructions.md": "Instructions"})

	localPath := filepath.Join(t.TempDir(), "mirror")
	repo := testutil.InitRepo(t, localPath, false)
	_, err := repo.Branch(testutil.DefaultBranch)
	require.ErrorIs(t, err, git.ErrBranchNotFound)

	client := newTestClient(remote.BarePath, localPath)
	changed, err := client.CheckAndPull(context.Background(), localPath)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, want, testutil.Head(t, localPath))
	require.Equal(t, want.String(), client.State().LastSyncedCommit)
	require.FileExists(t, filepath.Join(localPath, "exercises", "python", "practice", "two-fer", ".docs", "instructions.md"))

	repo, err = git.PlainOpen(localPath)
	require.NoError(t, err)
	branch, err := repo.Branch(testutil.DefaultBranch)
	require.NoError(t, err)
	require.Equal(t, "origin", branch.Remote)

	changed, err = client.CheckAndPull(context.Background(), localPath)
	require.NoError(t, err)
	require.False(t, changed)
}
