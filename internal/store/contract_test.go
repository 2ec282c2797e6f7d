package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
)

// runStoreContract exercises behavior every Store backend must share.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		available, err := s.AreLessonsAvailable(ctx)
		require.NoError(t, err)
		require.False(t, available)

		empty, err := s.IsExerciseRepositoryEmpty(ctx)
		require.NoError(t, err)
		require.True(t, empty)
	})

	t.Run("lessons", func(t *testing.T) {
		require.NoError(t, s.UpsertLesson(ctx, Lesson{ID: 7, Title: "Strings"}))
		available, err := s.AreLessonsAvailable(ctx)
		require.NoError(t, err)
		require.True(t, available)

		exists, err := s.LessonExists(ctx, 7)
		require.NoError(t, err)
		require.True(t, exists)
		exists, err = s.LessonExists(ctx, 8)
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("upsert is keyed by name", func(t *testing.T) {
		ex := Exercise{Name: "two-fer", Path: "exercises/python/practice/two-fer", Language: "python", Instructions: "Instructions"}
		require.NoError(t, s.UpdateOrCreateExercise(ctx, ex))
		require.NoError(t, s.UpdateOrCreateExercise(ctx, ex))

		ex.Hints = "Use string formatting"
		require.NoError(t, s.UpdateOrCreateExercise(ctx, ex))

		list, err := s.ListExercises(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "two-fer", list[0].Name)
		require.Equal(t, "Instructions", list[0].Instructions)
		require.Equal(t, "Use string formatting", list[0].Hints)
		require.Equal(t, "exercises/python/practice/two-fer", list[0].Path)

		empty, err := s.IsExerciseRepositoryEmpty(ctx)
		require.NoError(t, err)
		require.False(t, empty)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := s.UpdateOrCreateExercise(ctx, Exercise{Path: "x"})
		require.Error(t, err)
		require.False(t, IsUnavailable(err))
		require.True(t, ferrors.HasCategory(err, ferrors.CategoryStore))
	})

	t.Run("completions are idempotent", func(t *testing.T) {
		c := LessonCompletion{LessonID: 7, UserID: 42, CompletedAt: time.Now()}
		require.NoError(t, s.RecordLessonCompletion(ctx, c))
		require.NoError(t, s.RecordLessonCompletion(ctx, c))

		ids, err := s.CompletedLessons(ctx, 42)
		require.NoError(t, err)
		require.Equal(t, []int64{7}, ids)

		ids, err = s.CompletedLessons(ctx, 43)
		require.NoError(t, err)
		require.Empty(t, ids)
	})

	t.Run("sync state", func(t *testing.T) {
		_, ok, err := s.LoadSyncState(ctx, "https://example.com/x.git")
		require.NoError(t, err)
		require.False(t, ok)

		st := SyncState{RepoURL: "https://example.com/x.git", Branch: "main", Commit: "abc123", SyncedAt: time.Unix(1700000000, 0)}
		require.NoError(t, s.RecordSyncState(ctx, st))
		st.Commit = "def456"
		require.NoError(t, s.RecordSyncState(ctx, st))

		got, ok, err := s.LoadSyncState(ctx, st.RepoURL)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "def456", got.Commit)
		require.Equal(t, "main", got.Branch)
	})
}
