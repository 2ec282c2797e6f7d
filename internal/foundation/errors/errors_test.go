package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("builder sets fields", func(t *testing.T) {
		cause := errors.New("dial tcp: i/o timeout")
		err := WrapError(cause, CategoryGit, "fetch failed").
			WithContext("url", "https://example.com/exercises.git").
			Build()

		require.Equal(t, CategoryGit, err.Category())
		require.Equal(t, SeverityError, err.Severity())
		require.Equal(t, "fetch failed", err.Message())
		require.ErrorIs(t, err, cause)

		url, ok := err.Context().GetString("url")
		require.True(t, ok)
		require.Equal(t, "https://example.com/exercises.git", url)
	})

	t.Run("convenience constructors", func(t *testing.T) {
		cfg := ConfigError("missing repo url").Build()
		require.True(t, cfg.IsFatal())
		require.False(t, cfg.CanRetry())

		git := GitError("clone failed").Build()
		require.True(t, git.CanRetry())
		require.Equal(t, RetryNextTick, git.RetryStrategy())
	})

	t.Run("WithContext does not mutate the original", func(t *testing.T) {
		base := StoreError("upsert failed").WithContext("exercise", "two-fer").Build()
		derived := base.WithContext("language", "python")

		_, ok := base.Context().Get("language")
		require.False(t, ok)
		lang, ok := derived.Context().GetString("language")
		require.True(t, ok)
		require.Equal(t, "python", lang)
	})
}

func TestClassifiedErrorMatching(t *testing.T) {
	sentinel := StoreError("store unavailable").Fatal().Build()
	occurrence := StoreError("store unavailable").Fatal().WithCause(errors.New("conn closed")).Build()
	wrapped := fmt.Errorf("upsert two-fer: %w", occurrence)

	require.ErrorIs(t, wrapped, sentinel)
	require.True(t, IsClassified(wrapped))
	require.True(t, HasCategory(wrapped, CategoryStore))
	require.True(t, HasSeverity(wrapped, SeverityFatal))
	require.Equal(t, CategoryStore, GetCategory(wrapped))

	require.False(t, IsClassified(errors.New("plain")))
	require.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"a": 1, "shared": "left"}
	b := ErrorContext{"b": 2, "shared": "right"}

	merged := a.Merge(b)
	require.Equal(t, 1, merged["a"])
	require.Equal(t, 2, merged["b"])
	require.Equal(t, "right", merged["shared"])

	var nilCtx ErrorContext
	require.Equal(t, b, nilCtx.Merge(b))
}
