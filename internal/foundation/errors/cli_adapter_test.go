package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("invalid input").Build(), expected: 2},
		{name: "auth", err: NewError(CategoryAuth, "unauthorized").Build(), expected: 5},
		{name: "config", err: ConfigError("bad config").Build(), expected: 7},
		{name: "git", err: GitError("fetch failed").Build(), expected: 8},
		{name: "sync wrapped in fmt", err: fmt.Errorf("run: %w", SyncError("sync failed").Build()), expected: 8},
		{name: "unclassified", err: errors.New("boom"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	cfgErr := ConfigError("exercises.repo_url is required").Build()
	require.Equal(t, "Error: exercises.repo_url is required", quiet.FormatError(cfgErr))

	gitErr := WrapError(errors.New("connection reset"), CategoryGit, "fetch failed").Build()
	require.Equal(t, "Error: fetch failed (use -v for details)", quiet.FormatError(gitErr))
	require.Contains(t, verbose.FormatError(gitErr), "connection reset")

	require.Empty(t, quiet.FormatError(nil))
}
