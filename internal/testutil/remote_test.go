package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemote_CommitPushesToBare(t *testing.T) {
	r := NewRemote(t)
	h := r.Commit(t, map[string]string{"exercises/go/practice/leap/.docs/hints.md": "Use modulo"})

	require.Equal(t, h, Head(t, r.SeedPath))
	require.Equal(t, h, Head(t, r.BarePath))
}
