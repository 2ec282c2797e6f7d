package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStore_ClosedIsUnavailable(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	err := s.UpdateOrCreateExercise(context.Background(), Exercise{Name: "two-fer"})
	require.Error(t, err)
	require.True(t, IsUnavailable(err))
}
