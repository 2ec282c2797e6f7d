package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	appcfg "git.home.luguber.info/inful/cortex/internal/config"
	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, appcfg.DatabaseConfig{Driver: appcfg.DatabaseSQLite, DSN: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, appcfg.DatabaseConfig{Driver: appcfg.DatabaseMemory})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, appcfg.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}
