package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
	"github.com/dropDatabas3/imsauth/internal/store/storetest"
	"github.com/dropDatabas3/imsauth/migrations"
)

func newMemoryStore(t *testing.T) repository.Store {
	t.Helper()
	s, err := Open(context.Background(), MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, newMemoryStore)
}

func TestOpen_FileReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "imsauth.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.Users().Create(ctx, repository.CreateUserInput{Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// migraciones idempotentes al reabrir
	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	u, err := s.Users().GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	v, err := migrations.Version(ctx, s.DB(), migrations.SQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}
