package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/imsauth/internal/auth"
	"github.com/dropDatabas3/imsauth/internal/security/password"
	"github.com/dropDatabas3/imsauth/internal/store/sqlite"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	t.Setenv("AUTH_BCRYPT_COST", "4")

	out, err := run(t, "", "hash-password", "s3cret")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.True(t, password.IsHash(hash))
	assert.True(t, password.NewHasher(4).Verify("s3cret", hash))

	out, err = run(t, "from-stdin\n", "hash-password")
	require.NoError(t, err)
	assert.True(t, password.NewHasher(4).Verify("from-stdin", strings.TrimSpace(out)))
}

func TestSeedAndMigrate_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imsauth.db")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("STORAGE_DSN", path)
	t.Setenv("AUTH_BCRYPT_COST", "4")

	out, err := run(t, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrate up: ok")

	out, err = run(t, "", "seed", "--username", "root", "--password", "toor", "--email", "root@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "usuario root creado")

	// idempotente
	out, err = run(t, "", "seed", "--username", "ROOT", "--password", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "ya existe")

	st, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	defer st.Close()
	id, err := auth.NewAuthenticator(st.Users(), password.NewHasher(4)).Authenticate(context.Background(), "root", "toor")
	require.NoError(t, err)
	assert.Equal(t, []string{"ADMIN"}, id.Authorities)
}

func TestSeed_RequiresPassword(t *testing.T) {
	prev := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdinIsTerminal = prev })
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("STORAGE_DSN", filepath.Join(t.TempDir(), "imsauth.db"))

	_, err := run(t, "", "seed", "--username", "root")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requeridos")
}

func TestSeed_RefusesMemoryDriver(t *testing.T) {
	prev := stdinIsTerminal
	stdinIsTerminal = func() bool { return true }
	t.Cleanup(func() { stdinIsTerminal = prev })

	for _, driver := range []string{"memory", "", "MEM"} {
		t.Setenv("STORAGE_DRIVER", driver)
		out, err := run(t, "", "seed", "--username", "root", "--password", "toor")
		require.Error(t, err, "driver %q", driver)
		assert.Contains(t, err.Error(), "no persiste")
		assert.NotContains(t, out, "creado")
	}
}

func TestMigrate_MemoryDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	out, err := run(t, "", "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "no hay schema")

	_, err = run(t, "", "migrate", "sideways")
	assert.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("CACHE_KIND", "memcached")
	_, err := run(t, "", "hash-password", "x")
	assert.Error(t, err)
}
