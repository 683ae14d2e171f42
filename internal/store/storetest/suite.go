// Package storetest contiene la suite compartida que todo credential store debe pasar.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
)

// Factory devuelve un store vacío (con roles por defecto) para cada subtest.
type Factory func(t *testing.T) repository.Store

// Run ejecuta la suite completa contra el store que devuelve newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("DefaultRolesSeeded", func(t *testing.T) { testDefaultRoles(t, newStore(t)) })
	t.Run("RoleLookupCaseInsensitive", func(t *testing.T) { testRoleLookup(t, newStore(t)) })
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("UsernameUniqueCaseInsensitive", func(t *testing.T) { testUsernameUnique(t, newStore(t)) })
	t.Run("ListOrdered", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("UpdateReplacesFields", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("UpdateNotFound", func(t *testing.T) { testUpdateNotFound(t, newStore(t)) })
	t.Run("UpdateAbortsOnError", func(t *testing.T) { testUpdateAborts(t, newStore(t)) })
	t.Run("UpdateRenameConflict", func(t *testing.T) { testUpdateRenameConflict(t, newStore(t)) })
	t.Run("UpdateByUsername", func(t *testing.T) { testUpdateByUsername(t, newStore(t)) })
	t.Run("NamesNormalizedAcrossDrivers", func(t *testing.T) { testNamesNormalized(t, newStore(t)) })
	t.Run("ConcurrentUpdatesDoNotInterleave", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
}

func role(t *testing.T, s repository.Store, name string) repository.Role {
	t.Helper()
	r, err := s.Roles().GetByName(context.Background(), name)
	require.NoError(t, err)
	return *r
}

func testDefaultRoles(t *testing.T, s repository.Store) {
	roles, err := s.Roles().List(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	assert.Equal(t, repository.DefaultRoles, names)
}

func testRoleLookup(t *testing.T, s repository.Store) {
	ctx := context.Background()
	r, err := s.Roles().GetByName(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, repository.RoleAdmin, r.Name)

	_, err = s.Roles().GetByName(ctx, "auditor")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.Roles().Create(ctx, "Admin")
	assert.ErrorIs(t, err, repository.ErrConflict)

	created, err := s.Roles().Create(ctx, "AUDITOR")
	require.NoError(t, err)
	got, err := s.Roles().GetByName(ctx, "Auditor")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func testCreateAndGet(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u, err := s.Users().Create(ctx, repository.CreateUserInput{
		Username:     "Alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		Roles:        []repository.Role{role(t, s, repository.RoleUser)},
	})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	byID, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", byID.Username)
	assert.Equal(t, "alice@example.com", byID.Email)
	assert.Equal(t, "$2a$10$hash", byID.PasswordHash)
	assert.Equal(t, []string{repository.RoleUser}, byID.RoleNames())

	byName, err := s.Users().GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = s.Users().GetByID(ctx, u.ID+1000)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Users().GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testUsernameUnique(t *testing.T, s repository.Store) {
	ctx := context.Background()
	_, err := s.Users().Create(ctx, repository.CreateUserInput{Username: "bob", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = s.Users().Create(ctx, repository.CreateUserInput{Username: "BOB", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func testList(t *testing.T, s repository.Store) {
	ctx := context.Background()
	for _, name := range []string{"carol", "dave", "erin"} {
		_, err := s.Users().Create(ctx, repository.CreateUserInput{Username: name, PasswordHash: "h"})
		require.NoError(t, err)
	}
	users, err := s.Users().List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	for i := 1; i < len(users); i++ {
		assert.Less(t, users[i-1].ID, users[i].ID)
	}
	assert.Equal(t, "carol", users[0].Username)
}

func testUpdate(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u, err := s.Users().Create(ctx, repository.CreateUserInput{
		Username: "bob", Email: "b@x.com", PasswordHash: "h1",
		Roles: []repository.Role{role(t, s, repository.RoleUser)},
	})
	require.NoError(t, err)

	admin := role(t, s, repository.RoleAdmin)
	got, err := s.Users().Update(ctx, u.ID, func(x *repository.User) error {
		x.Username = "robert"
		x.Email = "r@x.com"
		x.Roles = []repository.Role{admin}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "robert", got.Username)

	reloaded, err := s.Users().GetByUsername(ctx, "Robert")
	require.NoError(t, err)
	assert.Equal(t, u.ID, reloaded.ID)
	assert.Equal(t, "r@x.com", reloaded.Email)
	assert.Equal(t, "h1", reloaded.PasswordHash)
	assert.Equal(t, []string{repository.RoleAdmin}, reloaded.RoleNames())

	_, err = s.Users().GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testUpdateNotFound(t *testing.T, s repository.Store) {
	_, err := s.Users().Update(context.Background(), 4242, func(*repository.User) error { return nil })
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testUpdateAborts(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u, err := s.Users().Create(ctx, repository.CreateUserInput{Username: "frank", PasswordHash: "h"})
	require.NoError(t, err)

	boom := fmt.Errorf("boom")
	_, err = s.Users().Update(ctx, u.ID, func(x *repository.User) error {
		x.PasswordHash = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "h", got.PasswordHash)
}

func testUpdateRenameConflict(t *testing.T, s repository.Store) {
	ctx := context.Background()
	_, err := s.Users().Create(ctx, repository.CreateUserInput{Username: "gina", PasswordHash: "h"})
	require.NoError(t, err)
	h, err := s.Users().Create(ctx, repository.CreateUserInput{Username: "hank", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = s.Users().Update(ctx, h.ID, func(x *repository.User) error {
		x.Username = "GINA"
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrConflict)

	// cambiar solo mayúsculas del propio username no es conflicto
	got, err := s.Users().Update(ctx, h.ID, func(x *repository.User) error {
		x.Username = "Hank"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hank", got.Username)
}

func testUpdateByUsername(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u, err := s.Users().Create(ctx, repository.CreateUserInput{Username: "ivy", PasswordHash: "old"})
	require.NoError(t, err)

	got, err := s.Users().UpdateByUsername(ctx, "IVY", func(x *repository.User) error {
		x.PasswordHash = "new"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "new", got.PasswordHash)

	_, err = s.Users().UpdateByUsername(ctx, "nobody", func(*repository.User) error { return nil })
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// Todos los drivers comparan nombres con repository.NormalizeName: espacios
// alrededor y mayúsculas fuera de ASCII incluidas.
func testNamesNormalized(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u, err := s.Users().Create(ctx, repository.CreateUserInput{Username: "Åsa", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = s.Users().Create(ctx, repository.CreateUserInput{Username: "åsa", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	got, err := s.Users().GetByUsername(ctx, " ÅSA ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "Åsa", got.Username)

	got, err = s.Users().UpdateByUsername(ctx, "  åsa", func(x *repository.User) error {
		x.Email = "asa@example.com"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "asa@example.com", got.Email)

	r, err := s.Roles().GetByName(ctx, " admin ")
	require.NoError(t, err)
	assert.Equal(t, repository.RoleAdmin, r.Name)

	_, err = s.Roles().Create(ctx, "Ärende")
	require.NoError(t, err)
	_, err = s.Roles().Create(ctx, "ÄRENDE")
	assert.ErrorIs(t, err, repository.ErrConflict)
	r, err = s.Roles().GetByName(ctx, "ärende ")
	require.NoError(t, err)
	assert.Equal(t, "Ärende", r.Name)
}

// Cada worker agrega su rol leyendo la lista actual; si lectura y escritura
// se intercalaran, alguno de los roles se perdería.
func testConcurrentUpdates(t *testing.T, s repository.Store) {
	ctx := context.Background()
	u, err := s.Users().Create(ctx, repository.CreateUserInput{Username: "jack", PasswordHash: "h"})
	require.NoError(t, err)

	roles, err := s.Roles().List(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, len(roles))
	for _, r := range roles {
		wg.Add(1)
		go func(r repository.Role) {
			defer wg.Done()
			_, err := s.Users().Update(ctx, u.ID, func(x *repository.User) error {
				x.Roles = append(x.Roles, r)
				return nil
			})
			errs <- err
		}(r)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, repository.DefaultRoles, got.RoleNames())
}
