package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/imsauth/internal/domain/repository"
	dto "github.com/dropDatabas3/imsauth/internal/http/dto"
	"github.com/dropDatabas3/imsauth/internal/security/password"
	"github.com/dropDatabas3/imsauth/internal/store/memory"
)

func newService(t *testing.T, policy password.Policy) (Service, *password.Hasher) {
	t.Helper()
	h := password.NewHasher(4)
	return NewService(Deps{Store: memory.New(), Hasher: h, Policy: policy}), h
}

func TestAdd_RoleCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	svc, h := newService(t, password.Policy{})

	u, err := svc.Add(ctx, dto.UserRequest{Username: "bob", Email: "b@x.com", Password: "pw", Role: "user"})
	require.NoError(t, err)
	assert.Equal(t, []string{repository.RoleUser}, u.RoleNames())
	assert.NotEqual(t, "pw", u.PasswordHash)
	assert.True(t, h.Verify("pw", u.PasswordHash))
}

func TestAdd_UnknownRoleIsNotFatal(t *testing.T) {
	svc, _ := newService(t, password.Policy{})
	u, err := svc.Add(context.Background(), dto.UserRequest{Username: "ann", Password: "pw", Role: "GOD"})
	require.NoError(t, err)
	assert.Empty(t, u.Roles)
}

func TestAdd_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, password.Policy{MinLength: 8, RequireDigit: true})

	_, err := svc.Add(ctx, dto.UserRequest{Username: "", Password: "x"})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.Add(ctx, dto.UserRequest{Username: "weak", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Add(ctx, dto.UserRequest{Username: "ok", Password: "longenough1"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, dto.UserRequest{Username: "OK", Password: "longenough1"})
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestRequiredFields_AllOperations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, password.Policy{})
	u, err := svc.Add(ctx, dto.UserRequest{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Add(ctx, dto.UserRequest{Username: "   ", Password: "pw"})
	assert.ErrorIs(t, err, ErrMissingFields)
	_, err = svc.Add(ctx, dto.UserRequest{Username: "carol", Password: ""})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.UpdateDetails(ctx, u.ID, dto.UserRequest{Username: " "})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.ChangePassword(ctx, "bob", "")
	assert.ErrorIs(t, err, ErrMissingFields)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "bob", all[0].Username)
	assert.Equal(t, u.PasswordHash, all[0].PasswordHash)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, h := newService(t, password.Policy{})
	u, err := svc.Add(ctx, dto.UserRequest{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	got, err := svc.ResetPassword(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, h.Verify("password", got.PasswordHash))

	_, err = svc.ResetPassword(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateDetails_IgnoresPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, password.Policy{})
	u, err := svc.Add(ctx, dto.UserRequest{Username: "bob", Email: "b@x.com", Password: "pw", Role: "USER"})
	require.NoError(t, err)

	got, err := svc.UpdateDetails(ctx, u.ID, dto.UserRequest{Username: "robert", Email: "r@x.com", Password: "new", Role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, "robert", got.Username)
	assert.Equal(t, "r@x.com", got.Email)
	assert.Equal(t, []string{repository.RoleAdmin}, got.RoleNames())
	assert.Equal(t, u.PasswordHash, got.PasswordHash)

	// rol inexistente: queda sin roles
	got, err = svc.UpdateDetails(ctx, u.ID, dto.UserRequest{Username: "robert", Role: "nope"})
	require.NoError(t, err)
	assert.Empty(t, got.Roles)

	_, err = svc.UpdateDetails(ctx, 999, dto.UserRequest{Username: "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, h := newService(t, password.Policy{})
	_, err := svc.Add(ctx, dto.UserRequest{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	got, err := svc.ChangePassword(ctx, "BOB", "s3cret")
	require.NoError(t, err)
	assert.True(t, h.Verify("s3cret", got.PasswordHash))

	_, err = svc.ChangePassword(ctx, "ghost", "x")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAllAndRoles(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, password.Policy{})
	_, _ = svc.Add(ctx, dto.UserRequest{Username: "a", Password: "pw"})
	_, _ = svc.Add(ctx, dto.UserRequest{Username: "b", Password: "pw"})

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	roles, err := svc.Roles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 3)
}
