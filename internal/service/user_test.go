package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuviet/userservice/internal/models"
)

func TestUserService_Profile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "secret123")

	user, err := env.users.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.RoleStudent, user.Role.Name)

	_, err = env.users.Profile(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_UpdateRole_RevokesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "alice", "secret123")

	login, err := env.auth.Login(ctx, "alice", "secret123")
	require.NoError(t, err)

	updated, err := env.users.UpdateRole(ctx, user.ID, models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, updated.Role.Name)
	assert.Nil(t, updated.RefreshToken)
	assert.Nil(t, updated.RefreshTokenExpiry)

	_, err = env.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	assert.Contains(t, env.pub.types(), "user_role_changed")
}

func TestUserService_UpdateRole_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "alice", "secret123")

	_, err := env.users.UpdateRole(ctx, user.ID+1000, models.RoleTeacher)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.users.UpdateRole(ctx, user.ID, "NO_SUCH_ROLE")
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestUserService_UpdateProfile_PasswordChangeRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "secret123")

	login, err := env.auth.Login(ctx, "alice", "secret123")
	require.NoError(t, err)

	_, err = env.users.UpdateProfile(ctx, "alice", ProfileUpdate{Password: "newsecret"})
	require.NoError(t, err)

	_, err = env.auth.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = env.auth.Login(ctx, "alice", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, "alice", "newsecret")
	require.NoError(t, err)
}

func TestUserService_UpdateProfile_KeepsSessionWithoutPasswordChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "secret123")

	login, err := env.auth.Login(ctx, "alice", "secret123")
	require.NoError(t, err)

	updated, err := env.users.UpdateProfile(ctx, "alice", ProfileUpdate{FullName: "Alice A"})
	require.NoError(t, err)
	assert.Equal(t, "Alice A", updated.FullName)

	_, err = env.auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
}

func TestUserService_UpdateProfile_EmailConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "secret123")
	env.register(t, "bob", "secret123")

	_, err := env.users.UpdateProfile(ctx, "alice", ProfileUpdate{Email: "bob@x.com"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUserService_SetActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "alice", "secret123")

	deactivated, err := env.users.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	reactivated, err := env.users.SetActive(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, reactivated.Active)

	_, err = env.users.SetActive(ctx, user.ID+1000, true)
	assert.ErrorIs(t, err, ErrNotFound)
}
