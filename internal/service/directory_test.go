package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-bot/internal/model"
)

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	uid := a.addUser(t, "player", 0)

	tests := []struct {
		name     string
		username string
		password string
		want     model.LoginResult
		role     model.Role
	}{
		{"owner", "boss", "boss-pw", model.LoginSuccess, model.RoleOwner},
		{"admin", "admin", "admin-pw", model.LoginSuccess, model.RoleAdmin},
		{"user", "player", "pw", model.LoginSuccess, model.RoleUser},
		{"wrong password", "player", "nope", model.LoginNotFound, ""},
		{"unknown", "ghost", "pw", model.LoginNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, p, err := a.directory.Authenticate(ctx, tt.username, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.role, p.Role)
		})
	}

	_, err := a.directory.ToggleBan(ctx, testOwnerID, uid)
	require.NoError(t, err)
	got, p, err := a.directory.Authenticate(ctx, "player", "pw")
	require.NoError(t, err)
	assert.Equal(t, model.LoginBanned, got)
	assert.Empty(t, p.ID)

	// Wrong password on a banned account does not reveal the ban.
	got, _, err = a.directory.Authenticate(ctx, "player", "nope")
	require.NoError(t, err)
	assert.Equal(t, model.LoginNotFound, got)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)

	u, err := a.directory.Register(ctx, Profile{Username: "newbie", Password: "secret", Email: "newbie@example.com"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.AccountRole())
	assert.True(t, u.Balance.IsZero())
	assert.Empty(t, u.JoinedMatchIDs)
	assert.False(t, u.Banned)
	assert.NotEmpty(t, u.ID)

	for _, name := range []string{"newbie", "admin", "boss"} {
		_, err = a.directory.Register(ctx, Profile{Username: name, Password: "x"})
		require.ErrorIs(t, err, ErrDuplicateUsername, name)
	}

	_, err = a.directory.Register(ctx, Profile{Username: "", Password: "x"})
	require.ErrorIs(t, err, ErrInvalidProfile)
	_, err = a.directory.Register(ctx, Profile{Username: "x", Password: "x", Email: "not-an-email"})
	require.ErrorIs(t, err, ErrInvalidProfile)
}

func TestAdminManagement(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	a.addUser(t, "player", 0)

	_, err := a.directory.AddAdmin(ctx, testAdminID, "second", "pw")
	require.ErrorIs(t, err, ErrForbidden)
	_, err = a.directory.AddAdmin(ctx, testOwnerID, "player", "pw")
	require.ErrorIs(t, err, ErrDuplicateUsername)

	admin, err := a.directory.AddAdmin(ctx, testOwnerID, "second", "pw")
	require.NoError(t, err)

	admins, err := a.directory.Admins(ctx, testOwnerID)
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	found, err := a.directory.AdminByName(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, found.ID)

	require.NoError(t, a.directory.RemoveAdmin(ctx, testOwnerID, admin.ID))
	require.ErrorIs(t, a.directory.RemoveAdmin(ctx, testOwnerID, admin.ID), ErrNotFound)

	got, _, err := a.directory.Authenticate(ctx, "second", "pw")
	require.NoError(t, err)
	assert.Equal(t, model.LoginNotFound, got)

	_, err = a.directory.Users(ctx, testAdminID)
	require.ErrorIs(t, err, ErrForbidden)
	users, err := a.directory.Users(ctx, testOwnerID)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestApplySeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	uid := a.addUser(t, "player", 50)

	_, err := a.accounts.Deposit(ctx, uid, dec(5))
	require.NoError(t, err)
	a.addUser(t, "player", 50)

	assert.True(t, a.user(t, uid).Balance.Equal(dec(55)))
	assert.True(t, a.user(t, uid).OpeningBalance.Equal(dec(50)))

	err = a.directory.ApplySeed(ctx, Seed{Users: []SeedUser{{ID: "user-other", Username: "player"}}})
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	uid := a.addUser(t, "player", 0)
	const chatID = int64(42)

	_, err := a.sessions.Current(ctx, chatID)
	require.ErrorIs(t, err, ErrNotLoggedIn)

	result, _, err := a.sessions.Login(ctx, chatID, "player", "wrong")
	require.NoError(t, err)
	assert.Equal(t, model.LoginNotFound, result)
	assert.Equal(t, 0, a.sessions.Count())

	result, p, err := a.sessions.Login(ctx, chatID, "player", "pw")
	require.NoError(t, err)
	assert.Equal(t, model.LoginSuccess, result)
	assert.Equal(t, uid, p.ID)

	cur, err := a.sessions.Current(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, cur.Role)

	// Banning ends the live session.
	_, err = a.directory.ToggleBan(ctx, testOwnerID, uid)
	require.NoError(t, err)
	_, err = a.sessions.Current(ctx, chatID)
	require.ErrorIs(t, err, ErrAccountBanned)
	assert.Equal(t, 0, a.sessions.Count())

	result, _, err = a.sessions.Login(ctx, chatID, "player", "pw")
	require.NoError(t, err)
	assert.Equal(t, model.LoginBanned, result)
	assert.Equal(t, 0, a.sessions.Count())

	// A removed admin loses the session.
	admin, err := a.directory.AddAdmin(ctx, testOwnerID, "temp", "pw")
	require.NoError(t, err)
	_, _, err = a.sessions.Login(ctx, 7, "temp", "pw")
	require.NoError(t, err)
	require.NoError(t, a.directory.RemoveAdmin(ctx, testOwnerID, admin.ID))
	_, err = a.sessions.Current(ctx, 7)
	require.ErrorIs(t, err, ErrNotLoggedIn)

	assert.False(t, a.sessions.Logout(chatID))
}
