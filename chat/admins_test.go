package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripchat/apperror"
	"tripchat/chat"
	"tripchat/models"
)

func TestCreatorIsImplicitAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, perm := range []models.AdminPermission{
		models.PermManageRoles, models.PermManageChannels, models.PermDesignateAdmins,
	} {
		ok, err := e.admins.HasPermission(ctx, e.trip.ID, organizer, perm)
		require.NoError(t, err)
		assert.True(t, ok, "creator should hold %s", perm)
	}

	// No grant row exists for the creator; the permission is implicit.
	grants, err := e.admins.ListGrants(ctx, e.trip.ID)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestGrantAdminRequiresDesignateAdmins(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.admins.GrantAdmin(ctx, e.trip.ID, crewLead, chat.Permissions{ManageRoles: true}, organizer)
	require.NoError(t, err)

	// crewLead can manage roles but cannot mint new admins.
	_, err = e.admins.GrantAdmin(ctx, e.trip.ID, deckhand, chat.Permissions{ManageRoles: true}, crewLead)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeUnauthorized, apperror.CodeOf(err))
}

func TestGrantAdminOverwritesPermissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.admins.GrantAdmin(ctx, e.trip.ID, crewLead, chat.Permissions{ManageRoles: true}, organizer)
	require.NoError(t, err)
	_, err = e.admins.GrantAdmin(ctx, e.trip.ID, crewLead, chat.Permissions{ManageChannels: true}, organizer)
	require.NoError(t, err)

	ok, err := e.admins.HasPermission(ctx, e.trip.ID, crewLead, models.PermManageRoles)
	require.NoError(t, err)
	assert.False(t, ok, "grants replace, they do not accumulate")
	ok, err = e.admins.HasPermission(ctx, e.trip.ID, crewLead, models.PermManageChannels)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRevokeAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.admins.GrantAdmin(ctx, e.trip.ID, crewLead, chat.Permissions{ManageChannels: true}, organizer)
	require.NoError(t, err)
	require.NoError(t, e.admins.RevokeAdmin(ctx, e.trip.ID, crewLead, organizer))

	ok, err := e.admins.IsAdmin(ctx, e.trip.ID, crewLead)
	require.NoError(t, err)
	assert.False(t, ok)

	// Revoking again is a no-op success.
	require.NoError(t, e.admins.RevokeAdmin(ctx, e.trip.ID, crewLead, organizer))
}

func TestEmptyGrantIsNotAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.admins.GrantAdmin(ctx, e.trip.ID, crewLead, chat.Permissions{}, organizer)
	require.NoError(t, err)

	ok, err := e.admins.IsAdmin(ctx, e.trip.ID, crewLead)
	require.NoError(t, err)
	assert.False(t, ok)
}
