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

func TestCreateRoleRequiresManageRoles(t *testing.T) {
	e := newEnv(t)

	_, err := e.roles.CreateRole(context.Background(), e.trip.ID, chat.CreateRoleInput{Name: "Crew"}, outsider)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeUnauthorized, apperror.CodeOf(err))
}

func TestCreateRoleDuplicateNameCaseInsensitive(t *testing.T) {
	e := newEnv(t)
	e.createRole(t, "Crew")

	_, err := e.roles.CreateRole(context.Background(), e.trip.ID, chat.CreateRoleInput{Name: "crew"}, organizer)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeDuplicateName, apperror.CodeOf(err))
}

func TestAssignRoleSinglePrimary(t *testing.T) {
	e := newEnv(t)
	crew := e.createRole(t, "Crew")
	kitchen := e.createRole(t, "Kitchen")
	e.assign(t, crewLead, crew.ID)

	// A second role, even a different one, is rejected until the first is
	// revoked.
	_, err := e.roles.AssignRole(context.Background(), e.trip.ID, crewLead, kitchen.ID, organizer)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeAlreadyAssigned, apperror.CodeOf(err))

	require.NoError(t, e.roles.RevokeRole(context.Background(), e.trip.ID, crewLead, crew.ID, organizer))
	_, err = e.roles.AssignRole(context.Background(), e.trip.ID, crewLead, kitchen.ID, organizer)
	require.NoError(t, err)

	role, err := e.roles.GetUserRole(context.Background(), e.trip.ID, crewLead)
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, kitchen.ID, role.ID)
}

func TestAssignRoleFromOtherTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	otherTrip := &models.Trip{Name: "Atlas Crossing", CreatorID: organizer}
	e.store.CreateTrip(otherTrip)
	foreign, err := e.roles.CreateRole(ctx, otherTrip.ID, chat.CreateRoleInput{Name: "Crew"}, organizer)
	require.NoError(t, err)

	_, err = e.roles.AssignRole(ctx, e.trip.ID, crewLead, foreign.ID, organizer)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestRevokeRoleIdempotent(t *testing.T) {
	e := newEnv(t)
	crew := e.createRole(t, "Crew")

	// crewLead never held the role; revoking is still a success.
	require.NoError(t, e.roles.RevokeRole(context.Background(), e.trip.ID, crewLead, crew.ID, organizer))
}

func TestDeleteRoleCascade(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	crew := e.createRole(t, "Crew")
	security := e.createRole(t, "Security")
	e.assign(t, crewLead, crew.ID)
	e.assign(t, deckhand, security.ID)

	crewOnly := e.createRoleChannel(t, "Crew Ops", crew.ID)
	shared := e.createRoleChannel(t, "Night Watch", crew.ID, security.ID)
	e.send(t, crewOnly.ID, crewLead, "fuel stops posted")

	require.NoError(t, e.roles.DeleteRole(ctx, crew.ID, organizer))

	// The channel gated only by the deleted role is archived, not deleted.
	ch, err := e.channels.GetChannel(ctx, crewOnly.ID)
	require.NoError(t, err)
	assert.True(t, ch.IsArchived)

	// The shared channel survives with the remaining role.
	ch, err = e.channels.GetChannel(ctx, shared.ID)
	require.NoError(t, err)
	assert.False(t, ch.IsArchived)
	roleIDs, err := e.channels.RequiredRoleIDs(ctx, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{security.ID}, roleIDs)

	// The former holder keeps read access to the archived history but the
	// assignment itself is gone.
	msgs, err := e.messages.History(ctx, crewOnly.ID, crewLead, 0, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	role, err := e.roles.GetUserRole(ctx, e.trip.ID, crewLead)
	require.NoError(t, err)
	assert.Nil(t, role)

	// Someone who never held the role gets nothing.
	_, err = e.messages.History(ctx, crewOnly.ID, outsider, 0, 0)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.CodeOf(err))
}

func TestDeleteRoleNotFound(t *testing.T) {
	e := newEnv(t)

	err := e.roles.DeleteRole(context.Background(), 9999, organizer)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}
