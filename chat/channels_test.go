package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripchat/apperror"
	"tripchat/chat"
	"tripchat/models"
	"tripchat/utils"
)

func TestCreateChannelRoleSetValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	crew := e.createRole(t, "Crew")

	// A role-gated channel without roles is rejected.
	_, err := e.channels.CreateChannel(ctx, e.trip.ID, chat.CreateChannelInput{
		Name: "Crew Ops",
		Kind: models.ChannelKindRole,
	}, organizer)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidRoleSet, apperror.CodeOf(err))

	// The main channel cannot carry a role gate.
	_, err = e.channels.CreateChannel(ctx, e.trip.ID, chat.CreateChannelInput{
		Name:            "General",
		Kind:            models.ChannelKindMain,
		RequiredRoleIDs: []uint{crew.ID},
	}, organizer)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidRoleSet, apperror.CodeOf(err))

	// Roles must belong to the trip.
	otherTrip := &models.Trip{Name: "Atlas Crossing", CreatorID: organizer}
	e.store.CreateTrip(otherTrip)
	foreign, err := e.roles.CreateRole(ctx, otherTrip.ID, chat.CreateRoleInput{Name: "Security"}, organizer)
	require.NoError(t, err)
	_, err = e.channels.CreateChannel(ctx, e.trip.ID, chat.CreateChannelInput{
		Name:            "Night Watch",
		Kind:            models.ChannelKindRole,
		RequiredRoleIDs: []uint{foreign.ID},
	}, organizer)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidRoleSet, apperror.CodeOf(err))
}

func TestCreateChannelDuplicateSlug(t *testing.T) {
	e := newEnv(t)
	crew := e.createRole(t, "Crew")
	ch := e.createRoleChannel(t, "Crew Ops", crew.ID)
	assert.Equal(t, "crew-ops", ch.Slug)

	// Different display name, same slug after normalization.
	_, err := e.channels.CreateChannel(context.Background(), e.trip.ID, chat.CreateChannelInput{
		Name:            "crew ops!",
		Kind:            models.ChannelKindRole,
		RequiredRoleIDs: []uint{crew.ID},
	}, organizer)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeDuplicateSlug, apperror.CodeOf(err))
}

func TestAccessibleChannelsFollowRoleState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	crew := e.createRole(t, "Crew")
	main := e.createMainChannel(t)
	crewOps := e.createRoleChannel(t, "Crew Ops", crew.ID)

	slugs := func(userID uint) []string {
		channels, err := e.channels.AccessibleChannels(ctx, e.trip.ID, userID)
		require.NoError(t, err)
		out := make([]string, 0, len(channels))
		for _, ch := range channels {
			out = append(out, ch.Slug)
		}
		return out
	}

	// Without a role only the main channel is visible.
	assert.Equal(t, []string{main.Slug}, slugs(crewLead))

	e.assign(t, crewLead, crew.ID)
	assert.ElementsMatch(t, []string{main.Slug, crewOps.Slug}, slugs(crewLead))

	// Revocation takes effect on the very next call.
	require.NoError(t, e.roles.RevokeRole(ctx, e.trip.ID, crewLead, crew.ID, organizer))
	assert.Equal(t, []string{main.Slug}, slugs(crewLead))

	ok, err := e.channels.CanAccess(ctx, crewOps.ID, crewLead)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchiveFreezesReaders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	crew := e.createRole(t, "Crew")
	e.assign(t, crewLead, crew.ID)
	crewOps := e.createRoleChannel(t, "Crew Ops", crew.ID)
	e.send(t, crewOps.ID, crewLead, "route notes")

	require.NoError(t, e.channels.ArchiveChannel(ctx, crewOps.ID, organizer))
	// Archival is idempotent.
	require.NoError(t, e.channels.ArchiveChannel(ctx, crewOps.ID, organizer))

	// Frozen reader keeps history access, even after losing the role.
	require.NoError(t, e.roles.RevokeRole(ctx, e.trip.ID, crewLead, crew.ID, organizer))
	msgs, err := e.messages.History(ctx, crewOps.ID, crewLead, 0, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	// Gaining the role after the fact does not open the archive.
	e.assign(t, deckhand, crew.ID)
	_, err = e.messages.History(ctx, crewOps.ID, deckhand, 0, 0)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.CodeOf(err))

	// Archived channels reject new messages even from frozen readers.
	_, err = e.messages.Send(ctx, crewOps.ID, crewLead, "tester", "late", "")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeChannelArchived, apperror.CodeOf(err))
}

func TestArchivedMainChannelStaysReadable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	main := e.createMainChannel(t)
	e.send(t, main.ID, organizer, "welcome")

	require.NoError(t, e.channels.ArchiveChannel(ctx, main.ID, organizer))

	// The main channel was open to everyone, its archive is too.
	msgs, err := e.messages.History(ctx, main.ID, outsider, 0, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestUpdateChannel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	crew := e.createRole(t, "Crew")
	security := e.createRole(t, "Security")
	ch := e.createRoleChannel(t, "Crew Ops", crew.ID)

	updated, err := e.channels.UpdateChannel(ctx, ch.ID, chat.UpdateChannelInput{
		Name:            utils.Pointer("Crew Logistics"),
		RequiredRoleIDs: &[]uint{security.ID},
	}, organizer)
	require.NoError(t, err)
	assert.Equal(t, "Crew Logistics", updated.Name)
	// The slug is fixed at creation so links stay stable.
	assert.Equal(t, "crew-ops", updated.Slug)

	roleIDs, err := e.channels.RequiredRoleIDs(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{security.ID}, roleIDs)

	// Emptying the role set is rejected.
	_, err = e.channels.UpdateChannel(ctx, ch.ID, chat.UpdateChannelInput{
		RequiredRoleIDs: &[]uint{},
	}, organizer)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidRoleSet, apperror.CodeOf(err))

	// Archived channels are frozen.
	require.NoError(t, e.channels.ArchiveChannel(ctx, ch.ID, organizer))
	_, err = e.channels.UpdateChannel(ctx, ch.ID, chat.UpdateChannelInput{Name: utils.Pointer("Crew Dispatch")}, organizer)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeChannelArchived, apperror.CodeOf(err))
}

func TestCreateChannelRequiresManageChannels(t *testing.T) {
	e := newEnv(t)
	crew := e.createRole(t, "Crew")

	_, err := e.channels.CreateChannel(context.Background(), e.trip.ID, chat.CreateChannelInput{
		Name:            "Crew Ops",
		Kind:            models.ChannelKindRole,
		RequiredRoleIDs: []uint{crew.ID},
	}, outsider)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeUnauthorized, apperror.CodeOf(err))
}
