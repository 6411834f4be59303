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

func TestSendAssignsSequentialSeqs(t *testing.T) {
	e := newEnv(t)
	main := e.createMainChannel(t)

	first := e.send(t, main.ID, organizer, "one")
	second := e.send(t, main.ID, crewLead, "two")
	third := e.send(t, main.ID, organizer, "three")

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, int64(3), third.Seq)

	// Sequences are per channel, not global.
	other, err := e.channels.CreateChannel(context.Background(), e.trip.ID, chat.CreateChannelInput{
		Name: "Announcements",
		Kind: models.ChannelKindMain,
	}, organizer)
	require.NoError(t, err)
	msg := e.send(t, other.ID, organizer, "fresh log")
	assert.Equal(t, int64(1), msg.Seq)
}

func TestSendValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	crew := e.createRole(t, "Crew")
	crewOps := e.createRoleChannel(t, "Crew Ops", crew.ID)

	_, err := e.messages.Send(ctx, crewOps.ID, organizer, "tester", "   ", "")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeEmptyContent, apperror.CodeOf(err))

	// No role, no send.
	_, err = e.messages.Send(ctx, crewOps.ID, outsider, "tester", "hello", "")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.CodeOf(err))

	_, err = e.messages.Send(ctx, 9999, organizer, "tester", "hello", "")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))

	// Archiving must not leak to non-accessors: an outsider sending to an
	// archived role channel gets Forbidden, not ChannelArchived.
	require.NoError(t, e.channels.ArchiveChannel(ctx, crewOps.ID, organizer))
	_, err = e.messages.Send(ctx, crewOps.ID, outsider, "tester", "hello", "")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.CodeOf(err))
}

func TestHistoryPagination(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	main := e.createMainChannel(t)
	for _, content := range []string{"a", "b", "c", "d", "e"} {
		e.send(t, main.ID, organizer, content)
	}

	// Newest first, capped by limit.
	page, err := e.messages.History(ctx, main.ID, crewLead, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "e", page[0].Content)
	assert.Equal(t, "d", page[1].Content)

	// The next page starts strictly before the oldest seq already seen.
	page, err = e.messages.History(ctx, main.ID, crewLead, page[1].Seq, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].Content)
	assert.Equal(t, "b", page[1].Content)

	page, err = e.messages.History(ctx, main.ID, crewLead, page[1].Seq, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].Content)
}

func TestHistoryRequiresAccess(t *testing.T) {
	e := newEnv(t)
	crew := e.createRole(t, "Crew")
	crewOps := e.createRoleChannel(t, "Crew Ops", crew.ID)

	_, err := e.messages.History(context.Background(), crewOps.ID, outsider, 0, 0)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.CodeOf(err))
}

func TestEditOwnMessageOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	main := e.createMainChannel(t)
	msg := e.send(t, main.ID, crewLead, "fuel stop at noon")

	edited, err := e.messages.Edit(ctx, msg.ID, crewLead, "fuel stop at 13:00")
	require.NoError(t, err)
	assert.Equal(t, "fuel stop at 13:00", edited.Content)
	assert.NotNil(t, edited.EditedAt)

	// Even the trip creator cannot edit someone else's words.
	_, err = e.messages.Edit(ctx, msg.ID, organizer, "never said that")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.CodeOf(err))

	_, err = e.messages.Edit(ctx, msg.ID, crewLead, "")
	require.Error(t, err)
	assert.Equal(t, apperror.CodeEmptyContent, apperror.CodeOf(err))
}

func TestDeleteRedactsInPlace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	main := e.createMainChannel(t)
	first := e.send(t, main.ID, crewLead, "one")
	second := e.send(t, main.ID, crewLead, "two")
	e.send(t, main.ID, organizer, "three")

	// Sender deletes their own message.
	require.NoError(t, e.messages.Delete(ctx, first.ID, crewLead))
	// An admin with manage-channels deletes someone else's.
	require.NoError(t, e.messages.Delete(ctx, second.ID, organizer))

	msgs, err := e.messages.History(ctx, main.ID, outsider, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// Deleted messages keep their slot and seq but lose their content.
	assert.Equal(t, "three", msgs[0].Content)
	assert.Empty(t, msgs[1].Content)
	assert.Empty(t, msgs[1].SenderName)
	assert.Equal(t, second.Seq, msgs[1].Seq)
	assert.Empty(t, msgs[2].Content)

	// Deleting an already-deleted message reports NotFound.
	err = e.messages.Delete(ctx, first.ID, crewLead)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestDeleteForbiddenForBystander(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	main := e.createMainChannel(t)
	msg := e.send(t, main.ID, crewLead, "one")

	err := e.messages.Delete(ctx, msg.ID, outsider)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.CodeOf(err))
}

func TestHistoryLimitClamped(t *testing.T) {
	e := newEnv(t)
	main := e.createMainChannel(t)
	e.send(t, main.ID, organizer, "a")

	msgs, err := e.messages.History(context.Background(), main.ID, organizer, 0, chat.MaxHistoryLimit+100)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
