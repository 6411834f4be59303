package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripchat/apperror"
)

func TestUnreadExcludesOwnMessages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	main := e.createMainChannel(t)

	e.send(t, main.ID, organizer, "from organizer")
	e.send(t, main.ID, crewLead, "from crew lead")

	// Your own sends never count against you.
	n, err := e.unread.UnreadCount(ctx, main.ID, crewLead)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = e.unread.UnreadCount(ctx, main.ID, deckhand)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMarkReadAdvancesWatermark(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	main := e.createMainChannel(t)

	first := e.send(t, main.ID, organizer, "one")
	second := e.send(t, main.ID, organizer, "two")
	third := e.send(t, main.ID, organizer, "three")

	require.NoError(t, e.unread.MarkRead(ctx, main.ID, crewLead, second.ID))
	n, err := e.unread.UnreadCount(ctx, main.ID, crewLead)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The watermark never moves backward.
	require.NoError(t, e.unread.MarkRead(ctx, main.ID, crewLead, first.ID))
	n, err = e.unread.UnreadCount(ctx, main.ID, crewLead)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, e.unread.MarkRead(ctx, main.ID, crewLead, third.ID))
	n, err = e.unread.UnreadCount(ctx, main.ID, crewLead)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestMarkReadValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	main := e.createMainChannel(t)
	crew := e.createRole(t, "Crew")
	e.assign(t, crewLead, crew.ID)
	crewOps := e.createRoleChannel(t, "Crew Ops", crew.ID)
	inCrew := e.send(t, crewOps.ID, crewLead, "crew note")

	// The message must live in the channel being marked.
	err := e.unread.MarkRead(ctx, main.ID, crewLead, inCrew.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))

	// No access, no watermark.
	err = e.unread.MarkRead(ctx, crewOps.ID, outsider, inCrew.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.CodeOf(err))
}

func TestAggregateUnreadFollowsAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	crew := e.createRole(t, "Crew")
	e.assign(t, crewLead, crew.ID)
	e.assign(t, deckhand, crew.ID)
	main := e.createMainChannel(t)
	crewOps := e.createRoleChannel(t, "Crew Ops", crew.ID)

	e.send(t, main.ID, organizer, "hello all")
	e.send(t, crewOps.ID, deckhand, "loading plan")
	e.send(t, crewOps.ID, deckhand, "copy that")

	total, breakdown, err := e.unread.AggregateUnread(ctx, e.trip.ID, crewLead)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, breakdown, 2)

	// Losing the role drops its channels from the aggregate immediately.
	require.NoError(t, e.roles.RevokeRole(ctx, e.trip.ID, crewLead, crew.ID, organizer))
	total, breakdown, err = e.unread.AggregateUnread(ctx, e.trip.ID, crewLead)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, breakdown, 1)
	assert.Equal(t, main.ID, breakdown[0].ChannelID)
}
