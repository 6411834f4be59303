package chat_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripchat/apperror"
	"tripchat/chat"
)

func newTestPoller(e *env) *chat.Poller {
	return chat.NewPoller(e.store, e.channels, 10*time.Millisecond, log.New(io.Discard, "", 0))
}

func TestPollerDeliversAppendsInOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	main := e.createMainChannel(t)
	// Messages before the subscription start are history, not stream.
	e.send(t, main.ID, organizer, "before")

	sub, err := newTestPoller(e).Subscribe(ctx, main.ID, crewLead)
	require.NoError(t, err)
	defer sub.Cancel()

	e.send(t, main.ID, organizer, "one")
	e.send(t, main.ID, organizer, "two")

	ev, ok := receive(t, sub)
	require.True(t, ok)
	require.Equal(t, chat.EventMessage, ev.Type)
	assert.Equal(t, "one", ev.Message.Content)

	ev, ok = receive(t, sub)
	require.True(t, ok)
	assert.Equal(t, "two", ev.Message.Content)
}

func TestPollerSubscribeRequiresAccess(t *testing.T) {
	e := newEnv(t)
	crew := e.createRole(t, "Crew")
	crewOps := e.createRoleChannel(t, "Crew Ops", crew.ID)

	_, err := newTestPoller(e).Subscribe(context.Background(), crewOps.ID, outsider)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeForbidden, apperror.CodeOf(err))
}

func TestPollerEndsOnAccessRevocation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	crew := e.createRole(t, "Crew")
	e.assign(t, crewLead, crew.ID)
	crewOps := e.createRoleChannel(t, "Crew Ops", crew.ID)

	sub, err := newTestPoller(e).Subscribe(ctx, crewOps.ID, crewLead)
	require.NoError(t, err)

	require.NoError(t, e.roles.RevokeRole(ctx, e.trip.ID, crewLead, crew.ID, organizer))

	ev, ok := receive(t, sub)
	require.True(t, ok)
	assert.Equal(t, chat.EventAccessRevoked, ev.Type)
	_, ok = receive(t, sub)
	assert.False(t, ok)
}

func TestPollerCancelClosesStream(t *testing.T) {
	e := newEnv(t)
	main := e.createMainChannel(t)

	sub, err := newTestPoller(e).Subscribe(context.Background(), main.ID, crewLead)
	require.NoError(t, err)
	sub.Cancel()

	_, ok := receive(t, sub)
	assert.False(t, ok)
}
