package chat_test

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"tripchat/chat"
	"tripchat/models"
	"tripchat/store/memstore"
)

// Actor ids used across the chat tests.
const (
	organizer = uint(1) // trip creator, implicit admin
	crewLead  = uint(2)
	deckhand  = uint(3)
	outsider  = uint(4) // on the trip, no role, no grant
)

type env struct {
	store    *memstore.Memstore
	trip     *models.Trip
	admins   *chat.AdminRegistry
	roles    *chat.RoleRegistry
	channels *chat.ChannelRegistry
	hub      *chat.Hub
	messages *chat.MessageService
	unread   *chat.ReadTracker
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.New()
	trip := &models.Trip{Name: "Sierra Loop", CreatorID: organizer}
	store.CreateTrip(trip)

	logger := log.New(io.Discard, "", 0)
	admins := chat.NewAdminRegistry(store, logger)
	channels := chat.NewChannelRegistry(store, admins, logger)
	roles := chat.NewRoleRegistry(store, admins, logger)
	hub := chat.NewHub(channels, 8, logger)
	channels.SetNotifier(hub)
	roles.SetNotifier(hub)
	messages := chat.NewMessageService(store, channels, hub, logger)
	unread := chat.NewReadTracker(store, channels, logger)

	return &env{
		store:    store,
		trip:     trip,
		admins:   admins,
		roles:    roles,
		channels: channels,
		hub:      hub,
		messages: messages,
		unread:   unread,
	}
}

func (e *env) createRole(t *testing.T, name string) *models.Role {
	t.Helper()
	role, err := e.roles.CreateRole(context.Background(), e.trip.ID, chat.CreateRoleInput{Name: name}, organizer)
	require.NoError(t, err)
	return role
}

func (e *env) assign(t *testing.T, userID, roleID uint) {
	t.Helper()
	_, err := e.roles.AssignRole(context.Background(), e.trip.ID, userID, roleID, organizer)
	require.NoError(t, err)
}

func (e *env) createRoleChannel(t *testing.T, name string, roleIDs ...uint) *models.Channel {
	t.Helper()
	ch, err := e.channels.CreateChannel(context.Background(), e.trip.ID, chat.CreateChannelInput{
		Name:            name,
		Kind:            models.ChannelKindRole,
		RequiredRoleIDs: roleIDs,
	}, organizer)
	require.NoError(t, err)
	return ch
}

func (e *env) createMainChannel(t *testing.T) *models.Channel {
	t.Helper()
	ch, err := e.channels.CreateChannel(context.Background(), e.trip.ID, chat.CreateChannelInput{
		Name: "General",
		Kind: models.ChannelKindMain,
	}, organizer)
	require.NoError(t, err)
	return ch
}

func (e *env) send(t *testing.T, channelID, senderID uint, content string) *models.Message {
	t.Helper()
	msg, err := e.messages.Send(context.Background(), channelID, senderID, "tester", content, "")
	require.NoError(t, err)
	return msg
}
