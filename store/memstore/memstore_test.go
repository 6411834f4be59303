package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripchat/apperror"
	"tripchat/chat"
	"tripchat/models"
)

func TestTxRollbackRestoresState(t *testing.T) {
	m := New()
	ctx := context.Background()
	trip := &models.Trip{Name: "Sierra Loop", CreatorID: 1}
	m.CreateTrip(trip)

	boom := errors.New("boom")
	err := m.Tx(ctx, func(tx chat.Store) error {
		if err := tx.CreateRole(ctx, &models.Role{TripID: trip.ID, Name: "Crew"}); err != nil {
			return err
		}
		ch := &models.Channel{TripID: trip.ID, Name: "General", Slug: "general", Kind: models.ChannelKindMain}
		if err := tx.CreateChannel(ctx, ch, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	roles, err := m.ListRoles(ctx, trip.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
	channels, err := m.ListChannels(ctx, trip.ID)
	require.NoError(t, err)
	assert.Empty(t, channels)
}

// The store itself rejects duplicate role names, independent of the service's
// read-then-insert check: two racing creates cannot both land.
func TestCreateRoleDuplicateRejectedByStore(t *testing.T) {
	m := New()
	ctx := context.Background()
	trip := &models.Trip{Name: "Sierra Loop", CreatorID: 1}
	m.CreateTrip(trip)

	require.NoError(t, m.CreateRole(ctx, &models.Role{TripID: trip.ID, Name: "Crew"}))
	err := m.CreateRole(ctx, &models.Role{TripID: trip.ID, Name: "crew"})
	assert.True(t, apperror.Is(err, apperror.CodeDuplicateName))

	// Same name on another trip is fine.
	other := &models.Trip{Name: "Atlas Crossing", CreatorID: 2}
	m.CreateTrip(other)
	assert.NoError(t, m.CreateRole(ctx, &models.Role{TripID: other.ID, Name: "Crew"}))
}

func TestAppendMessageSeqPerChannel(t *testing.T) {
	m := New()
	ctx := context.Background()
	trip := &models.Trip{Name: "Sierra Loop", CreatorID: 1}
	m.CreateTrip(trip)

	a := &models.Channel{TripID: trip.ID, Name: "A", Slug: "a", Kind: models.ChannelKindMain}
	b := &models.Channel{TripID: trip.ID, Name: "B", Slug: "b", Kind: models.ChannelKindMain}
	require.NoError(t, m.CreateChannel(ctx, a, nil))
	require.NoError(t, m.CreateChannel(ctx, b, nil))

	for want := int64(1); want <= 3; want++ {
		msg := &models.Message{ChannelID: a.ID, SenderID: 1, SenderName: "x", Content: "hi"}
		require.NoError(t, m.AppendMessage(ctx, msg))
		assert.Equal(t, want, msg.Seq)
	}
	msg := &models.Message{ChannelID: b.ID, SenderID: 1, SenderName: "x", Content: "hi"}
	require.NoError(t, m.AppendMessage(ctx, msg))
	assert.Equal(t, int64(1), msg.Seq)

	got, err := m.GetChannel(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.LastSeq)
}

func TestAdvanceReadMarkerMonotonic(t *testing.T) {
	m := New()
	ctx := context.Background()

	require.NoError(t, m.AdvanceReadMarker(ctx, 1, 7, 5))
	require.NoError(t, m.AdvanceReadMarker(ctx, 1, 7, 3))

	marker, err := m.GetReadMarker(ctx, 1, 7)
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.Equal(t, int64(5), marker.LastReadSeq)
}

func TestPurgeDeletedBefore(t *testing.T) {
	m := New()
	ctx := context.Background()
	trip := &models.Trip{Name: "Sierra Loop", CreatorID: 1}
	m.CreateTrip(trip)
	ch := &models.Channel{TripID: trip.ID, Name: "General", Slug: "general", Kind: models.ChannelKindMain}
	require.NoError(t, m.CreateChannel(ctx, ch, nil))

	kept := &models.Message{ChannelID: ch.ID, SenderID: 1, SenderName: "x", Content: "kept"}
	gone := &models.Message{ChannelID: ch.ID, SenderID: 1, SenderName: "x", Content: "gone"}
	require.NoError(t, m.AppendMessage(ctx, kept))
	require.NoError(t, m.AppendMessage(ctx, gone))
	require.NoError(t, m.SoftDeleteMessage(ctx, gone.ID))

	n, err := m.PurgeDeletedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msgs, err := m.ListMessagesBefore(ctx, ch.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "kept", msgs[0].Content)
}

func TestSeedFixtures(t *testing.T) {
	m := New()
	trip, err := Seed(m)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, "Baja Overland 2026", trip.Name)
	assert.Equal(t, DemoOrganizer, trip.CreatorID)

	roles, err := m.ListRoles(ctx, trip.ID)
	require.NoError(t, err)
	assert.Len(t, roles, 3)

	channels, err := m.ListChannels(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, channels, 3)

	general, err := m.FindChannelBySlug(ctx, trip.ID, "general")
	require.NoError(t, err)
	require.NotNil(t, general)
	assert.Equal(t, int64(2), general.LastSeq)

	// The organizer's watermark tracks every seeded message.
	marker, err := m.GetReadMarker(ctx, general.ID, DemoOrganizer)
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.Equal(t, general.LastSeq, marker.LastReadSeq)

	a, err := m.GetUserAssignment(ctx, trip.ID, DemoCrewLead)
	require.NoError(t, err)
	require.NotNil(t, a)
}
