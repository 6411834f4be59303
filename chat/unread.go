package chat

import (
	"context"
	"log"

	"tripchat/apperror"
)

// ReadTracker keeps per-user read watermarks and computes unread counts from
// them. It observes the message log through the store rather than holding
// any state of its own.
type ReadTracker struct {
	store    Store
	channels *ChannelRegistry
	logger   *log.Logger
}

func NewReadTracker(store Store, channels *ChannelRegistry, logger *log.Logger) *ReadTracker {
	return &ReadTracker{store: store, channels: channels, logger: logger}
}

// MarkRead advances the user's watermark to the given message. The watermark
// never moves backward: marking an older message than the current watermark
// is a no-op success.
func (rt *ReadTracker) MarkRead(ctx context.Context, channelID, userID, uptoMessageID uint) error {
	ok, err := rt.channels.CanAccess(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("no access to this channel")
	}
	msg, err := rt.store.GetMessage(ctx, uptoMessageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.ChannelID != channelID {
		return apperror.NotFound("message not found in this channel")
	}
	return rt.store.AdvanceReadMarker(ctx, channelID, userID, msg.Seq)
}

// UnreadCount counts messages past the user's watermark, excluding the
// user's own sends: your own messages are never unread for you.
func (rt *ReadTracker) UnreadCount(ctx context.Context, channelID, userID uint) (int64, error) {
	ok, err := rt.channels.CanAccess(ctx, channelID, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperror.Forbidden("no access to this channel")
	}
	return rt.unreadCount(ctx, channelID, userID)
}

func (rt *ReadTracker) unreadCount(ctx context.Context, channelID, userID uint) (int64, error) {
	marker, err := rt.store.GetReadMarker(ctx, channelID, userID)
	if err != nil {
		return 0, err
	}
	var watermark int64
	if marker != nil {
		watermark = marker.LastReadSeq
	}
	return rt.store.CountUnread(ctx, channelID, watermark, userID)
}

// ChannelUnread pairs a channel with its unread count for badge rendering.
type ChannelUnread struct {
	ChannelID uint   `json:"channel_id"`
	Slug      string `json:"slug"`
	Unread    int64  `json:"unread"`
}

// AggregateUnread sums unread counts across the channels the user can access
// right now. Accessibility is re-derived on every call, so losing a role
// immediately stops its channels from counting.
func (rt *ReadTracker) AggregateUnread(ctx context.Context, tripID, userID uint) (int64, []ChannelUnread, error) {
	channels, err := rt.channels.AccessibleChannels(ctx, tripID, userID)
	if err != nil {
		return 0, nil, err
	}
	var total int64
	breakdown := make([]ChannelUnread, 0, len(channels))
	for _, ch := range channels {
		n, err := rt.unreadCount(ctx, ch.ID, userID)
		if err != nil {
			return 0, nil, err
		}
		total += n
		breakdown = append(breakdown, ChannelUnread{ChannelID: ch.ID, Slug: ch.Slug, Unread: n})
	}
	return total, breakdown, nil
}
