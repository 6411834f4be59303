package chat

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"tripchat/apperror"
	"tripchat/models"
)

const (
	// DefaultHistoryLimit is used when the caller does not cap a history page.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit bounds a single history page.
	MaxHistoryLimit = 200
)

// MessageService appends to channel logs and serves history. Appends and
// their fan-out are serialized per channel so every subscriber observes the
// exact sequence order the store assigned; across processes the store's
// per-channel counter remains the authority.
type MessageService struct {
	store    Store
	channels *ChannelRegistry
	hub      *Hub
	logger   *log.Logger

	appendMu sync.Map // channelID -> *sync.Mutex
}

func NewMessageService(store Store, channels *ChannelRegistry, hub *Hub, logger *log.Logger) *MessageService {
	return &MessageService{store: store, channels: channels, hub: hub, logger: logger}
}

func (ms *MessageService) channelLock(channelID uint) *sync.Mutex {
	mu, _ := ms.appendMu.LoadOrStore(channelID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Send appends a message to the channel and fans it out. The access check
// runs inside the same transaction as the append, so a role revoked a moment
// earlier can never slip a message in. The send succeeds once the append is
// durable; fan-out outcome is not the sender's problem.
func (ms *MessageService) Send(ctx context.Context, channelID, senderID uint, senderName, content, msgType string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.EmptyContent("message content is empty")
	}
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	msg := &models.Message{
		ChannelID:  channelID,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		Type:       msgType,
	}

	mu := ms.channelLock(channelID)
	mu.Lock()
	defer mu.Unlock()

	err := ms.store.Tx(ctx, func(tx Store) error {
		ch, err := tx.GetChannel(ctx, channelID)
		if err != nil {
			return err
		}
		if ch == nil {
			return apperror.NotFound("channel not found")
		}
		// Access is checked before the archive state so that a sender with no
		// access learns nothing about whether the channel is archived.
		ok, err := ms.channels.canAccessChannel(ctx, tx, ch, senderID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Forbidden("no access to this channel")
		}
		if ch.IsArchived {
			return apperror.ChannelArchived("archived channels accept no new messages")
		}
		return tx.AppendMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	ms.hub.Publish(msg)
	return msg, nil
}

// History returns up to limit messages older than beforeSeq (or the most
// recent page when beforeSeq is 0), newest first. Soft-deleted messages are
// returned redacted in place so the conversation keeps its shape.
func (ms *MessageService) History(ctx context.Context, channelID, userID uint, beforeSeq int64, limit int) ([]models.Message, error) {
	ok, err := ms.channels.CanAccess(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Forbidden("no access to this channel")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	messages, err := ms.store.ListMessagesBefore(ctx, channelID, beforeSeq, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, len(messages))
	for i := range messages {
		out[i] = messages[i].Redacted()
	}
	return out, nil
}

// Edit replaces the content of the sender's own message and stamps EditedAt.
func (ms *MessageService) Edit(ctx context.Context, messageID, userID uint, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.EmptyContent("message content is empty")
	}
	var out *models.Message
	err := ms.store.Tx(ctx, func(tx Store) error {
		msg, err := tx.GetMessage(ctx, messageID)
		if err != nil {
			return err
		}
		if msg == nil || msg.IsDeleted() {
			return apperror.NotFound("message not found")
		}
		if msg.SenderID != userID {
			return apperror.Forbidden("only the sender can edit a message")
		}
		now := time.Now()
		if err := tx.UpdateMessageContent(ctx, messageID, content, now); err != nil {
			return err
		}
		msg.Content = content
		msg.EditedAt = &now
		out = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete soft-deletes a message. The sender may delete their own; an admin
// with manage-channels may delete any message in the trip. The row is kept
// (redacted in reads) until the retention worker purges it.
func (ms *MessageService) Delete(ctx context.Context, messageID, userID uint) error {
	return ms.store.Tx(ctx, func(tx Store) error {
		msg, err := tx.GetMessage(ctx, messageID)
		if err != nil {
			return err
		}
		if msg == nil || msg.IsDeleted() {
			return apperror.NotFound("message not found")
		}
		if msg.SenderID != userID {
			ch, err := tx.GetChannel(ctx, msg.ChannelID)
			if err != nil {
				return err
			}
			if ch == nil {
				return apperror.NotFound("channel not found")
			}
			ok, err := ms.channels.admins.hasPermission(ctx, tx, ch.TripID, userID, models.PermManageChannels)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.Forbidden("only the sender or a channel admin can delete a message")
			}
		}
		ms.logger.Printf("message %d deleted by user %d", messageID, userID)
		return tx.SoftDeleteMessage(ctx, messageID)
	})
}
