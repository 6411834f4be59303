package chat

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"tripchat/apperror"
)

// Poller adapts poll-and-diff to the Subscription contract for transports
// without push. Each tick it re-checks access (a revoked role ends the
// stream with the same AccessRevoked terminal event push delivery uses),
// then delivers everything appended since its cursor, in order.
type Poller struct {
	store    Store
	access   AccessChecker
	interval time.Duration
	logger   *log.Logger
}

func NewPoller(store Store, access AccessChecker, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Poller{store: store, access: access, interval: interval, logger: logger}
}

// Subscribe starts polling the channel from the current end of its log.
// Fails with Forbidden if the user lacks access at start.
func (p *Poller) Subscribe(ctx context.Context, channelID, userID uint) (*Subscription, error) {
	ok, err := p.access.CanAccess(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Forbidden("no access to this channel")
	}
	ch, err := p.store.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, apperror.NotFound("channel not found")
	}

	pollCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ID:        uuid.New(),
		ChannelID: channelID,
		UserID:    userID,
		events:    make(chan Event, 16),
		detach:    cancel,
	}
	go p.run(pollCtx, sub, ch.LastSeq)
	return sub, nil
}

func (p *Poller) run(ctx context.Context, sub *Subscription, cursor int64) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			sub.once.Do(func() { close(sub.events) })
			return
		case <-ticker.C:
			ok, err := p.access.CanAccess(ctx, sub.ChannelID, sub.UserID)
			if err != nil {
				p.logger.Printf("poll access check on channel %d failed: %v", sub.ChannelID, err)
				continue
			}
			if !ok {
				sub.once.Do(func() {
					select {
					case sub.events <- Event{Type: EventAccessRevoked}:
					default:
					}
					close(sub.events)
				})
				return
			}
			messages, err := p.store.ListMessagesAfter(ctx, sub.ChannelID, cursor, MaxHistoryLimit)
			if err != nil {
				p.logger.Printf("poll on channel %d failed: %v", sub.ChannelID, err)
				continue
			}
			for i := range messages {
				msg := messages[i].Redacted()
				select {
				case sub.events <- Event{Type: EventMessage, Message: &msg}:
					cursor = msg.Seq
				case <-ctx.Done():
					sub.once.Do(func() { close(sub.events) })
					return
				}
			}
		}
	}
}
