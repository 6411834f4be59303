package chat

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tripchat/apperror"
	"tripchat/models"
)

// EventType discriminates what a subscription stream carries.
type EventType string

const (
	// EventMessage delivers a newly appended message.
	EventMessage EventType = "message"
	// EventAccessRevoked is terminal: the subscriber's access check failed
	// after subscribing (role revoked, role deleted, channel archived).
	EventAccessRevoked EventType = "access_revoked"
	// EventDropped is terminal: the subscriber fell too far behind and was
	// disconnected. The client must resubscribe and catch up via history.
	EventDropped EventType = "dropped"
)

// Event is one item on a subscription stream. Message is set for
// EventMessage only; the other two types close the stream.
type Event struct {
	Type    EventType       `json:"type"`
	Message *models.Message `json:"message,omitempty"`
}

// AccessChecker re-derives channel access from current role state. The
// channel registry is the production implementation.
type AccessChecker interface {
	CanAccess(ctx context.Context, channelID, userID uint) (bool, error)
}

// StreamSource hands out live subscriptions. Hub pushes in-process; Poller
// reads the store, which also sees appends from other server replicas.
type StreamSource interface {
	Subscribe(ctx context.Context, channelID, userID uint) (*Subscription, error)
}

// Subscription is a live push stream of one channel's appended messages, in
// append order, exactly once each, until a terminal event or Cancel.
type Subscription struct {
	ID        uuid.UUID
	ChannelID uint
	UserID    uint

	events chan Event
	once   sync.Once
	detach func()
}

// Events is the receive side of the stream. It is closed after a terminal
// event, or silently on Cancel.
func (s *Subscription) Events() <-chan Event { return s.events }

// Cancel detaches the subscription and releases its buffer. Safe to call
// more than once and safe to race with a server-side close. The owning
// transport (hub or poller) closes the events channel; it is never closed
// while a delivery is in flight.
func (s *Subscription) Cancel() {
	s.detach()
}

// Hub fans appended messages out to live subscribers. Each subscriber owns a
// bounded buffer; one that cannot keep up is disconnected rather than
// buffered without limit (backpressure-disconnect). The hub never blocks a
// publisher.
type Hub struct {
	mu       sync.Mutex
	channels map[uint]map[uuid.UUID]*Subscription

	access AccessChecker
	buffer int
	logger *log.Logger
}

func NewHub(access AccessChecker, buffer int, logger *log.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		channels: make(map[uint]map[uuid.UUID]*Subscription),
		access:   access,
		buffer:   buffer,
		logger:   logger,
	}
}

// Subscribe attaches a push stream to the channel. Fails with Forbidden if
// the user cannot access the channel right now.
func (h *Hub) Subscribe(ctx context.Context, channelID, userID uint) (*Subscription, error) {
	ok, err := h.access.CanAccess(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Forbidden("no access to this channel")
	}
	sub := &Subscription{
		ID:        uuid.New(),
		ChannelID: channelID,
		UserID:    userID,
		events:    make(chan Event, h.buffer),
	}
	sub.detach = func() { h.drop(sub) }
	h.mu.Lock()
	subs, ok2 := h.channels[channelID]
	if !ok2 {
		subs = make(map[uuid.UUID]*Subscription)
		h.channels[channelID] = subs
	}
	subs[sub.ID] = sub
	h.mu.Unlock()
	return sub, nil
}

// Publish delivers an appended message to every live subscriber of its
// channel. The caller has already committed the append; delivery failures
// are never reported back to the sender.
func (h *Hub) Publish(msg *models.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.channels[msg.ChannelID] {
		select {
		case sub.events <- Event{Type: EventMessage, Message: msg}:
		default:
			h.logger.Printf("subscriber %s on channel %d too slow, disconnecting", sub.ID, msg.ChannelID)
			h.closeLocked(sub, EventDropped)
		}
	}
}

// ChannelChanged re-checks every subscriber of the channel and revokes the
// ones whose access is gone. Called after archive or role-set changes commit.
func (h *Hub) ChannelChanged(channelID uint) {
	go h.recheckChannel(channelID)
}

// UserChanged re-checks every subscription the user holds, on any channel.
// Called after a role revocation commits.
func (h *Hub) UserChanged(userID uint) {
	go h.recheckUser(userID)
}

// Run periodically re-checks every live subscription as a safety net, in
// case a revocation path missed its notification. Blocks until ctx ends.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) recheckChannel(channelID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.channels[channelID] {
		h.recheckLocked(ctx, sub)
	}
}

func (h *Hub) recheckUser(userID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.channels {
		for _, sub := range subs {
			if sub.UserID == userID {
				h.recheckLocked(ctx, sub)
			}
		}
	}
}

func (h *Hub) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.channels {
		for _, sub := range subs {
			h.recheckLocked(ctx, sub)
		}
	}
}

func (h *Hub) recheckLocked(ctx context.Context, sub *Subscription) {
	ok, err := h.access.CanAccess(ctx, sub.ChannelID, sub.UserID)
	if err != nil {
		h.logger.Printf("access recheck for subscriber %s failed: %v", sub.ID, err)
		return
	}
	if !ok {
		h.logger.Printf("access revoked for user %d on channel %d, closing subscription %s", sub.UserID, sub.ChannelID, sub.ID)
		h.closeLocked(sub, EventAccessRevoked)
	}
}

// closeLocked delivers the terminal event best-effort and closes the stream.
// Must be called with h.mu held.
func (h *Hub) closeLocked(sub *Subscription, reason EventType) {
	if subs, ok := h.channels[sub.ChannelID]; ok {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.channels, sub.ChannelID)
		}
	}
	sub.once.Do(func() {
		select {
		case sub.events <- Event{Type: reason}:
		default:
		}
		close(sub.events)
	})
}

// drop removes and closes a subscription without a terminal event (the
// caller side asked for it). Holding h.mu here guarantees no Publish is
// mid-send on the events channel when it closes.
func (h *Hub) drop(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.channels[sub.ChannelID]; ok {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.channels, sub.ChannelID)
		}
	}
	sub.once.Do(func() { close(sub.events) })
}
