package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventSnapshot         = "snapshot"
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"

	defaultBuffer = 16
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("notifier closed")

// StateProvider loads the authoritative state of an owner. It is called for
// every snapshot and every publish, never cached here.
type StateProvider interface {
	Snapshot(ctx context.Context, ownerID string) (any, error)
}

// StateFunc adapts a function to StateProvider.
type StateFunc func(ctx context.Context, ownerID string) (any, error)

func (f StateFunc) Snapshot(ctx context.Context, ownerID string) (any, error) {
	return f(ctx, ownerID)
}

// Event is one message on a subscription.
type Event struct {
	Type      string    `json:"eventType"`
	State     any       `json:"state"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscription is one open push channel. Its lifetime is the connection's.
type Subscription struct {
	ID      string
	OwnerID string

	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// Events yields pushed events; it is closed when the subscription is dropped.
func (s *Subscription) Events() <-chan Event { return s.ch }

// offer hands ev to the subscriber without blocking. It returns false when the
// buffer is full or the subscription is already closed.
func (s *Subscription) offer(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Publisher is what the booking coordinator needs from the notifier.
type Publisher interface {
	Publish(ctx context.Context, ownerID, eventType string, payload any) error
}

// Notifier keeps the open channels per owner and rebroadcasts fresh state.
type Notifier struct {
	state  StateProvider
	logger *zap.Logger
	buffer int
	now    func() time.Time

	mu     sync.RWMutex
	subs   map[string]map[string]*Subscription
	relay  *Relay
	closed bool
}

func New(state StateProvider, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		state:  state,
		logger: logger,
		buffer: defaultBuffer,
		now:    time.Now,
		subs:   make(map[string]map[string]*Subscription),
	}
}

// UseRelay routes publishes through Redis so every process holding a
// subscriber for the owner delivers the event.
func (n *Notifier) UseRelay(r *Relay) {
	n.mu.Lock()
	n.relay = r
	n.mu.Unlock()
}

// Subscribe opens a channel for ownerID. The first event is always a full
// snapshot, so a subscriber never depends on events it missed.
//
// The subscription is registered before the snapshot is loaded and stays
// locked until the snapshot is queued. A publish racing with Subscribe either
// committed before the snapshot was read, or waits and is delivered after it.
func (n *Notifier) Subscribe(ctx context.Context, ownerID string) (*Subscription, error) {
	sub := &Subscription{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		ch:      make(chan Event, n.buffer),
	}

	sub.mu.Lock()
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		sub.mu.Unlock()
		return nil, ErrClosed
	}
	if n.subs[ownerID] == nil {
		n.subs[ownerID] = make(map[string]*Subscription)
	}
	n.subs[ownerID][sub.ID] = sub
	n.mu.Unlock()

	state, err := n.state.Snapshot(ctx, ownerID)
	if err == nil && !sub.closed {
		sub.ch <- Event{Type: EventSnapshot, State: state, Timestamp: n.now()}
	}
	sub.mu.Unlock()

	if err != nil {
		n.Unsubscribe(sub)
		return nil, fmt.Errorf("subscribe: load snapshot: %w", err)
	}

	n.logger.Debug("subscriber added", zap.String("ownerId", ownerID), zap.String("subscription", sub.ID))
	return sub, nil
}

// Unsubscribe drops the subscription and closes its channel. Safe to repeat.
func (n *Notifier) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	n.mu.Lock()
	if owned := n.subs[sub.OwnerID]; owned != nil {
		delete(owned, sub.ID)
		if len(owned) == 0 {
			delete(n.subs, sub.OwnerID)
		}
	}
	n.mu.Unlock()
	sub.close()
}

// Publish pushes fresh state to every channel of ownerID. With no open
// channels it does nothing; the next subscriber gets a snapshot anyway.
func (n *Notifier) Publish(ctx context.Context, ownerID, eventType string, payload any) error {
	n.mu.RLock()
	relay := n.relay
	n.mu.RUnlock()

	if relay != nil {
		return relay.Publish(ctx, ownerID, eventType, payload)
	}
	n.deliver(ctx, ownerID, eventType, payload)
	return nil
}

// deliver fans an event out to the subscribers held by this process.
func (n *Notifier) deliver(ctx context.Context, ownerID, eventType string, payload any) int {
	subs := n.subscribers(ownerID)
	if len(subs) == 0 {
		return 0
	}

	state, err := n.state.Snapshot(ctx, ownerID)
	if err != nil {
		n.logger.Warn("notification dropped: state unavailable",
			zap.String("ownerId", ownerID),
			zap.String("event", eventType),
			zap.Error(err),
		)
		return 0
	}

	ev := Event{Type: eventType, State: state, Payload: payload, Timestamp: n.now()}
	delivered := 0
	for _, sub := range subs {
		if sub.offer(ev) {
			delivered++
			continue
		}
		// A subscriber that cannot keep up is treated as gone.
		n.logger.Warn("notification dropped: pruning subscriber",
			zap.String("ownerId", ownerID),
			zap.String("subscription", sub.ID),
			zap.String("event", eventType),
		)
		n.Unsubscribe(sub)
	}
	return delivered
}

func (n *Notifier) subscribers(ownerID string) []*Subscription {
	n.mu.RLock()
	defer n.mu.RUnlock()
	owned := n.subs[ownerID]
	out := make([]*Subscription, 0, len(owned))
	for _, s := range owned {
		out = append(out, s)
	}
	return out
}

// SubscriberCount returns the number of open channels for ownerID.
func (n *Notifier) SubscriberCount(ownerID string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[ownerID])
}

// Close drops every subscription; used on shutdown.
func (n *Notifier) Close() {
	n.mu.Lock()
	all := n.subs
	n.subs = make(map[string]map[string]*Subscription)
	n.closed = true
	n.mu.Unlock()

	for _, owned := range all {
		for _, sub := range owned {
			sub.close()
		}
	}
}
