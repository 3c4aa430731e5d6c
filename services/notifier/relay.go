package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const relayPrefix = "notify:"

type relayMessage struct {
	OwnerID   string          `json:"ownerId"`
	EventType string          `json:"eventType"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Relay carries publishes between server processes over Redis pub/sub. Each
// process runs one Relay and delivers to the subscribers it holds.
type Relay struct {
	client   redis.UniversalClient
	notifier *Notifier
	logger   *zap.Logger
}

func NewRelay(client redis.UniversalClient, n *Notifier, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{client: client, notifier: n, logger: logger}
}

// Publish sends the event to every process, this one included.
func (r *Relay) Publish(ctx context.Context, ownerID, eventType string, payload any) error {
	msg := relayMessage{OwnerID: ownerID, EventType: eventType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("relay: encode payload: %w", err)
		}
		msg.Payload = raw
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("relay: encode message: %w", err)
	}
	if err := r.client.Publish(ctx, relayPrefix+ownerID, data).Err(); err != nil {
		return fmt.Errorf("relay: publish: %w", err)
	}
	return nil
}

// Start subscribes and returns once the subscription is live; messages are
// then handled in the background until ctx is done.
func (r *Relay) Start(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, relayPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("relay: subscribe: %w", err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				r.handle(ctx, m)
			}
		}
	}()
	return nil
}

func (r *Relay) handle(ctx context.Context, m *redis.Message) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
		r.logger.Warn("relay: bad message", zap.String("channel", m.Channel), zap.Error(err))
		return
	}
	if msg.OwnerID == "" {
		msg.OwnerID = strings.TrimPrefix(m.Channel, relayPrefix)
	}
	var payload any
	if len(msg.Payload) > 0 {
		payload = msg.Payload
	}
	r.notifier.deliver(ctx, msg.OwnerID, msg.EventType, payload)
}
