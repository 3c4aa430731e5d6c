package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingState struct {
	calls atomic.Int32
}

func (c *countingState) Snapshot(_ context.Context, ownerID string) (any, error) {
	n := c.calls.Add(1)
	return map[string]any{"owner": ownerID, "version": n}, nil
}

func next(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSubscribe_SendsSnapshotFirst(t *testing.T) {
	n := New(&countingState{}, nil)

	sub, err := n.Subscribe(context.Background(), "op-1")
	require.NoError(t, err)
	defer n.Unsubscribe(sub)

	ev := next(t, sub)
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, "op-1", ev.State.(map[string]any)["owner"])
	assert.Equal(t, 1, n.SubscriberCount("op-1"))
}

func TestSubscribe_StateErrorFails(t *testing.T) {
	n := New(StateFunc(func(context.Context, string) (any, error) {
		return nil, errors.New("db down")
	}), nil)

	_, err := n.Subscribe(context.Background(), "op-1")
	assert.Error(t, err)
	assert.Equal(t, 0, n.SubscriberCount("op-1"))
}

func TestSubscribe_PublishDuringSnapshotIsDelivered(t *testing.T) {
	var (
		n        *Notifier
		calls    atomic.Int32
		version  atomic.Int32
		finished = make(chan struct{})
	)
	version.Store(1)
	n = New(StateFunc(func(ctx context.Context, ownerID string) (any, error) {
		if calls.Add(1) == 1 {
			seen := version.Load()
			// A booking commits and publishes while this snapshot is in flight.
			version.Store(2)
			go func() {
				defer close(finished)
				_ = n.Publish(context.Background(), ownerID, EventBookingCreated, nil)
			}()
			time.Sleep(20 * time.Millisecond)
			return seen, nil
		}
		return version.Load(), nil
	}), nil)

	sub, err := n.Subscribe(context.Background(), "op-1")
	require.NoError(t, err)
	defer n.Unsubscribe(sub)

	first := next(t, sub)
	assert.Equal(t, EventSnapshot, first.Type)
	assert.Equal(t, int32(1), first.State)

	second := next(t, sub)
	assert.Equal(t, EventBookingCreated, second.Type)
	assert.Equal(t, int32(2), second.State, "subscriber converges on the committed state")
	<-finished
}

func TestPublish_FansOutFreshState(t *testing.T) {
	state := &countingState{}
	n := New(state, nil)
	ctx := context.Background()

	a, err := n.Subscribe(ctx, "op-1")
	require.NoError(t, err)
	b, err := n.Subscribe(ctx, "op-1")
	require.NoError(t, err)
	other, err := n.Subscribe(ctx, "op-2")
	require.NoError(t, err)
	next(t, a)
	next(t, b)
	next(t, other)

	require.NoError(t, n.Publish(ctx, "op-1", EventBookingCreated, map[string]string{"bookingId": "bk-1"}))

	evA := next(t, a)
	evB := next(t, b)
	assert.Equal(t, EventBookingCreated, evA.Type)
	assert.Equal(t, evA.State, evB.State, "state fetched once per publish")
	assert.Equal(t, int32(4), state.calls.Load())

	select {
	case ev := <-other.Events():
		t.Fatalf("op-2 received %q", ev.Type)
	default:
	}
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	state := &countingState{}
	n := New(state, nil)

	done := make(chan error, 1)
	go func() { done <- n.Publish(context.Background(), "nobody", EventBookingCreated, nil) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
	assert.Equal(t, int32(0), state.calls.Load())
}

func TestPublish_PrunesStalledSubscriber(t *testing.T) {
	n := New(&countingState{}, nil)
	n.buffer = 1
	ctx := context.Background()

	sub, err := n.Subscribe(ctx, "op-1")
	require.NoError(t, err)
	// The snapshot fills the only buffer slot and is never read.

	require.NoError(t, n.Publish(ctx, "op-1", EventBookingCreated, nil))
	assert.Equal(t, 0, n.SubscriberCount("op-1"))

	ev, ok := <-sub.Events()
	assert.True(t, ok)
	assert.Equal(t, EventSnapshot, ev.Type)
	_, ok = <-sub.Events()
	assert.False(t, ok, "channel closed after prune")
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	n := New(&countingState{}, nil)

	sub, err := n.Subscribe(context.Background(), "op-1")
	require.NoError(t, err)
	n.Unsubscribe(sub)
	n.Unsubscribe(sub)
	n.Unsubscribe(nil)
	assert.Equal(t, 0, n.SubscriberCount("op-1"))
}

func TestClose(t *testing.T) {
	n := New(&countingState{}, nil)
	sub, err := n.Subscribe(context.Background(), "op-1")
	require.NoError(t, err)

	n.Close()
	next(t, sub)
	_, ok := <-sub.Events()
	assert.False(t, ok)

	_, err = n.Subscribe(context.Background(), "op-1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWriteEvent_Framing(t *testing.T) {
	var buf bytes.Buffer
	ts := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	err := WriteEvent(&buf, Event{Type: EventBookingCreated, State: map[string]int{"seats": 2}, Timestamp: ts})
	require.NoError(t, err)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "event: booking_created\ndata: "))
	require.True(t, strings.HasSuffix(out, "\n\n"))

	data := strings.TrimSuffix(strings.TrimPrefix(out, "event: booking_created\ndata: "), "\n\n")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, "booking_created", decoded["eventType"])
	assert.Equal(t, "2025-01-10T08:00:00Z", decoded["timestamp"])

	buf.Reset()
	require.NoError(t, WriteHeartbeat(&buf))
	assert.Equal(t, ": heartbeat\n\n", buf.String())
}

func TestRelay_DeliversAcrossNotifiers(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newNode := func() *Notifier {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		n := New(&countingState{}, nil)
		r := NewRelay(client, n, nil)
		require.NoError(t, r.Start(ctx))
		n.UseRelay(r)
		return n
	}
	publisher := newNode()
	holder := newNode()

	sub, err := holder.Subscribe(ctx, "op-1")
	require.NoError(t, err)
	next(t, sub)

	require.NoError(t, publisher.Publish(ctx, "op-1", EventBookingCancelled, map[string]string{"bookingId": "bk-9"}))

	ev := next(t, sub)
	assert.Equal(t, EventBookingCancelled, ev.Type)
	assert.JSONEq(t, `{"bookingId":"bk-9"}`, string(ev.Payload.(json.RawMessage)))
}
