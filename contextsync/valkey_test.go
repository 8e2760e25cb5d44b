package contextsync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cache "github.com/darkomike/bloggie-sub001"
	"github.com/darkomike/bloggie-sub001/api"
	"github.com/darkomike/bloggie-sub001/debug"
	"github.com/darkomike/bloggie-sub001/storage"
)

//
// ================= IN-MEMORY BROKER =================
//

// fakeBroker behaves like a valkey server for one process: a subscription is
// live once confirmed, and dropConnections ends every Receive with an error.
type fakeBroker struct {
	mu        sync.Mutex
	subs      map[*fakeSub]struct{}
	receives  int
	published []string

	// confirmGate, when set, holds every confirmation until it is closed.
	confirmGate chan struct{}
}

type fakeSub struct {
	channel string
	fn      func(string)
	dropped chan struct{}
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subs: make(map[*fakeSub]struct{})}
}

func (b *fakeBroker) transport(channel string) *ValkeyTransport {
	t := newValkeyTransport(fakeClient{b: b}, channel)
	t.SubscribeTimeout = time.Second
	t.RetryBackoff = time.Millisecond
	t.MaxRetryBackoff = 5 * time.Millisecond
	return t
}

func (b *fakeBroker) dropConnections() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		close(s.dropped)
		delete(b.subs, s)
	}
}

func (b *fakeBroker) stats() (subscribers, receives int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs), b.receives
}

type fakeClient struct {
	b *fakeBroker
}

func (c fakeClient) Publish(_ context.Context, channel, payload string) error {
	c.b.mu.Lock()
	c.b.published = append(c.b.published, payload)
	var targets []*fakeSub
	for s := range c.b.subs {
		if s.channel == channel {
			targets = append(targets, s)
		}
	}
	c.b.mu.Unlock()

	for _, s := range targets {
		s.fn(payload)
	}
	return nil
}

func (c fakeClient) Receive(ctx context.Context, channel string, onSubscribed func(), fn func(string)) error {
	s := &fakeSub{channel: channel, fn: fn, dropped: make(chan struct{})}

	c.b.mu.Lock()
	c.b.subs[s] = struct{}{}
	c.b.receives++
	gate := c.b.confirmGate
	c.b.mu.Unlock()

	defer func() {
		c.b.mu.Lock()
		delete(c.b.subs, s)
		c.b.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	onSubscribed()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.dropped:
		return errors.New("connection reset by peer")
	}
}

func (c fakeClient) Close() {}

type inbox struct {
	mu   sync.Mutex
	msgs []Message
}

func (in *inbox) add(msg Message) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.msgs = append(in.msgs, msg)
}

func (in *inbox) snapshot() []Message {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]Message(nil), in.msgs...)
}

//
// ================= TRANSPORT =================
//

func TestValkeyMessageRoundTrip(t *testing.T) {
	ctx := context.Background()
	broker := newFakeBroker()
	pub := broker.transport("")
	sub := broker.transport("")

	got := &inbox{}
	unsubscribe, err := sub.Subscribe(ctx, got.add)
	require.NoError(t, err)
	defer unsubscribe()

	sent := Message{
		Op:        OpSet,
		Namespace: "auth",
		Key:       "currentUser",
		Record:    json.RawMessage(`{"value":{"id":"u1"},"writtenAt":1000,"ttlMs":60000}`),
		Sender:    "ctx-a",
	}
	require.NoError(t, pub.Publish(ctx, sent))

	msgs := got.snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, sent.Op, msgs[0].Op)
	assert.Equal(t, sent.ID(), msgs[0].ID())
	assert.Equal(t, sent.Sender, msgs[0].Sender)
	assert.JSONEq(t, string(sent.Record), string(msgs[0].Record))

	require.Len(t, broker.published, 1)
	assert.JSONEq(t, `{
		"op": "set",
		"namespace": "auth",
		"key": "currentUser",
		"record": {"value":{"id":"u1"},"writtenAt":1000,"ttlMs":60000},
		"sender_id": "ctx-a"
	}`, broker.published[0])
}

func TestValkeySubscribeWaitsForConfirmation(t *testing.T) {
	broker := newFakeBroker()
	broker.confirmGate = make(chan struct{})
	tr := broker.transport("")

	returned := make(chan struct{})
	go func() {
		defer close(returned)
		unsubscribe, err := tr.Subscribe(context.Background(), func(Message) {})
		assert.NoError(t, err)
		if unsubscribe != nil {
			unsubscribe()
		}
	}()

	assert.Never(t, func() bool {
		select {
		case <-returned:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond)

	close(broker.confirmGate)
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not return after confirmation")
	}
}

func TestValkeySubscribeTimesOut(t *testing.T) {
	broker := newFakeBroker()
	broker.confirmGate = make(chan struct{})
	defer close(broker.confirmGate)

	tr := broker.transport("")
	tr.SubscribeTimeout = 20 * time.Millisecond

	_, err := tr.Subscribe(context.Background(), func(Message) {})
	require.ErrorIs(t, err, ErrSubscribeTimeout)

	require.Eventually(t, func() bool {
		subscribers, _ := broker.stats()
		return subscribers == 0
	}, time.Second, 5*time.Millisecond)
}

func TestValkeyResubscribesAfterDroppedConnection(t *testing.T) {
	ctx := context.Background()
	broker := newFakeBroker()
	tr := broker.transport("")

	got := &inbox{}
	unsubscribe, err := tr.Subscribe(ctx, got.add)
	require.NoError(t, err)
	defer unsubscribe()

	broker.dropConnections()

	require.Eventually(t, func() bool {
		subscribers, receives := broker.stats()
		return subscribers == 1 && receives == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, tr.Publish(ctx, Message{Op: OpInvalidate, Namespace: "auth", Key: "currentUser"}))
	require.Len(t, got.snapshot(), 1)

	unsubscribe()
	require.Eventually(t, func() bool {
		subscribers, _ := broker.stats()
		return subscribers == 0
	}, time.Second, 5*time.Millisecond)
}

func TestValkeySkipsUndecodablePayload(t *testing.T) {
	ctx := context.Background()
	broker := newFakeBroker()
	tr := broker.transport("")

	got := &inbox{}
	unsubscribe, err := tr.Subscribe(ctx, got.add)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, fakeClient{b: broker}.Publish(ctx, DefaultChannel, "not json"))
	require.NoError(t, tr.Publish(ctx, Message{Op: OpInvalidate, Namespace: "auth", Key: "currentUser"}))

	msgs := got.snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, OpInvalidate, msgs[0].Op)
}

//
// ================= SYNC OVER VALKEY =================
//

func TestSyncOverValkeyIgnoresOwnEcho(t *testing.T) {
	ctx := context.Background()
	broker := newFakeBroker()

	type side struct {
		store   *cache.CacheStore
		changes func() []api.Change
	}
	start := func() side {
		store, err := cache.New(cache.Options{Store: storage.NewMemStore()})
		require.NoError(t, err)
		t.Cleanup(store.Close)

		var mu sync.Mutex
		var changes []api.Change
		store.OnChange(func(ch api.Change) {
			mu.Lock()
			changes = append(changes, ch)
			mu.Unlock()
		})

		s := New(store, broker.transport(""))
		require.NoError(t, s.Start(ctx))
		t.Cleanup(s.Close)

		return side{store: store, changes: func() []api.Change {
			mu.Lock()
			defer mu.Unlock()
			return append([]api.Change(nil), changes...)
		}}
	}
	a, b := start(), start()

	a.store.Set(ctx, "auth", "currentUser", json.RawMessage(`{"id":"u2"}`), time.Hour)

	require.Eventually(t, func() bool { return len(b.changes()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, debug.OriginRemote, b.changes()[0].Origin)
	v, ok := b.store.Get(ctx, "auth", "currentUser")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"u2"}`, string(v))

	assert.Never(t, func() bool { return len(a.changes()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}
