package contextsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valkey-io/valkey-go"
)

const (
	DefaultChannel = "bloggie:cache:sync"

	// DefaultConnectTimeout bounds the ping done by DialValkey and the wait
	// for the server to confirm a subscription.
	DefaultConnectTimeout = 5 * time.Second

	defaultRetryBackoff    = 100 * time.Millisecond
	defaultMaxRetryBackoff = 10 * time.Second
)

var ErrSubscribeTimeout = errors.New("subscription not confirmed")

// pubsub is the part of a valkey client the transport needs.
type pubsub interface {
	Publish(ctx context.Context, channel, payload string) error

	// Receive subscribes to channel and blocks until the subscription ends.
	// onSubscribed runs each time the server confirms the subscription.
	Receive(ctx context.Context, channel string, onSubscribed func(), fn func(payload string)) error

	Close()
}

type valkeyPubSub struct {
	client valkey.Client
}

func (p valkeyPubSub) Publish(ctx context.Context, channel, payload string) error {
	return p.client.Do(ctx, p.client.B().Publish().Channel(channel).Message(payload).Build()).Error()
}

func (p valkeyPubSub) Receive(ctx context.Context, channel string, onSubscribed func(), fn func(string)) error {
	ctx = valkey.WithOnSubscriptionHook(ctx, func(s valkey.PubSubSubscription) {
		if s.Kind == "subscribe" && s.Channel == channel {
			onSubscribed()
		}
	})
	return p.client.Receive(ctx, p.client.B().Subscribe().Channel(channel).Build(), func(m valkey.PubSubMessage) {
		fn(m.Message)
	})
}

func (p valkeyPubSub) Close() { p.client.Close() }

/*
ValkeyTransport relays messages through a valkey pub/sub channel, so
contexts in different processes can share writes.

Subscribe returns once the server has confirmed the subscription. A
subscription lost to a dropped connection is re-established with
exponential backoff until the subscriber is cancelled.
*/
type ValkeyTransport struct {
	ps      pubsub
	channel string
	owned   bool

	SubscribeTimeout time.Duration
	RetryBackoff     time.Duration
	MaxRetryBackoff  time.Duration
}

// NewValkeyTransport uses an existing client. Close leaves the client open.
func NewValkeyTransport(client valkey.Client, channel string) *ValkeyTransport {
	return newValkeyTransport(valkeyPubSub{client: client}, channel)
}

func newValkeyTransport(ps pubsub, channel string) *ValkeyTransport {
	if channel == "" {
		channel = DefaultChannel
	}
	return &ValkeyTransport{
		ps:               ps,
		channel:          channel,
		SubscribeTimeout: DefaultConnectTimeout,
		RetryBackoff:     defaultRetryBackoff,
		MaxRetryBackoff:  defaultMaxRetryBackoff,
	}
}

/*
DialValkey connects to addr and checks the connection with a ping. The
returned transport owns the client and closes it on Close.
*/
func DialValkey(ctx context.Context, addr, password, channel string) (*ValkeyTransport, error) {
	opts := valkey.ClientOption{InitAddress: []string{addr}}
	if password != "" {
		opts.Password = password
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey at %s: %w", addr, err)
	}

	t := NewValkeyTransport(client, channel)
	t.owned = true
	return t, nil
}

func (t *ValkeyTransport) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode sync message: %w", err)
	}
	if err := t.ps.Publish(ctx, t.channel, string(data)); err != nil {
		return fmt.Errorf("publish to %s: %w", t.channel, err)
	}
	return nil
}

/*
Subscribe starts the receiver and waits until the server confirms the
subscription, so nothing published after it returns is missed. Undecodable
payloads are logged and skipped. The receiver stops when ctx is cancelled or
the returned function is called.
*/
func (t *ValkeyTransport) Subscribe(ctx context.Context, fn func(Message)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	ready := make(chan struct{})
	var once sync.Once
	confirm := func() { once.Do(func() { close(ready) }) }

	logrus.WithField("channel", t.channel).Info("[SYNC] starting valkey subscriber")
	go t.receive(ctx, confirm, fn)

	timer := time.NewTimer(t.SubscribeTimeout)
	defer timer.Stop()

	select {
	case <-ready:
		return cancel, nil
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case <-timer.C:
		cancel()
		return nil, fmt.Errorf("subscribe to %s: %w", t.channel, ErrSubscribeTimeout)
	}
}

// receive keeps the subscription alive until ctx is done.
func (t *ValkeyTransport) receive(ctx context.Context, confirm func(), fn func(Message)) {
	backoff := t.RetryBackoff
	for {
		var subscribed bool
		var mu sync.Mutex
		err := t.ps.Receive(ctx, t.channel, func() {
			mu.Lock()
			subscribed = true
			mu.Unlock()
			confirm()
		}, func(payload string) {
			t.dispatch(payload, fn)
		})
		if ctx.Err() != nil {
			return
		}

		mu.Lock()
		if subscribed {
			backoff = t.RetryBackoff
		}
		mu.Unlock()

		logrus.WithError(err).WithFields(logrus.Fields{
			"channel":  t.channel,
			"retry_in": backoff,
		}).Warn("[SYNC] valkey subscription lost, resubscribing")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, t.MaxRetryBackoff)
	}
}

func (t *ValkeyTransport) dispatch(payload string, fn func(Message)) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		logrus.WithError(err).Warn("[SYNC] dropping undecodable valkey message")
		return
	}
	fn(msg)
}

func (t *ValkeyTransport) Close() {
	if t.owned {
		t.ps.Close()
	}
}

var _ Transport = (*ValkeyTransport)(nil)
