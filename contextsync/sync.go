package contextsync

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/darkomike/bloggie-sub001/api"
	"github.com/darkomike/bloggie-sub001/codec"
	"github.com/darkomike/bloggie-sub001/debug"
	"github.com/darkomike/bloggie-sub001/types"
)

const DefaultOutboxSize = 256

// Store is the part of a cache store Sync needs: change notifications and a
// way to adopt writes with an explicit origin.
type Store interface {
	OnChange(fn func(api.Change)) func()
	SetEntry(ctx context.Context, ent types.CacheEntry, origin debug.Origin)
	InvalidateFrom(ctx context.Context, namespace, key string, origin debug.Origin)
}

type Option func(*Sync)

// WithContextID overrides the generated sender ID.
func WithContextID(id string) Option {
	return func(s *Sync) { s.id = id }
}

// WithKeyFilter limits propagation, in both directions, to matching entries.
func WithKeyFilter(fn func(namespace, key string) bool) Option {
	return func(s *Sync) { s.filter = fn }
}

// WithOutboxSize bounds the number of unpublished local changes.
func WithOutboxSize(n int) Option {
	return func(s *Sync) {
		if n > 0 {
			s.outboxSize = n
		}
	}
}

/*
Sync connects one store to a Transport.

Local sets and invalidations are queued and published in order by a single
worker, so the writer never waits on the transport. Expiry is not published:
every context checks TTLs on its own reads. Messages from other contexts are
applied to the store with origin remote, which local listeners and the debug
bus observe like any other change. Messages carrying this context's own ID
are ignored.
*/
type Sync struct {
	store     Store
	transport Transport
	id        string
	filter    func(namespace, key string) bool

	outboxSize int
	outbox     chan Message
	done       chan struct{}

	mu            sync.Mutex
	ctx           context.Context
	started       bool
	closed        bool
	stopLocal     func()
	stopTransport func()
}

func New(store Store, transport Transport, opts ...Option) *Sync {
	s := &Sync{
		store:      store,
		transport:  transport,
		id:         uuid.NewString(),
		outboxSize: DefaultOutboxSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID is the sender ID stamped on published messages.
func (s *Sync) ID() string { return s.id }

// Start subscribes to the transport and to local changes.
func (s *Sync) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return nil
	}

	s.ctx = context.WithoutCancel(ctx)
	stop, err := s.transport.Subscribe(ctx, s.receive)
	if err != nil {
		return err
	}
	s.stopTransport = stop

	s.outbox = make(chan Message, s.outboxSize)
	s.done = make(chan struct{})
	go s.publisher()

	s.stopLocal = s.store.OnChange(s.observe)
	s.started = true

	logrus.WithField("context_id", s.id).Info("[SYNC] cross-context sync started")
	return nil
}

// Close stops both directions. Changes already queued are still published.
func (s *Sync) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	if !started {
		return
	}
	s.stopLocal()
	s.stopTransport()
	close(s.outbox)
	<-s.done
}

func (s *Sync) accepts(namespace, key string) bool {
	return s.filter == nil || s.filter(namespace, key)
}

func (s *Sync) observe(ch api.Change) {
	if ch.Origin != debug.OriginLocal || !s.accepts(ch.Namespace, ch.Key) {
		return
	}

	msg := Message{
		Namespace: ch.Namespace,
		Key:       ch.Key,
		Sender:    s.id,
	}
	switch ch.Action {
	case debug.ActionSet:
		if ch.Entry == nil {
			return
		}
		rec, err := codec.Encode(ch.Entry)
		if err != nil {
			logrus.WithError(err).WithField("entry", ch.ID()).Error("[SYNC] failed to encode entry")
			return
		}
		msg.Op, msg.Record = OpSet, rec
	case debug.ActionInvalidate:
		msg.Op = OpInvalidate
	default:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.outbox <- msg:
	default:
		logrus.WithField("entry", msg.ID()).Warn("[SYNC] outbox full, dropping change")
	}
}

func (s *Sync) publisher() {
	defer close(s.done)
	for msg := range s.outbox {
		if err := s.transport.Publish(s.ctx, msg); err != nil && !errors.Is(err, ErrClosed) {
			logrus.WithError(err).WithField("entry", msg.ID()).Error("[SYNC] failed to publish change")
		}
	}
}

func (s *Sync) receive(msg Message) {
	if msg.Sender == s.id || !s.accepts(msg.Namespace, msg.Key) {
		return
	}

	switch msg.Op {
	case OpSet:
		ent, err := codec.Decode(msg.Namespace, msg.Key, msg.Record)
		if err != nil {
			logrus.WithError(err).WithField("entry", msg.ID()).Warn("[SYNC] dropping undecodable remote entry")
			return
		}
		s.store.SetEntry(s.ctx, *ent, debug.OriginRemote)
	case OpInvalidate:
		s.store.InvalidateFrom(s.ctx, msg.Namespace, msg.Key, debug.OriginRemote)
	default:
		logrus.WithField("op", msg.Op).Warn("[SYNC] ignoring unknown operation")
	}
}
