package contextsync

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("transport closed")

/*
Transport moves messages between contexts. Publish must not wait for
subscribers to handle the message. Subscribe delivers every message published
after it returns, including the subscriber's own, in publish order.
*/
type Transport interface {
	Publish(ctx context.Context, msg Message) error
	Subscribe(ctx context.Context, fn func(Message)) (unsubscribe func(), err error)
}

/*
Hub is an in-process Transport. Each subscriber has its own queue and
goroutine, so a slow subscriber delays only itself.
*/
type Hub struct {
	mu     sync.RWMutex
	subs   map[*hubSub]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*hubSub]struct{})}
}

func (h *Hub) Publish(_ context.Context, msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	for s := range h.subs {
		s.push(msg)
	}
	return nil
}

func (h *Hub) Subscribe(_ context.Context, fn func(Message)) (func(), error) {
	s := &hubSub{
		fn:   fn,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go s.run()

	return func() {
		h.mu.Lock()
		delete(h.subs, s)
		h.mu.Unlock()
		s.close()
	}, nil
}

// Close detaches every subscriber. Later calls to Publish fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.close()
	}
	h.subs = nil
}

type hubSub struct {
	fn func(Message)

	mu    sync.Mutex
	queue []Message

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func (s *hubSub) push(msg Message) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *hubSub) close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *hubSub) run() {
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			batch := s.queue
			s.queue = nil
			s.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, msg := range batch {
				select {
				case <-s.stop:
					return
				default:
				}
				s.deliver(msg)
			}
		}
	}
}

func (s *hubSub) deliver(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"entry": msg.ID(),
				"panic": r,
			}).Error("[SYNC] hub subscriber panicked")
		}
	}()
	s.fn(msg)
}

var _ Transport = (*Hub)(nil)
