package debug

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type listener struct {
	fn     func(Event)
	active atomic.Bool
}

/*
Bus is a synchronous, best-effort fan-out of cache events. Emit calls every
listener on the caller's goroutine in subscription order; with no listener
attached it returns after a single atomic load. A listener that panics is
logged and skipped.

One Bus is created per process and injected wherever events are produced or
observed.
*/
type Bus struct {
	mu        sync.RWMutex
	listeners []*listener
	count     atomic.Int32

	// Now stamps event times. Defaults to time.Now.
	Now func() time.Time
}

func NewBus() *Bus {
	return &Bus{Now: time.Now}
}

// Emit delivers ev to the current listeners. A nil Bus drops everything.
func (b *Bus) Emit(ev Event) {
	if b == nil || b.count.Load() == 0 {
		return
	}
	if ev.Origin == "" {
		ev.Origin = OriginLocal
	}
	if b.Now != nil {
		ev.Time = b.Now()
	} else {
		ev.Time = time.Now()
	}

	b.mu.RLock()
	snapshot := b.listeners
	b.mu.RUnlock()

	for _, l := range snapshot {
		if !l.active.Load() {
			continue
		}
		deliver(l, ev)
	}
}

func deliver(l *listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"entry":  ev.ID(),
				"action": ev.Action,
				"panic":  r,
			}).Error("[DEBUG] event listener panicked")
		}
	}()
	l.fn(ev)
}

// Subscribe registers fn and returns a function that removes it. The returned
// function may be called any number of times.
func (b *Bus) Subscribe(fn func(Event)) func() {
	l := &listener{fn: fn}
	l.active.Store(true)

	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.count.Add(1)
	b.mu.Unlock()

	return func() {
		if !l.active.CompareAndSwap(true, false) {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		next := make([]*listener, 0, len(b.listeners))
		for _, other := range b.listeners {
			if other != l {
				next = append(next, other)
			}
		}
		b.listeners = next
		b.count.Add(-1)
	}
}

// Listeners returns the number of attached listeners.
func (b *Bus) Listeners() int {
	if b == nil {
		return 0
	}
	return int(b.count.Load())
}
