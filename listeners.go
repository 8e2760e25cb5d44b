package cache

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/darkomike/bloggie-sub001/api"
)

type changeListener struct {
	fn     func(api.Change)
	active atomic.Bool
}

// listeners is an ordered registry of change callbacks. Callbacks run
// synchronously in registration order; a panicking callback is logged and the
// rest still run.
type listeners struct {
	mu   sync.RWMutex
	list []*changeListener
}

func (l *listeners) add(fn func(api.Change)) func() {
	cl := &changeListener{fn: fn}
	cl.active.Store(true)

	l.mu.Lock()
	l.list = append(l.list, cl)
	l.mu.Unlock()

	return func() {
		if !cl.active.CompareAndSwap(true, false) {
			return
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, other := range l.list {
			if other == cl {
				l.list = append(l.list[:i:i], l.list[i+1:]...)
				break
			}
		}
	}
}

func (l *listeners) notify(ch api.Change) {
	l.mu.RLock()
	snapshot := l.list
	l.mu.RUnlock()

	for _, cl := range snapshot {
		if cl.active.Load() {
			call(cl.fn, ch)
		}
	}
}

func call(fn func(api.Change), ch api.Change) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"entry":  ch.ID(),
				"action": ch.Action,
				"panic":  r,
			}).Error("[CACHE] change listener panicked")
		}
	}()
	fn(ch)
}
