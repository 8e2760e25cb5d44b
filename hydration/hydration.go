// Package hydration gives a UI its first auth state synchronously, then keeps
// it current for as long as the view is mounted.
package hydration

import (
	"context"
	"sync"

	"github.com/darkomike/bloggie-sub001/authcache"
)

// Source is what a Hydration reads from and subscribes to.
type Source interface {
	Get(ctx context.Context) authcache.State
	OnChange(fn func(authcache.State)) func()
}

type Option func(*Hydration)

// WithRender registers a callback run after every state change.
func WithRender(fn func(authcache.State)) Option {
	return func(h *Hydration) { h.render = fn }
}

/*
Hydration holds the best-guess auth state of one mounted view. It never
checks the session itself; a session revalidation writes through the auth
cache and the subscription picks the new state up.
*/
type Hydration struct {
	render func(authcache.State)

	mu          sync.RWMutex
	state       authcache.State
	changed     bool
	closed      bool
	unsubscribe func()
}

/*
Mount subscribes to changes, then reads the cached state once, synchronously.
A change that lands while the read is running wins over the read. An unknown
state is a valid starting point: the view renders unauthenticated until the
session check says otherwise. Call Close when the view goes away.
*/
func Mount(ctx context.Context, src Source, opts ...Option) *Hydration {
	h := &Hydration{}
	for _, opt := range opts {
		opt(h)
	}

	unsubscribe := src.OnChange(h.update)
	st := src.Get(ctx)

	h.mu.Lock()
	h.unsubscribe = unsubscribe
	if !h.changed {
		h.state = st
	}
	h.mu.Unlock()
	return h
}

func (h *Hydration) update(st authcache.State) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.state = st
	h.changed = true
	render := h.render
	h.mu.Unlock()

	if render != nil {
		render(st)
	}
}

// State returns the current best guess.
func (h *Hydration) State() authcache.State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// CachedUser returns the signed-in user, or nil when signed out or unknown.
func (h *Hydration) CachedUser() *authcache.User {
	return h.State().User
}

// IsHydrated is true from Mount on; the initial read is synchronous.
func (h *Hydration) IsHydrated() bool { return true }

// Close stops all further updates. Safe to call more than once.
func (h *Hydration) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	unsubscribe := h.unsubscribe
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
