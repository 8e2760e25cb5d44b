// Package authcache keeps the current user in the cache so the UI can render
// a best guess before the session is checked.
package authcache

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	cache "github.com/darkomike/bloggie-sub001"
	"github.com/darkomike/bloggie-sub001/api"
	"github.com/darkomike/bloggie-sub001/debug"
)

const (
	Namespace = "auth"
	Key       = "currentUser"
)

// Status separates "never checked" from "checked and signed out".
type Status int

const (
	StatusUnknown Status = iota
	StatusSignedOut
	StatusSignedIn
)

func (s Status) String() string {
	switch s {
	case StatusSignedOut:
		return "signed_out"
	case StatusSignedIn:
		return "signed_in"
	default:
		return "unknown"
	}
}

// State is the cached auth state. User is set only for StatusSignedIn.
type State struct {
	Status Status
	User   *User
}

// Known reports whether a session check has produced this state.
func (s State) Known() bool { return s.Status != StatusUnknown }

/*
Cache is the auth view over a cache store: one entry, auth/currentUser, whose
TTL matches the session lifetime. A stored JSON null means signed out.
*/
type Cache struct {
	store api.Cache
	ttl   time.Duration
}

func New(store api.Cache, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

// TTL is the lifetime given to every write.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get reads the cached state. An entry that no longer decodes is dropped and
// reported as unknown.
func (c *Cache) Get(ctx context.Context) State {
	raw, ok := c.store.Get(ctx, Namespace, Key)
	if !ok {
		return State{}
	}
	st, err := parse(raw)
	if err != nil {
		logrus.WithError(err).Warn("[AUTH] cached user is unreadable, dropping it")
		c.store.Invalidate(ctx, Namespace, Key)
		return State{}
	}
	return st
}

// Set records the outcome of a session check. A nil user means signed out.
func (c *Cache) Set(ctx context.Context, u *User) {
	if err := cache.Put(ctx, c.store, Namespace, Key, u, c.ttl); err != nil {
		logrus.WithError(err).Error("[AUTH] failed to cache user")
	}
}

// Invalidate forgets the cached state; the next read is unknown.
func (c *Cache) Invalidate(ctx context.Context) {
	c.store.Invalidate(ctx, Namespace, Key)
}

/*
OnChange calls fn with the new state whenever auth/currentUser changes:
local writes, invalidations, expiry and writes adopted from other contexts.
Callbacks run in registration order and a panicking callback does not stop
the others. The returned function unsubscribes and may be called repeatedly.
*/
func (c *Cache) OnChange(fn func(State)) func() {
	return c.store.OnChange(func(ch api.Change) {
		if ch.Namespace != Namespace || ch.Key != Key {
			return
		}
		if ch.Action != debug.ActionSet || ch.Entry == nil {
			fn(State{})
			return
		}
		st, err := parse(ch.Entry.Value)
		if err != nil {
			logrus.WithError(err).WithField("origin", ch.Origin).Warn("[AUTH] ignoring unreadable user")
			fn(State{})
			return
		}
		fn(st)
	})
}

func parse(raw json.RawMessage) (State, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return State{Status: StatusSignedOut}, nil
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return State{}, err
	}
	return State{Status: StatusSignedIn, User: &u}, nil
}
