// Package api defines the public contract of the cache, independent of its
// sharded implementation.
package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/darkomike/bloggie-sub001/debug"
	"github.com/darkomike/bloggie-sub001/types"
)

/*
Change describes a visible change to one entry. Action is one of set,
invalidate or expire; Entry is set only for set.
*/
type Change struct {
	Action    debug.Action
	Namespace string
	Key       string
	Entry     *types.CacheEntry
	Origin    debug.Origin
}

// ID returns the canonical "namespace/key" identifier.
func (c Change) ID() string {
	return types.EntryID(c.Namespace, c.Key)
}

/*
Cache is the namespace/key store one execution context owns.

Every method is synchronous and never fails: caching is advisory, so storage
problems degrade the cache to memory-only instead of surfacing to callers.
*/
type Cache interface {

	/*
		Get returns the value stored under namespace/key.

		- Live entry: returns (value, true) and emits a get event. A value of
		  JSON null is a real cached fact.
		- Expired entry: emits exactly one expire event, removes the entry and
		  returns (nil, false).
		- Nothing stored: emits a get event and returns (nil, false).
	*/
	Get(ctx context.Context, namespace, key string) (json.RawMessage, bool)

	/*
		Set replaces the entry unconditionally. WrittenAt is stamped by the
		cache; ttl <= 0 means no expiry unless the namespace caps it.
	*/
	Set(ctx context.Context, namespace, key string, value json.RawMessage, ttl time.Duration)

	/*
		Invalidate removes the entry. It emits an invalidate event whether or
		not anything was stored.
	*/
	Invalidate(ctx context.Context, namespace, key string)

	/*
		TTL returns the remaining time-to-live of an in-memory entry.

		> 0 : remaining duration
		-1  : entry exists without TTL
		-2  : entry missing or expired
	*/
	TTL(namespace, key string) time.Duration

	// OnChange registers fn for every change. The returned function removes it
	// and may be called more than once.
	OnChange(fn func(Change)) (unsubscribe func())

	// Close flushes pending persistence.
	Close()
}
