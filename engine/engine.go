package engine

import (
	"context"
	"time"

	"github.com/darkomike/bloggie-sub001/debug"
	"github.com/darkomike/bloggie-sub001/expiration"
	"github.com/darkomike/bloggie-sub001/refresh"
	"github.com/darkomike/bloggie-sub001/types"
	"github.com/darkomike/bloggie-sub001/writepolicy"
)

/*
CacheEngine holds the rules of the cache, not its data.

It decides:
- when an entry is expired
- what runs after a successful read
- how a missing entry is loaded from the backing store
- how writes and deletes reach the backing store
- where metrics and debug events go

Storage, sharding and locking live in the CacheStore.
*/
type CacheEngine struct {

	// Expiration decides when an entry stops being served. Nil means entries
	// never expire.
	Expiration expiration.Strategy

	// Refresh runs after a successful read. Nil disables it.
	Refresh refresh.Hook

	// Backing is the durable store read on a memory miss. Nil means the cache
	// is memory-only.
	Backing types.Backing

	// WritePolicy forwards writes and deletes to Backing. Nil keeps writes in
	// memory.
	WritePolicy writepolicy.WritePolicy

	Metrics types.Metrics

	// Events receives one debug event per cache action.
	Events *debug.Bus

	// Now is the clock used for WrittenAt stamps and expiry checks.
	Now func() time.Time
}

/*
NewCacheEngine creates a CacheEngine. Metrics defaults to NoopMetrics and the
clock to time.Now.
*/
func NewCacheEngine(
	exp expiration.Strategy,
	refresh refresh.Hook,
	backing types.Backing,
	writePolicy writepolicy.WritePolicy,
	metrics types.Metrics,
) *CacheEngine {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	return &CacheEngine{
		Expiration:  exp,
		Refresh:     refresh,
		Backing:     backing,
		WritePolicy: writePolicy,
		Metrics:     metrics,
		Now:         time.Now,
	}
}

// Time returns the current time according to the engine clock.
func (e *CacheEngine) Time() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// IsExpired checks ent against the expiration strategy at the current time.
func (e *CacheEngine) IsExpired(ent *types.CacheEntry) bool {
	return e.Expiration != nil && e.Expiration.IsExpired(ent, e.Time())
}

// OnRead runs the refresh hook for a live entry. ctx is the reader's context.
func (e *CacheEngine) OnRead(ctx context.Context, ent *types.CacheEntry) {
	if e.Refresh == nil {
		return
	}
	if e.Refresh.OnRead(ctx, ent, e.Time()) {
		e.Metrics.Refresh(ent.Namespace)
	}
}

/*
Stamp prepares a locally written entry: WrittenAt becomes now and the
expiration strategy may adjust the TTL.
*/
func (e *CacheEngine) Stamp(ent *types.CacheEntry) {
	ent.WrittenAt = e.Time()
	e.Adjust(ent)
}

// Adjust applies the expiration strategy to an entry without touching its
// WrittenAt. Entries adopted from another context keep their original stamp.
func (e *CacheEngine) Adjust(ent *types.CacheEntry) {
	if e.Expiration != nil {
		e.Expiration.OnWrite(ent, e.Time())
	}
}

// Persist hands a written entry to the write policy.
func (e *CacheEngine) Persist(ctx context.Context, ent *types.CacheEntry) {
	if e.WritePolicy != nil {
		e.WritePolicy.OnWrite(ctx, ent)
	}
}

// Unpersist hands a delete to the write policy.
func (e *CacheEngine) Unpersist(ctx context.Context, namespace, key string) {
	if e.WritePolicy != nil {
		e.WritePolicy.OnDelete(ctx, namespace, key)
	}
}

/*
Load reads an entry from the backing store. It returns (nil, nil) when there
is no backing store or no record. Writes the policy has queued but not yet
flushed win over the stored record, so a queued delete reads as absent.
*/
func (e *CacheEngine) Load(ctx context.Context, namespace, key string) (*types.CacheEntry, error) {
	if ov, ok := e.WritePolicy.(writepolicy.Overlay); ok {
		if ent, queued := ov.Pending(namespace, key); queued {
			return ent, nil
		}
	}
	if e.Backing == nil {
		return nil, nil
	}
	return e.Backing.Load(ctx, namespace, key)
}

// Emit publishes a debug event for the action.
func (e *CacheEngine) Emit(action debug.Action, namespace, key string, ttl time.Duration, origin debug.Origin) {
	e.Events.Emit(debug.Event{
		Action:    action,
		Namespace: namespace,
		Key:       key,
		TTL:       ttl,
		Origin:    origin,
	})
}

// Close stops the write policy.
func (e *CacheEngine) Close() {
	if e.WritePolicy != nil {
		e.WritePolicy.Close()
	}
}
