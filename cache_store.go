package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/darkomike/bloggie-sub001/api"
	"github.com/darkomike/bloggie-sub001/codec"
	"github.com/darkomike/bloggie-sub001/debug"
	"github.com/darkomike/bloggie-sub001/engine"
	evict "github.com/darkomike/bloggie-sub001/eviction"
	"github.com/darkomike/bloggie-sub001/shard"
	"github.com/darkomike/bloggie-sub001/types"
)

/*
CacheStore is the cache of one execution context. It connects:
- shards holding the live entries in memory
- the engine (expiration, refresh, backing store, write policy, metrics, events)
- change listeners (auth state subscribers, cross-context sync)

Construct one per execution context and pass it around; there is no
package-level instance.
*/
type CacheStore struct {
	shards   []*shard.Shard
	engine   *engine.CacheEngine
	selector shard.Selector

	// perShard bounds each shard; zero means unbounded.
	perShard int

	// sf collapses concurrent read-through loads of the same entry.
	sf singleflight.Group

	listeners listeners
}

/*
NewCacheStore builds a store with the given number of shards. capacity
bounds the in-memory layer across all shards (zero = unbounded); when a shard
is full the eviction policy picks a victim, which stays in the backing store.
*/
func NewCacheStore(
	shards int,
	capacity int,
	eviction evict.PolicyType,
	engine *engine.CacheEngine,
) *CacheStore {
	s := shard.NewShards(shards, eviction)

	perShard := 0
	if capacity > 0 {
		perShard = capacity / len(s)
		if perShard < 1 {
			perShard = 1
		}
	}

	return &CacheStore{
		shards:   s,
		engine:   engine,
		selector: shard.HashSelector{},
		perShard: perShard,
	}
}

func (c *CacheStore) shardFor(id string) *shard.Shard {
	return c.selector.Select(id, c.shards)
}

/*
Get retrieves a value, reading through to the backing store on a memory
miss.
*/
func (c *CacheStore) Get(ctx context.Context, namespace, key string) (json.RawMessage, bool) {
	id := types.EntryID(namespace, key)
	sh := c.shardFor(id)

	if ent, ok := sh.Store.Get(id); ok {
		if c.engine.IsExpired(ent) {
			c.expire(ctx, sh, id, ent)
			return nil, false
		}
		sh.Mu.Lock()
		sh.Eviction.OnGet(id)
		sh.Mu.Unlock()
		return c.hit(ctx, ent), true
	}

	v, _, _ := c.sf.Do(id, func() (any, error) {
		return c.load(ctx, namespace, key), nil
	})
	res := v.(loadResult)
	if res.dropped {
		return nil, false
	}
	if res.ent == nil {
		return c.miss(namespace, key)
	}

	// Keep whatever a concurrent Set installed while the load was running.
	ent := res.ent
	sh.Mu.Lock()
	if cur, ok := sh.Store.Get(id); ok {
		ent = cur
	} else {
		c.install(sh, id, ent)
	}
	sh.Mu.Unlock()
	return c.hit(ctx, ent), true
}

type loadResult struct {
	ent     *types.CacheEntry
	dropped bool
}

/*
load reads namespace/key from the backing store. Corrupt and expired records
are removed here, inside the singleflight call, so concurrent readers share a
single expire event.
*/
func (c *CacheStore) load(ctx context.Context, namespace, key string) loadResult {
	id := types.EntryID(namespace, key)
	ent, err := c.engine.Load(ctx, namespace, key)
	switch {
	case errors.Is(err, codec.ErrDecode):
		c.engine.Metrics.DecodeFailure(namespace)
		logrus.WithError(err).WithField("entry", id).Warn("[CACHE] dropping undecodable record")
		c.dropPersisted(ctx, namespace, key)
		return loadResult{dropped: true}
	case err != nil:
		logrus.WithError(err).WithField("entry", id).Error("[CACHE] backing store read failed")
		return loadResult{}
	case ent == nil:
		return loadResult{}
	case c.engine.IsExpired(ent):
		c.engine.Metrics.Expire(namespace)
		c.dropPersisted(ctx, namespace, key)
		return loadResult{dropped: true}
	}
	return loadResult{ent: ent}
}

func (c *CacheStore) hit(ctx context.Context, ent *types.CacheEntry) json.RawMessage {
	c.engine.Metrics.Hit(ent.Namespace)
	c.engine.OnRead(ctx, ent)
	c.engine.Emit(debug.ActionGet, ent.Namespace, ent.Key, ent.TTL, debug.OriginLocal)
	return cloneValue(ent.Value)
}

func (c *CacheStore) miss(namespace, key string) (json.RawMessage, bool) {
	c.engine.Metrics.Miss(namespace)
	c.engine.Emit(debug.ActionGet, namespace, key, 0, debug.OriginLocal)
	return nil, false
}

/*
expire removes an expired in-memory entry. The check is repeated under the
shard lock so concurrent readers of the same stale entry produce one expire
event between them.
*/
func (c *CacheStore) expire(ctx context.Context, sh *shard.Shard, id string, ent *types.CacheEntry) {
	sh.Mu.Lock()
	cur, ok := sh.Store.Get(id)
	if !ok || cur != ent {
		sh.Mu.Unlock()
		return
	}
	sh.Store.Delete(id)
	sh.Eviction.Remove(id)
	sh.Mu.Unlock()

	c.engine.Metrics.Expire(ent.Namespace)
	c.dropPersisted(ctx, ent.Namespace, ent.Key)
}

// dropPersisted removes a stale or corrupt record and reports it as expired.
func (c *CacheStore) dropPersisted(ctx context.Context, namespace, key string) {
	c.engine.Unpersist(ctx, namespace, key)
	c.engine.Emit(debug.ActionExpire, namespace, key, 0, debug.OriginLocal)
	c.listeners.notify(api.Change{
		Action:    debug.ActionExpire,
		Namespace: namespace,
		Key:       key,
		Origin:    debug.OriginLocal,
	})
}

// install puts ent into sh, evicting if the shard is full. Caller holds sh.Mu.
func (c *CacheStore) install(sh *shard.Shard, id string, ent *types.CacheEntry) {
	if _, exists := sh.Store.Get(id); !exists && c.perShard > 0 && sh.Store.Size() >= c.perShard {
		if victim := sh.Eviction.Evict(); victim != "" {
			if vent, ok := sh.Store.Get(victim); ok {
				c.engine.Metrics.Eviction(vent.Namespace)
			}
			sh.Store.Delete(victim)
		}
	}
	sh.Store.Put(id, ent)
	sh.Eviction.OnPut(id)
}

/*
Set stores value under namespace/key, replacing any previous entry.
*/
func (c *CacheStore) Set(ctx context.Context, namespace, key string, value json.RawMessage, ttl time.Duration) {
	ent := &types.CacheEntry{
		Namespace: namespace,
		Key:       key,
		Value:     cloneValue(value),
		TTL:       ttl,
	}
	c.engine.Stamp(ent)
	c.put(ctx, ent, debug.OriginLocal)
}

/*
SetEntry adopts a complete entry, keeping its WrittenAt and TTL. It is how a
write observed in another execution context lands in this one. Entries that
are already expired on arrival are ignored.
*/
func (c *CacheStore) SetEntry(ctx context.Context, ent types.CacheEntry, origin debug.Origin) {
	ent.Value = cloneValue(ent.Value)
	c.engine.Adjust(&ent)
	if c.engine.IsExpired(&ent) {
		logrus.WithField("entry", ent.ID()).Debug("[CACHE] ignoring entry that expired before it arrived")
		return
	}
	c.put(ctx, &ent, origin)
}

func (c *CacheStore) put(ctx context.Context, ent *types.CacheEntry, origin debug.Origin) {
	id := ent.ID()
	sh := c.shardFor(id)

	sh.Mu.Lock()
	c.install(sh, id, ent)
	sh.Mu.Unlock()

	c.engine.Metrics.Set(ent.Namespace)
	c.engine.Persist(ctx, ent)
	c.engine.Emit(debug.ActionSet, ent.Namespace, ent.Key, ent.TTL, origin)
	c.listeners.notify(api.Change{
		Action:    debug.ActionSet,
		Namespace: ent.Namespace,
		Key:       ent.Key,
		Entry:     ent,
		Origin:    origin,
	})
}

/*
Invalidate removes namespace/key from memory and from the backing store.
*/
func (c *CacheStore) Invalidate(ctx context.Context, namespace, key string) {
	c.InvalidateFrom(ctx, namespace, key, debug.OriginLocal)
}

// InvalidateFrom is Invalidate with an explicit origin.
func (c *CacheStore) InvalidateFrom(ctx context.Context, namespace, key string, origin debug.Origin) {
	id := types.EntryID(namespace, key)
	sh := c.shardFor(id)

	sh.Mu.Lock()
	sh.Store.Delete(id)
	sh.Eviction.Remove(id)
	sh.Mu.Unlock()

	c.engine.Metrics.Invalidate(namespace)
	c.engine.Unpersist(ctx, namespace, key)
	c.engine.Emit(debug.ActionInvalidate, namespace, key, 0, origin)
	c.listeners.notify(api.Change{
		Action:    debug.ActionInvalidate,
		Namespace: namespace,
		Key:       key,
		Origin:    origin,
	})
}

/*
TTL returns remaining time-to-live of an in-memory entry.
*/
func (c *CacheStore) TTL(namespace, key string) time.Duration {
	id := types.EntryID(namespace, key)
	ent, ok := c.shardFor(id).Store.Get(id)
	if !ok {
		return -2
	}
	exp := ent.ExpiresAt()
	if exp.IsZero() {
		return -1
	}
	d := exp.Sub(c.engine.Time())
	if d <= 0 {
		return -2
	}
	return d
}

// OnChange registers fn for every change made to this store.
func (c *CacheStore) OnChange(fn func(api.Change)) func() {
	return c.listeners.add(fn)
}

// Entries returns a snapshot of the in-memory entries across all shards.
func (c *CacheStore) Entries() []types.CacheEntry {
	var out []types.CacheEntry
	for _, sh := range c.shards {
		for _, ent := range sh.Store.Snapshot() {
			out = append(out, *ent)
		}
	}
	return out
}

/*
Close flushes pending write-back work. The store stays readable afterwards
but writes are no longer persisted.
*/
func (c *CacheStore) Close() {
	c.engine.Close()
}

func cloneValue(v json.RawMessage) json.RawMessage {
	if len(v) == 0 {
		return json.RawMessage("null")
	}
	return append(json.RawMessage(nil), v...)
}

var _ api.Cache = (*CacheStore)(nil)
