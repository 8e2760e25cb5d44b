package cache

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/darkomike/bloggie-sub001/debug"
	"github.com/darkomike/bloggie-sub001/engine"
	"github.com/darkomike/bloggie-sub001/eviction"
	"github.com/darkomike/bloggie-sub001/expiration"
	"github.com/darkomike/bloggie-sub001/refresh"
	"github.com/darkomike/bloggie-sub001/storage"
	"github.com/darkomike/bloggie-sub001/types"
	"github.com/darkomike/bloggie-sub001/writepolicy"
)

/*
Options describes one execution context's cache. The zero value is a usable
memory-only store: two shards, unbounded, write-through, entries expire after
write.
*/
type Options struct {
	Shards   int
	Capacity int
	Eviction eviction.PolicyType

	// Store persists entries. Nil keeps everything in memory.
	Store storage.Store

	WritePolicy writepolicy.Kind
	WriteBuffer int

	// MaxTTL caps entry TTLs per namespace.
	MaxTTL map[string]time.Duration

	Refresh refresh.Hook
	Metrics types.Metrics
	Events  *debug.Bus
	Now     func() time.Time
}

// New builds a CacheStore from opts.
func New(opts Options) (*CacheStore, error) {
	var backing types.Backing
	var policy writepolicy.WritePolicy
	if opts.Store != nil {
		b := storage.NewBacking(opts.Store)
		p, err := writepolicy.New(opts.WritePolicy, b, opts.WriteBuffer, func(err error) {
			logrus.WithError(err).Error("[CACHE] persisting entry failed")
		})
		if err != nil {
			return nil, err
		}
		backing, policy = b, p
	}

	eng := engine.NewCacheEngine(
		&expiration.AfterWrite{MaxTTL: opts.MaxTTL},
		opts.Refresh,
		backing,
		policy,
		opts.Metrics,
	)
	eng.Events = opts.Events
	if opts.Now != nil {
		eng.Now = opts.Now
	}

	shards := opts.Shards
	if shards <= 0 {
		shards = 2
	}
	return NewCacheStore(shards, opts.Capacity, opts.Eviction, eng), nil
}
