package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	cache "github.com/darkomike/bloggie-sub001"
	"github.com/darkomike/bloggie-sub001/authcache"
	"github.com/darkomike/bloggie-sub001/config"
	"github.com/darkomike/bloggie-sub001/debug"
	"github.com/darkomike/bloggie-sub001/refresh"
	"github.com/darkomike/bloggie-sub001/storage"
	"github.com/darkomike/bloggie-sub001/token"
	"github.com/darkomike/bloggie-sub001/types"
	"github.com/darkomike/bloggie-sub001/writepolicy"
)

/*
openStorage opens the sqlite store named by the config, wrapped so that the
first failure switches the cache to memory for the rest of the process. An
empty path, or a file that cannot be opened, gives a memory store.
*/
func openStorage(conf config.Config, m types.Metrics) storage.Store {
	if conf.StoragePath == "" {
		logrus.Info("[CACHE] no storage path, cache is memory-only")
		return storage.NewMemStore()
	}

	onFail := func(err error) {
		m.StorageFallback()
		logrus.WithError(err).Error("[CACHE] persistent store failed, continuing in memory")
	}

	db, err := storage.OpenSQLite(conf.StoragePath)
	if err != nil {
		onFail(err)
		return storage.NewMemStore()
	}
	logrus.WithField("path", conf.StoragePath).Info("[CACHE] persisting to sqlite")
	return storage.NewFallback(db, onFail)
}

// newContextCache builds the cache of one execution context from the config.
func newContextCache(conf config.Config, store storage.Store, m types.Metrics, bus *debug.Bus, hook refresh.Hook) (*cache.CacheStore, error) {
	policy, err := conf.EvictionPolicy()
	if err != nil {
		return nil, err
	}
	c, err := cache.New(cache.Options{
		Shards:      conf.Shards,
		Capacity:    conf.Capacity,
		Eviction:    policy,
		Store:       store,
		WritePolicy: writepolicy.Kind(conf.WritePolicy),
		WriteBuffer: conf.WriteBuffer,
		MaxTTL:      map[string]time.Duration{authcache.Namespace: conf.SessionMaxAge},
		Refresh:     hook,
		Metrics:     m,
		Events:      bus,
	})
	if err != nil {
		return nil, fmt.Errorf("build cache: %w", err)
	}
	return c, nil
}

func tokenConfig(conf config.Config) token.Config {
	return token.Config{Secret: []byte(conf.TokenSecret), Issuer: conf.TokenIssuer}
}
