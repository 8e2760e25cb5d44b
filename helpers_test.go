package cache_test

import (
	"encoding/json"
	"time"

	"github.com/darkomike/bloggie-sub001/types"
)

func cacheEntry(namespace, key, value string, written time.Time, ttl time.Duration) types.CacheEntry {
	return types.CacheEntry{
		Namespace: namespace,
		Key:       key,
		Value:     json.RawMessage(value),
		WrittenAt: written,
		TTL:       ttl,
	}
}
