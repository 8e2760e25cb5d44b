// Package expiration decides when a cache entry stops being served.
package expiration

import (
	"time"

	"github.com/darkomike/bloggie-sub001/types"
)

/*
Strategy is consulted by the engine on every write and every read. TTL is a
property of the entry itself; nothing here runs on a timer.
*/
type Strategy interface {

	// IsExpired reports whether ent must be treated as absent at now.
	IsExpired(ent *types.CacheEntry, now time.Time) bool

	// OnWrite may adjust the TTL of an entry before it becomes visible.
	OnWrite(ent *types.CacheEntry, now time.Time)
}
