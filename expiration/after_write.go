package expiration

import (
	"time"

	"github.com/darkomike/bloggie-sub001/types"
)

/*
AfterWrite expires an entry TTL after it was written. Reads never extend it.

MaxTTL caps the TTL per namespace: an entry written without a TTL, or with a
longer one, is clamped to the cap. The auth namespace uses this so a cached
user never outlives the session that produced it, whichever context wrote it.
*/
type AfterWrite struct {
	MaxTTL map[string]time.Duration
}

func (a *AfterWrite) IsExpired(ent *types.CacheEntry, now time.Time) bool {
	exp := ent.ExpiresAt()
	return !exp.IsZero() && now.After(exp)
}

func (a *AfterWrite) OnWrite(ent *types.CacheEntry, _ time.Time) {
	limit, ok := a.MaxTTL[ent.Namespace]
	if !ok || limit <= 0 {
		return
	}
	if ent.TTL <= 0 || ent.TTL > limit {
		ent.TTL = limit
	}
}
