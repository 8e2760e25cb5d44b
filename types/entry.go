package types

import (
	"encoding/json"
	"time"
)

// EntryID builds the canonical "namespace/key" identifier used for storage
// keys, debug events and log fields.
func EntryID(namespace, key string) string {
	return namespace + "/" + key
}

// CacheEntry is one cached value. It is replaced wholesale on every write and
// never mutated in place once it is visible to readers.
type CacheEntry struct {
	Namespace string
	Key       string

	// Value is the serialized payload. JSON null is a valid cached fact and is
	// not the same thing as a missing entry.
	Value json.RawMessage

	WrittenAt time.Time
	TTL       time.Duration // zero => no expiry
}

// ID returns the canonical "namespace/key" identifier of the entry.
func (e *CacheEntry) ID() string {
	return EntryID(e.Namespace, e.Key)
}

// ExpiresAt returns WrittenAt+TTL, or the zero time when the entry has no TTL.
func (e *CacheEntry) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.WrittenAt.Add(e.TTL)
}

// IsNull reports whether the entry caches an explicit null value.
func (e *CacheEntry) IsNull() bool {
	return len(e.Value) == 0 || string(e.Value) == "null"
}
