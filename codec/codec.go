// Package codec serializes cache entries into the persisted record layout
//
//	{"value": <payload>, "writtenAt": <unix ms>, "ttlMs": <ms>}
//
// with one storage key per "namespace/key" pair. ttlMs is omitted for entries
// that never expire; a present ttlMs is always at least 1.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/darkomike/bloggie-sub001/types"
)

var ErrDecode = errors.New("decode cache record")

type record struct {
	Value     json.RawMessage `json:"value"`
	WrittenAt int64           `json:"writtenAt"`
	TTLMs     *int64          `json:"ttlMs,omitempty"`
}

// StorageKey returns the persisted key of an entry.
func StorageKey(namespace, key string) string {
	return types.EntryID(namespace, key)
}

// SplitStorageKey reverses StorageKey. The namespace never contains "/", the
// key may.
func SplitStorageKey(storageKey string) (namespace, key string, ok bool) {
	namespace, key, ok = strings.Cut(storageKey, "/")
	if !ok || namespace == "" || key == "" {
		return "", "", false
	}
	return namespace, key, true
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ttlMillis rounds a positive TTL up to whole milliseconds, so a sub-millisecond
// TTL never turns into "no expiry".
func ttlMillis(ttl time.Duration) int64 {
	return int64((ttl + time.Millisecond - 1) / time.Millisecond)
}

// Encode renders the record for ent.
func Encode(ent *types.CacheEntry) ([]byte, error) {
	value := ent.Value
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	rec := record{
		Value:     value,
		WrittenAt: toMillis(ent.WrittenAt),
	}
	if ent.TTL > 0 {
		ms := ttlMillis(ent.TTL)
		rec.TTLMs = &ms
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode cache record %s: %w", ent.ID(), err)
	}
	return data, nil
}

// Decode parses a record stored under namespace/key. Every failure wraps
// ErrDecode.
func Decode(namespace, key string, data []byte) (*types.CacheEntry, error) {
	var rec record
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrDecode, types.EntryID(namespace, key), err)
	}
	if len(rec.Value) == 0 {
		return nil, fmt.Errorf("%w %s: missing value", ErrDecode, types.EntryID(namespace, key))
	}
	if rec.WrittenAt <= 0 {
		return nil, fmt.Errorf("%w %s: missing writtenAt", ErrDecode, types.EntryID(namespace, key))
	}
	if rec.TTLMs != nil && *rec.TTLMs <= 0 {
		return nil, fmt.Errorf("%w %s: ttlMs must be positive", ErrDecode, types.EntryID(namespace, key))
	}

	ent := &types.CacheEntry{
		Namespace: namespace,
		Key:       key,
		Value:     rec.Value,
		WrittenAt: fromMillis(rec.WrittenAt),
	}
	if rec.TTLMs != nil {
		ent.TTL = time.Duration(*rec.TTLMs) * time.Millisecond
	}
	return ent, nil
}
