package types

import "context"

/*
Backing is the contract between the in-memory layer and the durable store
that survives a reload.

	1. Get misses in memory
	2. Cache calls Load(namespace, key)
	3. Backing reads and decodes the persisted record
	4. Cache keeps the entry in memory and returns it

Load returns (nil, nil) when no record exists and an error wrapping
codec.ErrDecode when the record is corrupt.
*/
type Backing interface {
	Load(ctx context.Context, namespace, key string) (*CacheEntry, error)

	// Put persists the entry. It is driven by the configured write policy.
	Put(ctx context.Context, ent *CacheEntry) error

	// Delete removes the persisted record. Deleting a missing record is not an
	// error.
	Delete(ctx context.Context, namespace, key string) error
}
