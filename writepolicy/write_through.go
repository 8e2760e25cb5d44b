package writepolicy

import (
	"context"

	"github.com/darkomike/bloggie-sub001/types"
)

// WriteThroughPolicy persists every write before the cache call returns.
type WriteThroughPolicy struct {
	store   types.Backing
	onError ErrorHandler
}

func NewWriteThroughPolicy(store types.Backing, onError ErrorHandler) *WriteThroughPolicy {
	return &WriteThroughPolicy{store: store, onError: onError}
}

func (w *WriteThroughPolicy) OnWrite(ctx context.Context, ent *types.CacheEntry) {
	report(w.onError, w.store.Put(ctx, ent))
}

func (w *WriteThroughPolicy) OnDelete(ctx context.Context, namespace, key string) {
	report(w.onError, w.store.Delete(ctx, namespace, key))
}

func (w *WriteThroughPolicy) Close() {}
