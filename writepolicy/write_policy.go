// Package writepolicy decides how writes to the in-memory layer reach the
// persistent store.
package writepolicy

import (
	"context"
	"fmt"

	"github.com/darkomike/bloggie-sub001/types"
)

// ErrorHandler receives persistence failures. The cache uses it to switch to
// memory-only mode.
type ErrorHandler func(err error)

/*
WritePolicy forwards entry writes and deletes to the backing store. Neither
method reports errors to the caller: failures go to the policy's ErrorHandler.
*/
type WritePolicy interface {
	OnWrite(ctx context.Context, ent *types.CacheEntry)
	OnDelete(ctx context.Context, namespace, key string)

	// Close flushes pending work and stops background workers.
	Close()
}

/*
Overlay is implemented by policies that hold writes the backing store has not
seen yet. Pending reports the queued state of namespace/key: the entry about
to be written, or nil for a queued delete. The cache consults it before
reading the backing store, so a stale record never comes back.
*/
type Overlay interface {
	Pending(namespace, key string) (ent *types.CacheEntry, queued bool)
}

// Kind names a supported write policy.
type Kind string

const (
	WriteThrough Kind = "through"
	WriteBack    Kind = "back"
)

// New builds a policy of the given kind over store.
func New(kind Kind, store types.Backing, buffer int, onError ErrorHandler) (WritePolicy, error) {
	switch kind {
	case WriteThrough, "":
		return NewWriteThroughPolicy(store, onError), nil
	case WriteBack:
		return NewWriteBackPolicy(store, buffer, onError), nil
	default:
		return nil, fmt.Errorf("unknown write policy %q", kind)
	}
}

func report(onError ErrorHandler, err error) {
	if err != nil && onError != nil {
		onError(err)
	}
}
