// Package refresh lets a successful read kick off work that keeps the cached
// value fresh, without slowing the read down.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/darkomike/bloggie-sub001/types"
)

/*
Hook runs after every successful read, on the read path, with the reader's
context. Implementations must return immediately; anything slow belongs in a
goroutine.
*/
type Hook interface {
	OnRead(ctx context.Context, ent *types.CacheEntry, now time.Time) bool
}

/*
BeforeExpiry calls Trigger in the background when a read sees an entry that
expires within Window. At most one Trigger per entry ID is in flight.
OnRead reports whether it started one.

Trigger gets the reader's context with its cancellation stripped, so values
carried by the read (a request's credentials) scope the refresh.

Namespace restricts the hook to one namespace when set.
*/
type BeforeExpiry struct {
	Window    time.Duration
	Namespace string
	Trigger   func(ctx context.Context, ent types.CacheEntry)

	inflight sync.Map
}

func (b *BeforeExpiry) OnRead(ctx context.Context, ent *types.CacheEntry, now time.Time) bool {
	if b.Trigger == nil || b.Window <= 0 {
		return false
	}
	if b.Namespace != "" && ent.Namespace != b.Namespace {
		return false
	}
	exp := ent.ExpiresAt()
	if exp.IsZero() || exp.Sub(now) > b.Window {
		return false
	}

	id := ent.ID()
	if _, busy := b.inflight.LoadOrStore(id, struct{}{}); busy {
		return false
	}
	snapshot := *ent
	bg := context.WithoutCancel(ctx)
	go func() {
		defer b.inflight.Delete(id)
		b.Trigger(bg, snapshot)
	}()
	return true
}
