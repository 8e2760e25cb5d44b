package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

/*
Fallback wraps a primary Store and switches to an in-memory store for the
rest of the process lifetime the first time the primary fails with anything
other than ErrNotFound. Callers never see the failure; onFail is invoked once
with it.

A failure caused by the caller's own context being cancelled or timing out
says nothing about the store: it is returned as is and does not degrade.
*/
type Fallback struct {
	primary Store
	mem     *MemStore
	onFail  func(error)

	degraded atomic.Bool
	once     sync.Once
}

func NewFallback(primary Store, onFail func(error)) *Fallback {
	if primary == nil {
		primary = Disabled{}
	}
	return &Fallback{
		primary: primary,
		mem:     NewMemStore(),
		onFail:  onFail,
	}
}

// Degraded reports whether the primary store has been abandoned.
func (f *Fallback) Degraded() bool {
	return f.degraded.Load()
}

func (f *Fallback) fail(err error) {
	f.once.Do(func() {
		f.degraded.Store(true)
		if f.onFail != nil {
			f.onFail(err)
		}
	})
}

func callerGaveUp(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (f *Fallback) Get(ctx context.Context, key string) ([]byte, error) {
	if !f.degraded.Load() {
		data, err := f.primary.Get(ctx, key)
		if err == nil || errors.Is(err, ErrNotFound) || callerGaveUp(err) {
			return data, err
		}
		f.fail(err)
	}
	return f.mem.Get(ctx, key)
}

func (f *Fallback) Set(ctx context.Context, key string, data []byte) error {
	if !f.degraded.Load() {
		err := f.primary.Set(ctx, key, data)
		if err == nil || callerGaveUp(err) {
			return err
		}
		f.fail(err)
	}
	return f.mem.Set(ctx, key, data)
}

func (f *Fallback) Delete(ctx context.Context, key string) error {
	if !f.degraded.Load() {
		err := f.primary.Delete(ctx, key)
		if err == nil || errors.Is(err, ErrNotFound) {
			return nil
		}
		if callerGaveUp(err) {
			return err
		}
		f.fail(err)
	}
	return f.mem.Delete(ctx, key)
}

func (f *Fallback) Close() error {
	return f.primary.Close()
}

var _ Store = (*Fallback)(nil)
