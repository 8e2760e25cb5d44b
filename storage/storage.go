// Package storage holds the durable key/value stores the cache persists its
// entries to. A store is local to one execution context; other contexts only
// learn about its writes through contextsync.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("storage unavailable")
)

// Store is a synchronous byte-oriented key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Disabled is a Store that is never available. It stands in for storage that
// is switched off or cannot be opened, and makes the cache run memory-only.
type Disabled struct{}

func (Disabled) Get(context.Context, string) ([]byte, error) { return nil, ErrUnavailable }
func (Disabled) Set(context.Context, string, []byte) error   { return ErrUnavailable }
func (Disabled) Delete(context.Context, string) error        { return ErrUnavailable }
func (Disabled) Close() error                                { return nil }

var _ Store = Disabled{}
