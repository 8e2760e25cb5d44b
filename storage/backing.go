package storage

import (
	"context"
	"errors"

	"github.com/darkomike/bloggie-sub001/codec"
	"github.com/darkomike/bloggie-sub001/types"
)

// Backing adapts a byte Store to the cache's types.Backing contract using the
// codec record layout.
type Backing struct {
	store Store
}

func NewBacking(store Store) *Backing {
	if store == nil {
		store = Disabled{}
	}
	return &Backing{store: store}
}

// Load returns (nil, nil) when nothing is stored. Corrupt records return an
// error wrapping codec.ErrDecode.
func (b *Backing) Load(ctx context.Context, namespace, key string) (*types.CacheEntry, error) {
	data, err := b.store.Get(ctx, codec.StorageKey(namespace, key))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return codec.Decode(namespace, key, data)
}

func (b *Backing) Put(ctx context.Context, ent *types.CacheEntry) error {
	data, err := codec.Encode(ent)
	if err != nil {
		return err
	}
	return b.store.Set(ctx, codec.StorageKey(ent.Namespace, ent.Key), data)
}

func (b *Backing) Delete(ctx context.Context, namespace, key string) error {
	err := b.store.Delete(ctx, codec.StorageKey(namespace, key))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

var _ types.Backing = (*Backing)(nil)
