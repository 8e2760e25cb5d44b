package shard

import (
	"sync/atomic"

	"github.com/darkomike/bloggie-sub001/types"
)

// Store holds the live entries of one shard keyed by entry ID.
type Store interface {
	Get(id string) (*types.CacheEntry, bool)
	Put(id string, ent *types.CacheEntry)
	Delete(id string) bool
	Size() int
	Snapshot() []*types.CacheEntry
}

/*
cowStore is a copy-on-write map. Readers load the current map with a single
atomic read; writers (holding the shard lock) clone it, apply the change and
swap it in.
*/
type cowStore struct {
	data atomic.Pointer[map[string]*types.CacheEntry]
}

func NewCOWStore() *cowStore {
	s := &cowStore{}
	m := make(map[string]*types.CacheEntry)
	s.data.Store(&m)
	return s
}

func (s *cowStore) load() map[string]*types.CacheEntry {
	return *s.data.Load()
}

func (s *cowStore) Get(id string) (*types.CacheEntry, bool) {
	ent, ok := s.load()[id]
	return ent, ok
}

func (s *cowStore) Put(id string, ent *types.CacheEntry) {
	old := s.load()
	n := make(map[string]*types.CacheEntry, len(old)+1)
	for k, v := range old {
		n[k] = v
	}
	n[id] = ent
	s.data.Store(&n)
}

// Delete reports whether id was present.
func (s *cowStore) Delete(id string) bool {
	old := s.load()
	if _, ok := old[id]; !ok {
		return false
	}
	n := make(map[string]*types.CacheEntry, len(old))
	for k, v := range old {
		if k != id {
			n[k] = v
		}
	}
	s.data.Store(&n)
	return true
}

func (s *cowStore) Size() int {
	return len(s.load())
}

// Snapshot returns the entries visible at the time of the call.
func (s *cowStore) Snapshot() []*types.CacheEntry {
	m := s.load()
	out := make([]*types.CacheEntry, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
