package shard

import "hash/fnv"

// Selector maps an entry ID onto one of the shards.
type Selector interface {
	Select(id string, shards []*Shard) *Shard
}

// HashSelector picks a shard by FNV-1a hash of the entry ID.
type HashSelector struct{}

func hash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func (HashSelector) Select(id string, shards []*Shard) *Shard {
	return shards[hash(id)%uint32(len(shards))]
}
