package shard

import (
	"sync"

	"github.com/darkomike/bloggie-sub001/eviction"
)

/*
Shard is one independent slice of the in-memory layer.

Reads go straight to Store without locking. Every mutation of Store and
Eviction happens under Mu, which also serialises the expire-on-read path so
that an expired entry is reported exactly once.
*/
type Shard struct {
	Store    Store
	Eviction eviction.Policy
	Mu       sync.Mutex
}

func NewShard(ev eviction.Policy) *Shard {
	return &Shard{
		Store:    NewCOWStore(),
		Eviction: ev,
	}
}

// NewShards builds n shards, each with its own policy instance.
func NewShards(n int, policy eviction.PolicyType) []*Shard {
	if n <= 0 {
		n = 1
	}
	s := make([]*Shard, n)
	for i := range s {
		s[i] = NewShard(eviction.NewEvictionPolicy(policy))
	}
	return s
}
