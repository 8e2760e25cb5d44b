// Package eviction decides which key the in-memory layer drops when a shard
// is full. Policies are not safe for concurrent use; the shard lock guards
// them.
package eviction

import "fmt"

// Policy tracks key usage for one shard.
type Policy interface {

	// OnGet records a read of key.
	OnGet(key string)

	// OnPut records a write of key. Rewriting a tracked key does not reset it.
	OnPut(key string)

	// Remove forgets key after an explicit removal.
	Remove(key string)

	// Evict picks the victim, forgets it and returns it. It returns "" when
	// nothing is tracked.
	Evict() string

	// Len returns how many keys are tracked.
	Len() int
}

// PolicyType names a supported eviction strategy.
type PolicyType string

const (
	// LRU drops the key read or written least recently.
	LRU PolicyType = "LRU"

	// FIFO drops the oldest inserted key and ignores reads.
	FIFO PolicyType = "FIFO"
)

// ParsePolicyType maps a configuration value onto a PolicyType.
func ParsePolicyType(s string) (PolicyType, error) {
	switch PolicyType(s) {
	case LRU, "lru", "":
		return LRU, nil
	case FIFO, "fifo":
		return FIFO, nil
	default:
		return "", fmt.Errorf("unknown eviction policy %q", s)
	}
}

// NewEvictionPolicy builds a fresh policy of type t. Unknown types fall back to
// LRU.
func NewEvictionPolicy(t PolicyType) Policy {
	switch t {
	case FIFO:
		return newFIFO()
	default:
		return newLRU()
	}
}
