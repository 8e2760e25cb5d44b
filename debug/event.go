// Package debug fans cache actions out to diagnostic observers. Nothing in
// this package influences cache behavior: events are emitted after the cache
// has already decided what to do.
package debug

import (
	"time"

	"github.com/darkomike/bloggie-sub001/types"
)

type Action string

const (
	ActionSet        Action = "set"
	ActionGet        Action = "get"
	ActionInvalidate Action = "invalidate"
	ActionExpire     Action = "expire"
)

// Origin tells whether an action was caused in this execution context or
// adopted from another one.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// Event describes one cache action. Time is assigned by the Bus at emission.
type Event struct {
	Action    Action
	Namespace string
	Key       string
	TTL       time.Duration
	Origin    Origin
	Time      time.Time
}

// ID returns the canonical "namespace/key" identifier.
func (e Event) ID() string {
	return types.EntryID(e.Namespace, e.Key)
}
