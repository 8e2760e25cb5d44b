// Package contextsync propagates cache writes between execution contexts.
//
// Each context keeps its own store. A Sync watches its store for local
// writes, publishes them on a Transport and applies what other contexts
// publish as remote writes.
package contextsync

import (
	"encoding/json"

	"github.com/darkomike/bloggie-sub001/types"
)

type Op string

const (
	OpSet        Op = "set"
	OpInvalidate Op = "invalidate"
)

// Message is one change observed in a context. Record carries the encoded
// entry for OpSet and is empty for OpInvalidate.
type Message struct {
	Op        Op              `json:"op"`
	Namespace string          `json:"namespace"`
	Key       string          `json:"key"`
	Record    json.RawMessage `json:"record,omitempty"`
	Sender    string          `json:"sender_id,omitempty"`
}

func (m Message) ID() string {
	return types.EntryID(m.Namespace, m.Key)
}
