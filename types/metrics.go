package types

/*
Metrics receives one call per cache lifecycle event. Every method takes the
namespace so a single implementation can report per-namespace series.
*/
type Metrics interface {

	// Hit is called when Get returns a live entry.
	Hit(namespace string)

	// Miss is called when Get finds nothing in memory or in the backing store.
	Miss(namespace string)

	// Set is called for every write, local or adopted from another context.
	Set(namespace string)

	// Invalidate is called for every explicit removal, present or not.
	Invalidate(namespace string)

	// Expire is called when a read finds an entry past its TTL.
	Expire(namespace string)

	// Eviction is called when the in-memory layer drops a key to make room.
	Eviction(namespace string)

	// Refresh is called when the refresh hook runs on a read.
	Refresh(namespace string)

	// DecodeFailure is called when a persisted record cannot be decoded.
	DecodeFailure(namespace string)

	// StorageFallback is called once when the backing store fails and the
	// cache switches to memory-only mode.
	StorageFallback()
}

// NoopMetrics ignores every event. It is the default so the cache never has
// to nil-check its metrics.
type NoopMetrics struct{}

func (NoopMetrics) Hit(string)           {}
func (NoopMetrics) Miss(string)          {}
func (NoopMetrics) Set(string)           {}
func (NoopMetrics) Invalidate(string)    {}
func (NoopMetrics) Expire(string)        {}
func (NoopMetrics) Eviction(string)      {}
func (NoopMetrics) Refresh(string)       {}
func (NoopMetrics) DecodeFailure(string) {}
func (NoopMetrics) StorageFallback()     {}
