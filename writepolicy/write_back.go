package writepolicy

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/darkomike/bloggie-sub001/types"
)

type writeReq struct {
	ctx       context.Context
	ent       *types.CacheEntry // nil => delete
	namespace string
	key       string
	seq       uint64
}

/*
WriteBackPolicy queues writes for a single background worker so the cache
call never waits on disk. Requests are applied in queue order.

Until the worker has applied it, the latest request per entry stays visible
through Pending. When the queue is full the request is dropped and logged but
stays pending, so reads in this process keep seeing it.
*/
type WriteBackPolicy struct {
	store   types.Backing
	onError ErrorHandler

	mu     sync.RWMutex
	closed bool
	ch     chan writeReq
	wg     sync.WaitGroup

	pendingMu sync.Mutex
	pending   map[string]writeReq
	seq       uint64
}

func NewWriteBackPolicy(store types.Backing, buffer int, onError ErrorHandler) *WriteBackPolicy {
	if buffer <= 0 {
		buffer = 64
	}
	w := &WriteBackPolicy{
		store:   store,
		onError: onError,
		ch:      make(chan writeReq, buffer),
		pending: make(map[string]writeReq),
	}
	w.wg.Add(1)
	go w.worker()
	return w
}

func (w *WriteBackPolicy) OnWrite(ctx context.Context, ent *types.CacheEntry) {
	w.enqueue(writeReq{ctx: context.WithoutCancel(ctx), ent: ent, namespace: ent.Namespace, key: ent.Key})
}

func (w *WriteBackPolicy) OnDelete(ctx context.Context, namespace, key string) {
	w.enqueue(writeReq{ctx: context.WithoutCancel(ctx), namespace: namespace, key: key})
}

func (w *WriteBackPolicy) enqueue(req writeReq) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	id := types.EntryID(req.namespace, req.key)

	// sequence and send under one lock so queue order matches seq order
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.seq++
	req.seq = w.seq
	w.pending[id] = req
	select {
	case w.ch <- req:
	default:
		logrus.WithField("entry", id).
			Warn("[CACHE] write-back queue full, dropping persistence request")
	}
}

// Pending returns the queued entry for namespace/key, or nil for a queued
// delete.
func (w *WriteBackPolicy) Pending(namespace, key string) (*types.CacheEntry, bool) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	req, ok := w.pending[types.EntryID(namespace, key)]
	if !ok {
		return nil, false
	}
	return req.ent, true
}

func (w *WriteBackPolicy) worker() {
	defer w.wg.Done()
	for req := range w.ch {
		if req.ent != nil {
			report(w.onError, w.store.Put(req.ctx, req.ent))
		} else {
			report(w.onError, w.store.Delete(req.ctx, req.namespace, req.key))
		}
		w.settle(req)
	}
}

// settle forgets req once applied, unless a newer request for the entry is
// already queued.
func (w *WriteBackPolicy) settle(req writeReq) {
	id := types.EntryID(req.namespace, req.key)
	w.pendingMu.Lock()
	if cur, ok := w.pending[id]; ok && cur.seq == req.seq {
		delete(w.pending, id)
	}
	w.pendingMu.Unlock()
}

// Close stops accepting requests and waits for the queue to drain.
func (w *WriteBackPolicy) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()
	w.wg.Wait()
}

var _ Overlay = (*WriteBackPolicy)(nil)
