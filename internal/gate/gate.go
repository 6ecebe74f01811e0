// Package gate provides per-key mutual exclusion with FIFO admission.
package gate

import (
	"context"
	"sync"
)

// entry is a one-slot semaphore plus a count of goroutines holding or
// waiting on it, so idle entries can be removed from the map.
type entry struct {
	sem  chan struct{}
	refs int
}

// Gate admits at most one operation at a time per key. Waiters for the same
// key are admitted in arrival order: blocked receives on a channel are woken
// FIFO by the runtime. Distinct keys never contend.
type Gate struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Gate {
	return &Gate{entries: make(map[string]*entry)}
}

// RunExclusive runs fn while holding the key. A caller still queued may
// abandon via ctx with no side effects; once admitted, fn runs to completion
// and the key is released whether fn succeeds or fails.
func (g *Gate) RunExclusive(ctx context.Context, key string, fn func() error) error {
	e := g.acquireEntry(key)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		g.releaseEntry(key, e)
		return ctx.Err()
	}

	defer func() {
		<-e.sem
		g.releaseEntry(key, e)
	}()
	return fn()
}

func (g *Gate) acquireEntry(key string) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		g.entries[key] = e
	}
	e.refs++
	return e
}

func (g *Gate) releaseEntry(key string, e *entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(g.entries, key)
	}
}
