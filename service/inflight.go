package service

import (
	"sync"

	"github.com/google/uuid"
)

// inflightGuard permits at most one running analysis per document. Analysis
// performs a delete-then-insert swap; two interleaved writers for the same
// document would corrupt section and chunk consistency.
type inflightGuard struct {
	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{active: make(map[uuid.UUID]struct{})}
}

// tryAcquire reserves the document for analysis, returning false if an
// analysis is already running for it
func (g *inflightGuard) tryAcquire(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.active[id]; ok {
		return false
	}
	g.active[id] = struct{}{}
	return true
}

func (g *inflightGuard) release(id uuid.UUID) {
	g.mu.Lock()
	delete(g.active, id)
	g.mu.Unlock()
}
