package main

import (
	"sync"

	"github.com/meikuraledutech/phenotree"
)

// renderFeed is the session's canvas. It keeps the latest graph and a
// revision counter that the browser widget polls.
type renderFeed struct {
	mu       sync.RWMutex
	graph    phenotree.Graph
	revision uint64
}

func (f *renderFeed) Render(g phenotree.Graph) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.graph = g
	f.revision++
}

func (f *renderFeed) latest() (phenotree.Graph, uint64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.graph.Clone(), f.revision
}
