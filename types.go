package main

import (
	"sync"

	"github.com/banshee-data/level.report/internal/level"
)

// latestResult holds the most recent detector result for the HTTP API. The
// processing goroutine stores; API goroutines load.
type latestResult struct {
	mu     sync.RWMutex
	result *level.Result
}

func (l *latestResult) Store(r *level.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.result = r
}

// Latest returns the most recent result, or false before the first sweep.
func (l *latestResult) Latest() (*level.Result, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.result, l.result != nil
}
