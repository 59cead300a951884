package testfixtures

import "sync"

// IDGenerator produces deterministic numeric identifiers for fake backend records.
type IDGenerator struct {
	mu      sync.Mutex
	counter int64
}

// NewIDGenerator constructs a generator whose first identifier is start+1.
func NewIDGenerator(start int64) *IDGenerator {
	return &IDGenerator{counter: start}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return g.counter
}

// SetCounter overrides the internal counter, enabling deterministic resets.
func (g *IDGenerator) SetCounter(counter int64) {
	g.mu.Lock()
	g.counter = counter
	g.mu.Unlock()
}
