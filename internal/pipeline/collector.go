package pipeline

import "sync"

// collector gathers per-document outcomes from workers until it is sealed.
// Anything arriving after seal is dropped.
type collector[T any] struct {
	mu      sync.Mutex
	sealed  bool
	results map[int]T
	skipped map[int]Skip
}

func newCollector[T any]() *collector[T] {
	return &collector[T]{
		results: make(map[int]T),
		skipped: make(map[int]Skip),
	}
}

func (c *collector[T]) open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.sealed
}

func (c *collector[T]) add(i int, v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return false
	}
	c.results[i] = v
	return true
}

func (c *collector[T]) fail(i int, s Skip) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return false
	}
	c.skipped[i] = s
	return true
}

// seal stops collection and hands back what arrived in time.
func (c *collector[T]) seal() (map[int]T, map[int]Skip) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	return c.results, c.skipped
}
