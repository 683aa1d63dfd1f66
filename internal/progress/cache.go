package progress

import "sync"

// Cache stores completed deep evaluations keyed by a content hash of the
// conversation and problem. Implementations must be safe for concurrent
// use.
type Cache interface {
	Get(key string) (*Evaluation, bool)
	Put(key string, eval *Evaluation)
}

// MemoryCache is an in-process Cache. Entries are never evicted; the
// content-addressed keys mean a session only accretes a handful of
// entries over its lifetime.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Evaluation
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*Evaluation)}
}

// Get returns a copy of the cached evaluation, so callers can annotate
// the result without corrupting the cache entry.
func (c *MemoryCache) Get(key string) (*Evaluation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	eval, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return copyEvaluation(eval), true
}

// Put stores a copy of the evaluation.
func (c *MemoryCache) Put(key string, eval *Evaluation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = copyEvaluation(eval)
}

// Len reports the number of cached evaluations.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func copyEvaluation(eval *Evaluation) *Evaluation {
	dup := *eval
	dup.CoveredConcepts = append([]string(nil), eval.CoveredConcepts...)
	dup.MissingConcepts = append([]string(nil), eval.MissingConcepts...)
	return &dup
}
