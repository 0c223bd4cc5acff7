package resolver

import (
	"sync"

	"lattice/internal/shared/observability"
)

// memoCache memoizes resolution outcomes. Every entry remembers the files it
// consulted, so an edit to any one of them evicts exactly the answers that
// could have changed.
type memoCache struct {
	mu      sync.RWMutex
	entries map[string]memoEntry
	// byFile maps a consulted file to the keys that read it.
	byFile map[string]map[string]struct{}
}

type memoEntry struct {
	sym    *ResolvedSymbol
	status Status
}

func newMemoCache() *memoCache {
	return &memoCache{
		entries: make(map[string]memoEntry),
		byFile:  make(map[string]map[string]struct{}),
	}
}

func (c *memoCache) get(key string) (*ResolvedSymbol, Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, StatusUnresolved, false
	}
	if e.sym == nil {
		return nil, e.status, true
	}
	out := *e.sym
	return &out, e.status, true
}

func (c *memoCache) put(key string, sym *ResolvedSymbol, status Status, consulted []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		return // idempotent: concurrent resolvers compute identical answers
	}
	var copied *ResolvedSymbol
	if sym != nil {
		v := *sym
		copied = &v
	}
	c.entries[key] = memoEntry{sym: copied, status: status}
	for _, f := range consulted {
		set, ok := c.byFile[f]
		if !ok {
			set = make(map[string]struct{})
			c.byFile[f] = set
		}
		set[key] = struct{}{}
	}
}

// invalidateFile evicts every entry whose resolution consulted path.
func (c *memoCache) invalidateFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, ok := c.byFile[path]
	if !ok {
		return
	}
	delete(c.byFile, path)
	for key := range keys {
		delete(c.entries, key)
		observability.MemoCacheInvalidations.Inc()
	}
	// Sweep the evicted keys out of the other files' index sets.
	for f, set := range c.byFile {
		for key := range keys {
			delete(set, key)
		}
		if len(set) == 0 {
			delete(c.byFile, f)
		}
	}
}

// Len reports the number of memoized outcomes, for tests and stats.
func (c *memoCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
