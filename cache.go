package pdfpages

import "sync"

// Cache holds the last successful extraction per document handle for
// the lifetime of the process. Entries are replaced, never merged.
type Cache interface {
	Get(handle string) ([][]byte, bool)
	Put(handle string, pages [][]byte)
	// Clear drops every entry.
	Clear()
}

// MemoryCache is a [Cache] backed by a map. Entries are never evicted.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][][]byte
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][][]byte)}
}

func (m *MemoryCache) Get(handle string) ([][]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pages, ok := m.entries[handle]
	return pages, ok
}

func (m *MemoryCache) Put(handle string, pages [][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[handle] = pages
}

func (m *MemoryCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
}

// Len returns the number of cached documents.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
