// Package store provides a badger-backed result cache.
package store

import (
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// cachedDocument is the record kept per document handle.
type cachedDocument struct {
	Handle   string
	Pages    [][]byte
	StoredAt time.Time
}

// BadgerCache implements pdfpages.Cache on top of a badgerhold store.
// With an empty path the store lives in memory and is gone after Close.
type BadgerCache struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	path   string
}

// NewBadgerCache opens the store. An empty path selects in-memory mode.
func NewBadgerCache(logger arbor.ILogger, path string) (*BadgerCache, error) {
	options := badgerhold.DefaultOptions
	options.Logger = nil // Disable default badger logger to use arbor
	if path == "" {
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		options.Dir = path
		options.ValueDir = path
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache: %w", err)
	}

	logger.Debug().
		Bool("in_memory", path == "").
		Str("path", path).
		Msg("Badger cache initialized")

	return &BadgerCache{
		store:  store,
		logger: logger,
		path:   path,
	}, nil
}

// Get returns the cached pages for handle.
func (c *BadgerCache) Get(handle string) ([][]byte, bool) {
	var doc cachedDocument
	err := c.store.Get(handle, &doc)
	if err == badgerhold.ErrNotFound {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("handle", handle).Msg("Failed to read cache entry")
		return nil, false
	}
	return doc.Pages, true
}

// Put stores pages for handle, replacing any previous entry.
func (c *BadgerCache) Put(handle string, pages [][]byte) {
	doc := cachedDocument{
		Handle:   handle,
		Pages:    pages,
		StoredAt: time.Now(),
	}
	if err := c.store.Upsert(handle, &doc); err != nil {
		c.logger.Warn().Err(err).Str("handle", handle).Msg("Failed to write cache entry")
	}
}

// Clear removes every entry.
func (c *BadgerCache) Clear() {
	if err := c.store.DeleteMatching(&cachedDocument{}, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear cache")
	}
}

// Len returns the number of cached documents.
func (c *BadgerCache) Len() int {
	n, err := c.store.Count(&cachedDocument{}, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to count cache entries")
		return 0
	}
	return int(n)
}

// Close releases the store. In-memory contents are dropped.
func (c *BadgerCache) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
