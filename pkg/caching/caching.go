package caching

import (
	"fmt"
	"time"

	"github.com/dtnitsch/content-qa/pkg/db"
)

// Store is the persistence behind a Cache.
type Store interface {
	GetDocument(url string) (*db.Document, error)
	UpsertDocument(url, body string, fetchedAt time.Time) error
}

// Cache keeps fetched documents for a TTL. A zero TTL disables it.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewCache creates a new Cache instance.
func NewCache(store Store, ttl time.Duration) *Cache {
	return &Cache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.store != nil && c.ttl > 0
}

// Get retrieves an item from the cache.
// It returns the data and true if the item is found and not expired.
// Otherwise, it returns "" and false.
func (c *Cache) Get(url string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}

	doc, err := c.store.GetDocument(url)
	if err != nil {
		return "", false // Cache miss (or unreadable row)
	}

	// Check if expired
	if c.now().Sub(doc.FetchedAt) > c.ttl {
		return "", false // Cache miss (expired)
	}

	return doc.Body, true // Cache hit
}

// Set adds an item to the cache.
// It is a no-op when the cache is disabled.
func (c *Cache) Set(url, body string) error {
	if !c.Enabled() {
		return nil // Nothing to write to
	}
	if err := c.store.UpsertDocument(url, body, c.now()); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	return nil
}
