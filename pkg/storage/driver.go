// Package storage defines the persistence contract for named asset caches.
package storage

import (
	"context"
	"time"
)

// Entry is a cached response keyed by its absolute request URL.
type Entry struct {
	URL      string            `json:"url"`
	Status   int               `json:"status"`
	Header   map[string]string `json:"header,omitempty"`
	Body     []byte            `json:"-"`
	StoredAt time.Time         `json:"stored_at"`
}

// ContentType returns the stored Content-Type header, if any.
func (e *Entry) ContentType() string {
	if e.Header == nil {
		return ""
	}
	return e.Header["Content-Type"]
}

// Driver defines the interface for persisting and retrieving cache entries.
// Caches are independent namespaces identified by name; there is no eviction,
// a cache only disappears through Delete.
type Driver interface {
	// Open creates the named cache if it does not exist yet.
	Open(ctx context.Context, cache string) error

	// PutAll stores every entry in the named cache, or none of them.
	// Existing entries with the same URL are replaced.
	PutAll(ctx context.Context, cache string, entries []*Entry) error

	// Match returns the entry stored under the exact URL.
	// Returns NotFoundError when the cache or the URL is unknown.
	Match(ctx context.Context, cache, url string) (*Entry, error)

	// Keys returns the URLs stored in the named cache, sorted.
	Keys(ctx context.Context, cache string) ([]string, error)

	// Caches returns all cache names, sorted.
	Caches(ctx context.Context) ([]string, error)

	// Delete removes the named cache and all its entries.
	// Returns false if the cache did not exist.
	Delete(ctx context.Context, cache string) (bool, error)

	// Close closes the store and releases any resources.
	Close() error
}
