// Package inmemory provides a map-backed storage.Driver.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/papercomputeco/voxrelay/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu is a read write sync mutex for locking the cache maps
	mu sync.RWMutex

	// caches maps a cache name to its entries, keyed by URL
	caches map[string]map[string]*storage.Entry
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		caches: make(map[string]map[string]*storage.Entry),
	}
}

// Open creates the named cache if missing.
func (d *Driver) Open(_ context.Context, cache string) error {
	if cache == "" {
		return errors.New("cache name is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.caches[cache]; !ok {
		d.caches[cache] = make(map[string]*storage.Entry)
	}
	return nil
}

// PutAll validates every entry before touching the map, so a bad entry
// leaves the cache unchanged.
func (d *Driver) PutAll(_ context.Context, cache string, entries []*storage.Entry) error {
	for _, e := range entries {
		if e == nil || e.URL == "" {
			return errors.New("cannot store entry without url")
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.caches[cache]
	if !ok {
		c = make(map[string]*storage.Entry)
		d.caches[cache] = c
	}

	for _, e := range entries {
		stored := *e
		stored.Body = append([]byte(nil), e.Body...)
		c[e.URL] = &stored
	}
	return nil
}

// Match retrieves an entry by exact URL.
func (d *Driver) Match(_ context.Context, cache, url string) (*storage.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.caches[cache]
	if !ok {
		return nil, storage.NotFoundError{Cache: cache}
	}

	e, ok := c[url]
	if !ok {
		return nil, storage.NotFoundError{Cache: cache, URL: url}
	}

	out := *e
	out.Body = append([]byte(nil), e.Body...)
	return &out, nil
}

// Keys lists the URLs in the named cache.
func (d *Driver) Keys(_ context.Context, cache string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.caches[cache]
	if !ok {
		return nil, storage.NotFoundError{Cache: cache}
	}

	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Caches lists all cache names.
func (d *Driver) Caches(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.caches))
	for name := range d.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete drops the named cache.
func (d *Driver) Delete(_ context.Context, cache string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.caches[cache]; !ok {
		return false, nil
	}
	delete(d.caches, cache)
	return true, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
