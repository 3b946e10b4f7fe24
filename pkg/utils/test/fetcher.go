package testutils

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/papercomputeco/voxrelay/pkg/assetcache"
)

// ErrOffline is returned by MockFetcher when offline.
var ErrOffline = errors.New("network unreachable")

// MockFetcher serves canned responses keyed by absolute URL.
type MockFetcher struct {
	mu       sync.Mutex
	routes   map[string]*assetcache.Response
	requests []*assetcache.Request
	offline  bool
}

// NewMockFetcher creates a MockFetcher with no routes.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{routes: make(map[string]*assetcache.Response)}
}

// Serve registers a response for url.
func (m *MockFetcher) Serve(url string, status int, body string) *MockFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[url] = &assetcache.Response{
		URL:    url,
		Status: status,
		Header: http.Header{"Content-Type": []string{"text/plain"}},
		Body:   []byte(body),
	}
	return m
}

// SetOffline makes every subsequent fetch fail with ErrOffline.
func (m *MockFetcher) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

func (m *MockFetcher) Fetch(_ context.Context, req *assetcache.Request) (*assetcache.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.offline {
		return nil, ErrOffline
	}

	resp, ok := m.routes[req.URL]
	if !ok {
		return &assetcache.Response{URL: req.URL, Status: http.StatusNotFound}, nil
	}
	out := *resp
	return &out, nil
}

// Requests returns the URLs fetched so far, in order.
func (m *MockFetcher) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make([]string, 0, len(m.requests))
	for _, r := range m.requests {
		urls = append(urls, r.URL)
	}
	return urls
}
