// Package assetcache implements an offline asset cache with the lifecycle of a
// browser service worker: install pre-caches a fixed manifest, activate takes
// control, and fetch serves controlled requests cache-first.
//
// The worker never writes back network responses; entries only change at install.
package assetcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/voxrelay/pkg/metrics"
	"github.com/papercomputeco/voxrelay/pkg/storage"
)

var (
	// ErrInstallFailed wraps every install failure.
	ErrInstallFailed = errors.New("asset cache install failed")

	// ErrNotInstalled is returned when activating a worker that has not installed.
	ErrNotInstalled = errors.New("asset cache worker is not installed")
)

const defaultConcurrency = 4

// Fetch outcomes, also used as metric labels.
const (
	OutcomeHit         = "hit"
	OutcomeMiss        = "miss"
	OutcomeBypass      = "bypass"
	OutcomePassthrough = "passthrough"
)

// Config is the worker configuration.
type Config struct {
	// CacheName names the cache. Defaults to DefaultCacheName.
	CacheName string

	// Manifest lists the paths or URLs to pre-cache. Defaults to DefaultManifest.
	Manifest []string

	// BypassHosts are hosts whose requests always go to the network.
	// Defaults to DefaultBypassHosts.
	BypassHosts []string

	// Origin is the base URL relative manifest paths and requests resolve against.
	Origin string

	// Driver stores cache entries.
	Driver storage.Driver

	// Network performs fetches that are not served from the cache.
	// Defaults to an HTTPFetcher rooted at Origin.
	Network Fetcher

	// Concurrency bounds concurrent manifest fetches during install.
	Concurrency int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Stats are the worker's fetch counters.
type Stats struct {
	CacheName   string `json:"cache_name"`
	State       string `json:"state"`
	Hits        int64  `json:"hits"`
	Misses      int64  `json:"misses"`
	Bypassed    int64  `json:"bypassed"`
	Passthrough int64  `json:"passthrough"`
	Network     int64  `json:"network"`
}

// Worker is a single asset cache worker instance.
type Worker struct {
	config  Config
	origin  *url.URL
	driver  storage.Driver
	network Fetcher
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu          sync.RWMutex
	state       State
	skipWaiting bool
	controlling bool

	hits           atomic.Int64
	misses         atomic.Int64
	bypasses       atomic.Int64
	passthrough    atomic.Int64
	networkFetches atomic.Int64
}

// New creates a worker in the parsed state.
func New(c Config) (*Worker, error) {
	if c.Driver == nil {
		return nil, errors.New("storage driver is required")
	}
	if c.CacheName == "" {
		c.CacheName = DefaultCacheName
	}
	if c.Manifest == nil {
		c.Manifest = DefaultManifest()
	}
	if c.BypassHosts == nil {
		c.BypassHosts = DefaultBypassHosts()
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	w := &Worker{
		config:  c,
		driver:  c.Driver,
		network: c.Network,
		logger:  c.Logger,
		metrics: c.Metrics,
		state:   StateParsed,
	}

	if c.Origin != "" {
		u, err := parseOrigin(c.Origin)
		if err != nil {
			return nil, err
		}
		w.origin = u
	}

	if w.network == nil {
		f, err := NewHTTPFetcher(c.Origin, nil)
		if err != nil {
			return nil, err
		}
		w.network = f
	}

	return w, nil
}

// CacheName returns the name of the worker's cache.
func (w *Worker) CacheName() string {
	return w.config.CacheName
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// SkipWaiting reports whether the worker is ready to activate without waiting
// for older instances.
func (w *Worker) SkipWaiting() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.skipWaiting
}

// Controlling reports whether the worker has claimed its clients.
func (w *Worker) Controlling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.controlling
}

// Install opens the cache and stores every manifest entry, or none of them.
func (w *Worker) Install(ctx context.Context) error {
	w.mu.Lock()
	if w.state != StateParsed && w.state != StateRedundant {
		state := w.state
		w.mu.Unlock()
		return fmt.Errorf("%w: cannot install from state %s", ErrInstallFailed, state)
	}
	w.state = StateInstalling
	w.mu.Unlock()

	w.logger.Info("installing asset cache",
		zap.String("cache", w.config.CacheName),
		zap.Int("manifest_size", len(w.config.Manifest)),
	)

	entries, err := w.fetchManifest(ctx)
	if err == nil {
		err = w.driver.Open(ctx, w.config.CacheName)
	}
	if err == nil {
		err = w.driver.PutAll(ctx, w.config.CacheName, entries)
	}

	if err != nil {
		w.mu.Lock()
		w.state = StateRedundant
		w.mu.Unlock()

		w.metrics.CacheInstall(false, 0)
		w.logger.Error("asset cache install failed",
			zap.String("cache", w.config.CacheName),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrInstallFailed, err)
	}

	size := 0
	for _, e := range entries {
		size += len(e.Body)
	}

	w.mu.Lock()
	w.state = StateInstalled
	w.skipWaiting = true
	w.mu.Unlock()

	w.metrics.CacheInstall(true, size)
	w.logger.Info("asset cache installed",
		zap.String("cache", w.config.CacheName),
		zap.Int("entries", len(entries)),
		zap.Int("bytes", size),
	)
	return nil
}

// fetchManifest fetches all manifest entries concurrently. Any transport
// error or non-2xx response fails the whole batch.
func (w *Worker) fetchManifest(ctx context.Context) ([]*storage.Entry, error) {
	entries := make([]*storage.Entry, len(w.config.Manifest))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)

	for i, path := range w.config.Manifest {
		g.Go(func() error {
			target, err := resolve(w.origin, path)
			if err != nil {
				return err
			}

			resp, err := w.network.Fetch(gctx, &Request{Method: http.MethodGet, URL: target})
			if err != nil {
				return err
			}
			if !resp.OK() {
				return fmt.Errorf("fetching %s: unexpected status %d", target, resp.Status)
			}

			w.logger.Debug("fetched manifest entry",
				zap.String("url", target),
				zap.Int("bytes", len(resp.Body)),
			)

			entries[i] = &storage.Entry{
				URL:      target,
				Status:   resp.Status,
				Header:   flattenHeader(resp.Header),
				Body:     resp.Body,
				StoredAt: time.Now().UTC(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Activate claims clients so that subsequent fetches are controlled.
func (w *Worker) Activate(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateInstalled {
		return fmt.Errorf("%w: state is %s", ErrNotInstalled, w.state)
	}

	w.state = StateActivating
	w.controlling = true
	w.state = StateActivated

	w.logger.Info("asset cache activated", zap.String("cache", w.config.CacheName))
	return nil
}

// Fetch handles one intercepted request.
func (w *Worker) Fetch(ctx context.Context, req *Request) (*Response, error) {
	target, err := resolve(w.origin, req.URL)
	if err != nil {
		return nil, err
	}
	req = &Request{Method: req.Method, URL: target, Header: req.Header, Body: req.Body}

	if w.isBypassed(target) {
		w.bypasses.Add(1)
		w.metrics.CacheFetch(OutcomeBypass)
		return w.fetchNetwork(ctx, req)
	}

	if !w.Controlling() {
		w.passthrough.Add(1)
		w.metrics.CacheFetch(OutcomePassthrough)
		return w.fetchNetwork(ctx, req)
	}

	if req.Method == "" || req.Method == http.MethodGet {
		entry, err := w.driver.Match(ctx, w.config.CacheName, target)
		switch {
		case err == nil:
			w.hits.Add(1)
			w.metrics.CacheFetch(OutcomeHit)
			w.logger.Debug("cache hit", zap.String("url", target))
			return &Response{
				URL:       entry.URL,
				Status:    entry.Status,
				Header:    expandHeader(entry.Header),
				Body:      entry.Body,
				FromCache: true,
			}, nil
		case !isNotFound(err):
			w.logger.Warn("cache lookup failed, falling back to network",
				zap.String("url", target),
				zap.Error(err),
			)
		}
	}

	w.misses.Add(1)
	w.metrics.CacheFetch(OutcomeMiss)
	return w.fetchNetwork(ctx, req)
}

func (w *Worker) fetchNetwork(ctx context.Context, req *Request) (*Response, error) {
	w.networkFetches.Add(1)
	return w.network.Fetch(ctx, req)
}

func (w *Worker) isBypassed(target string) bool {
	for _, host := range w.config.BypassHosts {
		if host != "" && strings.Contains(target, host) {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of the fetch counters.
func (w *Worker) Stats() Stats {
	return Stats{
		CacheName:   w.config.CacheName,
		State:       w.State().String(),
		Hits:        w.hits.Load(),
		Misses:      w.misses.Load(),
		Bypassed:    w.bypasses.Load(),
		Passthrough: w.passthrough.Load(),
		Network:     w.networkFetches.Load(),
	}
}

// Register installs then activates the worker. Failures are logged and
// returned; callers may keep running uncontrolled.
func Register(ctx context.Context, w *Worker, logger *zap.Logger) error {
	if err := w.Install(ctx); err != nil {
		logger.Warn("asset cache registration failed", zap.Error(err))
		return err
	}
	if err := w.Activate(ctx); err != nil {
		logger.Warn("asset cache activation failed", zap.Error(err))
		return err
	}
	logger.Debug("asset cache registered", zap.String("cache", w.CacheName()))
	return nil
}

func isNotFound(err error) bool {
	var nf storage.NotFoundError
	return errors.As(err, &nf)
}

func flattenHeader(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func expandHeader(h map[string]string) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		out.Set(k, v)
	}
	return out
}
