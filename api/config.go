// Package api provides an HTTP API server for inspecting and managing the
// named asset caches.
package api

import "github.com/papercomputeco/voxrelay/pkg/metrics"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":3001")
	ListenAddr string

	// Metrics, when set, is exposed on GET /metrics.
	Metrics *metrics.Metrics
}
