package relay

import (
	"os"

	"github.com/papercomputeco/voxrelay/pkg/eventstream"
	"github.com/papercomputeco/voxrelay/pkg/metrics"
)

// APIKeyEnv is the environment variable holding the upstream credential.
const APIKeyEnv = "GEMINI_API_KEY"

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":3000")
	ListenAddr string

	// Provider is the upstream provider type (defaults to "gemini").
	Provider string

	// UpstreamURL is the base URL of the generative language API.
	UpstreamURL string

	// Model is the upstream model id used in the request path.
	Model string

	// KeySource returns the upstream credential. It is consulted on every
	// request, so a key exported after startup is picked up. Defaults to
	// reading GEMINI_API_KEY from the environment.
	KeySource func() string

	// StaticDir is an optional directory served at "/" as the asset origin.
	StaticDir string

	// Publisher receives an event for every completed exchange.
	// If nil, events are discarded.
	Publisher eventstream.Publisher

	// Metrics is optional; nil disables instrumentation and /metrics.
	Metrics *metrics.Metrics
}

// EnvKeySource reads the credential from GEMINI_API_KEY.
func EnvKeySource() string {
	return os.Getenv(APIKeyEnv)
}
