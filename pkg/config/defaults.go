package config

const (
	defaultProvider    = "gemini"
	defaultUpstream    = "https://generativelanguage.googleapis.com"
	defaultModel       = "gemini-1.5-flash-latest"
	defaultRelayListen = ":3000"
	defaultAPIListen   = ":3001"

	defaultCacheName   = "voice-agent-v1"
	defaultCacheOrigin = "http://localhost:3000"
	defaultCacheListen = ":3002"

	defaultClientRelayTarget = "http://localhost:3000"
	defaultClientAPITarget   = "http://localhost:3001"
	defaultAutoSubmitDelayMs = 500
	defaultTargetLatencyMs   = 1200
	defaultSynthesizer       = "auto"

	defaultEventsProvider = "none"
	defaultEventsTopic    = "voxrelay.exchanges"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Provider: defaultProvider,
			Upstream: defaultUpstream,
			Model:    defaultModel,
			Listen:   defaultRelayListen,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Cache: CacheConfig{
			Name:   defaultCacheName,
			Origin: defaultCacheOrigin,
			Listen: defaultCacheListen,
		},
		Client: ClientConfig{
			RelayTarget:       defaultClientRelayTarget,
			APITarget:         defaultClientAPITarget,
			AutoSubmitDelayMs: defaultAutoSubmitDelayMs,
			TargetLatencyMs:   defaultTargetLatencyMs,
			Synthesizer:       defaultSynthesizer,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
