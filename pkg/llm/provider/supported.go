package provider

import (
	"fmt"

	"github.com/papercomputeco/voxrelay/pkg/llm/provider/gemini"
)

// Supported provider type constants
const (
	Gemini = "gemini"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Gemini}
}

// New creates a new Provider for the given type, upstream base URL and model.
// Empty upstream or model fall back to the provider's defaults.
func New(providerType, upstreamURL, model string) (Provider, error) {
	switch providerType {
	case Gemini:
		return gemini.New(upstreamURL, model), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
}
