// Package provider abstracts the hosted generative-language APIs the relay can
// forward to.
package provider

// Provider knows how to address one upstream API and translate between plain
// text and its wire envelope.
type Provider interface {
	// Name returns the canonical provider name (e.g., "gemini").
	Name() string

	// Label is the human-facing name used in error messages (e.g., "Gemini").
	Label() string

	// Model is the model identifier reported back to relay callers.
	Model() string

	// Endpoint returns the full upstream URL for a single generate call,
	// authenticated with apiKey.
	Endpoint(apiKey string) string

	// EncodeRequest wraps user text in the provider's request envelope.
	EncodeRequest(text string) ([]byte, error)

	// DecodeReply extracts the reply text from a successful upstream payload.
	// Returns "" with a nil error when the payload is valid but carries no text.
	DecodeReply(payload []byte) (string, error)
}
