// Package gemini implements the Provider interface for Google's Generative
// Language API (generateContent).
package gemini

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultUpstream is the public Generative Language API host.
	DefaultUpstream = "https://generativelanguage.googleapis.com"

	// DefaultModel is the model addressed in the endpoint path.
	DefaultModel = "gemini-1.5-flash-latest"
)

// Provider implements the Provider interface for Gemini.
type Provider struct {
	upstream string
	model    string
}

// New creates a Gemini provider. Empty arguments select the defaults.
func New(upstream, model string) *Provider {
	if upstream == "" {
		upstream = DefaultUpstream
	}
	if model == "" {
		model = DefaultModel
	}

	return &Provider{
		upstream: strings.TrimRight(upstream, "/"),
		model:    model,
	}
}

// Name returns the provider type.
func (p *Provider) Name() string {
	return "gemini"
}

// Label is the display name used in client-facing errors.
func (p *Provider) Label() string {
	return "Gemini"
}

// Model reports the addressed model without its "-latest" alias suffix,
// e.g. "gemini-1.5-flash" for "gemini-1.5-flash-latest".
func (p *Provider) Model() string {
	return strings.TrimSuffix(p.model, "-latest")
}

// Endpoint returns the generateContent URL with the key as a query parameter.
func (p *Provider) Endpoint(apiKey string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		p.upstream,
		url.PathEscape(p.model),
		url.QueryEscape(apiKey),
	)
}

// EncodeRequest builds {"contents":[{"parts":[{"text": text}]}]}.
func (p *Provider) EncodeRequest(text string) ([]byte, error) {
	return json.Marshal(generateContentRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
	})
}

// DecodeReply reads candidates[0].content.parts[0].text.
func (p *Provider) DecodeReply(payload []byte) (string, error) {
	var resp generateContentResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", fmt.Errorf("decoding generateContent response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", nil
	}
	c := resp.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 {
		return "", nil
	}

	return c.Parts[0].Text, nil
}
