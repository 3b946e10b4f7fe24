// Package client is the orchestrator's HTTP relay client. Requests go through
// an assetcache.Fetcher so that a registered asset worker sees them first.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/papercomputeco/voxrelay/pkg/assetcache"
	"github.com/papercomputeco/voxrelay/pkg/llm"
)

// RelayError is a non-2xx answer from the relay endpoint.
type RelayError struct {
	Status  int
	Message string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay returned %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status.
func (e *RelayError) StatusCode() int {
	return e.Status
}

// ErrorMessage returns the endpoint's error message.
func (e *RelayError) ErrorMessage() string {
	return e.Message
}

// HTTPRelay posts messages to a relay's chat endpoint.
type HTTPRelay struct {
	target  string
	fetcher assetcache.Fetcher
}

// NewHTTPRelay creates a client for the relay at target.
func NewHTTPRelay(target string, fetcher assetcache.Fetcher) *HTTPRelay {
	return &HTTPRelay{
		target:  strings.TrimRight(target, "/"),
		fetcher: fetcher,
	}
}

// Chat sends one message and decodes the reply.
func (h *HTTPRelay) Chat(ctx context.Context, message string) (*llm.ChatResponse, error) {
	body, err := json.Marshal(llm.ChatRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	resp, err := h.fetcher.Fetch(ctx, &assetcache.Request{
		Method: http.MethodPost,
		URL:    h.target + "/api/chat",
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if !resp.OK() {
		var errResp llm.ErrorResponse
		if err := json.Unmarshal(resp.Body, &errResp); err != nil {
			return nil, fmt.Errorf("decoding error response (status %d): %w", resp.Status, err)
		}
		return nil, &RelayError{Status: resp.Status, Message: errResp.Error}
	}

	var chat llm.ChatResponse
	if err := json.Unmarshal(resp.Body, &chat); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	return &chat, nil
}
