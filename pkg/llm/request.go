// Package llm holds the wire types exchanged between voice clients and the relay.
package llm

import (
	"encoding/json"
	"errors"
)

// ErrInvalidMessage is returned when a relay request has no usable message.
var ErrInvalidMessage = errors.New("message is required and must be a string")

// ChatRequest is the body accepted by POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ParseChatRequest decodes a relay request body.
// The message must be present, be a JSON string, and be non-empty. Malformed
// JSON is reported the same way as a missing message.
func ParseChatRequest(body []byte) (*ChatRequest, error) {
	var raw struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ErrInvalidMessage
	}

	var msg string
	if len(raw.Message) == 0 || json.Unmarshal(raw.Message, &msg) != nil {
		return nil, ErrInvalidMessage
	}
	if msg == "" {
		return nil, ErrInvalidMessage
	}

	return &ChatRequest{Message: msg}, nil
}
