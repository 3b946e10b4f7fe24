package llm

import "time"

// TimestampLayout is the ISO-8601 layout used for ChatResponse.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ChatResponse is the success body returned by POST /api/chat.
type ChatResponse struct {
	// Message is the trimmed reply text.
	Message string `json:"message"`

	// Model identifies the model that produced the reply.
	Model string `json:"model"`

	// Timestamp is when the response was constructed.
	Timestamp string `json:"timestamp"`
}

// NewChatResponse stamps a reply with the given construction time.
func NewChatResponse(message, model string, at time.Time) *ChatResponse {
	return &ChatResponse{
		Message:   message,
		Model:     model,
		Timestamp: at.UTC().Format(TimestampLayout),
	}
}

// ErrorResponse is the failure body returned by the relay and API servers.
type ErrorResponse struct {
	Error string `json:"error"`
}
