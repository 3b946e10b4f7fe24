package llm

import "time"

// Exchange records one relay round trip, successful or not.
type Exchange struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Message is the user utterance as received.
	Message string `json:"message"`

	// Reply is the extracted model text. Empty on failure.
	Reply string `json:"reply,omitempty"`

	// Error is the message returned to the caller on failure.
	Error string `json:"error,omitempty"`

	Status      int       `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Duration is the wall time of the exchange.
func (e *Exchange) Duration() time.Duration {
	return e.CompletedAt.Sub(e.StartedAt)
}

// Succeeded reports whether a reply was delivered.
func (e *Exchange) Succeeded() bool {
	return e.Error == "" && e.Reply != ""
}
