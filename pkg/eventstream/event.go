// Package eventstream defines transport-neutral events emitted by the relay.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/voxrelay/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeExchangeCompleted is emitted after every relay exchange, successful or not.
	EventTypeExchangeCompleted = "voxrelay.exchange.completed"
)

// ExchangeEvent is a transport-neutral event payload for one relay exchange.
type ExchangeEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	RequestMeta   RequestMeta  `json:"request_meta"`
	Exchange      llm.Exchange `json:"exchange"`
}

// EventSource identifies the upstream that served the exchange.
type EventSource struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
}

// RequestMeta captures request lifecycle metadata for the event.
type RequestMeta struct {
	Path        string    `json:"path,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	HTTPStatus  int       `json:"http_status"`
}

// NewExchangeEvent builds a v1 event for the exchange with a fresh event id.
func NewExchangeEvent(path string, ex *llm.Exchange, now time.Time) *ExchangeEvent {
	return &ExchangeEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeExchangeCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		Source: EventSource{
			Provider: ex.Provider,
			Model:    ex.Model,
		},
		RequestMeta: RequestMeta{
			Path:        path,
			StartedAt:   ex.StartedAt,
			CompletedAt: ex.CompletedAt,
			DurationMs:  ex.Duration().Milliseconds(),
			HTTPStatus:  ex.Status,
		},
		Exchange: *ex,
	}
}
