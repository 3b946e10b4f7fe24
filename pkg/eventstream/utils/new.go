// Package utils builds eventstream publishers from configuration.
package utils

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/voxrelay/pkg/eventstream"
	"github.com/papercomputeco/voxrelay/pkg/eventstream/kafka"
	"github.com/papercomputeco/voxrelay/pkg/eventstream/nop"
)

// Supported publisher types
const (
	ProviderNone  = "none"
	ProviderKafka = "kafka"
)

// NewPublisherOpts configures NewPublisher.
type NewPublisherOpts struct {
	ProviderType string

	// Brokers is a comma separated broker list for kafka.
	Brokers string
	Topic   string
}

// NewPublisher returns the configured publisher. An empty provider type
// selects the no-op publisher.
func NewPublisher(opts *NewPublisherOpts) (eventstream.Publisher, error) {
	switch opts.ProviderType {
	case "", ProviderNone:
		return nop.NewPublisher(), nil
	case ProviderKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: splitBrokers(opts.Brokers),
			Topic:   opts.Topic,
		})
	default:
		return nil, fmt.Errorf("unknown event stream provider: %q (supported: %s, %s)", opts.ProviderType, ProviderNone, ProviderKafka)
	}
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
