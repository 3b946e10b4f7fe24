package kafka_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/voxrelay/pkg/eventstream"
	"github.com/papercomputeco/voxrelay/pkg/eventstream/kafka"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w *recordingWriter
		p *kafka.Publisher
	)

	BeforeEach(func() {
		w = &recordingWriter{}
		var err error
		p, err = kafka.NewPublisher(kafka.Config{Writer: w})
		Expect(err).NotTo(HaveOccurred())
	})

	It("defaults the topic", func() {
		Expect(p.Topic()).To(Equal(kafka.DefaultTopic))
	})

	It("writes one JSON message keyed by event id", func() {
		event := &eventstream.ExchangeEvent{
			EventID:   "evt_1",
			EventType: eventstream.EventTypeExchangeCompleted,
		}
		Expect(p.PublishExchange(context.Background(), event)).To(Succeed())

		Expect(w.msgs).To(HaveLen(1))
		Expect(string(w.msgs[0].Key)).To(Equal("evt_1"))

		var decoded eventstream.ExchangeEvent
		Expect(json.Unmarshal(w.msgs[0].Value, &decoded)).To(Succeed())
		Expect(decoded.EventType).To(Equal(eventstream.EventTypeExchangeCompleted))
		Expect(w.msgs[0].Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeExchangeCompleted)}))
	})

	It("rejects nil events", func() {
		Expect(p.PublishExchange(context.Background(), nil)).To(MatchError(eventstream.ErrNilExchangeEvent))
		Expect(w.msgs).To(BeEmpty())
	})

	It("wraps writer errors", func() {
		w.err = errors.New("broker down")
		err := p.PublishExchange(context.Background(), &eventstream.ExchangeEvent{EventID: "x"})
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})

	It("requires brokers without an injected writer", func() {
		_, err := kafka.NewPublisher(kafka.Config{})
		Expect(err).To(HaveOccurred())
	})
})
