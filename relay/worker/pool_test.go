package worker

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/pkg/eventstream"
	"github.com/papercomputeco/voxrelay/pkg/llm"
	"github.com/papercomputeco/voxrelay/pkg/metrics"
	testutils "github.com/papercomputeco/voxrelay/pkg/utils/test"
)

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	release chan struct{}
}

func (b *blockingPublisher) PublishExchange(ctx context.Context, _ *eventstream.ExchangeEvent) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingPublisher) Close() error { return nil }

func newExchange(status int) *llm.Exchange {
	start := time.Unix(1735689600, 0).UTC()
	return &llm.Exchange{
		Provider:    "gemini",
		Model:       "gemini-1.5-flash",
		Message:     "What time is it?",
		Reply:       "It's 3 PM",
		Status:      status,
		StartedAt:   start,
		CompletedAt: start.Add(800 * time.Millisecond),
	}
}

var _ = Describe("Worker Pool", func() {
	var (
		wp  *Pool
		pub *testutils.MockPublisher
	)

	BeforeEach(func() {
		logger, _ := zap.NewDevelopment()
		pub = testutils.NewMockPublisher()

		var err error
		wp, err = NewPool(&Config{
			Publisher: pub,
			Logger:    logger,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a publisher", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(HaveOccurred())
	})

	It("applies defaults", func() {
		Expect(wp.config.NumWorkers).To(Equal(defaultNumWorkers))
		Expect(wp.config.QueueSize).To(Equal(defaultJobQueueSize))
		Expect(wp.config.PublishTimeout).To(Equal(defaultPublishTimeout))
		wp.Close()
	})

	Describe("Enqueue", func() {
		It("publishes one event per job once drained", func() {
			Expect(wp.Enqueue(Job{Path: "/api/chat", Exchange: newExchange(200)})).To(BeTrue())
			Expect(wp.Enqueue(Job{Path: "/api/chat", Exchange: newExchange(500)})).To(BeTrue())
			wp.Close()

			events := pub.Events()
			Expect(events).To(HaveLen(2))

			statuses := []int{events[0].RequestMeta.HTTPStatus, events[1].RequestMeta.HTTPStatus}
			Expect(statuses).To(ConsistOf(200, 500))
			Expect(events[0].RequestMeta.Path).To(Equal("/api/chat"))
			Expect(events[0].RequestMeta.DurationMs).To(Equal(int64(800)))
		})

		It("logs and drops publish failures", func() {
			pub.Err = errors.New("broker down")
			Expect(wp.Enqueue(Job{Path: "/api/chat", Exchange: newExchange(200)})).To(BeTrue())
			wp.Close()
			Expect(pub.Events()).To(BeEmpty())
		})
	})

	Describe("Backpressure", func() {
		It("drops jobs when the queue is full", func() {
			blocker := &blockingPublisher{release: make(chan struct{})}
			m := metrics.New()
			full, err := NewPool(&Config{
				Publisher:  blocker,
				NumWorkers: 1,
				QueueSize:  1,
				Metrics:    m,
				Logger:     zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			// First job occupies the single worker, second fills the queue.
			Expect(full.Enqueue(Job{Exchange: newExchange(200)})).To(BeTrue())
			Eventually(func() int { return len(full.queue) }).Should(Equal(0))
			Expect(full.Enqueue(Job{Exchange: newExchange(200)})).To(BeTrue())

			Expect(full.Enqueue(Job{Exchange: newExchange(200)})).To(BeFalse())
			Expect(testutil.ToFloat64(m.EventsDropped)).To(Equal(1.0))

			close(blocker.release)
			full.Close()
			wp.Close()
		})
	})
})
