// Package worker provides an asynchronous worker pool that publishes relay
// exchanges to the configured eventstream.Publisher.
//
// The pool decouples event publishing from the relay's HTTP hot path so that a
// slow or unavailable broker never delays a chat reply.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/pkg/eventstream"
	"github.com/papercomputeco/voxrelay/pkg/llm"
	"github.com/papercomputeco/voxrelay/pkg/metrics"
)

var (
	defaultNumWorkers     uint = 3
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Path     string
	Exchange *llm.Exchange
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives one event per job.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds a single publish call (defaults to 10s).
	PublishTimeout time.Duration

	// Metrics counts dropped jobs. Optional.
	Metrics *metrics.Metrics

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool publishes exchange events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
	now    func() time.Time
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
		now:    time.Now,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("provider", job.Exchange.Provider),
			zap.Int("status", job.Exchange.Status),
		)
		return true
	default:
		p.config.Metrics.EventDropped()
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("provider", job.Exchange.Provider),
			zap.Int("status", job.Exchange.Status),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the relay HTTP server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("event worker stopped", zap.Uint("worker_id", id))
}

// processJob publishes one exchange event. Failures are logged and dropped.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	event := eventstream.NewExchangeEvent(job.Path, job.Exchange, p.now())
	if err := p.config.Publisher.PublishExchange(ctx, event); err != nil {
		p.logger.Error("exchange event publish failed",
			zap.String("event_id", event.EventID),
			zap.String("provider", job.Exchange.Provider),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("exchange event published",
		zap.String("event_id", event.EventID),
		zap.Int64("duration_ms", event.RequestMeta.DurationMs),
	)
}
