// Package publisher fans result snapshots out to broadcasters without ever
// blocking the submission path.
package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/evercare/livepoll/internal/domain"
	"github.com/evercare/livepoll/internal/platform/metrics"
)

type job struct {
	pollCode string
	results  domain.PollResults
}

// Publisher runs a fixed worker pool over a bounded queue. When the queue is
// full the oldest pending publish is dropped in favor of the new one: a stale
// snapshot is superseded by the next submission's snapshot anyway, and the
// submitter must never wait on fan-out.
type Publisher struct {
	queue           chan job
	broadcasters    []domain.Broadcaster
	deliveryTimeout time.Duration
	logger          *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}
}

func New(broadcasters []domain.Broadcaster, workers, queueSize int, deliveryTimeout time.Duration, logger *slog.Logger) *Publisher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	p := &Publisher{
		queue:           make(chan job, queueSize),
		broadcasters:    broadcasters,
		deliveryTimeout: deliveryTimeout,
		logger:          logger,
		done:            make(chan struct{}),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Publish enqueues a snapshot and returns immediately. After Stop it is a no-op.
func (p *Publisher) Publish(pollCode string, results domain.PollResults) {
	j := job{pollCode: pollCode, results: results}
	for {
		// Checked on its own so a publish after Stop never touches the closed queue.
		select {
		case <-p.done:
			return
		default:
		}

		select {
		case p.queue <- j:
			return
		default:
		}

		// Queue saturated: evict the oldest pending job and retry.
		select {
		case <-p.queue:
			metrics.IncPublishDropped()
			p.logger.Warn("publish queue full, dropped oldest pending snapshot")
		default:
		}
	}
}

// Stop drains in-flight work and releases the workers. The caller guarantees
// no further Publish calls race with it.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		close(p.queue)
	})
	p.wg.Wait()
}

func (p *Publisher) worker() {
	defer p.wg.Done()
	for j := range p.queue {
		p.deliver(j)
	}
}

func (p *Publisher) deliver(j job) {
	start := time.Now()

	envelope := domain.ResultEnvelope{
		Type:     domain.EnvelopeTypePollUpdated,
		PollCode: j.pollCode,
		Data:     j.results,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Error("encoding result envelope", "poll", j.pollCode, "err", err)
		return
	}

	for _, b := range p.broadcasters {
		// Each broadcaster gets its own deadline so a slow one cannot stall the rest.
		ctx, cancel := context.WithTimeout(context.Background(), p.deliveryTimeout)
		if err := b.Broadcast(ctx, j.pollCode, payload); err != nil {
			p.logger.Error("broadcasting results", "poll", j.pollCode, "err", err)
		}
		cancel()
	}

	metrics.IncResultsPublished()
	metrics.ObservePublishDuration(time.Since(start).Seconds())
}

var _ domain.ResultPublisher = (*Publisher)(nil)
