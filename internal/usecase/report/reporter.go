// Package report ships filter events to analytics sinks in the background.
//
// Delivery is best-effort: a full queue drops events and a failed write is logged, never retried.
package report

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/feedlock/internal/domain/analytics"
	"github.com/kailas-cloud/feedlock/internal/metrics"
)

// Sink persists a batch of events.
type Sink interface {
	Write(ctx context.Context, events []analytics.Event) error
}

// Defaults for the queue and batching.
const (
	DefaultQueueSize     = 1024
	DefaultBatchSize     = 50
	DefaultFlushInterval = 2 * time.Second
	writeTimeout         = 5 * time.Second
)

// Reporter buffers events in a bounded queue drained by a single worker.
type Reporter struct {
	sink          Sink
	queue         chan analytics.Event
	batchSize     int
	flushInterval time.Duration
	logger        *zap.Logger

	wg sync.WaitGroup
	// mu orders enqueues against Close so the final drain sees every accepted event.
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// New creates a reporter. Non-positive sizes and intervals select the defaults.
func New(sink Sink, queueSize, batchSize int, flushInterval time.Duration, logger *zap.Logger) *Reporter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &Reporter{
		sink:          sink,
		queue:         make(chan analytics.Event, queueSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		done:          make(chan struct{}),
	}
}

// Start launches the worker.
func (r *Reporter) Start() {
	r.wg.Add(1)
	go r.run()
}

// Report enqueues an event without blocking. Returns false when the event was dropped,
// either because the queue is full or the reporter is closed.
func (r *Reporter) Report(e analytics.Event) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		metrics.ReportEventsTotal.WithLabelValues("dropped").Inc()
		return false
	}

	select {
	case r.queue <- e:
		return true
	default:
		metrics.ReportEventsTotal.WithLabelValues("dropped").Inc()
		r.logger.Debug("Analytics queue full, dropping event", zap.String("post_id", e.PostID))
		return false
	}
}

// Close stops accepting events, flushes what is queued and waits for the worker.
func (r *Reporter) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.done)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Reporter) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]analytics.Event, 0, r.batchSize)
	for {
		select {
		case e := <-r.queue:
			batch = append(batch, e)
			if len(batch) >= r.batchSize {
				batch = r.flush(batch)
			}
		case <-ticker.C:
			batch = r.flush(batch)
		case <-r.done:
			for {
				select {
				case e := <-r.queue:
					batch = append(batch, e)
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

func (r *Reporter) flush(batch []analytics.Event) []analytics.Event {
	if len(batch) == 0 {
		return batch
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.sink.Write(ctx, batch); err != nil {
		metrics.ReportEventsTotal.WithLabelValues("failed").Add(float64(len(batch)))
		r.logger.Warn("Failed to write analytics events", zap.Int("count", len(batch)), zap.Error(err))
	} else {
		metrics.ReportEventsTotal.WithLabelValues("written").Add(float64(len(batch)))
	}
	return batch[:0]
}
