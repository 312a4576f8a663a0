package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hooknotify/hooknotify/event"
	"github.com/hooknotify/hooknotify/history"
	"github.com/hooknotify/hooknotify/metrics"
)

const (
	defaultMinInterval = 2 * time.Second
	defaultMaxDepth    = 5
)

// Presentation is the sink that renders one delivered notification to
// the user. hasMore tells it to indicate additional queued items.
type Presentation interface {
	Deliver(title, body string, hasMore bool)
}

// QueueConfig holds the rate limiter settings
type QueueConfig struct {
	// MinInterval is the minimum gap between consecutive deliveries
	MinInterval time.Duration
	// MaxDepth bounds the number of pending events; older entries are
	// evicted first when it is exceeded
	MaxDepth       int
	HistoryEnabled bool
}

type QueueOption func(*DeliveryQueue)

// WithClock injects the time source and pacing sleep, for deterministic
// tests
func WithClock(now func() time.Time, sleep func(time.Duration)) QueueOption {
	return func(q *DeliveryQueue) {
		q.now = now
		q.sleep = sleep
	}
}

/* DeliveryQueue buffers inbound events and releases them to the
 * presentation layer no faster than MinInterval apart, in strict FIFO
 * arrival order modulo evictions.
 *
 * All queue state is guarded by one mutex; at most one drain loop runs
 * per queue, enforced by the draining flag checked-and-set under that
 * same mutex. The pacing sleep never holds the lock, so Enqueue is
 * never blocked by a drain in progress.
 */
type DeliveryQueue struct {
	cfg      QueueConfig
	present  Presentation
	recorder history.Recorder
	log      *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)

	mu           sync.Mutex
	pending      []event.Event
	draining     bool
	lastDelivery time.Time
	dropped      uint64
	wg           sync.WaitGroup
}

// NewDeliveryQueue creates a queue with dependency injection
func NewDeliveryQueue(cfg QueueConfig, present Presentation, recorder history.Recorder, log *slog.Logger, opts ...QueueOption) *DeliveryQueue {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}
	if recorder == nil {
		recorder = history.Nop{}
	}

	q := &DeliveryQueue{
		cfg:      cfg,
		present:  present,
		recorder: recorder,
		log:      log,
		now:      time.Now,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

/* Enqueue appends the event and starts the drain loop if none is
 * running. Safe for concurrent use; events arriving faster than they
 * can be paced out silently evict the oldest pending entries.
 */
func (q *DeliveryQueue) Enqueue(ev event.Event) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	for len(q.pending) > q.cfg.MaxDepth {
		q.pending = q.pending[1:]
		q.dropped++
		metrics.NotificationsDropped.Inc()
	}
	if !q.draining {
		q.draining = true
		q.wg.Add(1)
		go q.drain()
	}
	q.mu.Unlock()
}

// Len reports the number of pending events
func (q *DeliveryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dropped reports how many events have been evicted so far
func (q *DeliveryQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Wait blocks until the drain loop has emptied the queue and exited.
// Shutdown paths use it to let already-queued events finish.
func (q *DeliveryQueue) Wait() {
	q.wg.Wait()
}

// drain pops and paces out pending events until the queue empties
func (q *DeliveryQueue) drain() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		ev := q.pending[0]
		q.pending = q.pending[1:]
		hasMore := len(q.pending) > 0
		last := q.lastDelivery
		q.mu.Unlock()

		if wait := q.cfg.MinInterval - q.now().Sub(last); wait > 0 {
			q.sleep(wait)
		}

		title, body := formatNotification(ev)
		q.present.Deliver(title, body, hasMore)
		metrics.NotificationsDelivered.Inc()

		q.mu.Lock()
		q.lastDelivery = q.now()
		q.mu.Unlock()

		// Fire-and-forget: a recorder failure never stops delivery or
		// re-queues the event.
		if q.cfg.HistoryEnabled {
			if err := q.recorder.Append(context.Background(), ev); err != nil {
				q.log.Warn("saving notification to history failed", slog.Any("err", err))
			}
		}
	}
}
