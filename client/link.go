package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/hooknotify/hooknotify/event"
	"github.com/hooknotify/hooknotify/event/codec"
	"github.com/hooknotify/hooknotify/metrics"
)

// reconnectLadder is the default delay sequence between reconnect
// attempts; the last rung repeats forever.
var reconnectLadder = []time.Duration{0, 2 * time.Second, 5 * time.Second, 10 * time.Second}

const defaultConnectTimeout = 15 * time.Second

// LinkConfig holds the link settings, supplied by the caller rather
// than read from any ambient source.
type LinkConfig struct {
	ServerURL         string
	AdmissionToken    string
	EncryptionEnabled bool
	ConnectTimeout    time.Duration
}

type LinkOption func(*Link)

// WithTransportFactory swaps the transport implementation; tests use it
// to inject fakes, platforms without the default transport use it to
// supply their own.
func WithTransportFactory(f TransportFactory) LinkOption {
	return func(l *Link) { l.newTransport = f }
}

// WithBackoff replaces the reconnect delay ladder and jitter source for
// deterministic testing
func WithBackoff(ladder []time.Duration, jitter func(time.Duration) time.Duration) LinkOption {
	return func(l *Link) {
		if len(ladder) > 0 {
			l.ladder = ladder
		}
		if jitter != nil {
			l.jitter = jitter
		}
	}
}

/* Link owns one logical realtime connection: connect, authenticate,
 * receive, reconnect with backoff, disconnect.
 *
 * State transitions are serialized by the link itself; callers observe
 * them through State().
 */
type Link struct {
	cfg   LinkConfig
	codec *codec.Codec
	queue *DeliveryQueue
	log   *slog.Logger

	newTransport TransportFactory
	ladder       []time.Duration
	jitter       func(time.Duration) time.Duration

	mu        sync.Mutex
	state     State
	transport Transport
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewLink creates a link with dependency injection
func NewLink(cfg LinkConfig, c *codec.Codec, queue *DeliveryQueue, log *slog.Logger, opts ...LinkOption) (*Link, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	l := &Link{
		cfg:    cfg,
		codec:  c,
		queue:  queue,
		log:    log,
		ladder: reconnectLadder,
		jitter: func(d time.Duration) time.Duration {
			return d + time.Duration(rand.Int63n(int64(time.Second)))
		},
		state: Disconnected,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.newTransport == nil {
		factory, err := NewWSFactory(cfg.ServerURL, cfg.AdmissionToken)
		if err != nil {
			return nil, fmt.Errorf("building transport factory: %w", err)
		}
		l.newTransport = factory
	}
	return l, nil
}

/* Start opens the connection with a bounded timeout. On failure the
 * state moves to Errored and the cause is returned so the caller can
 * surface it; on success a background loop owns the connection until
 * Stop is called.
 */
func (l *Link) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state == Connecting || l.state == Connected || l.state == Reconnecting {
		l.mu.Unlock()
		return nil
	}
	l.state = Connecting
	l.mu.Unlock()

	t := l.newTransport()
	dialCtx, cancel := context.WithTimeout(ctx, l.cfg.ConnectTimeout)
	err := t.Connect(dialCtx)
	cancel()
	if err != nil {
		l.setState(Errored)
		return fmt.Errorf("connecting to %s: %w", l.cfg.ServerURL, err)
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	l.mu.Lock()
	l.transport = t
	l.cancel = cancelRun
	l.state = Connected
	l.mu.Unlock()

	l.log.Info("link connected", slog.String("server", l.cfg.ServerURL))
	l.wg.Add(1)
	go l.run(runCtx, t)
	return nil
}

/* Stop cancels any pending reconnect wait, closes the live connection,
 * and leaves the link Disconnected. Idempotent. An in-flight delivery
 * queue drain is deliberately left to finish on its own.
 */
func (l *Link) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	t := l.transport
	l.cancel = nil
	l.transport = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if t != nil {
		_ = t.Close()
	}
	l.wg.Wait()
	l.setState(Disconnected)
}

// State reports the current connection state
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// run owns the live transport: it consumes inbound messages and drives
// the reconnect cycle after an unexpected close, until Stop cancels it.
func (l *Link) run(ctx context.Context, t Transport) {
	defer l.wg.Done()
	for {
		select {
		case payload := <-t.Messages():
			l.handleMessage(payload)
		case <-t.Done():
			if ctx.Err() != nil {
				return
			}
			l.log.Warn("connection lost", slog.Any("err", t.Err()))
			next, ok := l.reconnect(ctx)
			if !ok {
				return
			}
			t = next
		case <-ctx.Done():
			return
		}
	}
}

/* reconnect retries the connect step forever, pacing attempts by the
 * backoff ladder with jitter, until it succeeds or ctx is cancelled.
 * The wait never holds the link lock, so Stop stays responsive.
 */
func (l *Link) reconnect(ctx context.Context) (Transport, bool) {
	l.setState(Reconnecting)
	for attempt := 0; ; attempt++ {
		delay := l.ladder[min(attempt, len(l.ladder)-1)]
		if delay > 0 {
			delay = l.jitter(delay)
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(delay):
		}

		metrics.LinkReconnects.Inc()
		l.setState(Connecting)
		t := l.newTransport()
		dialCtx, cancel := context.WithTimeout(ctx, l.cfg.ConnectTimeout)
		err := t.Connect(dialCtx)
		cancel()
		if err != nil {
			l.log.Warn("reconnect attempt failed", slog.Int("attempt", attempt+1), slog.Any("err", err))
			l.setState(Reconnecting)
			continue
		}

		l.mu.Lock()
		if ctx.Err() != nil {
			l.mu.Unlock()
			_ = t.Close()
			return nil, false
		}
		l.transport = t
		l.state = Connected
		l.mu.Unlock()
		l.log.Info("link reconnected", slog.Int("attempts", attempt+1))
		return t, true
	}
}

// handleMessage decodes one raw frame and enqueues the event; malformed
// payloads are logged and discarded, never fatal to the link
func (l *Link) handleMessage(payload []byte) {
	ev, err := l.decode(payload)
	if err != nil {
		l.log.Warn("discarding malformed notification", slog.Any("err", err))
		return
	}
	l.queue.Enqueue(ev)
}

/* decode recovers an event from a raw frame. With encryption enabled
 * the payload must decrypt; with it disabled a direct parse is tried
 * first and decryption kept as a fallback, tolerating a sender whose
 * encryption setting disagrees with ours.
 */
func (l *Link) decode(payload []byte) (event.Event, error) {
	if l.cfg.EncryptionEnabled {
		plain, err := l.codec.Decrypt(string(payload))
		if err != nil {
			return event.Event{}, fmt.Errorf("decrypting notification: %w", err)
		}
		return unmarshalEvent(plain)
	}

	if ev, err := unmarshalEvent(payload); err == nil {
		return ev, nil
	}
	plain, err := l.codec.Decrypt(string(payload))
	if err != nil {
		return event.Event{}, fmt.Errorf("decoding notification: %w", err)
	}
	return unmarshalEvent(plain)
}

func unmarshalEvent(raw []byte) (event.Event, error) {
	var ev event.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return event.Event{}, fmt.Errorf("deserializing notification: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return event.Event{}, fmt.Errorf("invalid notification: %w", err)
	}
	return ev, nil
}
