package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hooknotify/hooknotify/event"
	"github.com/hooknotify/hooknotify/event/codec"
	"github.com/hooknotify/hooknotify/metrics"
)

// TokenParam is the query parameter carrying the admission token on
// connection attempts.
const TokenParam = "token"

// Broadcaster pushes one event to every connected realtime client
type Broadcaster interface {
	Broadcast(ctx context.Context, ev event.Event) error
}

// Config holds the hub settings, supplied by the caller rather than
// read from any ambient source.
type Config struct {
	AdmissionToken    string
	EncryptionEnabled bool
}

/* Hub fans webhook events out to every connected client.
 *
 * Delivery is best-effort, at-most-once per connected client per call:
 * no acknowledgments, no retries, nothing queued for clients that are
 * offline at broadcast time. The only state is the live connection set.
 */
type Hub struct {
	cfg      Config
	codec    *codec.Codec
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*conn]struct{}
}

// New creates a hub with dependency injection
func New(cfg Config, c *codec.Codec, log *slog.Logger) *Hub {
	return &Hub{
		cfg:   cfg,
		codec: c,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Admission is by token, not origin; desktop and mobile
			// clients do not send a meaningful Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: map[*conn]struct{}{},
	}
}

/* ServeHTTP handles a realtime connection attempt.
 *
 * The admission token is validated once, before the upgrade: a missing
 * or mismatching token aborts the attempt and no connection is ever
 * established. It is not re-checked per message.
 */
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get(TokenParam)
	if token == "" {
		h.log.Warn("realtime connection attempt without admission token", slog.String("remote", r.RemoteAddr))
		metrics.ConnectionsRejected.Inc()
		http.Error(w, "missing admission token", http.StatusUnauthorized)
		return
	}
	if token != h.cfg.AdmissionToken {
		h.log.Warn("realtime connection attempt with invalid admission token", slog.String("remote", r.RemoteAddr))
		metrics.ConnectionsRejected.Inc()
		http.Error(w, "invalid admission token", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn("websocket upgrade failed", slog.String("remote", r.RemoteAddr), slog.Any("err", err))
		return
	}

	c := newConn(ws)
	h.register(c)
	h.log.Info("client connected", slog.String("remote", r.RemoteAddr))

	go c.writePump()
	go func() {
		c.readPump()
		h.unregister(c)
		h.log.Info("client disconnected", slog.String("remote", r.RemoteAddr))
	}()
}

/* Broadcast serializes the event, optionally encrypts it, and sends the
 * resulting payload to every currently registered connection. A client
 * whose send buffer is full is dropped instead of blocking the rest.
 */
func (h *Hub) Broadcast(ctx context.Context, ev event.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serializing event: %w", err)
	}

	payload := raw
	if h.cfg.EncryptionEnabled {
		encoded, err := h.codec.Encrypt(raw)
		if err != nil {
			return fmt.Errorf("encrypting event: %w", err)
		}
		payload = []byte(encoded)
	}

	for _, c := range h.snapshot() {
		select {
		case c.send <- payload:
		case <-c.done:
		default:
			h.log.Warn("dropping slow client")
			h.unregister(c)
		}
	}

	metrics.EventsBroadcast.Inc()
	h.log.Info("event broadcast", slog.String("event", ev.Type), slog.Bool("encrypted", h.cfg.EncryptionEnabled))
	return nil
}

// ClientCount reports the number of registered connections
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every registered client
func (h *Hub) Close() {
	for _, c := range h.snapshot() {
		h.unregister(c)
	}
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	metrics.ConnectedClients.Set(float64(len(h.conns)))
	h.mu.Unlock()
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		c.close()
	}
	metrics.ConnectedClients.Set(float64(len(h.conns)))
	h.mu.Unlock()
}

// snapshot copies the connection set so sends happen outside the lock
func (h *Hub) snapshot() []*conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	return conns
}
