package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hooknotify/hooknotify/hub"
)

// realtimePath is the hub endpoint on the receiver server.
const realtimePath = "/hubs/notifications"

/* NewWSFactory builds websocket transports targeting the configured
 * server URL with the admission token attached as a query parameter.
 * http/https schemes are rewritten to ws/wss.
 */
func NewWSFactory(serverURL, token string) (TransportFactory, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = realtimePath
	}
	q := u.Query()
	q.Set(hub.TokenParam, token)
	u.RawQuery = q.Encode()

	target := u.String()
	return func() Transport {
		return &wsTransport{
			url:      target,
			messages: make(chan []byte, 32),
			done:     make(chan struct{}),
		}
	}, nil
}

// wsTransport is the gorilla/websocket implementation of Transport.
type wsTransport struct {
	url      string
	messages chan []byte
	done     chan struct{}

	mu     sync.Mutex
	ws     *websocket.Conn
	err    error
	closed bool

	closeOnce sync.Once
}

func (t *wsTransport) Connect(ctx context.Context) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", t.url, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = ws.Close()
		return fmt.Errorf("transport already closed")
	}
	t.ws = ws
	t.mu.Unlock()

	go t.readLoop(ws)
	return nil
}

func (t *wsTransport) Messages() <-chan []byte { return t.messages }
func (t *wsTransport) Done() <-chan struct{} { return t.done }

func (t *wsTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		ws := t.ws
		t.mu.Unlock()
		if ws != nil {
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = ws.Close()
		} else {
			// Never connected; signal Done ourselves.
			close(t.done)
		}
	})
	return nil
}

func (t *wsTransport) readLoop(ws *websocket.Conn) {
	defer close(t.done)
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			t.mu.Lock()
			if !t.closed {
				t.err = err
			}
			t.mu.Unlock()
			return
		}
		select {
		case t.messages <- payload:
		default:
			// Consumer is not keeping up; delivery is best-effort.
		}
	}
}
