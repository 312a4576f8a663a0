package hub_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooknotify/hooknotify/event"
	"github.com/hooknotify/hooknotify/event/codec"
	"github.com/hooknotify/hooknotify/hub"
)

const (
	testToken = "admission-secret"
	testKey   = "0123456789abcdef0123456789abcdef"
)

func newTestHub(t *testing.T, encrypted bool) (*hub.Hub, *httptest.Server) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := hub.New(hub.Config{
		AdmissionToken:    testToken,
		EncryptionEnabled: encrypted,
	}, codec.New(testKey), log)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, srv
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	if token == "" {
		return u
	}
	return u + "?" + hub.TokenParam + "=" + token
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readText(t *testing.T, ws *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := ws.ReadMessage()
	require.NoError(t, err)
	return payload
}

func TestAdmission(t *testing.T) {
	t.Run("missing token is rejected before upgrade", func(t *testing.T) {
		_, srv := newTestHub(t, false)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("invalid token is rejected before upgrade", func(t *testing.T) {
		_, srv := newTestHub(t, false)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "wrong"), nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token compare is case-sensitive", func(t *testing.T) {
		_, srv := newTestHub(t, false)

		_, _, err := websocket.DefaultDialer.Dial(wsURL(srv, strings.ToUpper(testToken)), nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
	})

	t.Run("valid token is admitted", func(t *testing.T) {
		h, srv := newTestHub(t, false)

		dial(t, srv, testToken)
		require.Eventually(t, func() bool { return h.ClientCount() == 1 },
			2*time.Second, 10*time.Millisecond)
	})
}

func TestBroadcast(t *testing.T) {
	ev := event.Event{
		ID:        "evt-1",
		Type:      "OrderCreated",
		Message:   "order 42 placed",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	t.Run("plaintext payload reaches every client", func(t *testing.T) {
		h, srv := newTestHub(t, false)

		first := dial(t, srv, testToken)
		second := dial(t, srv, testToken)
		require.Eventually(t, func() bool { return h.ClientCount() == 2 },
			2*time.Second, 10*time.Millisecond)

		require.NoError(t, h.Broadcast(context.Background(), ev))

		for _, ws := range []*websocket.Conn{first, second} {
			var got event.Event
			require.NoError(t, json.Unmarshal(readText(t, ws), &got))
			assert.Equal(t, ev.ID, got.ID)
			assert.Equal(t, ev.Type, got.Type)
			assert.Equal(t, ev.Message, got.Message)
			assert.True(t, ev.Timestamp.Equal(got.Timestamp))
		}
	})

	t.Run("encrypted payload decrypts with the shared key", func(t *testing.T) {
		h, srv := newTestHub(t, true)

		ws := dial(t, srv, testToken)
		require.Eventually(t, func() bool { return h.ClientCount() == 1 },
			2*time.Second, 10*time.Millisecond)

		require.NoError(t, h.Broadcast(context.Background(), ev))

		payload := readText(t, ws)
		// The frame must not be readable as-is.
		var direct event.Event
		require.Error(t, json.Unmarshal(payload, &direct))

		plain, err := codec.New(testKey).Decrypt(string(payload))
		require.NoError(t, err)
		var got event.Event
		require.NoError(t, json.Unmarshal(plain, &got))
		assert.Equal(t, ev.Type, got.Type)
	})

	t.Run("disconnected client is forgotten", func(t *testing.T) {
		h, srv := newTestHub(t, false)

		ws := dial(t, srv, testToken)
		require.Eventually(t, func() bool { return h.ClientCount() == 1 },
			2*time.Second, 10*time.Millisecond)

		require.NoError(t, ws.Close())
		require.Eventually(t, func() bool { return h.ClientCount() == 0 },
			2*time.Second, 10*time.Millisecond)

		// Broadcasting into an empty hub is not an error.
		require.NoError(t, h.Broadcast(context.Background(), ev))
	})
}
