package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hooknotify/hooknotify/event"
	"github.com/hooknotify/hooknotify/hub/mocks"
)

const testAPIKey = "test-api-key"

func notFoundRealtime() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no realtime in this test", http.StatusNotFound)
	})
}

func TestPostWebhook(t *testing.T) {
	t.Run("valid body with correct key broadcasts once", func(t *testing.T) {
		b := mocks.NewBroadcaster(t)
		received := time.Now()
		b.On("Broadcast", mock.Anything, mock.MatchedBy(func(ev event.Event) bool {
			return ev.Type == "Test" &&
				ev.Message == "hi" &&
				ev.ID != "" &&
				!ev.Timestamp.Before(received.UTC())
		})).Return(nil).Once()

		h := Handlers(b, notFoundRealtime(), testAPIKey)
		req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{"event":"Test","message":"hi"}`))
		req.Header.Set(HeaderAPIKey, testAPIKey)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp resultResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
	})

	t.Run("missing API key yields 401 and no broadcast", func(t *testing.T) {
		b := mocks.NewBroadcaster(t)

		h := Handlers(b, notFoundRealtime(), testAPIKey)
		req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{"event":"Test"}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		b.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
	})

	t.Run("wrong API key yields 401 and no broadcast", func(t *testing.T) {
		b := mocks.NewBroadcaster(t)

		h := Handlers(b, notFoundRealtime(), testAPIKey)
		req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{"event":"Test"}`))
		req.Header.Set(HeaderAPIKey, "not-the-key")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		b.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
	})

	t.Run("unparseable body yields 400 and no broadcast", func(t *testing.T) {
		b := mocks.NewBroadcaster(t)

		h := Handlers(b, notFoundRealtime(), testAPIKey)
		req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`not json`))
		req.Header.Set(HeaderAPIKey, testAPIKey)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp resultResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		b.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
	})

	t.Run("empty body yields 400", func(t *testing.T) {
		b := mocks.NewBroadcaster(t)

		h := Handlers(b, notFoundRealtime(), testAPIKey)
		req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(""))
		req.Header.Set(HeaderAPIKey, testAPIKey)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing event type yields 400", func(t *testing.T) {
		b := mocks.NewBroadcaster(t)

		h := Handlers(b, notFoundRealtime(), testAPIKey)
		req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{"message":"hi"}`))
		req.Header.Set(HeaderAPIKey, testAPIKey)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		b.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
	})

	t.Run("broadcast failure yields 500", func(t *testing.T) {
		b := mocks.NewBroadcaster(t)
		b.On("Broadcast", mock.Anything, mock.Anything).Return(errors.New("boom")).Once()

		h := Handlers(b, notFoundRealtime(), testAPIKey)
		req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(`{"event":"Test"}`))
		req.Header.Set(HeaderAPIKey, testAPIKey)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var resp resultResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
	})
}

func TestGetWebhook(t *testing.T) {
	t.Run("liveness check needs no key", func(t *testing.T) {
		b := mocks.NewBroadcaster(t)

		h := Handlers(b, notFoundRealtime(), testAPIKey)
		req := httptest.NewRequest(http.MethodGet, "/api/webhook", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp statusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Webhook receiver is running", resp.Status)
		b.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
	})
}
