package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hooknotify/hooknotify/event"
	"github.com/hooknotify/hooknotify/hub"
	"github.com/hooknotify/hooknotify/metrics"
)

/* HTTP layer DTOs for the webhook API
 * Separate from domain entities to avoid leaking internal structure
 */

// resultResponse is the envelope returned by the ingestion endpoint
type resultResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// statusResponse is returned by the liveness check
type statusResponse struct {
	Status string `json:"status"`
}

// postWebhook handles POST /api/webhook: decode, normalize, broadcast
func postWebhook(b hub.Broadcaster) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev event.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			metrics.EventsRejected.Inc()
			writeJSON(w, http.StatusBadRequest, resultResponse{
				Success: false,
				Message: "webhook data cannot be decoded",
			})
			return
		}

		normalized, err := ev.Normalize(time.Now())
		if err != nil {
			metrics.EventsRejected.Inc()
			writeJSON(w, http.StatusBadRequest, resultResponse{
				Success: false,
				Message: err.Error(),
			})
			return
		}
		metrics.EventsReceived.Inc()

		// A broadcast failure means the event never reached any client;
		// the caller gets a 500 so it can retry the whole request.
		if err := b.Broadcast(r.Context(), normalized); err != nil {
			writeJSON(w, http.StatusInternalServerError, resultResponse{
				Success: false,
				Message: "error processing webhook",
			})
			return
		}

		writeJSON(w, http.StatusOK, resultResponse{
			Success: true,
			Message: "webhook received and processed",
		})
	})
}

// getWebhook handles GET /api/webhook, a liveness check with no side effects
func getWebhook() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{
			Status: "Webhook receiver is running",
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
