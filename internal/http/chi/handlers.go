package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hooknotify/hooknotify/hub"
)

// Handlers sets up the receiver API routes
func Handlers(b hub.Broadcaster, realtime http.Handler, apiKey string) *chi.Mux {
	logger := httplog.NewLogger("hooknotify-api", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	/* The realtime path is exempt from the API key check and from the
	 * request timeout: connections are long-lived and admitted by their
	 * own token at upgrade time.
	 */
	r.Handle("/hubs/notifications", realtime)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(RequireAPIKey(apiKey))
		r.Method(http.MethodPost, "/webhook", postWebhook(b))
		r.Method(http.MethodGet, "/webhook", getWebhook())
	})

	return r
}
