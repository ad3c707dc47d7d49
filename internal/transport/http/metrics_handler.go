package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// MetricsHandler serves the Prometheus scrape endpoint and a small JSON
// summary the dashboard header polls.
type MetricsHandler struct {
	prometheus http.Handler
	summary    func() map[string]interface{}
}

// NewMetricsHandler creates a metrics handler around the OTel Prometheus
// bridge. summary may be nil; the JSON endpoint then reports only a
// timestamp.
func NewMetricsHandler(prometheus http.Handler, summary func() map[string]interface{}) *MetricsHandler {
	return &MetricsHandler{
		prometheus: prometheus,
		summary:    summary,
	}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetPrometheus)
	r.Get("/summary", h.GetSummary)
	return r
}

// GetPrometheus serves the Prometheus exposition format on GET /metrics.
func (h *MetricsHandler) GetPrometheus(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		http.Error(w, "metrics not enabled", http.StatusNotImplemented)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// GetSummary serves a JSON snapshot on GET /metrics/summary.
func (h *MetricsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.summary != nil {
		response["metrics"] = h.summary()
	}
	render.JSON(w, r, response)
}
