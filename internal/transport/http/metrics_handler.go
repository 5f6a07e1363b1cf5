package http

import (
	"net/http"

	"github.com/go-chi/render"

	apierrors "ccasscli/internal/errors"
)

// MetricsHandler exposes the Prometheus registry
type MetricsHandler struct {
	exposition http.Handler
}

// NewMetricsHandler wraps the exporter's HTTP handler. A nil handler means
// metrics are disabled and the endpoint answers 404.
func NewMetricsHandler(exposition http.Handler) *MetricsHandler {
	return &MetricsHandler{exposition: exposition}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		render.Render(w, r, apierrors.NewProblemDetails(
			http.StatusNotFound,
			apierrors.TypeNotFound,
			"Metrics Disabled",
			"The metrics exporter is not enabled",
			r.URL.Path,
		))
		return
	}
	h.exposition.ServeHTTP(w, r)
}
