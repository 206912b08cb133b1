package handler

import (
	"log/slog"
	"net/http"

	"github.com/sunho-park/poswatch/internal/render"
	"github.com/sunho-park/poswatch/internal/report"
)

// HealthHandler serves the service-info root and the keep-alive endpoint.
type HealthHandler struct {
	reporter *report.Reporter
	logger   *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(reporter *report.Reporter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{reporter: reporter, logger: logger.With(slog.String("handler", "health"))}
}

// Root responds with service identity. GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	h.reporter.InitSettings(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "poswatch",
		"time":    render.ToKST(render.NowKST(), false),
	})
}

// Check responds to the external keep-alive ping and doubles as an
// automatic-report tick, so reports still fire when the scheduler only
// pings this route. GET /health_check
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	auto := h.reporter.MaybeAutoReport(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"auto_report": auto,
		"time":        render.ToKST(render.NowKST(), false),
	})
}
