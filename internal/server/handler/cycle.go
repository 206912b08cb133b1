package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sunho-park/poswatch/internal/render"
	"github.com/sunho-park/poswatch/internal/service"
)

// CycleHandler triggers reconciliation cycles over HTTP; an external
// scheduler hits this endpoint on its poll cadence.
type CycleHandler struct {
	runner *service.CycleRunner
	logger *slog.Logger
}

func NewCycleHandler(runner *service.CycleRunner, logger *slog.Logger) *CycleHandler {
	return &CycleHandler{runner: runner, logger: logger.With(slog.String("handler", "cycle"))}
}

// Check handles GET/POST /positions_check: one full cycle with alerts, plus
// the automatic-report time check.
func (h *CycleHandler) Check(w http.ResponseWriter, r *http.Request) {
	res, auto, err := h.runner.Run(r.Context(), true)
	if err != nil {
		if errors.Is(err, service.ErrCycleBusy) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": false, "reason": "busy"})
			return
		}
		h.logger.ErrorContext(r.Context(), "cycle failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"result":      res,
		"auto_report": auto,
		"time":        render.ToKST(render.NowKST(), false),
	})
}
