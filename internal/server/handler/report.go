package handler

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/sunho-park/poswatch/internal/notify"
	"github.com/sunho-park/poswatch/internal/render"
	"github.com/sunho-park/poswatch/internal/report"
)

var datePat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ReportHandler serves the externally triggered daily-report broadcast.
type ReportHandler struct {
	reporter *report.Reporter
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewReportHandler(reporter *report.Reporter, notifier *notify.Notifier, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reporter: reporter,
		notifier: notifier,
		logger:   logger.With(slog.String("handler", "report")),
	}
}

// Daily handles GET/POST /daily_report: it pushes the day's summary to every
// position chat. An invalid or absent date means today.
func (h *ReportHandler) Daily(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	if !datePat.MatchString(day) {
		day = ""
	}

	sent := 0
	for _, cid := range h.notifier.PositionChats() {
		h.reporter.SendSummary(r.Context(), cid, day)
		sent++
	}

	if day == "" {
		day = render.NowKST().Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sent": sent, "date": day})
}
