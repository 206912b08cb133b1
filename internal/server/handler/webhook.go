package handler

import (
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sunho-park/poswatch/internal/notify"
	"github.com/sunho-park/poswatch/internal/signal"
)

// maxWebhookBody caps how much of an inbound alert body is read.
const maxWebhookBody = 64 << 10

// WebhookHandler receives TradingView alert webhooks, classifies them, and
// relays them to the signal chats.
type WebhookHandler struct {
	signals  *signal.Service
	notifier *notify.Notifier
	secret   string
	logger   *slog.Logger
}

func NewWebhookHandler(signals *signal.Service, notifier *notify.Notifier, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		signals:  signals,
		notifier: notifier,
		secret:   secret,
		logger:   logger.With(slog.String("handler", "webhook")),
	}
}

// Receive handles POST /tv-webhook. TradingView cannot set custom headers on
// alert webhooks, so the shared secret is accepted from the query string, the
// payload body, or a header.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	payload := h.parse(r)

	got := r.URL.Query().Get("secret")
	if got == "" {
		got = payload.First("secret", "passphrase")
	}
	if got == "" {
		got = r.Header.Get("X-Webhook-Secret")
	}
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	out := h.signals.Interpret(r.Context(), payload)

	h.logger.InfoContext(r.Context(), "webhook received",
		slog.String("kind", string(out.Signal.Kind)),
		slog.String("symbol", out.Signal.Symbol),
		slog.Bool("sent", out.Message != ""),
		slog.Bool("throttled", out.Throttled),
	)

	switch {
	case out.Message != "" && out.Plain:
		h.notifier.SignalAlertPlain(r.Context(), out.Message)
		writeJSON(w, http.StatusOK, map[string]any{
			"ok": true, "sent": true, "infer": out.Signal, "mode": "unknown_passthrough",
		})
	case out.Message != "":
		h.notifier.SignalAlert(r.Context(), out.Message)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sent": true, "infer": out.Signal})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"ok": true, "sent": false, "reason": "ignored_or_throttled_or_unknown", "infer": out.Signal,
		})
	}
}

// parse accepts the payload however the alert was configured to send it:
// JSON, form data, or free text.
func (h *WebhookHandler) parse(r *http.Request) signal.Payload {
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "application/x-www-form-urlencoded") || strings.Contains(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxWebhookBody); err != nil {
			_ = r.ParseForm()
		}
		if len(r.PostForm) > 0 {
			return signal.FromForm(r.PostForm)
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("read webhook body failed", "error", err)
		return signal.Payload{}
	}
	return signal.ParseBody(body)
}
