package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sunho-park/poswatch/internal/command"
	"github.com/sunho-park/poswatch/internal/notify"
)

// TelegramHandler receives Telegram bot webhook updates and dispatches chat
// commands.
type TelegramHandler struct {
	commands *command.Handler
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewTelegramHandler(commands *command.Handler, notifier *notify.Notifier, logger *slog.Logger) *TelegramHandler {
	return &TelegramHandler{
		commands: commands,
		notifier: notifier,
		logger:   logger.With(slog.String("handler", "telegram")),
	}
}

// PositionUpdate handles POST /tg/position: updates from the position bot,
// which carries the command interface.
func (h *TelegramHandler) PositionUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ignored": true})
		return
	}

	upd := command.ParseUpdate(body)
	if upd.ChatID == "" || !strings.HasPrefix(upd.Text, "/") {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if reply := h.commands.Handle(r.Context(), upd.ChatID, upd.UserID, upd.Text); reply != "" {
		h.notifier.Reply(r.Context(), upd.ChatID, reply)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// SignalUpdate handles POST /tg/signal. The signal bot carries no commands;
// updates are acknowledged so Telegram stops retrying them.
func (h *TelegramHandler) SignalUpdate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
