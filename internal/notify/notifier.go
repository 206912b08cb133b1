// Package notify fans alert messages out to the configured Telegram chats.
// Two bots serve two audiences: a signal bot relaying webhook alerts and a
// position bot carrying lifecycle alerts, reports, and command replies.
// Group chats are opt-in via per-chat switches; direct chats default to on.
package notify

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sunho-park/poswatch/internal/domain"
)

// IsGroup reports whether a chat ID refers to a group (Telegram group IDs
// are negative).
func IsGroup(chatID string) bool {
	if n, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return n < 0
	}
	return strings.HasPrefix(chatID, "-")
}

// Notifier routes rendered messages to subscriber chats, consulting the
// per-chat switches before each group delivery.
type Notifier struct {
	signalBot   *TelegramClient
	positionBot *TelegramClient

	signalChats   []string
	positionChats []string

	settings domain.SettingsStore
	log      *slog.Logger
}

func NewNotifier(
	signalBot, positionBot *TelegramClient,
	signalChats, positionChats []string,
	settings domain.SettingsStore,
	log *slog.Logger,
) *Notifier {
	return &Notifier{
		signalBot:     signalBot,
		positionBot:   positionBot,
		signalChats:   signalChats,
		positionChats: positionChats,
		settings:      settings,
		log:           log.With("component", "notifier"),
	}
}

// switchOn resolves a chat's delivery switch: groups default off, direct
// chats default on.
func (n *Notifier) switchOn(ctx context.Context, kind, chatID string) bool {
	return n.settings.SwitchOn(ctx, kind, chatID, !IsGroup(chatID))
}

// SignalAlert delivers a rendered signal alert to every subscribed signal
// chat.
func (n *Notifier) SignalAlert(ctx context.Context, text string) {
	sent := 0
	for _, cid := range n.signalChats {
		if !IsGroup(cid) || n.switchOn(ctx, "signal", cid) {
			if n.signalBot.Send(ctx, cid, text) {
				sent++
			}
		}
	}
	n.log.Info("signal alert", "sent", sent, "chats", len(n.signalChats))
}

// SignalAlertPlain delivers an unformatted passthrough to the signal chats.
func (n *Notifier) SignalAlertPlain(ctx context.Context, text string) {
	sent := 0
	for _, cid := range n.signalChats {
		if !IsGroup(cid) || n.switchOn(ctx, "signal", cid) {
			if n.signalBot.SendPlain(ctx, cid, text) {
				sent++
			}
		}
	}
	n.log.Info("signal alert plain", "sent", sent, "chats", len(n.signalChats))
}

// PositionAlert delivers a lifecycle alert to every subscribed position chat.
func (n *Notifier) PositionAlert(ctx context.Context, text string) {
	sent := 0
	for _, cid := range n.positionChats {
		if !IsGroup(cid) || n.switchOn(ctx, "position", cid) {
			if n.positionBot.Send(ctx, cid, text) {
				sent++
			}
		}
	}
	n.log.Info("position alert", "sent", sent, "chats", len(n.positionChats))
}

// Reply sends a command response to one chat via the position bot, ignoring
// switches: the operator asked for it.
func (n *Notifier) Reply(ctx context.Context, chatID, text string) {
	n.positionBot.Send(ctx, chatID, text)
}

// ReplyChunked sends a long report to one chat, split to fit the message cap.
func (n *Notifier) ReplyChunked(ctx context.Context, chatID, text string) {
	n.positionBot.SendChunked(ctx, chatID, text)
}

// BroadcastPosition pushes an announcement to every position chat, ignoring
// switches.
func (n *Notifier) BroadcastPosition(ctx context.Context, text string) {
	for _, cid := range n.positionChats {
		n.positionBot.Send(ctx, cid, text)
	}
}

// BroadcastSignal pushes an announcement to every signal chat, ignoring
// switches.
func (n *Notifier) BroadcastSignal(ctx context.Context, text string) {
	for _, cid := range n.signalChats {
		n.signalBot.Send(ctx, cid, text)
	}
}

// SignalChats returns the configured signal chat IDs.
func (n *Notifier) SignalChats() []string { return n.signalChats }

// PositionChats returns the configured position chat IDs.
func (n *Notifier) PositionChats() []string { return n.positionChats }
