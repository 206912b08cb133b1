// Package report builds and delivers the daily trade reports: on-demand
// summary/detail replies and the once-a-day automatic summary.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
	"github.com/sunho-park/poswatch/internal/notify"
	"github.com/sunho-park/poswatch/internal/render"
)

// Defaults for the automatic report schedule, overridable through runtime
// settings.
const (
	DefaultAutoHour   = 23
	DefaultAutoMinute = 50
)

// Reporter assembles daily reports from the trade history.
type Reporter struct {
	history  domain.TradeHistory
	settings domain.SettingsStore
	notifier *notify.Notifier
	log      *slog.Logger
	now      func() time.Time

	autoDefault string
	autoChat    string
}

func NewReporter(
	history domain.TradeHistory,
	settings domain.SettingsStore,
	notifier *notify.Notifier,
	autoDefault, autoChat string,
	log *slog.Logger,
) *Reporter {
	return &Reporter{
		history:     history,
		settings:    settings,
		notifier:    notifier,
		log:         log.With("component", "reporter"),
		now:         render.NowKST,
		autoDefault: autoDefault,
		autoChat:    autoChat,
	}
}

// InitSettings seeds the automatic-report settings that have never been set,
// so /status has concrete values to show from the first boot.
func (r *Reporter) InitSettings(ctx context.Context) {
	if r.settings.GetSetting(ctx, "report_auto", "") == "" {
		v := "off"
		if r.autoDefault == "on" {
			v = "on"
		}
		_ = r.settings.SetSetting(ctx, "report_auto", v)
	}
	if r.settings.GetSetting(ctx, "report_auto_hour", "") == "" {
		_ = r.settings.SetSetting(ctx, "report_auto_hour", strconv.Itoa(DefaultAutoHour))
	}
	if r.settings.GetSetting(ctx, "report_auto_minute", "") == "" {
		_ = r.settings.SetSetting(ctx, "report_auto_minute", strconv.Itoa(DefaultAutoMinute))
	}
	if r.settings.GetSetting(ctx, "report_auto_chat", "") == "" {
		target := r.autoChat
		if target == "" {
			target = firstDirectChat(r.notifier.PositionChats(), r.notifier.SignalChats())
		}
		_ = r.settings.SetSetting(ctx, "report_auto_chat", target)
	}
}

func firstDirectChat(positionChats, signalChats []string) string {
	for _, c := range positionChats {
		if !notify.IsGroup(c) {
			return c
		}
	}
	if len(positionChats) > 0 {
		return positionChats[0]
	}
	if len(signalChats) > 0 {
		return signalChats[0]
	}
	return ""
}

// RowsUntil returns the day's trades closed between midnight and end. For a
// past day the whole day counts; for today only trades up to end.
func (r *Reporter) RowsUntil(ctx context.Context, day string, end time.Time) []domain.Trade {
	rows, err := r.history.ListDay(ctx, day)
	if err != nil {
		r.log.Warn("history read failed", "day", day, "error", err)
		return nil
	}

	start, err := time.ParseInLocation("2006-01-02 15:04:05", day+" 00:00:00", render.KST)
	if err != nil {
		return nil
	}
	limit := end.In(render.KST)
	if day != r.now().Format("2006-01-02") {
		limit = start.Add(24*time.Hour - time.Second)
	}

	out := make([]domain.Trade, 0, len(rows))
	for _, tr := range rows {
		c := tr.CloseTs.In(render.KST)
		if !c.Before(start) && !c.After(limit) {
			out = append(out, tr)
		}
	}
	return out
}

// SendSummary delivers the daily summary for day (today when empty) to one
// chat.
func (r *Reporter) SendSummary(ctx context.Context, chatID, day string) {
	now := r.now()
	if day == "" {
		day = now.Format("2006-01-02")
	}
	r.notifier.Reply(ctx, chatID, render.ReportSummary(day, now, r.RowsUntil(ctx, day, now)))
}

// SendDetail delivers the per-trade daily report, chunked for length.
func (r *Reporter) SendDetail(ctx context.Context, chatID, day string) {
	now := r.now()
	if day == "" {
		day = now.Format("2006-01-02")
	}
	r.notifier.ReplyChunked(ctx, chatID, render.ReportDetail(day, now, r.RowsUntil(ctx, day, now)))
}

// AutoResult explains why an automatic-report check did or did not send.
type AutoResult struct {
	Sent   bool   `json:"sent"`
	Reason string `json:"reason,omitempty"`
	Slot   string `json:"slot,omitempty"`
	ChatID string `json:"chat_id,omitempty"`
}

// MaybeAutoReport sends the daily summary once when the configured wall-clock
// minute arrives. The last-sent slot is persisted so overlapping triggers in
// the same minute cannot double-send.
func (r *Reporter) MaybeAutoReport(ctx context.Context) AutoResult {
	r.InitSettings(ctx)

	if r.settings.GetSetting(ctx, "report_auto", "off") != "on" {
		return AutoResult{Reason: "auto_off"}
	}

	hour := settingInt(ctx, r.settings, "report_auto_hour", DefaultAutoHour)
	minute := settingInt(ctx, r.settings, "report_auto_minute", DefaultAutoMinute)

	now := r.now()
	if now.Hour() != hour || now.Minute() != minute {
		return AutoResult{Reason: "not_target_time"}
	}

	slot := now.Format("2006-01-02 15:04")
	if r.settings.GetSetting(ctx, "report_auto_last_slot", "") == slot {
		return AutoResult{Reason: "already_sent"}
	}

	chat := r.settings.GetSetting(ctx, "report_auto_chat", "")
	if chat == "" {
		return AutoResult{Reason: "no_target_chat"}
	}

	r.SendSummary(ctx, chat, now.Format("2006-01-02"))
	if err := r.settings.SetSetting(ctx, "report_auto_last_slot", slot); err != nil {
		r.log.Warn("persist auto-report slot failed", "error", err)
	}
	r.log.Info("auto report sent", "slot", slot, "chat_id", chat)
	return AutoResult{Sent: true, Slot: slot, ChatID: chat}
}

func settingInt(ctx context.Context, s domain.SettingsStore, key string, def int) int {
	v, err := strconv.Atoi(s.GetSetting(ctx, key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

// AutoStatus renders the current automatic-report configuration.
func (r *Reporter) AutoStatus(ctx context.Context) string {
	hour := settingInt(ctx, r.settings, "report_auto_hour", DefaultAutoHour)
	minute := settingInt(ctx, r.settings, "report_auto_minute", DefaultAutoMinute)
	return fmt.Sprintf(
		"🧾 자동 리포트 상태\n━━━━━━━━━━━━━━\n상태 : %s\n시간 : %02d:%02d (KST)\n대상 : %s\n최근발송 : %s\n\n🕒 %s",
		strings.ToUpper(r.settings.GetSetting(ctx, "report_auto", "off")),
		hour, minute,
		r.settings.GetSetting(ctx, "report_auto_chat", "-"),
		r.settings.GetSetting(ctx, "report_auto_last_slot", "-"),
		render.ToKST(r.now(), false),
	)
}
