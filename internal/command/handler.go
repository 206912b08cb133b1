// Package command implements the operator chat-command interface carried by
// the position bot: switch toggles, reports, announcements, and state
// inspection.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sunho-park/poswatch/internal/domain"
	"github.com/sunho-park/poswatch/internal/engine"
	"github.com/sunho-park/poswatch/internal/notify"
	"github.com/sunho-park/poswatch/internal/render"
	"github.com/sunho-park/poswatch/internal/report"
)

var datePat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const helpText = "🧭 *도움말 (/help)*\n" +
	"━━━━━━━━━━━━━━\n" +
	"/status - 스위치/리포트 상태 확인\n" +
	"/help - 도움말\n\n" +
	"/sig_on - 시그널 그룹 알림 ON\n" +
	"/sig_off - 시그널 그룹 알림 OFF\n" +
	"/pos_on - 포지션 그룹 알림 ON\n" +
	"/pos_off - 포지션 그룹 알림 OFF\n\n" +
	"/report_summary - 당일 요약 리포트\n" +
	"/report_detail - 당일 상세 리포트\n" +
	"/report - 당일 요약 리포트\n" +
	"/report YYYY-MM-DD - 해당일 요약 리포트\n\n" +
	"/report_auto_on - 자동 리포트 ON(매일 23:50)\n" +
	"/report_auto_off - 자동 리포트 OFF\n" +
	"/report_auto_status - 자동 리포트 상태\n\n" +
	"/say 내용 - 포지션 수신방 공지\n" +
	"/say_sig 내용 - 시그널 수신방 공지\n" +
	"/say_pos 내용 - 포지션 수신방 공지\n" +
	"/switch_logs [N] - 최근 스위치 로그\n" +
	"/pos_snapshot - 현재 포지션 스냅샷\n" +
	"/state_reset - 내부 상태 초기화(주의)\n\n" +
	"🕒 %s"

// Handler resolves one chat command into a reply (or a side effect with no
// textual reply, e.g. report delivery).
type Handler struct {
	settings domain.SettingsStore
	state    domain.StateStore
	source   domain.PositionSource
	reporter *report.Reporter
	notifier *notify.Notifier
	admins   map[string]bool
	log      *slog.Logger
}

func NewHandler(
	settings domain.SettingsStore,
	state domain.StateStore,
	source domain.PositionSource,
	reporter *report.Reporter,
	notifier *notify.Notifier,
	adminIDs []string,
	log *slog.Logger,
) *Handler {
	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = true
		}
	}
	return &Handler{
		settings: settings,
		state:    state,
		source:   source,
		reporter: reporter,
		notifier: notifier,
		admins:   admins,
		log:      log.With("component", "command"),
	}
}

// isAdmin permits everyone when no admin list is configured.
func (h *Handler) isAdmin(uid string) bool {
	return len(h.admins) == 0 || h.admins[uid]
}

// ParseCommand splits a message into the command word (lowercased, bot
// mention stripped) and its argument.
func ParseCommand(text string) (cmd, arg string) {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "/") {
		return "", ""
	}
	first, rest, _ := strings.Cut(t, " ")
	cmd, _, _ = strings.Cut(first, "@")
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}

// Update is the subset of a Telegram update the handler needs.
type Update struct {
	ChatID string
	UserID string
	Text   string
}

// ParseUpdate extracts chat, sender, and text from a raw Telegram update.
func ParseUpdate(raw []byte) Update {
	var u struct {
		Message       *tgMessage `json:"message"`
		EditedMessage *tgMessage `json:"edited_message"`
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return Update{}
	}
	m := u.Message
	if m == nil {
		m = u.EditedMessage
	}
	if m == nil {
		return Update{}
	}
	return Update{
		ChatID: strconv.FormatInt(m.Chat.ID, 10),
		UserID: strconv.FormatInt(m.From.ID, 10),
		Text:   strings.TrimSpace(m.Text),
	}
}

type tgMessage struct {
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	From struct {
		ID int64 `json:"id"`
	} `json:"from"`
	Text string `json:"text"`
}

// Handle executes the command and returns the reply text, or "" when the
// command produced its own delivery (reports) or was not a command at all.
func (h *Handler) Handle(ctx context.Context, chatID, uid, text string) string {
	cmd, arg := ParseCommand(text)
	if cmd == "" {
		return ""
	}

	switch cmd {
	case "/help":
		return fmt.Sprintf(helpText, render.ToKST(render.NowKST(), false))
	case "/status":
		return h.statusText(ctx)
	case "/report", "/report_summary":
		h.reporter.SendSummary(ctx, chatID, dayArg(arg))
		return ""
	case "/report_detail":
		h.reporter.SendDetail(ctx, chatID, dayArg(arg))
		return ""
	case "/report_auto_status":
		return h.reporter.AutoStatus(ctx)
	}

	if !h.isAdmin(uid) {
		return "권한이 없어. (ADMIN_USER_IDS 확인)"
	}

	switch cmd {
	case "/sig_on":
		h.auditSwitch(ctx, cmd, uid, "signal on")
		return h.toggleGroups(ctx, "signal", true)
	case "/sig_off":
		h.auditSwitch(ctx, cmd, uid, "signal off")
		return h.toggleGroups(ctx, "signal", false)
	case "/pos_on":
		h.auditSwitch(ctx, cmd, uid, "position on")
		return h.toggleGroups(ctx, "position", true)
	case "/pos_off":
		h.auditSwitch(ctx, cmd, uid, "position off")
		return h.toggleGroups(ctx, "position", false)

	case "/report_auto_on":
		_ = h.settings.SetSetting(ctx, "report_auto", "on")
		_ = h.settings.SetSetting(ctx, "report_auto_hour", strconv.Itoa(report.DefaultAutoHour))
		_ = h.settings.SetSetting(ctx, "report_auto_minute", strconv.Itoa(report.DefaultAutoMinute))
		return "✅ 자동 리포트 ON (매일 23:50, 요약본)"
	case "/report_auto_off":
		_ = h.settings.SetSetting(ctx, "report_auto", "off")
		return "✅ 자동 리포트 OFF"

	case "/say", "/say_pos":
		if arg == "" {
			return "사용법: /say 내용"
		}
		h.notifier.BroadcastPosition(ctx, arg)
		return "✅ 포지션 수신방 공지 전송 완료"
	case "/say_sig":
		if arg == "" {
			return "사용법: /say_sig 내용"
		}
		h.notifier.BroadcastSignal(ctx, arg)
		return "✅ 시그널 수신방 공지 전송 완료"

	case "/switch_logs":
		n := 10
		if v, err := strconv.Atoi(arg); err == nil {
			n = v
		}
		return h.switchLogsText(ctx, n)

	case "/pos_snapshot":
		return h.snapshotText(ctx)
	case "/state_reset":
		return h.stateResetText(ctx)
	case "/health_check":
		return fmt.Sprintf("ok\n🕒 %s", render.ToKST(render.NowKST(), false))
	}

	return "알 수 없는 명령어야. /help 확인해줘."
}

func dayArg(arg string) string {
	if datePat.MatchString(arg) {
		return arg
	}
	return ""
}

func (h *Handler) auditSwitch(ctx context.Context, cmd, uid, note string) {
	err := h.settings.LogSwitch(ctx, domain.SwitchEntry{
		Ts:   render.NowKST(),
		Cmd:  cmd,
		UID:  uid,
		Note: note,
	})
	if err != nil {
		h.log.Warn("switch audit log failed", "cmd", cmd, "error", err)
	}
}

func (h *Handler) toggleGroups(ctx context.Context, kind string, on bool) string {
	chats := h.notifier.SignalChats()
	label := "시그널"
	if kind == "position" {
		chats = h.notifier.PositionChats()
		label = "포지션"
	}

	groups := 0
	for _, cid := range chats {
		if notify.IsGroup(cid) {
			if err := h.settings.SetSwitch(ctx, kind, cid, on); err != nil {
				h.log.Warn("set switch failed", "kind", kind, "chat_id", cid, "error", err)
				continue
			}
			groups++
		}
	}
	if groups == 0 {
		return "그룹 chat_id가 없습니다."
	}
	state := "OFF"
	if on {
		state = "ON"
	}
	return fmt.Sprintf("✅ %s 그룹 알림을 *%s* 으로 설정했어.", label, state)
}

func (h *Handler) statusText(ctx context.Context) string {
	h.reporter.InitSettings(ctx)

	lines := []string{"🧾 *현재 상태 (/status)*", "━━━━━━━━━━━━━━"}
	for _, cid := range h.notifier.SignalChats() {
		if notify.IsGroup(cid) {
			lines = append(lines, fmt.Sprintf("Signal Group : %s : %s", cid, onOff(h.settings.SwitchOn(ctx, "signal", cid, false))))
		}
	}
	for _, cid := range h.notifier.PositionChats() {
		if notify.IsGroup(cid) {
			lines = append(lines, fmt.Sprintf("Position Group : %s : %s", cid, onOff(h.settings.SwitchOn(ctx, "position", cid, false))))
		}
	}

	hour, _ := strconv.Atoi(h.settings.GetSetting(ctx, "report_auto_hour", strconv.Itoa(report.DefaultAutoHour)))
	minute, _ := strconv.Atoi(h.settings.GetSetting(ctx, "report_auto_minute", strconv.Itoa(report.DefaultAutoMinute)))
	lines = append(lines,
		"",
		fmt.Sprintf("Report Auto : %s (매일 %02d:%02d)", strings.ToUpper(h.settings.GetSetting(ctx, "report_auto", "off")), hour, minute),
		fmt.Sprintf("Report Chat : %s", h.settings.GetSetting(ctx, "report_auto_chat", "-")),
		"",
		fmt.Sprintf("🕒 %s", render.ToKST(render.NowKST(), false)),
	)
	return strings.Join(lines, "\n")
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func (h *Handler) switchLogsText(ctx context.Context, n int) string {
	if n < 1 {
		n = 1
	}
	if n > 50 {
		n = 50
	}
	entries, err := h.settings.ListSwitchLog(ctx, n)
	if err != nil || len(entries) == 0 {
		return "최근 스위치 로그가 없어."
	}
	lines := []string{fmt.Sprintf("🧾 *최근 스위치 로그 %d건*", len(entries)), "━━━━━━━━━━━━━━"}
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("- %s | %s | uid:%s | %s", render.HM(e.Ts), e.Cmd, orDash(e.UID), e.Note))
	}
	lines = append(lines, "", fmt.Sprintf("🕒 %s", render.ToKST(render.NowKST(), false)))
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (h *Handler) snapshotText(ctx context.Context) string {
	raw, err := h.source.FetchPositions(ctx)
	if err != nil {
		h.log.Warn("snapshot fetch failed", "error", err)
		return fmt.Sprintf("포지션 조회 실패: %v", err)
	}
	snap := engine.NormalizeAll(raw)

	positions := make([]domain.Position, 0, len(snap))
	for _, p := range snap {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Key() < positions[j].Key() })
	return render.Snapshot(positions, render.NowKST())
}

func (h *Handler) stateResetText(ctx context.Context) string {
	if err := h.state.Reset(ctx); err != nil {
		return fmt.Sprintf("⚠️ 상태 초기화 실패: %v", err)
	}
	return fmt.Sprintf("⚠️ state:open_positions / state:init_done 초기화 완료\n🕒 %s", render.ToKST(render.NowKST(), false))
}
