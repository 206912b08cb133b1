package command

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	cmd, arg := ParseCommand("/report 2025-03-02")
	assert.Equal(t, "/report", cmd)
	assert.Equal(t, "2025-03-02", arg)

	cmd, arg = ParseCommand("/Help@poswatch_bot")
	assert.Equal(t, "/help", cmd)
	assert.Empty(t, arg)

	cmd, _ = ParseCommand("just a message")
	assert.Empty(t, cmd)

	cmd, arg = ParseCommand("  /say   공지 내용  ")
	assert.Equal(t, "/say", cmd)
	assert.Equal(t, "공지 내용", arg)
}

func TestParseUpdate(t *testing.T) {
	u := ParseUpdate([]byte(`{"message":{"chat":{"id":-1001234},"from":{"id":42},"text":" /status "}}`))
	assert.Equal(t, "-1001234", u.ChatID)
	assert.Equal(t, "42", u.UserID)
	assert.Equal(t, "/status", u.Text)
}

func TestParseUpdateEditedMessage(t *testing.T) {
	u := ParseUpdate([]byte(`{"edited_message":{"chat":{"id":7},"from":{"id":8},"text":"/help"}}`))
	assert.Equal(t, "7", u.ChatID)
	assert.Equal(t, "/help", u.Text)
}

func TestParseUpdateGarbage(t *testing.T) {
	assert.Equal(t, Update{}, ParseUpdate([]byte("not json")))
	assert.Equal(t, Update{}, ParseUpdate([]byte(`{"callback_query":{}}`)))
}

func TestDayArg(t *testing.T) {
	assert.Equal(t, "2025-03-02", dayArg("2025-03-02"))
	assert.Empty(t, dayArg("yesterday"))
	assert.Empty(t, dayArg(""))
}

func testHandler(adminIDs []string) *Handler {
	return NewHandler(nil, nil, nil, nil, nil, adminIDs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleNonCommandIgnored(t *testing.T) {
	h := testHandler(nil)
	assert.Empty(t, h.Handle(context.Background(), "1", "2", "hello there"))
}

func TestHandleHelp(t *testing.T) {
	h := testHandler(nil)
	out := h.Handle(context.Background(), "1", "2", "/help")
	assert.Contains(t, out, "도움말")
	assert.Contains(t, out, "/report_auto_on")
}

func TestHandleAdminGate(t *testing.T) {
	h := testHandler([]string{"100"})
	out := h.Handle(context.Background(), "1", "999", "/sig_on")
	assert.Contains(t, out, "권한이 없어")
}

func TestHandleUnknownCommand(t *testing.T) {
	h := testHandler(nil)
	out := h.Handle(context.Background(), "1", "2", "/frobnicate")
	assert.Contains(t, out, "알 수 없는 명령어")
}

func TestIsAdminEmptyListAllowsAll(t *testing.T) {
	h := testHandler(nil)
	assert.True(t, h.isAdmin("anyone"))

	h = testHandler([]string{" 100 ", ""})
	assert.True(t, h.isAdmin("100"))
	assert.False(t, h.isAdmin("101"))
}
