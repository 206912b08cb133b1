package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// chunkLimit keeps each message under Telegram's 4096-character cap with
// headroom for entity expansion.
const chunkLimit = 3500

// TelegramClient delivers messages for one bot token via the Telegram Bot
// API. Delivery is best effort: failures are logged, never propagated,
// because a Telegram outage must not fail a reconciliation cycle.
type TelegramClient struct {
	token  string
	client *http.Client
	log    *slog.Logger
}

// NewTelegramClient creates a client for the given bot token.
func NewTelegramClient(token string, timeout time.Duration, log *slog.Logger) *TelegramClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TelegramClient{
		token:  token,
		client: &http.Client{Timeout: timeout},
		log:    log.With("component", "telegram"),
	}
}

// Send delivers text as Markdown, retrying once without parse_mode when
// Telegram rejects the formatting (templates interpolate user-controlled
// symbols that can break Markdown entities).
func (t *TelegramClient) Send(ctx context.Context, chatID, text string) bool {
	if t.token == "" || chatID == "" {
		return false
	}
	if t.post(ctx, chatID, text, "Markdown") {
		return true
	}
	t.log.Warn("markdown send failed, retrying plain", "chat_id", chatID)
	return t.post(ctx, chatID, text, "")
}

// SendPlain delivers text without any parse mode, used for unknown-kind
// passthrough where the raw content must arrive untouched.
func (t *TelegramClient) SendPlain(ctx context.Context, chatID, text string) bool {
	if t.token == "" || chatID == "" {
		return false
	}
	return t.post(ctx, chatID, text, "")
}

// SendChunked splits long reports on line boundaries so every part fits the
// message cap.
func (t *TelegramClient) SendChunked(ctx context.Context, chatID, text string) {
	if len(text) <= chunkLimit {
		t.Send(ctx, chatID, text)
		return
	}
	var cur strings.Builder
	for _, ln := range strings.Split(text, "\n") {
		if cur.Len()+len(ln)+1 > chunkLimit {
			if chunk := strings.TrimSpace(cur.String()); chunk != "" {
				t.Send(ctx, chatID, chunk)
			}
			cur.Reset()
		}
		cur.WriteString(ln)
		cur.WriteByte('\n')
	}
	if chunk := strings.TrimSpace(cur.String()); chunk != "" {
		t.Send(ctx, chatID, chunk)
	}
}

func (t *TelegramClient) post(ctx context.Context, chatID, text, parseMode string) bool {
	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.log.Warn("marshal message", "error", err)
		return false
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.log.Warn("create request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Warn("telegram request failed", "chat_id", chatID, "error", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode >= 400 {
		t.log.Warn("telegram send rejected",
			"chat_id", chatID, "status", resp.StatusCode, "body", string(respBody))
		return false
	}

	var apiResp struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil || !apiResp.OK {
		t.log.Warn("telegram send not ok", "chat_id", chatID, "body", string(respBody))
		return false
	}
	return true
}
