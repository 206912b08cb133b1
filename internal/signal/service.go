package signal

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
	"github.com/sunho-park/poswatch/internal/render"
)

// panterraWindow suppresses repeat PanTerra alerts for the same symbol and
// direction; the message text promises subscribers this quiet period.
const panterraWindow = 30 * time.Minute

// Outcome is the result of interpreting one webhook payload.
type Outcome struct {
	Signal domain.Signal
	// Message is the rendered alert text, empty when nothing should be sent
	// (throttled, or unknown kind with no raw text).
	Message string
	// Plain marks an unknown-kind passthrough that must be delivered without
	// Markdown formatting.
	Plain bool
	// Throttled marks a PanTerra alert suppressed by the quiet window.
	Throttled bool
}

// Service turns webhook payloads into alert messages.
type Service struct {
	throttle domain.ThrottleStore
	log      *slog.Logger
	now      func() time.Time
}

func NewService(throttle domain.ThrottleStore, log *slog.Logger) *Service {
	return &Service{
		throttle: throttle,
		log:      log.With("component", "signal"),
		now:      render.NowKST,
	}
}

// Interpret classifies the payload and renders the outgoing alert. Unknown
// kinds fall back to forwarding the raw text untouched so a misconfigured
// alert still reaches subscribers.
func (s *Service) Interpret(ctx context.Context, p Payload) Outcome {
	sig := Infer(p)
	ts := s.now()

	switch sig.Kind {
	case domain.SignalBarcode:
		return Outcome{Signal: sig, Message: render.Barcode(sig, ts)}
	case domain.SignalPrism:
		return Outcome{Signal: sig, Message: render.Prism(sig, ts)}
	case domain.SignalRSI:
		return Outcome{Signal: sig, Message: render.RSI(sig, ts)}
	case domain.SignalPanTerra:
		key := "panterra:" + sig.Symbol + ":" + sig.Side
		if !s.throttle.Allow(ctx, key, panterraWindow) {
			s.log.Info("panterra alert throttled", "symbol", sig.Symbol, "side", sig.Side)
			return Outcome{Signal: sig, Throttled: true}
		}
		return Outcome{Signal: sig, Message: render.PanTerra(sig, ts)}
	}

	raw := p.First("text", "message", "comment")
	if raw == "" && len(p) > 0 {
		if b, err := json.Marshal(p); err == nil {
			raw = string(b)
		}
	}
	return Outcome{Signal: sig, Message: raw, Plain: true}
}
