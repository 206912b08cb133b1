package signal

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunho-park/poswatch/internal/domain"
)

func TestParseBodyJSON(t *testing.T) {
	p := ParseBody([]byte(`{"symbol":"BTCUSDT","action":"buy","close":"65000.5"}`))
	assert.Equal(t, "BTCUSDT", p.Str("symbol"))
	assert.Equal(t, "buy", p.Str("action"))
}

func TestParseBodyQuerystring(t *testing.T) {
	p := ParseBody([]byte(`symbol=ETHUSDT&action=sell&close=3000`))
	assert.Equal(t, "ETHUSDT", p.Str("symbol"))
	assert.Equal(t, "sell", p.Str("action"))
	assert.Equal(t, "symbol=ETHUSDT&action=sell&close=3000", p.Str("text"))
}

func TestParseBodyKeyValueLines(t *testing.T) {
	p := ParseBody([]byte("symbol: BTCUSDT\nside: sell\nprice: 64000.1"))
	assert.Equal(t, "BTCUSDT", p.Str("symbol"))
	assert.Equal(t, "sell", p.Str("side"))
	assert.Equal(t, "64000.1", p.Str("price"))
}

func TestParseBodyFreeText(t *testing.T) {
	p := ParseBody([]byte("바코드 매수 BTCUSDT | 64000.5 | 15m"))
	assert.Equal(t, "바코드 매수 BTCUSDT | 64000.5 | 15m", p.Str("text"))
}

func TestInferBarcodeFromKoreanText(t *testing.T) {
	p := ParseBody([]byte("바코드 매수 BTCUSDT | 64000.5 | 15m"))
	sig := Infer(p)
	assert.Equal(t, domain.SignalBarcode, sig.Kind)
	assert.Equal(t, "buy", sig.Side)
	assert.Equal(t, "BYBIT·BTCUSDT", sig.Symbol)
	assert.Equal(t, "64000.5", sig.Price)
	assert.Equal(t, "15m", sig.Timeframe)
}

func TestInferPrismZoneAndRange(t *testing.T) {
	p := ParseBody([]byte("구간 6 지지 준비 BTCUSDT.P 65777.8 ~ 65811.9"))
	sig := Infer(p)
	assert.Equal(t, domain.SignalPrism, sig.Kind)
	assert.Equal(t, "buy", sig.Side)
	assert.Equal(t, "6", sig.Zone)
	assert.Equal(t, "65777.8", sig.Low)
	assert.Equal(t, "65811.9", sig.High)
}

func TestInferSellFromResistance(t *testing.T) {
	p := ParseBody([]byte("구간 3 저항 준비 ETHUSDT 3500.1 ~ 3520.9"))
	sig := Infer(p)
	assert.Equal(t, domain.SignalPrism, sig.Kind)
	assert.Equal(t, "sell", sig.Side)
}

func TestInferActionOverridesBlobSide(t *testing.T) {
	sig := Infer(Payload{"action": "buy", "message": "rsi short signal BTCUSDT | 64000.5 | 5m"})
	assert.Equal(t, domain.SignalRSI, sig.Kind)
	assert.Equal(t, "buy", sig.Side)
}

func TestInferPriceSkipsTimeframeMultiplier(t *testing.T) {
	// A bare "15" with a 15m interval is the timeframe leaking, not a price.
	sig := Infer(Payload{"price": "15", "interval": "15m", "message": "rsi buy BTCUSDT"})
	assert.Equal(t, "-", sig.Price)
}

func TestInferDefaults(t *testing.T) {
	sig := Infer(Payload{})
	assert.Equal(t, domain.SignalUnknown, sig.Kind)
	assert.Equal(t, "BYBIT·BTCUSDT.P", sig.Symbol)
	assert.Equal(t, "1m", sig.Timeframe)
	assert.Equal(t, "-", sig.Price)
}

func TestInferFireStrength(t *testing.T) {
	sig := Infer(Payload{"message": "rsi buy BTCUSDT | 64000.5 | 5m", "strength": "strong"})
	assert.Equal(t, "🔥🔥", sig.Fire)
}

type allowAllThrottle struct{ allowed bool }

func (a *allowAllThrottle) Allow(ctx context.Context, key string, window time.Duration) bool {
	return a.allowed
}

func testService(th domain.ThrottleStore) *Service {
	return NewService(th, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestInterpretPanterraThrottle(t *testing.T) {
	svc := testService(&allowAllThrottle{allowed: false})
	out := svc.Interpret(context.Background(), Payload{"message": "panterra buy BTCUSDT | 64000.5 | 30m"})
	assert.True(t, out.Throttled)
	assert.Empty(t, out.Message)

	svc = testService(&allowAllThrottle{allowed: true})
	out = svc.Interpret(context.Background(), Payload{"message": "panterra buy BTCUSDT | 64000.5 | 30m"})
	assert.False(t, out.Throttled)
	require.NotEmpty(t, out.Message)
	assert.Contains(t, out.Message, "PanTerra")
}

func TestInterpretUnknownPassthrough(t *testing.T) {
	svc := testService(&allowAllThrottle{allowed: true})
	out := svc.Interpret(context.Background(), ParseBody([]byte("hello operators")))
	assert.True(t, out.Plain)
	assert.Equal(t, "hello operators", out.Message)
}
