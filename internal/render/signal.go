package render

import (
	"fmt"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
)

// Barcode renders the barcode-indicator alert.
func Barcode(s domain.Signal, ts time.Time) string {
	title := "🔴🐳 *바코드 · 매도(Short)*"
	if s.Side == "buy" {
		title = "🟢🐳 *바코드 · 매수(Long)*"
	}
	return fmt.Sprintf("%s\n%s | %s | %s\n_\"바코드 신호는 보조근거로 활용하시길 권장드립니다.\"_\n🕒 %s",
		title, s.Symbol, s.Price, s.Timeframe, ToKST(ts, false))
}

// Prism renders the prism support/resistance-zone alert. An unknown zone
// number stays blank rather than defaulting.
func Prism(s domain.Signal, ts time.Time) string {
	title := fmt.Sprintf("🔴 *구간 %s 저항 준비 (Prism)* 🔴 ", s.Zone)
	if s.Side == "buy" {
		title = fmt.Sprintf("🟢 *구간 %s 지지 준비 (Prism)* 🟢 ", s.Zone)
	}
	return fmt.Sprintf("%s\n%s | %s ~ %s\n_\"분할 진입을 권장드립니다.\"_ \n🕒 %s",
		title, s.Symbol, s.Low, s.High, ToKST(ts, false))
}

// RSI renders the RSI-indicator alert.
func RSI(s domain.Signal, ts time.Time) string {
	title := fmt.Sprintf("🔴🤖 *RSI · 매도(Short) · %s*", s.Fire)
	if s.Side == "buy" {
		title = fmt.Sprintf("🟢🤖 *RSI · 매수(Long) · %s*", s.Fire)
	}
	return fmt.Sprintf("%s\n%s | %s | %s\n_\"RSI 신호는 보조근거로 활용하시길 권장드립니다.\"_ \n🕒 %s",
		title, s.Symbol, s.Price, s.Timeframe, ToKST(ts, false))
}

// PanTerra renders the PanTerra strategy alert. The wording and star colors
// are fixed by operator request.
func PanTerra(s domain.Signal, ts time.Time) string {
	const strategy = "PanTerra"
	advice := "_\"첫 시그널 이후 30분간 동일 방향 알림이 오지 않습니다.\n" +
		"동일 비중 분할 진입 / 역방향 시그널 시 포지션 종료 후 재진입을 권장드립니다.\"_"
	if s.Side == "buy" {
		return fmt.Sprintf(
			"*🟢🐳[ 매수(Long) 알림 ] (%s)🐳*\n%s | %s | %s\n*지표* : %s\n*시그널* : 파랑별(매수)\n%s\n🕒 %s",
			strategy, s.Symbol, s.Price, s.Timeframe, strategy, advice, ToKST(ts, false))
	}
	return fmt.Sprintf(
		"*🔴🐳[ 매도(Short) 알림 ] (%s)🐳*\n%s | %s | %s\n*지표* : %s\n*시그널* : 노랑별(매도)\n%s\n🕒 %s",
		strategy, s.Symbol, s.Price, s.Timeframe, strategy, advice, ToKST(ts, false))
}
