package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
)

// ReportSummary renders the one-message daily summary for the given day's
// finalized trades.
func ReportSummary(day string, now time.Time, rows []domain.Trade) string {
	total := len(rows)
	win := 0
	var sumClosed, sumFee float64
	counts := map[string]int{}
	for _, r := range rows {
		if r.ClosedPnL+r.FeeFunding > 0 {
			win++
		}
		sumClosed += r.ClosedPnL
		sumFee += r.FeeFunding
		if r.Symbol != "" {
			counts[r.Symbol]++
		}
	}
	lose := total - win
	winRate := 0.0
	if total > 0 {
		winRate = float64(win) / float64(total) * 100
	}

	symText := "-"
	if len(counts) > 0 {
		syms := make([]string, 0, len(counts))
		for s := range counts {
			syms = append(syms, s)
		}
		sort.Strings(syms)
		parts := make([]string, 0, len(syms))
		for _, s := range syms {
			parts = append(parts, fmt.Sprintf("%s(%d)", s, counts[s]))
		}
		symText = strings.Join(parts, ", ")
	}

	return fmt.Sprintf(
		"📊 *일일 요약 리포트*\n%s\n기간 : %s 00:00 ~ %s (KST)\n\n"+
			"거래종목 : %s\n"+
			"총 거래  : %d회 (승 %d / 패 %d, 승률 *%.2f%%*)\n\n"+
			"합계 Closed PnL : %s USDT\n"+
			"합계 Fee+Funding: %s USDT\n"+
			"*총 Realized     : %s USDT*\n\n"+
			"🕒 %s",
		rule, day[5:], now.In(KST).Format("15:04"),
		symText,
		total, win, lose, winRate,
		Sign(sumClosed),
		Sign(sumFee),
		Sign(sumClosed+sumFee),
		ToKST(now, false),
	)
}

// ReportDetail renders the per-trade daily report. Long days can exceed
// Telegram's message limit; the sender chunks on delivery.
func ReportDetail(day string, now time.Time, rows []domain.Trade) string {
	var sumClosed, sumFee float64
	for _, r := range rows {
		sumClosed += r.ClosedPnL
		sumFee += r.FeeFunding
	}

	p := []string{
		"📑 *일일 상세 리포트*",
		rule,
		fmt.Sprintf("기간 : %s 00:00 ~ %s (KST)", day[5:], now.In(KST).Format("15:04")),
		"",
	}

	if len(rows) == 0 {
		p = append(p,
			"해당 기간 거래 내역이 없습니다.",
			"",
			rule,
			fmt.Sprintf("합계 Closed PnL : %s USDT", Sign(0)),
			fmt.Sprintf("합계 Fee+Funding: %s USDT", Sign(0)),
			fmt.Sprintf("*총 Realized     : %s USDT*", Sign(0)),
			fmt.Sprintf("🕒 %s", ToKST(now, false)),
		)
		return strings.Join(p, "\n")
	}

	sorted := make([]domain.Trade, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CloseTs.Before(sorted[j].CloseTs) })

	for _, r := range sorted {
		period := fmt.Sprintf("%s ~ %s (KST)", HM(r.StartTs), r.CloseTs.In(KST).Format("15:04"))
		p = append(p,
			fmt.Sprintf("✅ %s (%s)", r.Symbol, r.Side),
			fmt.Sprintf("기간       : %s", period),
			fmt.Sprintf("진입가     : %s USDT", FmtPrice(r.EntryPrice)),
			fmt.Sprintf("종료가     : %s USDT", FmtPrice(r.ClosePrice)),
			fmt.Sprintf("총 진입금액 : %s USDT", FmtNum(r.TotalEntryValue, 2)),
			fmt.Sprintf("총 종료금액 : %s USDT", FmtNum(r.TotalExitValue, 2)),
			fmt.Sprintf("Closed PnL : %s USDT", Sign(r.ClosedPnL)),
			fmt.Sprintf("Fee+Funding: %s USDT", Sign(r.FeeFunding)),
			fmt.Sprintf("*Realized   : %s USDT*", Sign(r.ClosedPnL+r.FeeFunding)),
			"",
		)
	}

	p = append(p,
		rule,
		fmt.Sprintf("합계 Closed PnL : %s USDT", Sign(sumClosed)),
		fmt.Sprintf("합계 Fee+Funding: %s USDT", Sign(sumFee)),
		fmt.Sprintf("*총 Realized     : %s USDT*", Sign(sumClosed+sumFee)),
		fmt.Sprintf("🕒 %s", ToKST(now, false)),
	)
	return strings.Join(p, "\n")
}
