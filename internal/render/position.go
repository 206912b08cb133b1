package render

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
)

const rule = "━━━━━━━━━━━━━━"

func lev(v float64) int { return int(math.Round(v)) }

// Open renders the position-open alert.
func Open(p domain.Position) string {
	head := "📈 *포지션 오픈*"
	if p.Side == domain.SideShort {
		head = "📉 *포지션 오픈*"
	}
	return fmt.Sprintf(
		"%s\n%s\nBingX · %s\n%s · %s · %dx\n\n"+
			"*Entry*    : *%s USDT*\n"+
			"*Position* : *%s %s*\n"+
			"Value      : %s USDT\n"+
			"Margin     : %s USDT\n\n"+
			"uPnL : %s USDT (%s)\n"+
			"rPnL : %s USDT\n\n"+
			"🕒 %s",
		head, rule, p.Symbol, p.Side, p.MarginMode, lev(p.Leverage),
		FmtPrice(p.EntryPrice),
		FmtQty(p.Quantity), p.Base,
		FmtNum(p.Value, 2),
		FmtNum(p.Margin, 2),
		Sign(p.UnrealizedPnL), Pct(p.UPnLPct),
		Sign(p.RealizedPnL),
		ToKST(NowKST(), false),
	)
}

// Add renders the position-increase alert with before/after columns.
func Add(prev, cur domain.Position) string {
	return transition("➕ *포지션 추가 진입*", prev, cur)
}

// Reduce renders the position-decrease alert with before/after columns.
func Reduce(prev, cur domain.Position) string {
	return transition("➖ *포지션 감소*", prev, cur)
}

func transition(head string, prev, cur domain.Position) string {
	return fmt.Sprintf(
		"%s\n%s\nBingX · %s\n%s · %s · %dx\n\n"+
			"*Entry*  : *%s  →  %s USDT*\n"+
			"Position : %s %s  →  %s %s\n"+
			"Value    : %s      →  %s USDT\n"+
			"Margin   : %s       →  %s USDT\n\n"+
			"uPnL : %s USDT (%s)\n"+
			"rPnL : %s USDT\n\n"+
			"🕒 %s",
		head, rule, cur.Symbol, cur.Side, cur.MarginMode, lev(cur.Leverage),
		FmtPrice(prev.EntryPrice), FmtPrice(cur.EntryPrice),
		FmtQty(prev.Quantity), cur.Base, FmtQty(cur.Quantity), cur.Base,
		FmtNum(prev.Value, 2), FmtNum(cur.Value, 2),
		FmtNum(prev.Margin, 2), FmtNum(cur.Margin, 2),
		Sign(cur.UnrealizedPnL), Pct(cur.UPnLPct),
		Sign(cur.RealizedPnL),
		ToKST(NowKST(), false),
	)
}

// Close renders the position-close settlement alert from a finalized trade.
func Close(tr domain.Trade) string {
	period := fmt.Sprintf("%s ~ %s (KST)", HM(tr.StartTs), tr.CloseTs.In(KST).Format("15:04"))
	return fmt.Sprintf(
		"✅ *포지션 종료*\n%s\nBingX · %s\n%s · %s · %dx\n\n"+
			"기간       : %s\n"+
			"진입가     : %s USDT\n"+
			"종료가     : %s USDT\n\n"+
			"총 진입금액 : %s USDT\n"+
			"총 종료금액 : %s USDT\n\n"+
			"Closed PnL : %s USDT\n"+
			"Fee+Funding: %s USDT\n"+
			"*Realized   : %s USDT*\n\n"+
			"🕒 %s",
		rule, tr.Symbol, tr.Side, tr.MarginMode, lev(tr.Leverage),
		period,
		FmtPrice(tr.EntryPrice),
		FmtPrice(tr.ClosePrice),
		FmtNum(tr.TotalEntryValue, 2),
		FmtNum(tr.TotalExitValue, 2),
		Sign(tr.ClosedPnL),
		Sign(tr.FeeFunding),
		Sign(tr.Realized),
		ToKST(tr.CloseTs, false),
	)
}

// Snapshot renders the on-demand open-position listing.
func Snapshot(positions []domain.Position, now time.Time) string {
	if len(positions) == 0 {
		return fmt.Sprintf("📭 현재 오픈 포지션이 없어.\n\n🕒 %s", ToKST(now, false))
	}
	lines := []string{"📌 *현재 포지션 스냅샷*", rule}
	for _, p := range positions {
		lines = append(lines,
			fmt.Sprintf("%s | %s", p.Symbol, p.Side),
			fmt.Sprintf("Entry %s | Pos %s %s", FmtPrice(p.EntryPrice), FmtQty(p.Quantity), p.Base),
			fmt.Sprintf("uPnL %s (%s) | rPnL %s", Sign(p.UnrealizedPnL), Pct(p.UPnLPct), Sign(p.RealizedPnL)),
			"",
		)
	}
	lines = append(lines, fmt.Sprintf("🕒 %s", ToKST(now, false)))
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
