package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sunho-park/poswatch/internal/domain"
)

func TestFmtNumGroupsThousands(t *testing.T) {
	assert.Equal(t, "1,234,567.89", FmtNum(1234567.89, 2))
	assert.Equal(t, "-1,000.00", FmtNum(-1000, 2))
	assert.Equal(t, "999.5000", FmtNum(999.5, 4))
	assert.Equal(t, "0.00", FmtNum(0, 2))
}

func TestFmtPricePrecisionByMagnitude(t *testing.T) {
	assert.Equal(t, "64,123.50", FmtPrice(64123.5))
	assert.Equal(t, "3.1416", FmtPrice(3.14159))
	assert.Equal(t, "0.123457", FmtPrice(0.1234567))
	assert.Equal(t, "-64,123.50", FmtPrice(-64123.5))
}

func TestFmtQtyAbsolute(t *testing.T) {
	assert.Equal(t, "0.5000", FmtQty(-0.5))
	assert.Equal(t, "1,500.25", FmtQty(1500.25))
}

func TestSignAndPct(t *testing.T) {
	assert.Equal(t, "+12.34", Sign(12.34))
	assert.Equal(t, "-12.34", Sign(-12.34))
	assert.Equal(t, "0.00", Sign(0))
	assert.Equal(t, "+1.50%", Pct(1.5))
	assert.Equal(t, "-1.50%", Pct(-1.5))
}

func TestToKST(t *testing.T) {
	utc := time.Date(2025, 3, 1, 15, 30, 45, 0, time.UTC)
	assert.Equal(t, "2025-03-02 00:30 (KST)", ToKST(utc, false))
	assert.Equal(t, "2025-03-02 00:30:45 (KST)", ToKST(utc, true))
	assert.Equal(t, "03-02 00:30", HM(utc))
}

func sampleTrade(sym string, closed, fee float64, closeTs time.Time) domain.Trade {
	return domain.Trade{
		ID:              "t-" + sym,
		Symbol:          sym,
		Side:            domain.SideLong,
		StartTs:         closeTs.Add(-2 * time.Hour),
		CloseTs:         closeTs,
		EntryPrice:      64000,
		ClosePrice:      65000,
		TotalEntryValue: 6400,
		TotalExitValue:  6500,
		ClosedPnL:       closed,
		FeeFunding:      fee,
		Realized:        closed + fee,
		MarginMode:      domain.MarginCross,
		Leverage:        10,
	}
}

func TestReportSummaryCountsWinsByRealized(t *testing.T) {
	now := time.Date(2025, 3, 2, 23, 50, 0, 0, KST)
	rows := []domain.Trade{
		sampleTrade("BTC-USDT", 100, -5, now.Add(-time.Hour)),
		// A positive close eaten by fees counts as a loss.
		sampleTrade("ETH-USDT", 3, -5, now.Add(-30*time.Minute)),
	}

	msg := ReportSummary("2025-03-02", now, rows)
	assert.Contains(t, msg, "총 거래  : 2회 (승 1 / 패 1, 승률 *50.00%*)")
	assert.Contains(t, msg, "BTC-USDT(1), ETH-USDT(1)")
	assert.Contains(t, msg, "합계 Closed PnL : +103.00 USDT")
	assert.Contains(t, msg, "합계 Fee+Funding: -10.00 USDT")
	assert.Contains(t, msg, "*총 Realized     : +93.00 USDT*")
}

func TestReportSummaryEmptyDay(t *testing.T) {
	now := time.Date(2025, 3, 2, 23, 50, 0, 0, KST)
	msg := ReportSummary("2025-03-02", now, nil)
	assert.Contains(t, msg, "거래종목 : -")
	assert.Contains(t, msg, "총 거래  : 0회 (승 0 / 패 0, 승률 *0.00%*)")
}

func TestReportDetailOrdersByCloseTime(t *testing.T) {
	now := time.Date(2025, 3, 2, 23, 50, 0, 0, KST)
	late := sampleTrade("ETH-USDT", 50, -2, now.Add(-10*time.Minute))
	early := sampleTrade("BTC-USDT", 100, -5, now.Add(-2*time.Hour))

	msg := ReportDetail("2025-03-02", now, []domain.Trade{late, early})
	iBTC := strings.Index(msg, "BTC-USDT")
	iETH := strings.Index(msg, "ETH-USDT")
	assert.Greater(t, iETH, iBTC)
	assert.Contains(t, msg, "*총 Realized     : +143.00 USDT*")
}

func TestReportDetailEmptyDay(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, KST)
	msg := ReportDetail("2025-03-02", now, nil)
	assert.Contains(t, msg, "해당 기간 거래 내역이 없습니다.")
	assert.Contains(t, msg, "*총 Realized     : 0.00 USDT*")
}

func TestCloseRendersSettlement(t *testing.T) {
	tr := sampleTrade("BTC-USDT", 100, -6.4, time.Date(2025, 3, 2, 14, 0, 0, 0, KST))
	msg := Close(tr)
	assert.Contains(t, msg, "✅ *포지션 종료*")
	assert.Contains(t, msg, "BingX · BTC-USDT")
	assert.Contains(t, msg, "Closed PnL : +100.00 USDT")
	assert.Contains(t, msg, "Fee+Funding: -6.40 USDT")
	assert.Contains(t, msg, "*Realized   : +93.60 USDT*")
}

func TestSnapshotEmpty(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, KST)
	msg := Snapshot(nil, now)
	assert.Contains(t, msg, "현재 오픈 포지션이 없어")
}
