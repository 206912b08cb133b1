package engine

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
)

// Alias tables for settlement (income) ledger records.
var (
	settleSymbolAliases = []string{"symbol", "ticker", "instId", "instrument"}
	settleAmountAliases = []string{"income", "amount", "amt", "profit", "pnl", "realisedPnl"}
	settleTypeAliases   = []string{"incomeType", "type", "bizType", "category"}
)

// feeTypeKeywords mark a settlement record as a fee or funding payment rather
// than realized trade PnL.
var feeTypeKeywords = []string{"commission", "fee", "funding", "fund"}

// ReconcileResult is the settled outcome of one closed position.
// Realized is always ClosedPnL + FeeFunding, on both paths.
type ReconcileResult struct {
	ClosedPnL  float64
	FeeFunding float64
	Realized   float64
	// Settled reports whether exchange settlement records backed the numbers
	// (false means the fallback estimator produced them).
	Settled bool
}

// Reconciler derives final realized PnL for a closed position from exchange
// settlement records, with a deterministic fee-model fallback when the ledger
// is empty or unreachable.
type Reconciler struct {
	source       domain.SettlementSource
	takerFeeRate float64
	timeout      time.Duration
	log          *slog.Logger
}

func NewReconciler(source domain.SettlementSource, takerFeeRate float64, timeout time.Duration, log *slog.Logger) *Reconciler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Reconciler{
		source:       source,
		takerFeeRate: takerFeeRate,
		timeout:      timeout,
		log:          log.With("component", "reconciler"),
	}
}

// normalizeSymbol strips non-alphanumeric characters and upper-cases, so that
// "BTC-USDT", "BTC/USDT" and "BTCUSDT" all compare equal.
func normalizeSymbol(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// symbolMatches reports whether a settlement record's symbol plausibly refers
// to the requested instrument: one normalized form must contain the other.
// Exchanges have been observed to ignore a loose symbol filter and return the
// whole account ledger; without this check foreign instruments would pollute
// the realized total. A record with no symbol at all passes — some funding
// entries omit it, and the income request was already scoped to the symbol.
func symbolMatches(want, got string) bool {
	w, g := normalizeSymbol(want), normalizeSymbol(got)
	if g == "" {
		return true
	}
	if w == "" {
		return false
	}
	return strings.Contains(w, g) || strings.Contains(g, w)
}

func isFeeType(token string) bool {
	t := strings.ToLower(token)
	for _, kw := range feeTypeKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// Reconcile resolves (closed_pnl, fee_funding, realized) for symbol over the
// window [startMs, endMs]. estClosedPnL and the entry/exit totals feed the
// fallback estimator, used only when no usable settlement record survives the
// symbol filter.
func (r *Reconciler) Reconcile(ctx context.Context, symbol string, startMs, endMs int64, estClosedPnL, totalEntry, totalExit float64) ReconcileResult {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	recs, err := r.source.FetchSettlements(cctx, symbol, startMs, endMs)
	if err != nil {
		r.log.Warn("settlement fetch failed, using estimator", "symbol", symbol, "error", err)
		recs = nil
	}

	var closed, fees float64
	matched := 0
	for _, rec := range recs {
		got := firstString(rec, settleSymbolAliases)
		if !symbolMatches(symbol, got) {
			continue
		}
		amt := firstFloat(rec, settleAmountAliases, 0)
		if math.IsNaN(amt) || math.IsInf(amt, 0) {
			continue
		}
		matched++
		if isFeeType(firstString(rec, settleTypeAliases)) {
			fees += amt
		} else {
			closed += amt
		}
	}

	if matched > 0 {
		return ReconcileResult{
			ClosedPnL:  closed,
			FeeFunding: fees,
			Realized:   closed + fees,
			Settled:    true,
		}
	}

	est := r.Estimate(estClosedPnL, totalEntry, totalExit)
	r.log.Debug("settlement ledger empty, estimated",
		"symbol", symbol, "closed_pnl", est.ClosedPnL, "fee_funding", est.FeeFunding)
	return est
}

// Estimate models open+close taker fees against the cumulative traded
// notional and takes the caller's notional-delta PnL estimate as closed PnL.
func (r *Reconciler) Estimate(estClosedPnL, totalEntry, totalExit float64) ReconcileResult {
	fees := -(math.Abs(totalEntry) + math.Abs(totalExit)) * r.takerFeeRate
	return ReconcileResult{
		ClosedPnL:  estClosedPnL,
		FeeFunding: fees,
		Realized:   estClosedPnL + fees,
		Settled:    false,
	}
}
