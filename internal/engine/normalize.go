// Package engine implements the position lifecycle reconciliation core: the
// snapshot normalizer, the settlement reconciler, the session ledger, and the
// diff classifier that turns two snapshots into a classified event stream.
package engine

import (
	"strconv"
	"strings"

	"github.com/sunho-park/poswatch/internal/domain"
)

// Ordered alias tables for the logical position fields. Exchange API versions
// rename fields freely; the first alias present in the record wins.
var (
	symbolAliases    = []string{"symbol", "ticker", "pair"}
	qtyAliases       = []string{"positionAmt", "positionSize", "position", "positionAmount", "holdVolume", "size"}
	sideAliases      = []string{"positionSide", "side", "holdSide", "posSide"}
	entryAliases     = []string{"avgPrice", "entryPrice", "avgOpenPrice", "openPrice"}
	markAliases      = []string{"markPrice", "lastPrice", "indexPrice", "closePrice"}
	uPnLAliases      = []string{"unrealizedProfit", "unRealizedProfit", "unrealizedPnl", "upl", "positionProfit"}
	rPnLAliases      = []string{"realizedProfit", "realisedPnl", "realizedPnl", "rpl"}
	leverageAliases  = []string{"leverage", "positionLeverage"}
	marginTypAliases = []string{"marginType", "marginMode", "isolated"}
	valueAliases     = []string{"positionValue", "notional", "positionNotional", "value"}
	marginAliases    = []string{"positionMargin", "isolatedMargin", "margin"}
	availAliases     = []string{"availableAmt"}
)

// asFloat coerces an arbitrary JSON value to a float64, returning def when it
// cannot be parsed. Booleans are not numbers here.
func asFloat(v any, def float64) float64 {
	switch x := v.(type) {
	case nil, bool:
		return def
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(x, ",", ""))
		if s == "" {
			return def
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// firstString returns the first non-empty string among the aliases.
func firstString(rec domain.RawRecord, aliases []string) string {
	for _, k := range aliases {
		if v, ok := rec[k]; ok {
			if s := asString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstFloat returns the first alias that parses to a non-zero float, or def.
func firstFloat(rec domain.RawRecord, aliases []string, def float64) float64 {
	for _, k := range aliases {
		if v, ok := rec[k]; ok {
			if f := asFloat(v, 0); f != 0 {
				return f
			}
		}
	}
	return def
}

// Normalize maps one heterogeneous raw exchange position record into a
// canonical Position. It returns ok=false when no symbol can be resolved or
// the resolved quantity is not positive. The function is pure.
func Normalize(rec domain.RawRecord) (domain.Position, bool) {
	symbol := firstString(rec, symbolAliases)
	if symbol == "" {
		return domain.Position{}, false
	}

	qtySigned := firstFloat(rec, qtyAliases, 0)

	side := resolveSide(strings.ToLower(firstString(rec, sideAliases)), qtySigned)

	qty := abs(qtySigned)
	if qty <= 0 {
		qty = abs(firstFloat(rec, availAliases, 0))
	}
	if qty <= 0 {
		return domain.Position{}, false
	}

	entry := firstFloat(rec, entryAliases, 0)
	mark := firstFloat(rec, markAliases, entry)
	if mark == 0 {
		mark = entry
	}
	uPnL := firstFloat(rec, uPnLAliases, 0)
	rPnL := firstFloat(rec, rPnLAliases, 0)
	lev := firstFloat(rec, leverageAliases, 0)

	marginMode := domain.MarginCross
	mm := strings.ToLower(firstString(rec, marginTypAliases))
	if strings.Contains(mm, "isol") || mm == "true" || mm == "1" {
		marginMode = domain.MarginIsolated
	}

	value := firstFloat(rec, valueAliases, qty*mark)
	margin := firstFloat(rec, marginAliases, 0)
	if margin == 0 && lev > 0 {
		margin = value / lev
	}
	if lev <= 0 {
		if margin > 0 {
			lev = value / margin
		} else {
			lev = 1
		}
	}

	uPct := 0.0
	if margin != 0 {
		uPct = uPnL / margin * 100
	}

	return domain.Position{
		Symbol:        symbol,
		Base:          domain.BaseAsset(symbol),
		Side:          side,
		Quantity:      qty,
		EntryPrice:    entry,
		MarkPrice:     mark,
		UnrealizedPnL: uPnL,
		RealizedPnL:   rPnL,
		Leverage:      lev,
		MarginMode:    marginMode,
		Value:         value,
		Margin:        margin,
		UPnLPct:       uPct,
	}, true
}

// resolveSide interprets an explicit side token when recognizable, else falls
// back to the sign of the signed quantity.
func resolveSide(token string, qtySigned float64) domain.Side {
	switch {
	case strings.Contains(token, "short"), token == "sell", token == "2":
		return domain.SideShort
	case strings.Contains(token, "long"), token == "buy", token == "1":
		return domain.SideLong
	case qtySigned < 0:
		return domain.SideShort
	default:
		return domain.SideLong
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// NormalizeAll normalizes a batch of raw records, silently dropping rejects,
// and returns the resulting snapshot keyed by identity key.
func NormalizeAll(recs []domain.RawRecord) domain.Snapshot {
	snap := make(domain.Snapshot, len(recs))
	for _, rec := range recs {
		if p, ok := Normalize(rec); ok {
			snap[p.Key()] = p
		}
	}
	return snap
}
