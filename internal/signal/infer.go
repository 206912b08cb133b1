package signal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sunho-park/poswatch/internal/domain"
)

// Timeframe minute counts an alert might legitimately carry as a bare number;
// used to avoid mistaking a "15" interval for a price of 15.
var tfMultipliers = map[string]bool{
	"1": true, "3": true, "5": true, "10": true, "15": true, "30": true,
	"45": true, "60": true, "120": true, "180": true, "240": true,
	"360": true, "720": true, "1440": true,
}

var (
	numTokenPat    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	symbolPat      = regexp.MustCompile(`([A-Z0-9]+[:·])?([A-Z]{2,20}(?:USDT|USD)(?:\.P|PERP)?)`)
	tfTextPat      = regexp.MustCompile(`\b(\d+\s*[mhdw])\b`)
	decimalPat     = regexp.MustCompile(`(?:^|[^0-9.])(\d+\.\d+)(?:[^0-9]|$)`)
	intPricePat    = regexp.MustCompile(`(?:^|[^0-9.])(\d{3,})(?:[^0-9]|$)`)
	zoneKoreanPat  = regexp.MustCompile(`구간\s*(\d+)`)
	zoneEnglishPat = regexp.MustCompile(`(?i)\bzone\s*(\d+)\b`)
	rangePat       = regexp.MustCompile(`(?:^|[^0-9.])(\d+(?:\.\d+)?) *~ *(\d+(?:\.\d+)?)`)
	panterraPat    = regexp.MustCompile(`pan\s*terra`)
	tfUnitPat      = regexp.MustCompile(`^\d+[mhdw]$`)
	digitsOnlyPat  = regexp.MustCompile(`\D`)
)

func isNumToken(s string) bool {
	return numTokenPat.MatchString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}

// looksLikeTFMultiplier reports whether a bare number equals the alert's own
// timeframe, which usually means the sender leaked the interval, not a price.
func looksLikeTFMultiplier(s, tf string) bool {
	s = strings.TrimSpace(s)
	n := digitsOnlyPat.ReplaceAllString(tf, "")
	return n != "" && s == n && tfMultipliers[s]
}

func extractSymbol(text string) string {
	return symbolPat.FindString(strings.ToUpper(text))
}

func extractTF(text string) string {
	m := tfTextPat.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], " ", "")
}

// extractPrice mines a price out of free text, preferring the middle segment
// of a "symbol | price | tf" line, then decimals, then integers of at least
// three digits (smaller bare integers are usually timeframes or zone counts).
func extractPrice(text, tf string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return "-"
	}

	if strings.Contains(t, "|") {
		parts := strings.Split(t, "|")
		if len(parts) >= 3 {
			mid := strings.TrimSpace(parts[1])
			right := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(parts[2])), " ", "")
			if isNumToken(mid) {
				if !(looksLikeTFMultiplier(mid, tf) && tfUnitPat.MatchString(right)) {
					return mid
				}
			}
		}
	}

	clean := strings.ReplaceAll(t, ",", "")
	if m := decimalPat.FindStringSubmatch(clean); m != nil {
		return m[1]
	}
	if m := intPricePat.FindStringSubmatch(clean); m != nil {
		return m[1]
	}
	return "-"
}

func extractZone(p Payload, text string) string {
	for _, k := range []string{"zone", "zone_no", "zone_num", "level", "lvl", "step", "segment", "stage", "section", "area"} {
		v := p.Str(k)
		if v != "" && digitsOnlyPat.ReplaceAllString(v, "") == v {
			return v
		}
	}
	if m := zoneKoreanPat.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := zoneEnglishPat.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func extractRange(text string) (string, string) {
	m := rangePat.FindStringSubmatch(strings.ReplaceAll(text, ",", ""))
	if m == nil {
		return "-", "-"
	}
	return m[1], m[2]
}

func emptyish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "-", "none", "null", "nan":
		return true
	}
	return false
}

// Infer classifies a parsed payload into a normalized Signal: which indicator
// pattern it matches, its direction, and the display fields the templates
// need. Unrecognizable payloads come back with KindUnknown.
func Infer(p Payload) domain.Signal {
	rawText := p.First("text", "message", "comment")

	symbol := p.First("symbol", "ticker", "pair", "market", "instrument")
	tf := p.First("interval", "timeframe", "tf", "period")
	action := strings.ToLower(p.First("action", "side", "signal", "order_action"))

	blob := strings.ToLower(strings.Join([]string{
		p.Str("strategy"), p.Str("strategy_name"), p.Str("indicator"),
		p.Str("title"), p.Str("name"), p.Str("message"), p.Str("comment"),
		rawText, fmt.Sprint(map[string]any(p)),
	}, " | "))

	kind := domain.SignalUnknown
	switch {
	case strings.Contains(blob, "barcode") || strings.Contains(blob, "바코드"):
		kind = domain.SignalBarcode
	case strings.Contains(blob, "prism") || strings.Contains(blob, "프리즘") ||
		strings.Contains(blob, "지지 준비") || strings.Contains(blob, "저항 준비") ||
		zoneKoreanPat.MatchString(blob):
		kind = domain.SignalPrism
	case strings.Contains(blob, "rsi"):
		kind = domain.SignalRSI
	case strings.Contains(blob, "panterra") || strings.Contains(blob, "판테라") || panterraPat.MatchString(blob):
		kind = domain.SignalPanTerra
	}

	side := "buy"
	for _, tok := range []string{"short", "sell", "매도", "노랑별", "저항", "숏"} {
		if strings.Contains(blob, tok) {
			side = "sell"
			break
		}
	}
	if strings.Contains(action, "sell") || strings.Contains(action, "short") {
		side = "sell"
	}
	if strings.Contains(action, "buy") || strings.Contains(action, "long") {
		side = "buy"
	}

	if symbol == "" {
		symbol = extractSymbol(rawText)
	}
	if symbol == "" {
		symbol = "BYBIT·BTCUSDT.P"
	}

	if tf == "" || strings.EqualFold(tf, "none") {
		tf = extractTF(rawText)
	}
	if tf == "" {
		tf = "1m"
	}

	price := "-"
	for _, k := range []string{"close", "last", "mark", "entry", "open", "high", "low", "price"} {
		s := p.Str(k)
		if emptyish(s) || !isNumToken(s) {
			continue
		}
		if k == "price" && looksLikeTFMultiplier(s, tf) {
			continue
		}
		price = s
		break
	}
	if price == "-" {
		price = extractPrice(rawText, tf)
	}

	lo := p.First("low", "support_low", "zone_low", "from", "min")
	hi := p.First("high", "support_high", "zone_high", "to", "max")
	if kind == domain.SignalPrism {
		// Prism alerts often carry "65777.8 ~ 65811.9" only in the text body.
		tlo, thi := extractRange(rawText)
		if emptyish(lo) && tlo != "-" {
			lo = tlo
		}
		if emptyish(hi) && thi != "-" {
			hi = thi
		}
	}
	if lo == "" {
		lo = p.First("zone1", "price1")
	}
	if hi == "" {
		hi = p.First("zone2", "price2")
	}
	if lo == "" {
		lo = "-"
	}
	if hi == "" {
		hi = "-"
	}

	fire := "🔥"
	switch strings.TrimSpace(p.First("fire", "strength", "level")) {
	case "2", "high", "strong", "🔥🔥":
		fire = "🔥🔥"
	}

	if !strings.Contains(symbol, "·") &&
		(strings.HasSuffix(symbol, ".P") || strings.Contains(strings.ToUpper(symbol), "USDT")) {
		symbol = "BYBIT·" + symbol
	}

	zone := ""
	if kind == domain.SignalPrism {
		zone = extractZone(p, rawText)
	}

	return domain.Signal{
		Kind:      kind,
		Side:      side,
		Symbol:    symbol,
		Timeframe: tf,
		Price:     price,
		Low:       lo,
		High:      hi,
		Fire:      fire,
		Zone:      zone,
	}
}
