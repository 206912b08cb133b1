// Package render formats alert and report messages for Telegram delivery.
// All timestamps are presented in KST and all money figures in USDT, matching
// the audience the bot serves.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
)

// KST is the display timezone for every rendered message, the same calendar
// the trade history partitions on.
var KST = domain.KST

// NowKST returns the current time in KST.
func NowKST() time.Time {
	return time.Now().In(KST)
}

// ToKST renders a timestamp as "2006-01-02 15:04 (KST)", with seconds when
// sec is true.
func ToKST(t time.Time, sec bool) string {
	layout := "2006-01-02 15:04 (KST)"
	if sec {
		layout = "2006-01-02 15:04:05 (KST)"
	}
	return t.In(KST).Format(layout)
}

// HM renders a timestamp as "01-02 15:04" in KST.
func HM(t time.Time) string {
	return t.In(KST).Format("01-02 15:04")
}

// groupThousands inserts comma separators into the integer part of a plain
// decimal string produced by strconv.FormatFloat.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	n := len(intPart)
	for i, c := range intPart {
		if i > 0 && (n-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

// FmtNum renders v with d decimals and thousands separators.
func FmtNum(v float64, d int) string {
	return groupThousands(strconv.FormatFloat(v, 'f', d, 64))
}

// FmtPrice renders a price with precision scaled to its magnitude: large
// prices get 2 decimals, sub-100 prices 4, sub-1 prices 6.
func FmtPrice(v float64) string {
	x := v
	if x < 0 {
		x = -x
	}
	d := 6
	switch {
	case x >= 100:
		d = 2
	case x >= 1:
		d = 4
	}
	return FmtNum(v, d)
}

// FmtQty renders an absolute quantity with 2 decimals for large sizes and 4
// otherwise.
func FmtQty(v float64) string {
	if v < 0 {
		v = -v
	}
	d := 4
	if v >= 100 {
		d = 2
	}
	return FmtNum(v, d)
}

// Sign renders a signed money amount with an explicit plus for gains.
func Sign(v float64) string {
	if v > 0 {
		return "+" + FmtNum(v, 2)
	}
	return FmtNum(v, 2)
}

// Pct renders a signed percentage with an explicit plus for gains.
func Pct(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}
