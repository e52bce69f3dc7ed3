package card

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sol-price-alerts/internal/alert"
)

// FormatUSD renders a price as a currency label with thousands
// separators and exactly two fractional digits, e.g. "$1,234.50".
func FormatUSD(d decimal.Decimal) string {
	q := alert.Quantize(d)
	abs := q.Abs()
	whole := abs.IntPart()
	cents := abs.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).IntPart()

	p := message.NewPrinter(language.English)
	label := fmt.Sprintf("$%s.%02d", p.Sprintf("%d", whole), cents)
	if q.IsNegative() {
		label = "-" + label
	}
	return label
}

// FormatSignedDelta renders a quantized delta with an explicit sign,
// e.g. "+1.50" or "-0.75". Zero keeps a plus sign.
func FormatSignedDelta(d decimal.Decimal) string {
	s := alert.Quantize(d).StringFixed(2)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s
}
