// Package money holds the numeric helpers shared by the checkout engine:
// tolerant string-to-number coercion, boundary rounding and localized
// currency rendering. All helpers are pure.
package money

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// ToNumber coerces v into a finite float64. Numbers pass through, nil maps
// to zero, and strings are parsed accepting either comma or dot as the
// decimal separator with the other treated as a thousands separator.
// Anything unparseable or non-finite yields zero; ToNumber never fails.
func ToNumber(v interface{}) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		return parseDecimal(n)
	default:
		return 0
	}
}

// parseDecimal normalizes a locale-sensitive numeric string to a float.
// When both separators appear, the rightmost one is the decimal mark and
// the other is stripped as grouping. A lone comma is a decimal mark.
func parseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			// Multiple commas can only be grouping.
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			head := strings.ReplaceAll(s[:lastDot], ".", "")
			s = head + s[lastDot:]
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Round2 rounds to two fraction digits, half away from zero. Internal
// computation keeps full precision; Round2 is applied only where values
// cross the system boundary.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatCurrency renders v as a localized two-fraction-digit BRL string.
func FormatCurrency(v float64) string {
	return printer.Sprintf("R$ %.2f", v)
}
