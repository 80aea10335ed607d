package finance

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizeAmount coerces a loosely-typed amount into a float64. Finite
// numbers pass through, numeric strings parse (currency symbols and
// grouping commas are tolerated), booleans map to 1/0, and anything else
// collapses to 0 rather than erroring.
func NormalizeAmount(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	case float32:
		return NormalizeAmount(float64(n))
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		s = strings.ReplaceAll(s, "$", "")
		s = strings.ReplaceAll(s, ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}

// CurrencyOptions controls FormatCurrency output.
type CurrencyOptions struct {
	Decimals    int  // digits after the decimal point, 0 by default
	IncludeSign bool // prefix positive amounts with "+"
}

// FormatCurrency renders an amount as a dollar string with thousands
// separators: FormatCurrency(-42.5, CurrencyOptions{Decimals: 2}) returns
// "-$42.50".
func FormatCurrency(v float64, opts CurrencyOptions) string {
	v = NormalizeAmount(v)

	prefix := ""
	if v < 0 {
		prefix = "-"
		v = -v
	} else if opts.IncludeSign && v > 0 {
		prefix = "+"
	}

	s := strconv.FormatFloat(v, 'f', opts.Decimals, 64)
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i:]
	}

	return fmt.Sprintf("%s$%s%s", prefix, groupThousands(whole), frac)
}

// groupThousands inserts commas into a digit string: "1234567" -> "1,234,567".
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
