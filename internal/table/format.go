package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is shown for missing cells.
const Placeholder = "-"

var printer = message.NewPrinter(language.English)

// FormatCell renders a single value for display. It never fails: anything
// it does not recognise is rendered with fmt.Sprint.
//
// Numbers in a column whose name mentions percent, ratio or rate are treated
// as fractions and shown as a percentage with one decimal. Other integral
// numbers get thousands separators; fractional ones are rounded to two
// decimals. Timestamps render as a short date.
func FormatCell(value any, column string) string {
	if value == nil {
		return Placeholder
	}
	if n, ok := Number(value); ok {
		return formatNumber(n, column)
	}
	switch v := value.(type) {
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case string:
		if LooksLikeTimestamp(v) {
			if t, ok := ParseTime(v); ok {
				return t.Format("1/2/2006")
			}
		}
		return v
	case time.Time:
		return v.Format("1/2/2006, 3:04:05 PM")
	case *time.Time:
		if v == nil {
			return Placeholder
		}
		return v.Format("1/2/2006, 3:04:05 PM")
	case *Row:
		b, err := v.MarshalJSON()
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(b)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(value)
}

// IsPercentColumn reports whether a column name marks its values as fractions.
func IsPercentColumn(column string) bool {
	lc := strings.ToLower(column)
	return strings.Contains(lc, "percent") || strings.Contains(lc, "ratio") || strings.Contains(lc, "rate")
}

func formatNumber(n float64, column string) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "∞"
	case math.IsInf(n, -1):
		return "-∞"
	}
	if IsPercentColumn(column) {
		return strconv.FormatFloat(n*100, 'f', 1, 64) + "%"
	}
	if n == math.Trunc(n) {
		if math.Abs(n) < 1e18 {
			return printer.Sprintf("%d", int64(n))
		}
		return printer.Sprintf("%.0f", n)
	}
	s := printer.Sprintf("%.2f", math.Round(n*100)/100)
	// keep at least one fractional digit: 1.50 -> 1.5, 1.00 stays 1.0
	if strings.HasSuffix(s, "0") && len(s) >= 2 && s[len(s)-2] != '.' {
		s = s[:len(s)-1]
	}
	return s
}
