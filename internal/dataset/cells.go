package dataset

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

var groupedNumber = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)

// Non-ISO date layouts seen in spreadsheets exports. ISO shapes are handled
// by table.ParseTime.
var localDateLayouts = []string{
	"2006/01/02", "01/02/2006", "1/2/2006", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

// parseCell types a raw text cell: blank -> nil, numbers -> float64,
// true/false -> bool, recognised dates -> ISO-8601 string, otherwise the
// trimmed text.
func parseCell(raw string) any {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if s == "" {
		return nil
	}
	if n, ok := parseNumber(s); ok {
		return n
	}
	switch strings.ToLower(s) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}
	if table.LooksLikeDate(s) {
		if t, ok := table.ParseTime(s); ok {
			return isoString(t)
		}
		return s
	}
	for _, l := range localDateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return isoString(t)
		}
	}
	return s
}

func parseNumber(s string) (float64, bool) {
	if groupedNumber.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	body := strings.TrimLeft(s, "+-")
	if body == "" || !(body[0] == '.' || (body[0] >= '0' && body[0] <= '9')) {
		return 0, false
	}
	// leading zeros mark codes (zip, account numbers), not quantities
	if len(body) > 1 && body[0] == '0' && body[1] != '.' {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isoString(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04:05")
}
