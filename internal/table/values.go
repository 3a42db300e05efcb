package table

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

var (
	isoDatePrefix     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	isoDateTimePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Number reports whether v is numeric and returns it as float64.
// Strings are never numeric, even when they look like numbers.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// IsNumber reports whether v is a numeric value.
func IsNumber(v any) bool {
	_, ok := Number(v)
	return ok
}

// LooksLikeDate reports whether v is a time.Time or a string starting with
// a YYYY-MM-DD date.
func LooksLikeDate(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case *time.Time:
		return t != nil
	case string:
		return isoDatePrefix.MatchString(t)
	}
	return false
}

// LooksLikeTimestamp reports whether s starts with a full
// YYYY-MM-DDTHH:MM:SS timestamp.
func LooksLikeTimestamp(s string) bool {
	return isoDateTimePrefix.MatchString(s)
}

// ParseTime parses the ISO-8601 shapes that show up in query results.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
