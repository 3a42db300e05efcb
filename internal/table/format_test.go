package table

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatCell(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	cases := []struct {
		name   string
		value  any
		column string
		want   string
	}{
		{"nil", nil, "x", "-"},
		{"true", true, "active", "Yes"},
		{"false", false, "active", "No"},
		{"percent column", 0.123, "growth_rate", "12.3%"},
		{"conversion rate", 0.873, "conversion_rate", "87.3%"},
		{"ratio column", 1, "Conversion Ratio", "100.0%"},
		{"percent upper", 0.5, "PERCENT_DONE", "50.0%"},
		{"integer grouped", 1234567, "count", "1,234,567"},
		{"integral float grouped", float64(1234), "sales", "1,234"},
		{"negative integer", -9876, "delta", "-9,876"},
		{"fraction two digits", 1234.567, "amount", "1,234.57"},
		{"fraction one digit", 2.5, "amount", "2.5"},
		{"json number", json.Number("42"), "count", "42"},
		{"iso datetime", "2024-01-15T10:30:00Z", "created", "1/15/2024"},
		{"iso datetime no zone", "2024-12-01T00:00:00", "created", "12/1/2024"},
		{"malformed datetime", "2024-01-15T10:30:00garbage", "created", "2024-01-15T10:30:00garbage"},
		{"plain date string stays", "2024-01-15", "day", "2024-01-15"},
		{"plain string", "hello", "name", "hello"},
		{"time value", ts, "at", "3/5/2024, 2:07:09 PM"},
		{"slice", []int{1, 2}, "list", "[1 2]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatCell(tc.value, tc.column))
		})
	}
}

func TestFormatCell_NonFinite(t *testing.T) {
	assert.Equal(t, "NaN", FormatCell(math.NaN(), "v"))
	assert.Equal(t, "∞", FormatCell(math.Inf(1), "v"))
}

func TestIsPercentColumn(t *testing.T) {
	assert.True(t, IsPercentColumn("Rate"))
	assert.True(t, IsPercentColumn("percentage"))
	assert.False(t, IsPercentColumn("count"))
}
