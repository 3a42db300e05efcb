package chart

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

// Direction is a sort direction for SortByKey.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

var (
	hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	rgbColor = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*[\d.]+\s*)?\)$`)
)

// AdjustOpacity re-emits a hex or rgb()/rgba() colour as rgba() with the
// given opacity. Unrecognised colours are returned unchanged.
func AdjustOpacity(color string, opacity float64) string {
	c := strings.TrimSpace(color)
	var r, g, b int64
	switch {
	case hexColor.MatchString(c):
		hex := c[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		r, _ = strconv.ParseInt(hex[0:2], 16, 64)
		g, _ = strconv.ParseInt(hex[2:4], 16, 64)
		b, _ = strconv.ParseInt(hex[4:6], 16, 64)
	case rgbColor.MatchString(c):
		m := rgbColor.FindStringSubmatch(c)
		r, _ = strconv.ParseInt(m[1], 10, 64)
		g, _ = strconv.ParseInt(m[2], 10, 64)
		b, _ = strconv.ParseInt(m[3], 10, 64)
	default:
		return color
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(opacity, 'f', -1, 64))
}

// FormatLabel turns a snake_case key into a title: total_amount -> Total Amount.
func FormatLabel(key string) string {
	caser := cases.Title(language.English, cases.NoLower)
	words := strings.Split(key, "_")
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// SortByKey returns a stably sorted copy of rows ordered by the value under
// key. Missing and nil values always sort last; dir only flips the order of
// the remaining values.
func SortByKey(rows []*table.Row, key string, dir Direction) []*table.Row {
	out := make([]*table.Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Value(key), out[j].Value(key)
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		}
		c := compareValues(a, b)
		if dir == Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compareValues(a, b any) int {
	if an, ok := table.Number(a); ok {
		if bn, ok := table.Number(b); ok {
			return compareFloat(an, bn)
		}
	}
	if at, ok := asTime(a); ok {
		if bt, ok := asTime(b); ok {
			return at.Compare(bt)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	case string:
		if table.LooksLikeDate(t) {
			return table.ParseTime(t)
		}
	}
	return time.Time{}, false
}

// DefaultTickCount is used when CalculateTicks gets fewer than two ticks.
const DefaultTickCount = 5

// CalculateTicks returns evenly spaced axis ticks covering [min, max] padded
// by 10% on each side, with the step snapped to 1, 2 or 5 times a power of ten.
func CalculateTicks(min, max float64, count int) []float64 {
	if min == max || math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return []float64{min}
	}
	if min > max {
		min, max = max, min
	}
	if count < 2 {
		count = DefaultTickCount
	}
	pad := (max - min) * 0.1
	pmin, pmax := min-pad, max+pad
	raw := (pmax - pmin) / float64(count-1)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	var nice float64
	switch norm := raw / mag; {
	case norm < 1.5:
		nice = 1
	case norm < 3:
		nice = 2
	case norm < 7:
		nice = 5
	default:
		nice = 10
	}
	step := nice * mag
	start := math.Floor(pmin/step) * step
	end := math.Ceil(pmax/step) * step
	n := int(math.Round((end-start)/step)) + 1
	ticks := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		ticks = append(ticks, roundTick(start+float64(i)*step))
	}
	return ticks
}

func roundTick(v float64) float64 {
	r := math.Round(v*1e10) / 1e10
	if r == 0 {
		return 0
	}
	return r
}
