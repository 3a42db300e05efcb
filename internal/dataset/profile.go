package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

// Column kinds reported by Profile.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindEmpty       = "empty"
)

// ColumnProfile summarises one column.
type ColumnProfile struct {
	Name      string          `json:"name" yaml:"name"`
	Kind      string          `json:"kind" yaml:"kind"`
	NonNull   int             `json:"nonNull" yaml:"nonNull"`
	Missing   int             `json:"missing" yaml:"missing"`
	Unique    int             `json:"unique" yaml:"unique"`
	Min       float64         `json:"min,omitempty" yaml:"min,omitempty"`
	Max       float64         `json:"max,omitempty" yaml:"max,omitempty"`
	Mean      float64         `json:"mean,omitempty" yaml:"mean,omitempty"`
	Std       float64         `json:"std,omitempty" yaml:"std,omitempty"`
	First     string          `json:"first,omitempty" yaml:"first,omitempty"`
	Last      string          `json:"last,omitempty" yaml:"last,omitempty"`
	TopValues []CategoryCount `json:"topValues,omitempty" yaml:"topValues,omitempty"`
}

// CategoryCount is a value and how often it occurs.
type CategoryCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

type colAcc struct {
	nonNull, missing   int
	nums, dates, texts int
	// numeric stats via Welford
	n        int
	mean, m2 float64
	min, max float64
	first    string
	last     string
	cats     map[string]int
}

// Profile computes per-column summaries. A column's kind is its
// predominant value type.
func Profile(f *Frame) []ColumnProfile {
	accs := make([]*colAcc, len(f.Header))
	for i := range accs {
		accs[i] = &colAcc{min: math.Inf(1), max: math.Inf(-1), cats: map[string]int{}}
	}
	for _, row := range f.Rows {
		for j, acc := range accs {
			var v any
			if j < len(row) {
				v = row[j]
			}
			if v == nil {
				acc.missing++
				continue
			}
			acc.nonNull++
			if x, ok := table.Number(v); ok {
				acc.nums++
				acc.n++
				acc.min = math.Min(acc.min, x)
				acc.max = math.Max(acc.max, x)
				delta := x - acc.mean
				acc.mean += delta / float64(acc.n)
				acc.m2 += delta * (x - acc.mean)
				continue
			}
			s := fmt.Sprint(v)
			if table.LooksLikeDate(v) {
				acc.dates++
				if acc.first == "" || s < acc.first {
					acc.first = s
				}
				if s > acc.last {
					acc.last = s
				}
				continue
			}
			acc.texts++
			if len(acc.cats) <= 10000 && len(s) <= 64 {
				acc.cats[s]++
			}
		}
	}

	out := make([]ColumnProfile, len(accs))
	for i, acc := range accs {
		p := ColumnProfile{Name: f.Header[i], NonNull: acc.nonNull, Missing: acc.missing}
		switch {
		case acc.nonNull == 0:
			p.Kind = KindEmpty
		case acc.nums >= acc.dates && acc.nums >= acc.texts:
			p.Kind = KindNumeric
			p.Min, p.Max, p.Mean = acc.min, acc.max, acc.mean
			if acc.n > 1 {
				p.Std = math.Sqrt(acc.m2 / float64(acc.n-1))
			}
		case acc.dates >= acc.texts:
			p.Kind = KindDatetime
			p.First, p.Last = acc.first, acc.last
		default:
			p.Unique = len(acc.cats)
			p.TopValues = topValues(acc.cats, 5)
			// mostly distinct values are free text rather than categories
			if p.Unique > 50 && float64(p.Unique) > 0.9*float64(acc.texts) {
				p.Kind = KindText
			} else {
				p.Kind = KindCategorical
			}
		}
		out[i] = p
	}
	return out
}

func topValues(cats map[string]int, n int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > n {
		tops = tops[:n]
	}
	return tops
}

// Finding is a short observation about a dataset column.
type Finding struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

// Findings lists one observation per informative column.
func Findings(f *Frame, profiles []ColumnProfile) []Finding {
	var out []Finding
	for _, p := range profiles {
		switch p.Kind {
		case KindNumeric:
			out = append(out, Finding{
				Title: fmt.Sprintf("%s ranges %s to %s", p.Name, table.FormatCell(p.Min, p.Name), table.FormatCell(p.Max, p.Name)),
				Description: fmt.Sprintf("Average %s across %d values.",
					table.FormatCell(p.Mean, p.Name), p.NonNull),
			})
		case KindDatetime:
			out = append(out, Finding{
				Title:       fmt.Sprintf("%s spans %s to %s", p.Name, p.First, p.Last),
				Description: fmt.Sprintf("%d dated records.", p.NonNull),
			})
		case KindCategorical:
			if len(p.TopValues) == 0 {
				continue
			}
			top := p.TopValues[0]
			out = append(out, Finding{
				Title:       fmt.Sprintf("Most common %s is %s", p.Name, top.Value),
				Description: fmt.Sprintf("%d of %d rows; %d distinct values.", top.Count, p.NonNull, p.Unique),
			})
		}
		if p.Missing > 0 && len(f.Rows) > 0 {
			share := float64(p.Missing) / float64(len(f.Rows))
			if share >= 0.2 {
				out = append(out, Finding{
					Title:       fmt.Sprintf("%s is often missing", p.Name),
					Description: fmt.Sprintf("%s of rows have no %s.", table.FormatCell(share, "missing_rate"), p.Name),
				})
			}
		}
	}
	return out
}

// Summary is a one-paragraph description of the dataset.
func Summary(f *Frame, profiles []ColumnProfile) string {
	kinds := map[string][]string{}
	for _, p := range profiles {
		kinds[p.Kind] = append(kinds[p.Kind], p.Name)
	}
	caser := cases.Title(language.English)
	var b strings.Builder
	fmt.Fprintf(&b, "%s has %s rows and %d columns.", f.Name, table.FormatCell(len(f.Rows), "rows"), len(f.Header))
	for _, k := range []string{KindNumeric, KindDatetime, KindCategorical, KindText} {
		if names := kinds[k]; len(names) > 0 {
			fmt.Fprintf(&b, " %s: %s.", caser.String(k), strings.Join(names, ", "))
		}
	}
	return b.String()
}
