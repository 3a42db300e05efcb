package report

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/reportloom-cli/internal/chart"
	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

// Grouping is one logical entity group found in a complex response.
type Grouping struct {
	Label string
	Match func(row *table.Row) bool
}

// GroupingDetector finds the entity groupings signalled by the shape of the
// visualization data. Returning no groupings means the response has no
// natural split.
type GroupingDetector interface {
	Detect(vizs []VisualizationSpec) []Grouping
}

// DetectorFunc adapts a function to GroupingDetector.
type DetectorFunc func(vizs []VisualizationSpec) []Grouping

// Detect calls f.
func (f DetectorFunc) Detect(vizs []VisualizationSpec) []Grouping {
	return f(vizs)
}

// FieldRule names a field whose presence marks a row as part of a grouping.
type FieldRule struct {
	Field string `json:"field" yaml:"field" mapstructure:"field"`
	Label string `json:"label" yaml:"label" mapstructure:"label"`
}

// DefaultFieldRules split client rows from therapy-area rows.
var DefaultFieldRules = []FieldRule{
	{Field: "Client", Label: "Client Analysis"},
	{Field: "TherapyArea", Label: "Therapy Area Analysis"},
}

// FieldPresenceDetector yields one grouping per rule whose field appears in
// any visualization row, in rule order.
type FieldPresenceDetector struct {
	Rules []FieldRule
}

func (d FieldPresenceDetector) Detect(vizs []VisualizationSpec) []Grouping {
	var out []Grouping
	for _, rule := range d.Rules {
		if rule.Field == "" || !anyRow(vizs, func(r *table.Row) bool { return r.Has(rule.Field) }) {
			continue
		}
		label := rule.Label
		if label == "" {
			label = chart.FormatLabel(rule.Field)
		}
		field := rule.Field
		out = append(out, Grouping{
			Label: label,
			Match: func(r *table.Row) bool { return r.Has(field) },
		})
	}
	return out
}

// SignatureDetector yields one grouping per distinct column set found across
// visualization rows. A single signature is not a split, so fewer than two
// yields nothing.
type SignatureDetector struct{}

func (SignatureDetector) Detect(vizs []VisualizationSpec) []Grouping {
	var order []string
	keys := map[string][]string{}
	for _, v := range vizs {
		for _, r := range v.Data {
			sig := signature(r)
			if _, seen := keys[sig]; seen {
				continue
			}
			keys[sig] = r.Keys()
			order = append(order, sig)
		}
	}
	if len(order) < 2 {
		return nil
	}
	used := map[string]int{}
	out := make([]Grouping, 0, len(order))
	for _, sig := range order {
		label := signatureLabel(keys[sig])
		used[label]++
		if n := used[label]; n > 1 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		s := sig
		out = append(out, Grouping{
			Label: label,
			Match: func(r *table.Row) bool { return signature(r) == s },
		})
	}
	return out
}

func signature(r *table.Row) string {
	return strings.Join(r.Keys(), "\x1f")
}

func signatureLabel(cols []string) string {
	if len(cols) == 0 {
		return "Group"
	}
	c := cols[0]
	if isIdentifier(c) && len(cols) > 1 {
		c = cols[1]
	}
	return chart.FormatLabel(c) + " Analysis"
}

// FirstMatch tries detectors in order and returns the first non-empty result.
func FirstMatch(detectors ...GroupingDetector) GroupingDetector {
	return DetectorFunc(func(vizs []VisualizationSpec) []Grouping {
		for _, d := range detectors {
			if d == nil {
				continue
			}
			if gs := d.Detect(vizs); len(gs) > 0 {
				return gs
			}
		}
		return nil
	})
}

// DefaultDetector tries DefaultFieldRules, then column signatures.
func DefaultDetector() GroupingDetector {
	return FirstMatch(FieldPresenceDetector{Rules: DefaultFieldRules}, SignatureDetector{})
}

func anyRow(vizs []VisualizationSpec, fn func(*table.Row) bool) bool {
	for _, v := range vizs {
		for _, r := range v.Data {
			if fn(r) {
				return true
			}
		}
	}
	return false
}
