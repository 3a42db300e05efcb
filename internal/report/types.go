package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

// Insight is an upstream finding. The assembler partitions insights between
// sections but never edits them.
type Insight struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

// VisualizationSpec describes one chart. Type is one of bar, line, pie,
// table, kpi, scatter or combo; upstream may also send an empty type.
type VisualizationSpec struct {
	Type   string         `json:"type" yaml:"type"`
	Title  string         `json:"title" yaml:"title"`
	Data   []*table.Row   `json:"data" yaml:"data"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// UnmarshalJSON accepts data as either row objects or a header row followed
// by value rows. A config that is not an object is dropped.
func (v *VisualizationSpec) UnmarshalJSON(b []byte) error {
	var wire struct {
		Type   json.RawMessage `json:"type"`
		Title  json.RawMessage `json:"title"`
		Data   json.RawMessage `json:"data"`
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*v = VisualizationSpec{
		Type:  strings.ToLower(strings.TrimSpace(decodeString(wire.Type, "visualization.type"))),
		Title: decodeString(wire.Title, "visualization.title"),
		Data:  table.Normalize(wire.Data),
	}
	if len(bytes.TrimSpace(wire.Config)) > 0 {
		var cfg map[string]any
		if err := json.Unmarshal(wire.Config, &cfg); err != nil {
			log.Debug().Err(err).Msg("dropping visualization config")
		} else {
			v.Config = cfg
		}
	}
	return nil
}

// RawResponse is what the upstream query or report service returns. Every
// field is optional. Results keeps whatever shape upstream sent; decoding
// from JSON stores it as json.RawMessage so row key order is preserved.
type RawResponse struct {
	Results        any                 `json:"results,omitempty" yaml:"results,omitempty"`
	Visualizations []VisualizationSpec `json:"visualizations,omitempty" yaml:"visualizations,omitempty"`
	Narrative      string              `json:"narrative,omitempty" yaml:"narrative,omitempty"`
	AIResponse     string              `json:"aiResponse,omitempty" yaml:"aiResponse,omitempty"`
	Insights       []Insight           `json:"insights,omitempty" yaml:"insights,omitempty"`
	IsComplex      bool                `json:"isComplex,omitempty" yaml:"isComplex,omitempty"`
	Prompt         string              `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// UnmarshalJSON decodes tolerantly: a field with the wrong shape is dropped
// rather than failing the whole response. Only a payload that is not a JSON
// object is an error.
func (r *RawResponse) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*r = RawResponse{}
	if raw, ok := fields["results"]; ok && !isNull(raw) {
		r.Results = raw
	}
	r.Narrative = decodeString(fields["narrative"], "narrative")
	r.AIResponse = decodeString(fields["aiResponse"], "aiResponse")
	r.Prompt = decodeString(fields["prompt"], "prompt")
	if raw, ok := fields["isComplex"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &r.IsComplex); err != nil {
			log.Debug().Err(err).Msg("dropping isComplex")
		}
	}
	r.Visualizations = decodeVisualizations(fields["visualizations"])
	r.Insights = decodeInsights(fields["insights"])
	return nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func decodeString(raw json.RawMessage, field string) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		log.Debug().Err(err).Str("field", field).Msg("dropping non-string field")
		return ""
	}
	return s
}

func decodeVisualizations(raw json.RawMessage) []VisualizationSpec {
	if isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Debug().Err(err).Msg("dropping visualizations")
		return nil
	}
	out := make([]VisualizationSpec, 0, len(items))
	for i, item := range items {
		var v VisualizationSpec
		if err := json.Unmarshal(item, &v); err != nil {
			log.Debug().Err(err).Int("index", i).Msg("dropping visualization")
			continue
		}
		out = append(out, v)
	}
	return out
}

func decodeInsights(raw json.RawMessage) []Insight {
	if isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Debug().Err(err).Msg("dropping insights")
		return nil
	}
	out := make([]Insight, 0, len(items))
	for i, item := range items {
		var in Insight
		if err := json.Unmarshal(item, &in); err == nil {
			out = append(out, in)
			continue
		}
		// a bare string is taken as the description
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, Insight{Description: s})
			continue
		}
		log.Debug().Int("index", i).Msg("dropping insight")
	}
	return out
}

// Section is one titled part of a report.
type Section struct {
	Title          string              `json:"title" yaml:"title"`
	Content        string              `json:"content" yaml:"content"`
	Visualizations []VisualizationSpec `json:"visualizations" yaml:"visualizations"`
	Insights       []Insight           `json:"insights" yaml:"insights"`
	TableData      []*table.Row        `json:"tableData,omitempty" yaml:"tableData,omitempty"`
}

// Report is the assembled answer to one query. It always has at least one
// section and is not modified after assembly.
type Report struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Query       string       `json:"query" yaml:"query"`
	DatasetID   string       `json:"datasetId" yaml:"datasetId"`
	DatasetName string       `json:"datasetName,omitempty" yaml:"datasetName,omitempty"`
	CreatedAt   time.Time    `json:"createdAt" yaml:"createdAt"`
	Sections    []Section    `json:"sections" yaml:"sections"`
	Results     []*table.Row `json:"results" yaml:"results"`
	ColumnOrder []string     `json:"columnOrder" yaml:"columnOrder"`
}
