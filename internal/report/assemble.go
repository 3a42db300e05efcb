package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/reportloom-cli/internal/chart"
	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

// Assembler turns upstream responses into reports. It holds no mutable state
// and is safe for concurrent use.
type Assembler struct {
	cfg settings
}

// NewAssembler builds an Assembler with the given options.
func NewAssembler(opts ...Option) *Assembler {
	return &Assembler{cfg: applyOptions(opts)}
}

var defaultAssembler = NewAssembler()

// Assemble builds a report with the default assembler.
func Assemble(raw *RawResponse, query, datasetID string) *Report {
	return defaultAssembler.Assemble(raw, query, datasetID)
}

// Assemble builds the report for one response. It never fails: missing or
// malformed fields fall back to empty values and placeholder text, and the
// report always has at least one section.
//
// Responses without visualizations or insights get a single results section.
// Otherwise charts and insights go into one analysis section, unless the
// response is flagged complex and the detector finds groupings, in which case
// each grouping gets its own section.
func (a *Assembler) Assemble(raw *RawResponse, query, datasetID string) *Report {
	if raw == nil {
		raw = &RawResponse{}
	}
	tbl := table.DeriveColumnOrder(table.NormalizeLogged(&a.cfg.logger, raw.Results))

	if query == "" {
		query = raw.Prompt
	}
	title := query
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	rep := &Report{
		ID:          a.cfg.newID(),
		Title:       title,
		Query:       query,
		DatasetID:   datasetID,
		CreatedAt:   a.cfg.now(),
		Results:     tbl.Rows,
		ColumnOrder: tbl.ColumnOrder,
	}
	if a.cfg.datasetName != nil && datasetID != "" {
		rep.DatasetName = a.cfg.datasetName(datasetID)
	}

	switch {
	case raw.IsComplex:
		rep.Sections = a.complexSections(raw, tbl.Rows)
	case len(raw.Visualizations) > 0 || len(raw.Insights) > 0:
		rep.Sections = []Section{a.analysisSection(raw)}
	default:
		rep.Sections = []Section{a.resultsSection(raw, tbl.Rows)}
	}

	a.cfg.logger.Debug().
		Str("report_id", rep.ID).
		Int("rows", len(rep.Results)).
		Int("sections", len(rep.Sections)).
		Bool("complex", raw.IsComplex).
		Msg("report assembled")
	return rep
}

func (a *Assembler) narrative(raw *RawResponse, rows []*table.Row) string {
	if s := strings.TrimSpace(raw.Narrative); s != "" {
		return raw.Narrative
	}
	if s := strings.TrimSpace(raw.AIResponse); s != "" {
		return raw.AIResponse
	}
	if len(rows) == 0 {
		return a.cfg.emptyResults
	}
	return a.cfg.placeholder
}

func (a *Assembler) resultsSection(raw *RawResponse, rows []*table.Row) Section {
	sec := Section{
		Title:          DefaultTitle,
		Content:        a.narrative(raw, rows),
		Visualizations: []VisualizationSpec{},
		Insights:       []Insight{},
		TableData:      rows,
	}
	if viz, ok := a.recommendedChart(rows); ok {
		sec.Visualizations = append(sec.Visualizations, viz)
	}
	return sec
}

func (a *Assembler) analysisSection(raw *RawResponse) Section {
	return Section{
		Title:          "Analysis",
		Content:        a.narrative(raw, vizRows(raw.Visualizations, raw.Results)),
		Visualizations: a.expandVisualizations(raw.Visualizations),
		Insights:       nonNilInsights(raw.Insights),
	}
}

// expandVisualizations classifies untyped charts and places a derived bar
// chart after every table chart.
func (a *Assembler) expandVisualizations(vizs []VisualizationSpec) []VisualizationSpec {
	out := make([]VisualizationSpec, 0, len(vizs))
	for _, v := range vizs {
		v = classified(v)
		out = append(out, v)
		if v.Type != string(chart.Table) {
			continue
		}
		if bar, ok := a.derivedBar(v.Data, v.Title); ok {
			out = append(out, bar)
		}
	}
	return out
}

func (a *Assembler) complexSections(raw *RawResponse, results []*table.Row) []Section {
	groups := a.cfg.detector.Detect(raw.Visualizations)
	if len(groups) == 0 {
		a.cfg.logger.Debug().Msg("no groupings detected; using a single section")
		return []Section{a.analysisSection(raw)}
	}

	assigned := make([][]VisualizationSpec, len(groups))
	for _, v := range raw.Visualizations {
		v = classified(v)
		idx := 0
		if len(v.Data) > 0 {
			for i, g := range groups {
				if g.Match(v.Data[0]) {
					idx = i
					break
				}
			}
		}
		assigned[idx] = append(assigned[idx], v)
	}

	source := uniqueRows(vizRows(raw.Visualizations, nil))
	if len(source) == 0 {
		source = results
	}

	parts := splitInsights(raw.Insights, len(groups))
	sections := make([]Section, 0, len(groups))
	for i, g := range groups {
		rows := groupRows(assigned[i], source, g.Match)
		sec := Section{
			Title:          g.Label,
			Visualizations: append([]VisualizationSpec{}, assigned[i]...),
			Insights:       parts[i],
			TableData:      rows,
		}
		if i == 0 {
			sec.Content = a.narrative(raw, source)
		} else {
			sec.Content = breakdown(len(rows))
		}
		if bar, ok := a.derivedBar(rows, g.Label); ok {
			sec.Visualizations = append(sec.Visualizations, bar)
		}
		sections = append(sections, sec)
	}
	return sections
}

// splitInsights hands out insights positionally: the first section gets
// ceil(n/k), the rest are spread evenly over the remaining sections with
// earlier sections taking any remainder.
func splitInsights(insights []Insight, k int) [][]Insight {
	if k <= 0 {
		return nil
	}
	sizes := make([]int, k)
	n := len(insights)
	sizes[0] = (n + k - 1) / k
	if k > 1 {
		rest := n - sizes[0]
		for i := 1; i < k; i++ {
			sizes[i] = rest / (k - 1)
			if i <= rest%(k-1) {
				sizes[i]++
			}
		}
	}
	parts := make([][]Insight, k)
	lo := 0
	for i, size := range sizes {
		parts[i] = append([]Insight{}, insights[lo:lo+size]...)
		lo += size
	}
	return parts
}

// groupRows picks the rows shown for one grouping. The first table chart
// assigned to it wins, then any other assigned chart with data; without
// charts the grouping filters source.
func groupRows(vizs []VisualizationSpec, source []*table.Row, match func(*table.Row) bool) []*table.Row {
	var pick *VisualizationSpec
	for i := range vizs {
		if len(vizs[i].Data) == 0 {
			continue
		}
		if vizs[i].Type == string(chart.Table) {
			pick = &vizs[i]
			break
		}
		if pick == nil {
			pick = &vizs[i]
		}
	}
	if pick != nil {
		return filterRows(pick.Data, match)
	}
	return filterRows(source, match)
}

// uniqueRows drops rows equal to an earlier one.
func uniqueRows(rows []*table.Row) []*table.Row {
	out := make([]*table.Row, 0, len(rows))
next:
	for _, r := range rows {
		for _, seen := range out {
			if r.Equal(seen) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

func breakdown(n int) string {
	if n == 1 {
		return "Breakdown of 1 record."
	}
	return fmt.Sprintf("Breakdown of %d records.", n)
}

// derivedBar builds a bar chart from rows: x is the first column after a
// leading identifier column, y the column after x, sorted by y descending.
func (a *Assembler) derivedBar(rows []*table.Row, from string) (VisualizationSpec, bool) {
	if len(rows) == 0 {
		return VisualizationSpec{}, false
	}
	cols := rows[0].Keys()
	start := 0
	if len(cols) > 0 && isIdentifier(cols[0]) {
		start = 1
	}
	if len(cols) < start+2 {
		return VisualizationSpec{}, false
	}
	x, y := cols[start], cols[start+1]
	return a.barSpec(rows, x, y, from), true
}

func (a *Assembler) barSpec(rows []*table.Row, x, y, from string) VisualizationSpec {
	xLabel, yLabel := chart.FormatLabel(x), chart.FormatLabel(y)
	cfg := a.axisConfig(rows, x, y)
	if from != "" {
		cfg["derivedFrom"] = from
	}
	return VisualizationSpec{
		Type:   string(chart.Bar),
		Title:  yLabel + " by " + xLabel,
		Data:   chart.SortByKey(rows, y, chart.Desc),
		Config: cfg,
	}
}

func (a *Assembler) axisConfig(rows []*table.Row, x, y string) map[string]any {
	cfg := map[string]any{
		"xKey":   x,
		"yKey":   y,
		"xLabel": chart.FormatLabel(x),
		"yLabel": chart.FormatLabel(y),
		"color":  a.cfg.color,
		"fill":   chart.AdjustOpacity(a.cfg.color, 0.6),
	}
	if lo, hi, ok := numericRange(rows, y); ok {
		cfg["yTicks"] = chart.CalculateTicks(lo, hi, chart.DefaultTickCount)
	}
	return cfg
}

// recommendedChart builds the chart the classifier suggests for rows, if
// that is anything other than a plain table.
func (a *Assembler) recommendedChart(rows []*table.Row) (VisualizationSpec, bool) {
	kind := chart.Recommend(rows)
	if kind == chart.Table {
		return VisualizationSpec{}, false
	}
	var x, y string
	for _, c := range chart.Columns(rows) {
		switch {
		case c.Class == chart.Numeric && y == "":
			y = c.Name
		case kind == chart.Line && c.Class == chart.Date && x == "":
			x = c.Name
		case kind != chart.Line && c.Class == chart.Category && x == "":
			x = c.Name
		}
	}
	if x == "" || y == "" {
		return VisualizationSpec{}, false
	}
	spec := a.barSpec(rows, x, y, "")
	spec.Type = string(kind)
	if kind == chart.Line {
		spec.Data = chart.SortByKey(rows, x, chart.Asc)
	}
	return spec, true
}

func classified(v VisualizationSpec) VisualizationSpec {
	if k, ok := chart.ParseKind(v.Type); ok {
		v.Type = string(k)
		return v
	}
	v.Type = strings.ToLower(strings.TrimSpace(v.Type))
	switch v.Type {
	case "kpi", "combo":
		return v
	}
	v.Type = string(chart.Recommend(v.Data))
	return v
}

func vizRows(vizs []VisualizationSpec, fallback any) []*table.Row {
	var rows []*table.Row
	for _, v := range vizs {
		rows = append(rows, v.Data...)
	}
	if len(rows) == 0 && fallback != nil {
		return table.Normalize(fallback)
	}
	return rows
}

func filterRows(rows []*table.Row, match func(*table.Row) bool) []*table.Row {
	out := []*table.Row{}
	for _, r := range rows {
		if match != nil && match(r) {
			out = append(out, r)
		}
	}
	return out
}

func numericRange(rows []*table.Row, key string) (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	found := false
	for _, r := range rows {
		n, ok := table.Number(r.Value(key))
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			continue
		}
		found = true
		lo = math.Min(lo, n)
		hi = math.Max(hi, n)
	}
	return lo, hi, found
}

func nonNilInsights(in []Insight) []Insight {
	if in == nil {
		return []Insight{}
	}
	return in
}

// isIdentifier reports whether a column name looks like a primary key.
func isIdentifier(col string) bool {
	lc := strings.ToLower(strings.TrimSpace(col))
	switch lc {
	case "id", "key", "index", "#", "no", "row":
		return true
	}
	if strings.HasSuffix(lc, "_id") {
		return true
	}
	// clientId, ClientID; not PAID
	if n := len(col); n > 2 && (strings.HasSuffix(col, "Id") || strings.HasSuffix(col, "ID")) {
		prev := col[n-3]
		return prev >= 'a' && prev <= 'z'
	}
	return false
}
