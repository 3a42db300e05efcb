package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

// Format is an output encoding for reports.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts json, yaml/yml and markdown/md.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, yaml or markdown)", s)
}

// MaxMarkdownRows caps the rows printed per table in Markdown output.
const MaxMarkdownRows = 50

// Render encodes rep in the given format.
func Render(rep *Report, format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		return append(b, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		return buf.Bytes(), nil
	case FormatMarkdown:
		return []byte(Markdown(rep)), nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// Markdown renders rep as a readable document.
func Markdown(rep *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rep.Title)
	meta := []string{"Report `" + rep.ID + "`"}
	if rep.DatasetName != "" {
		meta = append(meta, "dataset "+rep.DatasetName)
	} else if rep.DatasetID != "" {
		meta = append(meta, "dataset `"+rep.DatasetID+"`")
	}
	meta = append(meta, rep.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "_%s_\n\n", strings.Join(meta, " · "))

	for _, sec := range rep.Sections {
		fmt.Fprintf(&b, "## %s\n\n", sec.Title)
		if strings.TrimSpace(sec.Content) != "" {
			b.WriteString(strings.TrimSpace(sec.Content))
			b.WriteString("\n\n")
		}
		for _, v := range sec.Visualizations {
			writeVisualization(&b, v)
		}
		if len(sec.Insights) > 0 {
			b.WriteString("### Insights\n\n")
			for _, in := range sec.Insights {
				switch {
				case in.Title != "" && in.Description != "":
					fmt.Fprintf(&b, "- **%s**: %s\n", in.Title, in.Description)
				case in.Title != "":
					fmt.Fprintf(&b, "- **%s**\n", in.Title)
				default:
					fmt.Fprintf(&b, "- %s\n", in.Description)
				}
			}
			b.WriteString("\n")
		}
		if len(sec.TableData) > 0 {
			writeTable(&b, table.DeriveColumnOrder(sec.TableData))
		}
	}
	return b.String()
}

func writeVisualization(b *strings.Builder, v VisualizationSpec) {
	title := v.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(b, "### %s (%s chart)\n\n", title, v.Type)
	if x, ok := v.Config["xKey"].(string); ok {
		y, _ := v.Config["yKey"].(string)
		fmt.Fprintf(b, "x: `%s`, y: `%s`, %d points\n\n", x, y, len(v.Data))
		return
	}
	if len(v.Data) > 0 {
		writeTable(b, table.DeriveColumnOrder(v.Data))
	}
}

func writeTable(b *strings.Builder, tbl table.Table) {
	if len(tbl.ColumnOrder) == 0 {
		return
	}
	b.WriteString("| " + strings.Join(escapeCells(tbl.ColumnOrder), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(tbl.ColumnOrder)) + "\n")
	for i, r := range tbl.Rows {
		if i == MaxMarkdownRows {
			fmt.Fprintf(b, "\n_%d more rows not shown_\n", len(tbl.Rows)-MaxMarkdownRows)
			break
		}
		cells := make([]string, len(tbl.ColumnOrder))
		for c, col := range tbl.ColumnOrder {
			cells[c] = table.FormatCell(r.Value(col), col)
		}
		b.WriteString("| " + strings.Join(escapeCells(cells), " | ") + " |\n")
	}
	b.WriteString("\n")
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}
