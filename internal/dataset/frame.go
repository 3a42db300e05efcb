package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

// Frame is a loaded dataset: a header and typed rows. Cells are float64,
// bool, string (dates as ISO strings) or nil for blanks.
type Frame struct {
	Name   string
	Header []string
	Rows   [][]any
}

// LoadOptions controls how a dataset file is read.
type LoadOptions struct {
	// MaxRows limits rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

// Load reads a CSV, TSV or XLSX file into a Frame.
func Load(path string, opt LoadOptions) (*Frame, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".tsv", ".txt":
		return loadCSV(path, opt)
	case ".xlsx":
		return loadXLSX(path, opt)
	default:
		return nil, fmt.Errorf("unsupported dataset type %q (want .csv, .tsv or .xlsx)", ext)
	}
}

// Results returns the frame in header-row form: the header followed by the
// value rows.
func (f *Frame) Results() []any {
	return f.results(len(f.Rows))
}

// HeadResults is Results limited to the first n rows.
func (f *Frame) HeadResults(n int) []any {
	if n < 0 || n > len(f.Rows) {
		n = len(f.Rows)
	}
	return f.results(n)
}

func (f *Frame) results(n int) []any {
	out := make([]any, 0, n+1)
	header := make([]any, len(f.Header))
	for i, h := range f.Header {
		header[i] = h
	}
	out = append(out, header)
	for _, r := range f.Rows[:n] {
		out = append(out, r)
	}
	return out
}

// Table returns the frame as normalized rows.
func (f *Frame) Table() []*table.Row {
	return table.Normalize(f.Results())
}

func newFrame(name string, header []string) *Frame {
	cleaned := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h]++
			h = fmt.Sprintf("%s_%d", h, n+1)
		} else {
			seen[h] = 1
		}
		cleaned[i] = h
	}
	return &Frame{Name: name, Header: cleaned}
}

// appendRecord parses raw cells and pads or trims them to the header width.
func (f *Frame) appendRecord(rec []string) {
	row := make([]any, len(f.Header))
	for i := range row {
		if i < len(rec) {
			row[i] = parseCell(rec[i])
		}
	}
	f.Rows = append(f.Rows, row)
}
