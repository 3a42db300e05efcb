package chart

import (
	"strings"

	"github.com/KaramelBytes/reportloom-cli/internal/table"
)

// Kind names a chart type.
type Kind string

const (
	Line  Kind = "line"
	Bar   Kind = "bar"
	Pie   Kind = "pie"
	Table Kind = "table"
)

// ParseKind maps a chart type string onto a Kind. The second result is false
// for empty or unknown types.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Line, Bar, Pie, Table:
		return k, true
	case "area", "scatter":
		// rendered by the frontend as-is
		return k, true
	}
	return "", false
}

// Class is the inferred type of a column.
type Class string

const (
	Date     Class = "date"
	Numeric  Class = "numeric"
	Category Class = "category"
)

// Column pairs a column name with its inferred class.
type Column struct {
	Name  string `json:"name" yaml:"name"`
	Class Class  `json:"class" yaml:"class"`
}

// ClassifyValue infers the class of a single cell.
func ClassifyValue(v any) Class {
	switch {
	case table.LooksLikeDate(v):
		return Date
	case table.IsNumber(v):
		return Numeric
	}
	return Category
}

// Columns classifies each column of the first row. Only the first row is
// sampled, so a column that is numeric there but mixed later is still
// reported as numeric.
func Columns(rows []*table.Row) []Column {
	if len(rows) == 0 {
		return []Column{}
	}
	cols := make([]Column, 0, rows[0].Len())
	rows[0].Each(func(k string, v any) {
		cols = append(cols, Column{Name: k, Class: ClassifyValue(v)})
	})
	return cols
}

// Recommend picks a chart kind for rows:
//
//	no rows                              table
//	a date column and a numeric column   line
//	one category and one numeric column  pie
//	categories and numerics otherwise    bar
//	anything else                        table
func Recommend(rows []*table.Row) Kind {
	if len(rows) == 0 {
		return Table
	}
	var dates, nums, cats int
	for _, c := range Columns(rows) {
		switch c.Class {
		case Date:
			dates++
		case Numeric:
			nums++
		default:
			cats++
		}
	}
	switch {
	case dates > 0 && nums > 0:
		return Line
	case cats > 0 && nums > 0:
		if cats == 1 && nums == 1 {
			return Pie
		}
		return Bar
	}
	return Table
}
