package table

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Table is a normalized result set with its display column order.
type Table struct {
	Rows        []*Row   `json:"rows" yaml:"rows"`
	ColumnOrder []string `json:"columnOrder" yaml:"columnOrder"`
}

// DecodeResults decodes a raw JSON results payload without losing object key
// order. Objects become *Row, arrays become []any. A blank or null payload
// decodes to nil.
func DecodeResults(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '{':
		r := NewRow()
		if err := r.UnmarshalJSON(trimmed); err != nil {
			return nil, err
		}
		return r, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := DecodeResults(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
		return v, nil
	}
}

// Normalize turns either result shape into a list of rows:
//
//	[{"a":1,"b":2}, ...]           object rows, returned as-is
//	[["a","b"], [1,2], ...]        header row followed by value rows
//
// Anything else yields an empty list. Unexpected shapes are reported on the
// global zerolog logger.
func Normalize(results any) []*Row {
	return NormalizeLogged(&log.Logger, results)
}

// NormalizeLogged is Normalize with an explicit logger.
func NormalizeLogged(logger *zerolog.Logger, results any) []*Row {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	switch v := results.(type) {
	case nil:
		return []*Row{}
	case []*Row:
		return v
	case json.RawMessage:
		decoded, err := DecodeResults(v)
		if err != nil {
			logger.Warn().Err(err).Msg("unreadable results payload")
			return []*Row{}
		}
		return NormalizeLogged(logger, decoded)
	case []byte:
		return NormalizeLogged(logger, json.RawMessage(v))
	case []map[string]any:
		rows := make([]*Row, 0, len(v))
		for _, m := range v {
			rows = append(rows, RowFromMap(m))
		}
		return rows
	case [][]any:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return NormalizeLogged(logger, items)
	case [][]string:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return NormalizeLogged(logger, items)
	case []any:
		return normalizeSlice(logger, v)
	default:
		return []*Row{}
	}
}

func normalizeSlice(logger *zerolog.Logger, items []any) []*Row {
	if len(items) == 0 {
		return []*Row{}
	}
	switch items[0].(type) {
	case *Row, map[string]any:
		rows := make([]*Row, 0, len(items))
		for i, item := range items {
			switch r := item.(type) {
			case *Row:
				rows = append(rows, r)
			case map[string]any:
				rows = append(rows, RowFromMap(r))
			default:
				logger.Debug().Int("index", i).Msg("skipping non-object result row")
			}
		}
		return rows
	case []any, []string:
		header := cells(items[0])
		rows := make([]*Row, 0, len(items)-1)
		for i, item := range items[1:] {
			values, ok := cellsOK(item)
			if !ok {
				logger.Debug().Int("index", i+1).Msg("skipping non-array result row")
				continue
			}
			row := NewRow()
			for c, h := range header {
				name, ok := h.(string)
				if !ok {
					name = fmt.Sprint(h)
				}
				var val any
				if c < len(values) {
					val = values[c]
				}
				row.Set(name, val)
			}
			rows = append(rows, row)
		}
		return rows
	default:
		logger.Warn().Str("first", fmt.Sprintf("%T", items[0])).Msg("unexpected results format")
		return []*Row{}
	}
}

func cells(v any) []any {
	out, _ := cellsOK(v)
	return out
}

func cellsOK(v any) ([]any, bool) {
	switch c := v.(type) {
	case []any:
		return c, true
	case []string:
		out := make([]any, len(c))
		for i, s := range c {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// DeriveColumnOrder returns the rows with their column order, taken from the
// keys of the first row. An empty input yields an empty table.
func DeriveColumnOrder(rows []*Row) Table {
	if len(rows) == 0 {
		return Table{Rows: []*Row{}, ColumnOrder: []string{}}
	}
	return Table{Rows: rows, ColumnOrder: rows[0].Keys()}
}

// NormalizeTable normalizes results and derives the column order in one step.
func NormalizeTable(results any) Table {
	return DeriveColumnOrder(Normalize(results))
}
