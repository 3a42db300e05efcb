package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Row is one record of a normalized table. Keys keep insertion order, which
// for decoded JSON is the order the object was written in.
type Row struct {
	fields *orderedmap.OrderedMap[string, any]
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{fields: orderedmap.New[string, any]()}
}

// RowOf builds a row from alternating key/value arguments:
// RowOf("region", "East", "sales", 100).
// A non-string key is formatted with fmt.Sprint; a trailing key without a value gets nil.
func RowOf(kv ...any) *Row {
	r := NewRow()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		var val any
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		r.Set(key, val)
	}
	return r
}

// RowFromMap converts an unordered map into a row. Go maps carry no order,
// so keys are sorted to keep the result deterministic.
func RowFromMap(m map[string]any) *Row {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r := NewRow()
	for _, k := range keys {
		r.Set(k, m[k])
	}
	return r
}

func (r *Row) ensure() {
	if r.fields == nil {
		r.fields = orderedmap.New[string, any]()
	}
}

// Set stores v under key. An existing key keeps its position.
func (r *Row) Set(key string, v any) {
	r.ensure()
	r.fields.Set(key, v)
}

// Get returns the value stored under key.
func (r *Row) Get(key string) (any, bool) {
	if r == nil || r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// Value returns the value under key, or nil when absent.
func (r *Row) Value(key string) any {
	v, _ := r.Get(key)
	return v
}

// Has reports whether key is present (even when its value is nil).
func (r *Row) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Len returns the number of columns.
func (r *Row) Len() int {
	if r == nil || r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Keys returns the column names in insertion order.
func (r *Row) Keys() []string {
	keys := make([]string, 0, r.Len())
	r.Each(func(k string, _ any) {
		keys = append(keys, k)
	})
	return keys
}

// Each calls fn for every column in order.
func (r *Row) Each(fn func(key string, v any)) {
	if r == nil || r.fields == nil {
		return
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Clone returns a shallow copy that can be modified independently.
func (r *Row) Clone() *Row {
	out := NewRow()
	r.Each(func(k string, v any) {
		out.Set(k, v)
	})
	return out
}

// Equal reports whether both rows hold the same keys, in the same order,
// with values that compare equal after JSON round-tripping semantics
// (numbers of different Go types are compared as float64).
func (r *Row) Equal(other *Row) bool {
	if r.Len() != other.Len() {
		return false
	}
	ak, bk := r.Keys(), other.Keys()
	for i := range ak {
		if ak[i] != bk[i] {
			return false
		}
		av, bv := r.Value(ak[i]), other.Value(bk[i])
		if an, ok := Number(av); ok {
			bn, ok := Number(bv)
			if !ok || an != bn {
				return false
			}
			continue
		}
		if fmt.Sprint(av) != fmt.Sprint(bv) || (av == nil) != (bv == nil) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the row as a JSON object in column order.
func (r *Row) MarshalJSON() ([]byte, error) {
	if r == nil || r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

// UnmarshalJSON reads a JSON object, keeping its key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		r.fields = orderedmap.New[string, any]()
		return nil
	}
	r.fields = orderedmap.New[string, any]()
	if err := r.fields.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	return nil
}

// MarshalYAML emits a mapping node so YAML output keeps column order.
func (r *Row) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	var err error
	r.Each(func(k string, v any) {
		if err != nil {
			return
		}
		var val yaml.Node
		if e := val.Encode(v); e != nil {
			err = fmt.Errorf("encode %s: %w", k, e)
			return
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// MarshalRows encodes rows as a JSON array; handy for building fixtures.
func MarshalRows(rows []*Row) ([]byte, error) {
	if rows == nil {
		rows = []*Row{}
	}
	return json.Marshal(rows)
}
