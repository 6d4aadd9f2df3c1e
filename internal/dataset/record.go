package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind classifies a column of the dataset.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindBoolean     Kind = "boolean"
	KindCategorical Kind = "categorical"
)

// Column is one named field of the schema.
type Column struct {
	Name string `json:"name" mapstructure:"name"`
	Kind Kind   `json:"kind" mapstructure:"kind"`
}

// Schema is the ordered column layout every record shares.
type Schema struct {
	Columns []Column
	index   map[string]int
}

// NewSchema builds a schema from the given columns. Later duplicates of a
// column name are ignored.
func NewSchema(columns ...Column) Schema {
	s := Schema{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if _, dup := s.index[c.Name]; dup {
			continue
		}
		s.index[c.Name] = len(s.Columns)
		s.Columns = append(s.Columns, c)
	}
	return s
}

// HousingSchema is the column layout of the housing price dataset.
func HousingSchema() Schema {
	return NewSchema(
		Column{"price", KindNumeric},
		Column{"area", KindNumeric},
		Column{"bedrooms", KindNumeric},
		Column{"bathrooms", KindNumeric},
		Column{"stories", KindNumeric},
		Column{"mainroad", KindBoolean},
		Column{"guestroom", KindBoolean},
		Column{"basement", KindBoolean},
		Column{"hotwaterheating", KindBoolean},
		Column{"airconditioning", KindBoolean},
		Column{"parking", KindNumeric},
		Column{"prefarea", KindBoolean},
		Column{"furnishingstatus", KindCategorical},
	)
}

// Lookup returns the position of the named column.
func (s Schema) Lookup(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Has reports whether the schema declares the named column.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Value is one already-coerced field value. Numeric and boolean columns carry
// Num (NaN when coercion failed); categorical columns carry Str.
type Value struct {
	Num  float64
	Str  string
	Text bool
}

// Number wraps a numeric value.
func Number(f float64) Value { return Value{Num: f} }

// Text wraps a categorical value.
func Text(s string) Value { return Value{Str: s, Text: true} }

// Float returns the numeric reading of v and whether it is finite. Text values
// are parsed, so a categorical column holding "3" reads as 3.
func (v Value) Float() (float64, bool) {
	if !v.Text {
		return v.Num, !math.IsNaN(v.Num) && !math.IsInf(v.Num, 0)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return math.NaN(), false
	}
	return f, true
}

// Key is the categorical identity of v.
func (v Value) Key() string {
	if v.Text {
		return v.Str
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// Record is one immutable row of the dataset.
type Record struct {
	ID     int
	fields []Value
	schema *Schema
}

// NewRecord builds a record over schema. Missing trailing values are NaN.
func NewRecord(id int, schema *Schema, values ...Value) Record {
	fields := make([]Value, len(schema.Columns))
	for i, c := range schema.Columns {
		switch {
		case i < len(values):
			fields[i] = values[i]
		case c.Kind == KindCategorical:
			fields[i] = Text("")
		default:
			fields[i] = Number(math.NaN())
		}
	}
	return Record{ID: id, fields: fields, schema: schema}
}

// RecordID lets a record stand in for its id in selection payloads.
func (r Record) RecordID() int { return r.ID }

// Value returns the field named name.
func (r Record) Value(name string) (Value, bool) {
	if r.schema == nil {
		return Value{}, false
	}
	i, ok := r.schema.index[name]
	if !ok {
		return Value{}, false
	}
	return r.fields[i], true
}

// Number returns the numeric reading of the named field, NaN if absent or
// not numeric.
func (r Record) Number(name string) float64 {
	v, ok := r.Value(name)
	if !ok {
		return math.NaN()
	}
	f, _ := v.Float()
	return f
}

// Fields returns the record as a column-name keyed map.
func (r Record) Fields() map[string]any {
	out := make(map[string]any, len(r.fields)+1)
	out["id"] = r.ID
	if r.schema == nil {
		return out
	}
	for i, c := range r.schema.Columns {
		v := r.fields[i]
		if v.Text {
			out[c.Name] = v.Str
			continue
		}
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			out[c.Name] = nil
			continue
		}
		out[c.Name] = v.Num
	}
	return out
}
