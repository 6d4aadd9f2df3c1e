package dataset

import "fmt"

// Store holds the loaded dataset as an ordered sequence of records. It is
// immutable once built; a nil *Store behaves as an empty dataset.
type Store struct {
	schema  Schema
	records []Record
	byID    map[int]int
}

// NewStore builds a store over records. Record ids must be unique.
func NewStore(schema Schema, records []Record) (*Store, error) {
	s := &Store{
		schema:  schema,
		records: make([]Record, len(records)),
		byID:    make(map[int]int, len(records)),
	}
	for i, r := range records {
		if _, dup := s.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate record id %d", r.ID)
		}
		r.schema = &s.schema
		s.records[i] = r
		s.byID[r.ID] = i
	}
	return s, nil
}

// Len returns the number of records.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Schema returns the column layout of the store.
func (s *Store) Schema() Schema {
	if s == nil {
		return Schema{}
	}
	return s.schema
}

// All returns the records in load order. Callers must not modify the slice.
func (s *Store) All() []Record {
	if s == nil {
		return nil
	}
	return s.records
}

// Get returns the record with the given id.
func (s *Store) Get(id int) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	i, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Values returns every record's value for the named column, in load order.
func (s *Store) Values(name string) []Value {
	if s == nil {
		return nil
	}
	i, ok := s.schema.Lookup(name)
	if !ok {
		return nil
	}
	out := make([]Value, len(s.records))
	for j, r := range s.records {
		out[j] = r.fields[i]
	}
	return out
}
