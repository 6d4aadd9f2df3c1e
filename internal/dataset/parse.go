package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseOptions controls delimited-text parsing.
type ParseOptions struct {
	Delimiter rune // Field separator (default ',')
}

// ParseReport summarizes best-effort coercion during a parse.
type ParseReport struct {
	Rows           int `json:"rows"`
	MalformedCells int `json:"malformed_cells"`
	MalformedRows  int `json:"malformed_rows"`
	SkippedRows    int `json:"skipped_rows"`
}

// Parse reads delimited text with a header row into a Store. Columns are
// matched to the schema by header name; every schema column must be present.
// Cells that fail numeric or boolean coercion become NaN instead of rejecting
// the row. Record ids are assigned in row order and never recomputed.
func Parse(r io.Reader, schema Schema, opts ParseOptions) (*Store, ParseReport, error) {
	var report ParseReport

	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, report, fmt.Errorf("dataset has no header row")
		}
		return nil, report, fmt.Errorf("failed to read header: %w", err)
	}

	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		positions[strings.ToLower(h)] = i
	}

	source := make([]int, len(schema.Columns))
	for i, c := range schema.Columns {
		p, ok := positions[strings.ToLower(c.Name)]
		if !ok {
			return nil, report, fmt.Errorf("missing column %q", c.Name)
		}
		source[i] = p
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				report.SkippedRows++
				continue
			}
			return nil, report, fmt.Errorf("failed to read row %d: %w", report.Rows+report.SkippedRows+1, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		values := make([]Value, len(schema.Columns))
		bad := 0
		for i, c := range schema.Columns {
			cell := ""
			if source[i] < len(row) {
				cell = row[source[i]]
			}
			v, ok := coerce(c.Kind, cell)
			if !ok {
				bad++
			}
			values[i] = v
		}
		if bad > 0 {
			report.MalformedCells += bad
			report.MalformedRows++
		}

		records = append(records, NewRecord(len(records), &schema, values...))
		report.Rows++
	}

	store, err := NewStore(schema, records)
	if err != nil {
		return nil, report, err
	}
	return store, report, nil
}

// coerce converts one cell for a column kind. The bool reports whether the
// cell coerced cleanly.
func coerce(kind Kind, cell string) (Value, bool) {
	cell = strings.TrimSpace(cell)
	switch kind {
	case KindNumeric:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return Number(math.NaN()), false
		}
		return Number(f), true
	case KindBoolean:
		switch strings.ToLower(cell) {
		case "yes", "true", "1":
			return Number(1), true
		case "no", "false", "0":
			return Number(0), true
		default:
			return Number(math.NaN()), false
		}
	default:
		return Text(cell), true
	}
}
