// Package axis derives position mappings from a dimension's observed values:
// a continuous affine mapping for numeric dimensions and evenly spaced
// points for categorical ones.
package axis

import (
	"errors"
	"math"

	"github.com/basekick-labs/linkview/internal/dataset"
)

// ErrDegenerateDomain is returned when a dimension has no usable values.
var ErrDegenerateDomain = errors.New("degenerate domain")

// Kind is the classification of a dimension.
type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

// Extent is the pixel range a mapping projects onto. From may be greater than
// To, which inverts the orientation (larger values sit higher on a vertical
// axis).
type Extent struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Clamp limits px to the extent.
func (e Extent) Clamp(px float64) float64 {
	lo, hi := e.From, e.To
	if lo > hi {
		lo, hi = hi, lo
	}
	if math.IsNaN(px) {
		return lo
	}
	return math.Max(lo, math.Min(hi, px))
}

// Tick is one labelled axis position.
type Tick struct {
	Label    string  `json:"label"`
	Position float64 `json:"position"`
}

// Mapping projects dimension values to pixel positions.
type Mapping interface {
	Kind() Kind
	// Position always returns a finite pixel position; values outside the
	// domain (NaN, unknown categories) map to the start of the extent.
	Position(v dataset.Value) float64
	Extent() Extent
	Ticks(count int) []Tick
}

// Build classifies values and derives the matching mapping. Numeric domains
// are niced; categorical domains keep first-encountered order.
func Build(values []dataset.Value, extent Extent) (Mapping, error) {
	if len(values) == 0 {
		return nil, ErrDegenerateDomain
	}

	if Classify(values) == Numeric {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range values {
			f, ok := v.Float()
			if !ok {
				continue
			}
			lo = math.Min(lo, f)
			hi = math.Max(hi, f)
		}
		if math.IsInf(lo, 1) {
			return nil, ErrDegenerateDomain
		}
		return NewLinear([2]float64{lo, hi}, extent).Nice(10), nil
	}

	seen := make(map[string]struct{})
	var domain []string
	for _, v := range values {
		k := v.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		domain = append(domain, k)
	}
	return NewPoint(domain, extent, 0.5), nil
}

// Classify reports Numeric when every value is a number (NaN from failed
// coercion included) or a string parsing as a finite number.
func Classify(values []dataset.Value) Kind {
	for _, v := range values {
		if !v.Text {
			continue
		}
		if _, ok := v.Float(); !ok {
			return Categorical
		}
	}
	return Numeric
}
