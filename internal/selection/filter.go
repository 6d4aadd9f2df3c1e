package selection

import (
	"fmt"
	"math"

	"github.com/basekick-labs/linkview/internal/axis"
	"github.com/basekick-labs/linkview/internal/dataset"
)

// FilterType distinguishes numeric intervals from categorical index ranges.
type FilterType string

const (
	FilterNumeric     FilterType = "numeric"
	FilterCategorical FilterType = "categorical"
)

// AxisFilter is the active range of one axis brush. Bounds are inclusive.
type AxisFilter struct {
	Type     FilterType `json:"type"`
	Min      float64    `json:"min"`
	Max      float64    `json:"max"`
	IndexMin int        `json:"index_min"`
	IndexMax int        `json:"index_max"`
}

// NumericFilter returns a numeric filter with bounds in ascending order.
func NumericFilter(a, b float64) AxisFilter {
	return AxisFilter{Type: FilterNumeric, Min: math.Min(a, b), Max: math.Max(a, b)}
}

// CategoricalFilter returns a categorical filter with indices in ascending order.
func CategoricalFilter(a, b int) AxisFilter {
	return AxisFilter{Type: FilterCategorical, IndexMin: min(a, b), IndexMax: max(a, b)}
}

// FromSpan converts the pixel span [y0, y1] of a brush on an axis into a
// filter. Numeric axes invert both endpoints through the mapping; categorical
// axes snap each endpoint to its nearest category. Endpoints outside the
// axis extent are clamped.
func FromSpan(m axis.Mapping, y0, y1 float64) (AxisFilter, error) {
	ext := m.Extent()
	y0, y1 = ext.Clamp(y0), ext.Clamp(y1)

	switch mm := m.(type) {
	case *axis.Linear:
		return NumericFilter(mm.Invert(y0), mm.Invert(y1)), nil
	case *axis.Point:
		i0, i1 := mm.Nearest(y0), mm.Nearest(y1)
		if i0 < 0 || i1 < 0 {
			return AxisFilter{}, axis.ErrDegenerateDomain
		}
		return CategoricalFilter(i0, i1), nil
	default:
		return AxisFilter{}, fmt.Errorf("unsupported mapping %T", m)
	}
}

// Match reports whether v lies within f. Categorical filters need the axis
// mapping to resolve the value's index; NaN never matches.
func (f AxisFilter) Match(v dataset.Value, m axis.Mapping) bool {
	switch f.Type {
	case FilterNumeric:
		x, ok := v.Float()
		return ok && x >= f.Min && x <= f.Max
	case FilterCategorical:
		p, ok := m.(*axis.Point)
		if !ok {
			return false
		}
		idx := p.Index(v)
		return idx >= 0 && idx >= f.IndexMin && idx <= f.IndexMax
	default:
		return false
	}
}
