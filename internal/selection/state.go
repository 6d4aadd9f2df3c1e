// Package selection holds the brushing state machine and composes axis
// filters and click selections into the selected id set.
package selection

import (
	"maps"
	"slices"

	"github.com/basekick-labs/linkview/internal/axis"
	"github.com/basekick-labs/linkview/internal/dataset"
)

// State is the brushing state of one view: the active axis filters and the
// manually toggled ids. Brushing and click selection are mutually exclusive,
// so at most one of the two is ever non-empty. Every transition returns a new
// State; a State is never modified in place.
type State struct {
	filters map[string]AxisFilter
	manual  IDSet
}

// Brush activates (or moves) the filter on dim and clears the manual selection.
func (s State) Brush(dim string, f AxisFilter) State {
	filters := maps.Clone(s.filters)
	if filters == nil {
		filters = make(map[string]AxisFilter, 1)
	}
	filters[dim] = f
	return State{filters: filters}
}

// Retract removes dim's filter entirely and clears the manual selection.
func (s State) Retract(dim string) State {
	filters := maps.Clone(s.filters)
	delete(filters, dim)
	return State{filters: filters}
}

// Click applies a click on record id. A plain click replaces the manual
// selection with {id}; a modifier click toggles id. Either clears every
// axis filter.
func (s State) Click(id int, modifier bool) State {
	if !modifier {
		return State{manual: NewIDSet(id)}
	}
	if s.manual.Has(id) {
		return State{manual: s.manual.Without(id)}
	}
	return State{manual: s.manual.With(id)}
}

// Filter returns the active filter on dim.
func (s State) Filter(dim string) (AxisFilter, bool) {
	f, ok := s.filters[dim]
	return f, ok
}

// Active returns the dimensions with an active filter, sorted.
func (s State) Active() []string {
	return slices.Sorted(maps.Keys(s.filters))
}

// Manual returns the manually toggled ids.
func (s State) Manual() IDSet { return s.manual }

// Resolve composes the state into the selected id set: when any filter is
// active, the records satisfying every filter (in record order); otherwise
// the manual selection verbatim. A categorical filter on a dimension without
// a point mapping matches nothing.
func Resolve(s State, records []dataset.Record, axes map[string]axis.Mapping) IDSet {
	if len(s.filters) == 0 {
		return s.manual
	}

	dims := s.Active()
	var ids []int
	for _, r := range records {
		if matchAll(r, dims, s.filters, axes) {
			ids = append(ids, r.ID)
		}
	}
	return NewIDSet(ids...)
}

func matchAll(r dataset.Record, dims []string, filters map[string]AxisFilter, axes map[string]axis.Mapping) bool {
	for _, dim := range dims {
		v, ok := r.Value(dim)
		if !ok {
			return false
		}
		if !filters[dim].Match(v, axes[dim]) {
			return false
		}
	}
	return true
}
