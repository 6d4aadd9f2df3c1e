package selection

import "slices"

// IDSet is an insertion-ordered set of record ids. The zero value is empty
// and ready to use; sets are never mutated after construction.
type IDSet struct {
	ids   []int
	index map[int]struct{}
}

// NewIDSet builds a set from ids, dropping duplicates and keeping the first
// occurrence's position.
func NewIDSet(ids ...int) IDSet {
	s := IDSet{index: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	return s
}

// Has reports membership.
func (s IDSet) Has(id int) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of ids.
func (s IDSet) Len() int { return len(s.ids) }

// Empty reports whether the set is empty, which every view renders as
// "no selection".
func (s IDSet) Empty() bool { return len(s.ids) == 0 }

// IDs returns a copy of the ids in insertion order. It never returns nil.
func (s IDSet) IDs() []int {
	out := make([]int, len(s.ids))
	copy(out, s.ids)
	return out
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int {
	out := s.IDs()
	slices.Sort(out)
	return out
}

// Equal reports set equality, ignoring order.
func (s IDSet) Equal(o IDSet) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, id := range s.ids {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// With returns a copy of s that also contains id.
func (s IDSet) With(id int) IDSet {
	if s.Has(id) {
		return s
	}
	return NewIDSet(append(s.IDs(), id)...)
}

// Without returns a copy of s without id.
func (s IDSet) Without(id int) IDSet {
	if !s.Has(id) {
		return s
	}
	out := make([]int, 0, len(s.ids)-1)
	for _, v := range s.ids {
		if v != id {
			out = append(out, v)
		}
	}
	return NewIDSet(out...)
}
