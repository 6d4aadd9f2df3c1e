package dataset

import "math"

// Membership is the read side of a selected id set.
type Membership interface {
	Has(id int) bool
	Len() int
}

// ColumnStats describes one numeric column over the visible records.
type ColumnStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Summary is the info-panel view of a selection.
type Summary struct {
	Selected int                    `json:"selected"`
	Total    int                    `json:"total"`
	Columns  map[string]ColumnStats `json:"columns"`
}

// Summarize computes stats for columns over the visible records: the
// selected ones when the selection matches anything, otherwise all of them.
// NaN values are skipped.
func Summarize(s *Store, selected Membership, columns ...string) Summary {
	records := s.All()

	visible := make([]Record, 0, len(records))
	if selected != nil && selected.Len() > 0 {
		for _, r := range records {
			if selected.Has(r.ID) {
				visible = append(visible, r)
			}
		}
	}
	sum := Summary{Selected: len(visible), Total: len(records), Columns: make(map[string]ColumnStats, len(columns))}
	if len(visible) == 0 {
		visible = records
	}

	for _, name := range columns {
		var st ColumnStats
		var total float64
		for _, r := range visible {
			v := r.Number(name)
			if math.IsNaN(v) {
				continue
			}
			if st.Count == 0 || v < st.Min {
				st.Min = v
			}
			if st.Count == 0 || v > st.Max {
				st.Max = v
			}
			total += v
			st.Count++
		}
		if st.Count > 0 {
			st.Mean = total / float64(st.Count)
		}
		sum.Columns[name] = st
	}
	return sum
}
