// Package coordinator owns the canonical selected id set shared by the
// linked views.
package coordinator

import (
	"sync"

	"github.com/basekick-labs/linkview/internal/metrics"
	"github.com/basekick-labs/linkview/internal/selection"
	"github.com/rs/zerolog"
)

// View is anything that re-renders from the canonical selection.
type View interface {
	Render(selected selection.IDSet)
}

// ViewFunc adapts a function to View.
type ViewFunc func(selected selection.IDSet)

// Render calls f.
func (f ViewFunc) Render(selected selection.IDSet) { f(selected) }

// Coordinator holds the selected id set and republishes every update to the
// subscribed views in subscription order. It holds no drawing logic.
type Coordinator struct {
	mu       sync.Mutex
	views    []View
	selected selection.IDSet
	logger   zerolog.Logger
}

// New creates a coordinator with an empty selection.
func New(logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		selected: selection.NewIDSet(),
		logger:   logger.With().Str("component", "coordinator").Logger(),
	}
}

// Subscribe registers v and renders the current selection into it.
func (c *Coordinator) Subscribe(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views = append(c.views, v)
	v.Render(c.selected)
}

// OnSelectionUpdate normalizes raw, stores it as the selection and
// publishes it. Malformed payloads are never an error: they degrade to the
// ids that could be salvaged, or to no selection at all.
func (c *Coordinator) OnSelectionUpdate(raw any) selection.IDSet {
	ids, dropped, ok := normalize(raw)

	m := metrics.Get()
	if !ok {
		m.IncInvalidPayloads()
		c.logger.Debug().Type("payload", raw).Msg("Selection payload is not a sequence, clearing selection")
	}
	if dropped > 0 {
		m.IncDroppedPayloadIDs(int64(dropped))
		c.logger.Debug().Int("dropped", dropped).Msg("Dropped malformed ids from selection payload")
	}

	set := selection.NewIDSet(ids...)
	m.RecordSelection(set.Len())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = set
	for _, v := range c.views {
		v.Render(set)
	}
	return set
}

// Selected returns the canonical selection.
func (c *Coordinator) Selected() selection.IDSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}
