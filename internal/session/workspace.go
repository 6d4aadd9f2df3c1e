// Package session binds one coordinator and both linked views to a dataset
// and serializes the interactions delivered to them.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/basekick-labs/linkview/internal/coordinator"
	"github.com/basekick-labs/linkview/internal/dataset"
	"github.com/basekick-labs/linkview/internal/metrics"
	"github.com/basekick-labs/linkview/internal/selection"
	"github.com/basekick-labs/linkview/internal/view"
	"github.com/rs/zerolog"
)

// Config is shared by every workspace a Manager creates.
type Config struct {
	Scatter         view.ScatterConfig
	Parallel        view.ParallelConfig
	SummaryColumns  []string
	TTL             time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
}

// Publisher receives every selection a workspace republishes.
type Publisher interface {
	Publish(sessionID string, ids []int)
}

// Workspace is one user's linked views. Events run one at a time to
// completion under mu; the latest event wins.
type Workspace struct {
	id        string
	createdAt time.Time
	cfg       Config
	logger    zerolog.Logger

	mu       sync.Mutex
	store    *dataset.Store
	coord    *coordinator.Coordinator
	scatter  *view.Scatter
	parallel *view.Parallel

	lastScatter  map[int]view.Mark
	lastParallel map[int]view.Polyline

	closed atomic.Bool
}

// NewWorkspace creates a workspace over store, which may be nil while the
// dataset is still loading. pub may be nil.
func NewWorkspace(id string, cfg Config, store *dataset.Store, pub Publisher, logger zerolog.Logger) *Workspace {
	w := &Workspace{
		id:        id,
		createdAt: time.Now(),
		cfg:       cfg,
		logger:    logger.With().Str("component", "workspace").Str("session", id).Logger(),
		scatter:   view.NewScatter(cfg.Scatter),
		parallel:  view.NewParallel(cfg.Parallel, logger),
	}
	w.coord = coordinator.New(w.logger)
	w.coord.Subscribe(w.scatter)
	w.coord.Subscribe(w.parallel)
	if pub != nil {
		w.coord.Subscribe(coordinator.ViewFunc(func(s selection.IDSet) {
			pub.Publish(id, s.IDs())
		}))
	}
	w.bind(store)
	return w
}

// ID returns the session id.
func (w *Workspace) ID() string { return w.id }

// CreatedAt returns when the workspace was created.
func (w *Workspace) CreatedAt() time.Time { return w.createdAt }

// Apply runs one event and reports the new selection along with what
// changed in each view.
func (w *Workspace) Apply(ev Event) (Result, error) {
	start := time.Now()
	m := metrics.Get()
	m.IncEvent(string(ev.Type))

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.apply(ev); err != nil {
		m.IncEventErrors()
		w.logger.Debug().Err(err).Str("event", string(ev.Type)).Msg("Event rejected")
		return Result{}, err
	}
	res := w.diff()
	m.RecordRecompute(time.Since(start).Microseconds())
	return res, nil
}

func (w *Workspace) apply(ev Event) error {
	switch ev.Type {
	case EventBrush2D:
		ids := w.scatter.Brush(ev.Rect)
		w.parallel.Reset()
		w.coord.OnSelectionUpdate(ids)

	case EventBrushAxis:
		if ev.Dimension == "" {
			return fmt.Errorf("%w: brush_axis requires a dimension", ErrInvalidEvent)
		}
		ids, err := w.parallel.BrushAxis(ev.Dimension, ev.Span)
		if err != nil {
			return err
		}
		w.scatter.ClearBrush()
		w.coord.OnSelectionUpdate(ids)

	case EventClick:
		if ev.ID == nil {
			return fmt.Errorf("%w: click requires an id", ErrInvalidEvent)
		}
		ids, err := w.parallel.Click(*ev.ID, ev.Modifier)
		if err != nil {
			return err
		}
		w.scatter.ClearBrush()
		w.coord.OnSelectionUpdate(ids)

	case EventHover:
		if ev.ID == nil {
			return fmt.Errorf("%w: hover requires an id", ErrInvalidEvent)
		}
		return w.parallel.Hover(*ev.ID)

	case EventLeave:
		w.parallel.Leave()

	case EventSelection:
		w.scatter.ClearBrush()
		w.parallel.Reset()
		w.coord.OnSelectionUpdate(ev.Payload)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return nil
}

// Select publishes an externally supplied selection payload.
func (w *Workspace) Select(raw any) (Result, error) {
	return w.Apply(Event{Type: EventSelection, Payload: raw})
}

// diff compares both scenes against the previous frame. Callers hold mu.
func (w *Workspace) diff() Result {
	sc := w.scatter.Scene().Index()
	pc := w.parallel.Scene().Index()
	res := Result{
		Selected: w.coord.Selected().IDs(),
		Scatter:  view.Diff(w.lastScatter, sc, func(a, b view.Mark) bool { return a == b }),
		Parallel: view.Diff(w.lastParallel, pc, view.Polyline.Equal),
	}
	w.lastScatter, w.lastParallel = sc, pc
	return res
}

// Selected returns the canonical selection.
func (w *Workspace) Selected() []int {
	return w.coord.Selected().IDs()
}

// ScatterScene renders the scatter view.
func (w *Workspace) ScatterScene() view.ScatterScene {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scatter.Scene()
}

// ParallelScene renders the parallel-coordinates view.
func (w *Workspace) ParallelScene() view.ParallelScene {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.parallel.Scene()
}

// Summary describes the visible records: the selection, or everything when
// nothing is selected.
func (w *Workspace) Summary() dataset.Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return dataset.Summarize(w.store, w.coord.Selected(), w.cfg.SummaryColumns...)
}

// Rebind swaps the dataset under the workspace. Brushes and the selection
// refer to the old records, so both are dropped.
func (w *Workspace) Rebind(store *dataset.Store) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bind(store)
	w.coord.OnSelectionUpdate(nil)
	w.diff()
}

func (w *Workspace) bind(store *dataset.Store) {
	w.store = store
	w.scatter.SetData(store)
	w.parallel.SetData(store)
	w.lastScatter = w.scatter.Scene().Index()
	w.lastParallel = w.parallel.Scene().Index()
}
