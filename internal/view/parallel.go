package view

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/basekick-labs/linkview/internal/axis"
	"github.com/basekick-labs/linkview/internal/dataset"
	"github.com/basekick-labs/linkview/internal/selection"
	"github.com/rs/zerolog"
)

// Span is a vertical axis brush in plot-area pixels.
type Span struct {
	Y0 float64 `json:"y0" msgpack:"y0"`
	Y1 float64 `json:"y1" msgpack:"y1"`
}

// normalize orders and clamps the span to ext. A nil span or one with no
// height after clamping counts as a retracted brush.
func (s *Span) normalize(ext axis.Extent) (Span, bool) {
	if s == nil || anyNaN(s.Y0, s.Y1) {
		return Span{}, false
	}
	out := Span{Y0: ext.Clamp(math.Min(s.Y0, s.Y1)), Y1: ext.Clamp(math.Max(s.Y0, s.Y1))}
	return out, out.Y1 > out.Y0
}

// Polyline is one record crossing every axis.
type Polyline struct {
	ID     int     `json:"id"`
	Points []Point `json:"points"`
	Z      int     `json:"z"`
	Style
}

// Path returns the SVG path data of the polyline.
func (p Polyline) Path() string {
	var b strings.Builder
	for i, pt := range p.Points {
		if i == 0 {
			b.WriteByte('M')
		} else {
			b.WriteByte('L')
		}
		b.WriteString(strconv.FormatFloat(pt.X, 'f', 2, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(pt.Y, 'f', 2, 64))
	}
	return b.String()
}

// Equal compares geometry, stacking and style.
func (p Polyline) Equal(o Polyline) bool {
	if p.ID != o.ID || p.Z != o.Z || p.Style != o.Style || len(p.Points) != len(o.Points) {
		return false
	}
	for i := range p.Points {
		if p.Points[i] != o.Points[i] {
			return false
		}
	}
	return true
}

// Stacking order of foreground lines; higher draws later.
const (
	zBase     = 0
	zSelected = 1
	zHover    = 2
)

// ParallelConfig configures the parallel-coordinates view.
type ParallelConfig struct {
	Layout     Layout
	Dimensions []Dimension
	Ticks      int
	Palette    LinePalette
}

// ParallelScene is a snapshot of the parallel-coordinates view.
type ParallelScene struct {
	Layout     Layout      `json:"layout"`
	Axes       []AxisScene `json:"axes"`
	Background []Polyline  `json:"background"`
	Foreground []Polyline  `json:"foreground"`
	Selected   int         `json:"selected"`
	Hover      *int        `json:"hover,omitempty"`
}

// Index keys the foreground lines by record id.
func (s ParallelScene) Index() map[int]Polyline {
	out := make(map[int]Polyline, len(s.Foreground))
	for _, l := range s.Foreground {
		out[l.ID] = l
	}
	return out
}

// Parallel is the multi-axis view: one independent vertical brush per axis
// plus click selection on lines.
type Parallel struct {
	cfg    ParallelConfig
	logger zerolog.Logger

	store    *dataset.Store
	dims     []Dimension
	offsets  map[string]float64
	axes     map[string]axis.Mapping
	state    selection.State
	spans    map[string]Span
	selected selection.IDSet
	hover    *int
}

// NewParallel creates a parallel-coordinates view over an empty dataset.
func NewParallel(cfg ParallelConfig, logger zerolog.Logger) *Parallel {
	if cfg.Ticks <= 0 {
		cfg.Ticks = 6
	}
	p := &Parallel{
		cfg:    cfg,
		logger: logger.With().Str("component", "parallel-view").Logger(),
	}
	p.SetData(nil)
	return p
}

// SetData binds the view to store, rebuilds every axis mapping and drops
// brush and click state, which refer to the previous domains. Dimensions
// without a usable domain are left out of the view.
func (p *Parallel) SetData(store *dataset.Store) {
	p.store = store
	p.state = selection.State{}
	p.spans = map[string]Span{}
	p.hover = nil
	p.dims = nil
	p.axes = make(map[string]axis.Mapping, len(p.cfg.Dimensions))
	p.offsets = make(map[string]float64, len(p.cfg.Dimensions))

	if store.Len() == 0 {
		return
	}

	w, h := p.cfg.Layout.Inner()
	for _, d := range p.cfg.Dimensions {
		m, err := axis.Build(store.Values(d.Name), axis.Extent{From: h, To: 0})
		if err != nil {
			p.logger.Warn().Err(err).Str("dimension", d.Name).Msg("Skipping axis")
			continue
		}
		p.axes[d.Name] = m
		p.dims = append(p.dims, d)
	}

	names := make([]string, len(p.dims))
	for i, d := range p.dims {
		names[i] = d.Name
	}
	x := axis.NewPoint(names, axis.Extent{From: 0, To: w}, 0.5)
	for i, name := range names {
		p.offsets[name] = x.At(i)
	}
}

// Render receives the authoritative selection.
func (p *Parallel) Render(selected selection.IDSet) {
	p.selected = selected
}

// Mapping returns the axis mapping of dim.
func (p *Parallel) Mapping(dim string) (axis.Mapping, bool) {
	m, ok := p.axes[dim]
	return m, ok
}

// State returns the current brushing state.
func (p *Parallel) State() selection.State { return p.state }

// BrushAxis applies a brush move or end on one axis and returns the ids
// satisfying every active axis brush. A nil or zero-height span retracts the
// axis brush.
func (p *Parallel) BrushAxis(dim string, span *Span) ([]int, error) {
	m, ok := p.axes[dim]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}

	s, ok := span.normalize(m.Extent())
	if !ok {
		p.state = p.state.Retract(dim)
		delete(p.spans, dim)
		return p.resolve(), nil
	}

	f, err := selection.FromSpan(m, s.Y0, s.Y1)
	if err != nil {
		return nil, fmt.Errorf("brush on %q: %w", dim, err)
	}
	p.state = p.state.Brush(dim, f)
	p.spans[dim] = s

	return p.resolve(), nil
}

// Click applies a click on a record's line. A plain click selects only id; a
// modifier click toggles id. Clicking clears every axis brush.
func (p *Parallel) Click(id int, modifier bool) ([]int, error) {
	if _, ok := p.store.Get(id); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRecord, id)
	}
	p.state = p.state.Click(id, modifier)
	p.spans = map[string]Span{}
	return p.resolve(), nil
}

// Hover emphasizes one line until Leave. It never changes the selection.
func (p *Parallel) Hover(id int) error {
	if _, ok := p.store.Get(id); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRecord, id)
	}
	p.hover = &id
	return nil
}

// Leave discards the hover emphasis.
func (p *Parallel) Leave() { p.hover = nil }

// Reset drops every axis brush and the click selection.
func (p *Parallel) Reset() {
	p.state = selection.State{}
	p.spans = map[string]Span{}
}

func (p *Parallel) resolve() []int {
	return selection.Resolve(p.state, p.store.All(), p.axes).IDs()
}

// Scene renders the view. The background layer depends only on the data;
// the foreground is styled from the selection, with selected lines raised
// above the rest and a hovered line above everything.
func (p *Parallel) Scene() ParallelScene {
	scene := ParallelScene{
		Layout:     p.cfg.Layout,
		Axes:       []AxisScene{},
		Background: []Polyline{},
		Foreground: []Polyline{},
	}
	records := p.store.All()
	if len(records) == 0 || len(p.dims) == 0 {
		return scene
	}

	for _, d := range p.dims {
		m := p.axes[d.Name]
		a := AxisScene{
			Dimension: d.Name,
			Label:     d.label(),
			Kind:      m.Kind(),
			Orient:    "left",
			Offset:    p.offsets[d.Name],
			Ticks:     m.Ticks(p.cfg.Ticks),
		}
		if f, ok := p.state.Filter(d.Name); ok {
			a.Filter = &f
		}
		if s, ok := p.spans[d.Name]; ok {
			a.Brush = &s
		}
		scene.Axes = append(scene.Axes, a)
	}

	active := !p.selected.Empty()
	var base, raised []Polyline
	var hovered *Polyline
	for _, rec := range records {
		pts := p.points(rec)
		scene.Background = append(scene.Background, Polyline{ID: rec.ID, Points: pts, Style: p.cfg.Palette.contextStyle()})

		sel := active && p.selected.Has(rec.ID)
		hov := p.hover != nil && *p.hover == rec.ID
		line := Polyline{ID: rec.ID, Points: pts, Style: p.cfg.Palette.lineStyle(active, sel, hov)}
		if sel {
			scene.Selected++
		}
		switch {
		case hov:
			line.Z = zHover
			hovered = &line
		case sel:
			line.Z = zSelected
			raised = append(raised, line)
		default:
			line.Z = zBase
			base = append(base, line)
		}
	}
	scene.Foreground = append(scene.Foreground, base...)
	scene.Foreground = append(scene.Foreground, raised...)
	if hovered != nil {
		scene.Foreground = append(scene.Foreground, *hovered)
		id := hovered.ID
		scene.Hover = &id
	}
	return scene
}

func (p *Parallel) points(rec dataset.Record) []Point {
	pts := make([]Point, 0, len(p.dims))
	for _, d := range p.dims {
		v, _ := rec.Value(d.Name)
		pts = append(pts, Point{X: p.offsets[d.Name], Y: p.axes[d.Name].Position(v)})
	}
	return pts
}
