package view

import (
	"math"

	"github.com/basekick-labs/linkview/internal/axis"
	"github.com/basekick-labs/linkview/internal/dataset"
	"github.com/basekick-labs/linkview/internal/selection"
)

// Rect is a 2-D brush rectangle in plot-area pixels.
type Rect struct {
	X0 float64 `json:"x0" msgpack:"x0"`
	Y0 float64 `json:"y0" msgpack:"y0"`
	X1 float64 `json:"x1" msgpack:"x1"`
	Y1 float64 `json:"y1" msgpack:"y1"`
}

// normalize orders the corners and clamps them to [0,w]x[0,h]. It reports
// false for a rectangle with no area, which counts as a retracted brush.
func (r Rect) normalize(w, h float64) (Rect, bool) {
	if anyNaN(r.X0, r.Y0, r.X1, r.Y1) {
		return Rect{}, false
	}
	x := axis.Extent{From: 0, To: w}
	y := axis.Extent{From: 0, To: h}
	out := Rect{
		X0: x.Clamp(math.Min(r.X0, r.X1)),
		X1: x.Clamp(math.Max(r.X0, r.X1)),
		Y0: y.Clamp(math.Min(r.Y0, r.Y1)),
		Y1: y.Clamp(math.Max(r.Y0, r.Y1)),
	}
	return out, out.X1 > out.X0 && out.Y1 > out.Y0
}

func (r Rect) contains(p Point) bool {
	return p.X >= r.X0 && p.X <= r.X1 && p.Y >= r.Y0 && p.Y <= r.Y1
}

// ScatterConfig configures the scatter view.
type ScatterConfig struct {
	Layout  Layout
	X       Dimension
	Y       Dimension
	Ticks   int
	Palette ScatterPalette
}

// Mark is one drawn record.
type Mark struct {
	ID int     `json:"id"`
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	R  float64 `json:"r"`
	Style
}

// ScatterScene is a snapshot of the scatter view.
type ScatterScene struct {
	Layout   Layout      `json:"layout"`
	Axes     []AxisScene `json:"axes"`
	Marks    []Mark      `json:"marks"`
	Selected int         `json:"selected"`
	Brush    *Rect       `json:"brush,omitempty"`
}

// Index keys the marks by record id.
func (s ScatterScene) Index() map[int]Mark {
	out := make(map[int]Mark, len(s.Marks))
	for _, m := range s.Marks {
		out[m.ID] = m
	}
	return out
}

// Scatter is the 2-D view with a single rectangular brush.
type Scatter struct {
	cfg      ScatterConfig
	store    *dataset.Store
	x, y     *axis.Linear
	selected selection.IDSet
	brush    *Rect
}

// NewScatter creates a scatter view over an empty dataset.
func NewScatter(cfg ScatterConfig) *Scatter {
	if cfg.Ticks <= 0 {
		cfg.Ticks = 10
	}
	s := &Scatter{cfg: cfg}
	s.SetData(nil)
	return s
}

// SetData binds the view to store and rebuilds both scales. Domains start at
// zero and extend 5% past the largest observed value.
func (s *Scatter) SetData(store *dataset.Store) {
	s.store = store
	s.brush = nil
	w, h := s.cfg.Layout.Inner()
	s.x = axis.NewLinear([2]float64{0, paddedMax(store.Values(s.cfg.X.Name))}, axis.Extent{From: 0, To: w})
	s.y = axis.NewLinear([2]float64{0, paddedMax(store.Values(s.cfg.Y.Name))}, axis.Extent{From: h, To: 0})
}

func paddedMax(values []dataset.Value) float64 {
	hi := 0.0
	for _, v := range values {
		if f, ok := v.Float(); ok && f > hi {
			hi = f
		}
	}
	pad := hi
	if pad == 0 {
		pad = 1
	}
	return hi + 0.05*pad
}

// Render receives the authoritative selection.
func (s *Scatter) Render(selected selection.IDSet) {
	s.selected = selected
}

// Brush applies a brush move or end. A nil or zero-area rectangle retracts
// the brush and yields an empty list ("selection cleared"); otherwise the ids
// of records whose projected position falls inside the closed rectangle.
func (s *Scatter) Brush(rect *Rect) []int {
	ids := []int{}
	if rect == nil {
		s.brush = nil
		return ids
	}
	w, h := s.cfg.Layout.Inner()
	r, ok := rect.normalize(w, h)
	if !ok {
		s.brush = nil
		return ids
	}
	s.brush = &r

	for _, rec := range s.store.All() {
		if p, ok := s.project(rec); ok && r.contains(p) {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}

// ClearBrush drops the drawn brush without publishing anything.
func (s *Scatter) ClearBrush() { s.brush = nil }

// project maps rec to pixels. Records missing either coordinate report false.
func (s *Scatter) project(rec dataset.Record) (Point, bool) {
	x, y := rec.Number(s.cfg.X.Name), rec.Number(s.cfg.Y.Name)
	if anyNaN(x, y) {
		return Point{}, false
	}
	return Point{X: s.x.Scale(x), Y: s.y.Scale(y)}, true
}

// Scene renders the view from the current selection. Records with a NaN
// coordinate are not drawn; an empty dataset yields no marks and no axes.
func (s *Scatter) Scene() ScatterScene {
	scene := ScatterScene{Layout: s.cfg.Layout, Axes: []AxisScene{}, Marks: []Mark{}}
	records := s.store.All()
	if len(records) == 0 {
		return scene
	}

	_, h := s.cfg.Layout.Inner()
	scene.Axes = append(scene.Axes,
		AxisScene{Dimension: s.cfg.X.Name, Label: s.cfg.X.label(), Kind: axis.Numeric, Orient: "bottom", Offset: h, Ticks: s.x.Ticks(s.cfg.Ticks)},
		AxisScene{Dimension: s.cfg.Y.Name, Label: s.cfg.Y.label(), Kind: axis.Numeric, Orient: "left", Ticks: s.y.Ticks(s.cfg.Ticks)},
	)

	active := !s.selected.Empty()
	for _, rec := range records {
		p, ok := s.project(rec)
		if !ok {
			continue
		}
		sel := active && s.selected.Has(rec.ID)
		if sel {
			scene.Selected++
		}
		scene.Marks = append(scene.Marks, Mark{
			ID:    rec.ID,
			CX:    p.X,
			CY:    p.Y,
			R:     s.cfg.Palette.Radius,
			Style: s.cfg.Palette.markStyle(active, sel),
		})
	}
	if s.brush != nil {
		b := *s.brush
		scene.Brush = &b
	}
	return scene
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
