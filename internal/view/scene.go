// Package view adapts raw interactions on the scatter and
// parallel-coordinates views into selection updates and renders each view as
// an id-keyed scene of immutable visual descriptors.
package view

import (
	"errors"
	"math"
	"slices"
	"strings"

	"github.com/basekick-labs/linkview/internal/axis"
	"github.com/basekick-labs/linkview/internal/selection"
)

var (
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownRecord    = errors.New("unknown record")
)

// Margin is the fixed margin box around the plot area.
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Layout is the fixed drawing surface of one view.
type Layout struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Margin Margin  `json:"margin"`
}

// Inner returns the plot area size inside the margins, never negative.
func (l Layout) Inner() (w, h float64) {
	w = math.Max(0, l.Width-l.Margin.Left-l.Margin.Right)
	h = math.Max(0, l.Height-l.Margin.Top-l.Margin.Bottom)
	return w, h
}

// Dimension is a visualized field and its axis label.
type Dimension struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

func (d Dimension) label() string {
	if d.Label != "" {
		return d.Label
	}
	if d.Name == "" {
		return ""
	}
	return strings.ToUpper(d.Name[:1]) + d.Name[1:]
}

// Style is the visual encoding of one mark or line.
type Style struct {
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke"`
	Opacity     float64 `json:"opacity"`
	StrokeWidth float64 `json:"stroke_width"`
}

// Point is a pixel position inside the plot area.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AxisScene is one drawn axis.
type AxisScene struct {
	Dimension string                `json:"dimension"`
	Label     string                `json:"label"`
	Kind      axis.Kind             `json:"kind"`
	Orient    string                `json:"orient"`
	Offset    float64               `json:"offset"`
	Ticks     []axis.Tick           `json:"ticks"`
	Filter    *selection.AxisFilter `json:"filter,omitempty"`
	Brush     *Span                 `json:"brush,omitempty"`
}

// Delta lists the ids that entered, left, or changed between two scenes.
type Delta struct {
	Entered []int `json:"entered"`
	Exited  []int `json:"exited"`
	Updated []int `json:"updated"`
}

// Empty reports whether nothing changed.
func (d Delta) Empty() bool {
	return len(d.Entered) == 0 && len(d.Exited) == 0 && len(d.Updated) == 0
}

// Diff compares two id-keyed scenes. Results are sorted ascending.
func Diff[T any](prev, next map[int]T, equal func(a, b T) bool) Delta {
	d := Delta{Entered: []int{}, Exited: []int{}, Updated: []int{}}
	for id, n := range next {
		p, ok := prev[id]
		switch {
		case !ok:
			d.Entered = append(d.Entered, id)
		case !equal(p, n):
			d.Updated = append(d.Updated, id)
		}
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			d.Exited = append(d.Exited, id)
		}
	}
	slices.Sort(d.Entered)
	slices.Sort(d.Exited)
	slices.Sort(d.Updated)
	return d
}
