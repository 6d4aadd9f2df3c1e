package axis

import (
	"math"

	"github.com/basekick-labs/linkview/internal/dataset"
)

// Point places an ordered list of categories at evenly spaced positions.
type Point struct {
	domain    []string
	index     map[string]int
	positions []float64
	extent    Extent
}

// NewPoint spreads domain across extent with padding steps of outer space at
// both ends (0.5 gives the symmetric half-step layout).
func NewPoint(domain []string, extent Extent, padding float64) *Point {
	p := &Point{
		domain:    append([]string(nil), domain...),
		index:     make(map[string]int, len(domain)),
		positions: make([]float64, len(domain)),
		extent:    extent,
	}
	for i, d := range p.domain {
		if _, ok := p.index[d]; !ok {
			p.index[d] = i
		}
	}

	n := float64(len(domain))
	start, stop := extent.From, extent.To
	reversed := stop < start
	if reversed {
		start, stop = stop, start
	}
	step := (stop - start) / math.Max(1, n-1+padding*2)
	start += (stop - start - step*(n-1)) * 0.5
	for i := range p.positions {
		pos := start + step*float64(i)
		if reversed {
			p.positions[len(p.positions)-1-i] = pos
		} else {
			p.positions[i] = pos
		}
	}
	return p
}

func (p *Point) Kind() Kind { return Categorical }

func (p *Point) Extent() Extent { return p.extent }

// Domain returns the categories in position order.
func (p *Point) Domain() []string { return append([]string(nil), p.domain...) }

// Index returns the domain position of v, or -1.
func (p *Point) Index(v dataset.Value) int {
	i, ok := p.index[v.Key()]
	if !ok {
		return -1
	}
	return i
}

// At returns the pixel position of the i-th category.
func (p *Point) At(i int) float64 {
	if i < 0 || i >= len(p.positions) {
		return p.extent.From
	}
	return p.positions[i]
}

func (p *Point) Position(v dataset.Value) float64 {
	return p.At(p.Index(v))
}

// Nearest returns the index of the category closest to px, ties going to the
// lower index. It returns -1 for an empty domain.
func (p *Point) Nearest(px float64) int {
	best, bestDist := -1, math.Inf(1)
	for i, pos := range p.positions {
		if d := math.Abs(pos - px); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (p *Point) Ticks(int) []Tick {
	out := make([]Tick, len(p.domain))
	for i, d := range p.domain {
		out[i] = Tick{Label: d, Position: p.positions[i]}
	}
	return out
}
