package axis

import (
	"math"
	"strconv"

	"github.com/basekick-labs/linkview/internal/dataset"
)

// Linear is an affine mapping from a numeric domain to an extent.
type Linear struct {
	domain [2]float64
	extent Extent
}

// NewLinear maps domain onto extent without nicing.
func NewLinear(domain [2]float64, extent Extent) *Linear {
	return &Linear{domain: domain, extent: extent}
}

func (l *Linear) Kind() Kind { return Numeric }

// Domain returns the (possibly niced) domain.
func (l *Linear) Domain() [2]float64 { return l.domain }

func (l *Linear) Extent() Extent { return l.extent }

// Scale maps a number to pixels. A zero-width domain maps everything to the
// middle of the extent.
func (l *Linear) Scale(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return l.extent.From
	}
	d0, d1 := l.domain[0], l.domain[1]
	if d1 == d0 {
		return (l.extent.From + l.extent.To) / 2
	}
	t := (f - d0) / (d1 - d0)
	return l.extent.From + t*(l.extent.To-l.extent.From)
}

func (l *Linear) Position(v dataset.Value) float64 {
	f, ok := v.Float()
	if !ok {
		return l.extent.From
	}
	return l.Scale(f)
}

// Invert maps a pixel position back to the domain. Positions outside the
// extent are clamped first.
func (l *Linear) Invert(px float64) float64 {
	px = l.extent.Clamp(px)
	r0, r1 := l.extent.From, l.extent.To
	if r1 == r0 || l.domain[0] == l.domain[1] {
		return l.domain[0]
	}
	t := (px - r0) / (r1 - r0)
	return l.domain[0] + t*(l.domain[1]-l.domain[0])
}

// Nice extends the domain to round tick boundaries.
func (l *Linear) Nice(count int) *Linear {
	start, stop := l.domain[0], l.domain[1]
	if start == stop || count <= 0 {
		return l
	}
	reversed := stop < start
	if reversed {
		start, stop = stop, start
	}

	var prestep float64
	for i := 0; i < 10; i++ {
		step := tickIncrement(start, stop, count)
		if step == prestep {
			break
		}
		switch {
		case step > 0:
			start = math.Floor(start/step) * step
			stop = math.Ceil(stop/step) * step
		case step < 0:
			start = math.Ceil(start*step) / step
			stop = math.Floor(stop*step) / step
		default:
			i = 10
		}
		prestep = step
	}

	if reversed {
		start, stop = stop, start
	}
	return &Linear{domain: [2]float64{start, stop}, extent: l.extent}
}

func (l *Linear) Ticks(count int) []Tick {
	lo, hi := l.domain[0], l.domain[1]
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		return []Tick{{Label: formatTick(lo), Position: l.Scale(lo)}}
	}
	var out []Tick
	for _, v := range tickValues(lo, hi, count) {
		out = append(out, Tick{Label: formatTick(v), Position: l.Scale(v)})
	}
	return out
}

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// tickIncrement returns a power-of-ten multiple of 1, 2 or 5 close to
// (stop-start)/count. Negative results are inverse increments (1/-n).
func tickIncrement(start, stop float64, count int) float64 {
	step := (stop - start) / math.Max(0, float64(count))
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return 0
	}
	power := math.Floor(math.Log10(step))
	ratio := step / math.Pow(10, power)
	factor := 1.0
	switch {
	case ratio >= e10:
		factor = 10
	case ratio >= e5:
		factor = 5
	case ratio >= e2:
		factor = 2
	}
	if power >= 0 {
		return factor * math.Pow(10, power)
	}
	return -math.Pow(10, -power) / factor
}

func tickValues(lo, hi float64, count int) []float64 {
	step := tickIncrement(lo, hi, count)
	var out []float64
	switch {
	case step > 0:
		for i := math.Ceil(lo / step); i <= math.Floor(hi/step); i++ {
			out = append(out, i*step)
		}
	case step < 0:
		inv := -step
		for i := math.Ceil(lo * inv); i <= math.Floor(hi*inv); i++ {
			out = append(out, i/inv)
		}
	}
	return out
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
