package view

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/basekick-labs/linkview/internal/dataset"
	"github.com/basekick-labs/linkview/internal/selection"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = dataset.NewSchema(
	dataset.Column{Name: "area", Kind: dataset.KindNumeric},
	dataset.Column{Name: "price", Kind: dataset.KindNumeric},
	dataset.Column{Name: "furnishingstatus", Kind: dataset.KindCategorical},
)

func testStore(t *testing.T) *dataset.Store {
	t.Helper()
	rows := []struct {
		area, price float64
		furnishing  string
	}{
		{1000, 100, "unfurnished"},
		{2000, 200, "semi-furnished"},
		{3000, 300, "furnished"},
		{4000, 400, "unfurnished"},
		{5000, 500, "furnished"},
	}
	records := make([]dataset.Record, len(rows))
	for i, r := range rows {
		records[i] = dataset.NewRecord(i, &testSchema, dataset.Number(r.area), dataset.Number(r.price), dataset.Text(r.furnishing))
	}
	store, err := dataset.NewStore(testSchema, records)
	require.NoError(t, err)
	return store
}

func newTestScatter(t *testing.T) *Scatter {
	s := NewScatter(ScatterConfig{
		Layout:  Layout{Width: 100, Height: 100},
		X:       Dimension{Name: "area"},
		Y:       Dimension{Name: "price"},
		Palette: DefaultScatterPalette(),
	})
	s.SetData(testStore(t))
	return s
}

func newTestParallel(t *testing.T) *Parallel {
	p := NewParallel(ParallelConfig{
		Layout: Layout{Width: 300, Height: 300},
		Dimensions: []Dimension{
			{Name: "area"},
			{Name: "price"},
			{Name: "furnishingstatus", Label: "Furnishing"},
		},
		Palette: DefaultLinePalette(),
	}, zerolog.Nop())
	p.SetData(testStore(t))
	return p
}

func TestScatter_Brush(t *testing.T) {
	s := newTestScatter(t)

	// x domain is [0, 5250]; x=50px is area 2625.
	ids := s.Brush(&Rect{X0: 50, Y0: 100, X1: 0, Y1: 0})
	assert.Equal(t, []int{0, 1}, ids)
	require.NotNil(t, s.Scene().Brush)
	assert.Equal(t, Rect{X0: 0, Y0: 0, X1: 50, Y1: 100}, *s.Scene().Brush)

	ids = s.Brush(&Rect{X0: -1000, Y0: -1000, X1: 1000, Y1: 1000})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ids, "out-of-range corners clamp to the plot area")
}

func TestScatter_BrushCleared(t *testing.T) {
	s := newTestScatter(t)
	s.Brush(&Rect{X0: 0, Y0: 0, X1: 50, Y1: 50})

	ids := s.Brush(nil)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
	assert.Nil(t, s.Scene().Brush)

	ids = s.Brush(&Rect{X0: 10, Y0: 10, X1: 10, Y1: 90})
	assert.Empty(t, ids, "a zero-area rectangle counts as cleared")
}

func TestScatter_SceneStyles(t *testing.T) {
	s := newTestScatter(t)
	pal := DefaultScatterPalette()

	scene := s.Scene()
	require.Len(t, scene.Marks, 5)
	require.Len(t, scene.Axes, 2)
	for _, m := range scene.Marks {
		assert.Equal(t, pal.BaseFill, m.Fill)
		assert.Equal(t, pal.BaseOpacity, m.Opacity)
	}

	s.Render(selection.NewIDSet(2))
	scene = s.Scene()
	assert.Equal(t, 1, scene.Selected)
	marks := scene.Index()
	assert.Equal(t, pal.SelectedFill, marks[2].Fill)
	assert.Equal(t, pal.DimmedOpacity, marks[0].Opacity)

	s.Render(selection.IDSet{})
	for _, m := range s.Scene().Marks {
		assert.Equal(t, pal.BaseOpacity, m.Opacity, "an empty selection renders as no selection")
	}
}

func TestScatter_EmptyData(t *testing.T) {
	s := NewScatter(ScatterConfig{Layout: Layout{Width: 100, Height: 100}, X: Dimension{Name: "area"}, Y: Dimension{Name: "price"}})
	scene := s.Scene()
	assert.Empty(t, scene.Marks)
	assert.Empty(t, scene.Axes)
	assert.Empty(t, s.Brush(&Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}))
}

func TestScatter_NaNRecords(t *testing.T) {
	records := []dataset.Record{
		dataset.NewRecord(0, &testSchema, dataset.Number(math.NaN()), dataset.Number(math.NaN()), dataset.Text("furnished")),
		dataset.NewRecord(1, &testSchema, dataset.Number(1000), dataset.Number(100), dataset.Text("furnished")),
		dataset.NewRecord(2, &testSchema, dataset.Number(500), dataset.Number(math.NaN()), dataset.Text("furnished")),
	}
	store, err := dataset.NewStore(testSchema, records)
	require.NoError(t, err)

	s := NewScatter(ScatterConfig{
		Layout:  Layout{Width: 100, Height: 100},
		X:       Dimension{Name: "area"},
		Y:       Dimension{Name: "price"},
		Palette: DefaultScatterPalette(),
	})
	s.SetData(store)

	// (0, 100) is where a NaN would land if it were scaled.
	assert.Empty(t, s.Brush(&Rect{X0: 0, Y0: 80, X1: 10, Y1: 100}))
	assert.Equal(t, []int{1}, s.Brush(&Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}))

	s.Render(selection.NewIDSet(0, 1, 2))
	scene := s.Scene()
	require.Len(t, scene.Marks, 1)
	assert.Equal(t, 1, scene.Marks[0].ID)
	assert.Equal(t, 1, scene.Selected)
}

func TestParallel_BrushComposition(t *testing.T) {
	p := newTestParallel(t)

	// area axis is [1000, 5000] over 300px; 150px is 3000.
	ids, err := p.BrushAxis("area", &Span{Y0: 150, Y1: 0})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, ids)

	// price axis is [100, 500]; 150px is 300 and 225px is 200.
	ids, err = p.BrushAxis("price", &Span{Y0: 150, Y1: 225})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids)

	ids, err = p.BrushAxis("price", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, ids)

	ids, err = p.BrushAxis("area", &Span{Y0: 80, Y1: 80})
	require.NoError(t, err)
	assert.Empty(t, ids, "retracting the last brush empties the selection")
	assert.Empty(t, p.State().Active())
}

func TestParallel_CategoricalBrush(t *testing.T) {
	p := newTestParallel(t)

	// unfurnished at 250px, semi-furnished at 150px.
	ids, err := p.BrushAxis("furnishingstatus", &Span{Y0: 120, Y1: 240})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3}, ids)

	f, ok := p.State().Filter("furnishingstatus")
	require.True(t, ok)
	assert.Equal(t, selection.CategoricalFilter(0, 1), f)
}

func TestParallel_ClickClearsBrushes(t *testing.T) {
	p := newTestParallel(t)
	_, err := p.BrushAxis("area", &Span{Y0: 0, Y1: 150})
	require.NoError(t, err)

	ids, err := p.Click(0, false)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, ids)
	assert.Empty(t, p.State().Active())
	for _, a := range p.Scene().Axes {
		assert.Nil(t, a.Brush)
	}

	ids, err = p.Click(3, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, ids)

	ids, err = p.Click(0, true)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, ids)
}

func TestParallel_Errors(t *testing.T) {
	p := newTestParallel(t)

	_, err := p.BrushAxis("stories", &Span{Y0: 0, Y1: 10})
	assert.True(t, errors.Is(err, ErrUnknownDimension))

	_, err = p.Click(42, false)
	assert.True(t, errors.Is(err, ErrUnknownRecord))

	assert.ErrorIs(t, p.Hover(42), ErrUnknownRecord)
}

func TestParallel_SceneLayers(t *testing.T) {
	p := newTestParallel(t)
	pal := DefaultLinePalette()

	scene := p.Scene()
	require.Len(t, scene.Axes, 3)
	assert.Equal(t, 50.0, scene.Axes[0].Offset)
	assert.Equal(t, 150.0, scene.Axes[1].Offset)
	assert.Equal(t, 250.0, scene.Axes[2].Offset)
	assert.Equal(t, "Area", scene.Axes[0].Label)
	assert.Equal(t, "Furnishing", scene.Axes[2].Label)
	require.Len(t, scene.Background, 5)
	require.Len(t, scene.Foreground, 5)
	assert.Equal(t, pal.ContextColor, scene.Background[0].Stroke)
	assert.Equal(t, pal.BaseOpacity, scene.Foreground[0].Opacity)

	p.Render(selection.NewIDSet(1))
	require.NoError(t, p.Hover(3))
	scene = p.Scene()

	n := len(scene.Foreground)
	assert.Equal(t, 3, scene.Foreground[n-1].ID, "hovered line is drawn last")
	assert.Equal(t, zHover, scene.Foreground[n-1].Z)
	assert.Equal(t, pal.HoverColor, scene.Foreground[n-1].Stroke)
	assert.Equal(t, 1, scene.Foreground[n-2].ID, "selected lines sit above the rest")
	assert.Equal(t, zSelected, scene.Foreground[n-2].Z)
	assert.Equal(t, pal.DimmedOpacity, scene.Index()[0].Opacity)
	require.NotNil(t, scene.Hover)

	p.Leave()
	assert.Nil(t, p.Scene().Hover)
}

func TestParallel_SkipsDegenerateAxes(t *testing.T) {
	p := NewParallel(ParallelConfig{
		Layout:     Layout{Width: 300, Height: 300},
		Dimensions: []Dimension{{Name: "area"}, {Name: "parking"}},
	}, zerolog.Nop())
	p.SetData(testStore(t))

	scene := p.Scene()
	require.Len(t, scene.Axes, 1)
	assert.Equal(t, "area", scene.Axes[0].Dimension)
	assert.Len(t, scene.Foreground[0].Points, 1)
}

func TestParallel_SetDataResetsState(t *testing.T) {
	p := newTestParallel(t)
	_, err := p.BrushAxis("area", &Span{Y0: 0, Y1: 150})
	require.NoError(t, err)

	p.SetData(testStore(t))
	assert.Empty(t, p.State().Active())
}

func TestPolyline_Path(t *testing.T) {
	l := Polyline{Points: []Point{{X: 1, Y: 2}, {X: 3.5, Y: 4}}}
	assert.Equal(t, "M1.00,2.00L3.50,4.00", l.Path())
}

func TestDiff(t *testing.T) {
	prev := map[int]int{1: 1, 2: 2, 3: 3}
	next := map[int]int{2: 2, 3: 30, 4: 4}

	d := Diff(prev, next, func(a, b int) bool { return a == b })
	assert.Equal(t, []int{4}, d.Entered)
	assert.Equal(t, []int{1}, d.Exited)
	assert.Equal(t, []int{3}, d.Updated)
	assert.False(t, d.Empty())

	assert.True(t, Diff(next, next, func(a, b int) bool { return a == b }).Empty())
}

func TestWriteSVG(t *testing.T) {
	s := newTestScatter(t)
	s.Brush(&Rect{X0: 0, Y0: 0, X1: 50, Y1: 100})
	var buf bytes.Buffer
	require.NoError(t, WriteScatterSVG(&buf, s.Scene()))
	out := buf.String()
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, `data-id="4"`)
	assert.Contains(t, out, `class="brush"`)

	p := newTestParallel(t)
	_, err := p.BrushAxis("area", &Span{Y0: 0, Y1: 150})
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, WriteParallelSVG(&buf, p.Scene()))
	out = buf.String()
	assert.Contains(t, out, `<path data-id="0" d="M50.00,`)
	assert.Contains(t, out, "unfurnished")
	assert.Contains(t, out, `class="brush"`)
}
