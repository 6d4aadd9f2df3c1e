package selection

import (
	"math"
	"testing"

	"github.com/basekick-labs/linkview/internal/axis"
	"github.com/basekick-labs/linkview/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = dataset.NewSchema(
	dataset.Column{Name: "area", Kind: dataset.KindNumeric},
	dataset.Column{Name: "price", Kind: dataset.KindNumeric},
	dataset.Column{Name: "furnishingstatus", Kind: dataset.KindCategorical},
)

func testRecords(t *testing.T) []dataset.Record {
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
	return store.All()
}

func furnishingAxis() *axis.Point {
	return axis.NewPoint([]string{"unfurnished", "semi-furnished", "furnished"}, axis.Extent{From: 300, To: 0}, 0.5)
}

func TestIDSet(t *testing.T) {
	s := NewIDSet(3, 1, 3, 2)
	assert.Equal(t, []int{3, 1, 2}, s.IDs())
	assert.Equal(t, []int{1, 2, 3}, s.Sorted())
	assert.True(t, s.Has(1))
	assert.False(t, s.Has(4))

	assert.True(t, s.Equal(NewIDSet(1, 2, 3)))
	assert.False(t, s.Equal(NewIDSet(1, 2)))

	assert.Equal(t, []int{3, 1, 2, 4}, s.With(4).IDs())
	assert.Equal(t, []int{3, 2}, s.Without(1).IDs())
	assert.Equal(t, []int{3, 1, 2}, s.IDs(), "With and Without leave the receiver untouched")

	var zero IDSet
	assert.True(t, zero.Empty())
	assert.NotNil(t, zero.IDs())
}

func TestResolve_ANDComposition(t *testing.T) {
	records := testRecords(t)
	s := State{}.
		Brush("area", NumericFilter(1500, 4500)).
		Brush("price", NumericFilter(350, 150))

	got := Resolve(s, records, nil)
	assert.Equal(t, []int{1, 2}, got.IDs())

	for _, r := range records {
		inArea := r.Number("area") >= 1500 && r.Number("area") <= 4500
		inPrice := r.Number("price") >= 150 && r.Number("price") <= 350
		assert.Equal(t, inArea && inPrice, got.Has(r.ID), "record %d", r.ID)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	records := testRecords(t)
	s := State{}.Brush("area", NumericFilter(1000, 3000))

	first := Resolve(s, records, nil)
	second := Resolve(s, records, nil)
	assert.Equal(t, first.IDs(), second.IDs())
}

func TestResolve_BoundsInclusive(t *testing.T) {
	records := testRecords(t)
	got := Resolve(State{}.Brush("price", NumericFilter(200, 400)), records, nil)
	assert.Equal(t, []int{1, 2, 3}, got.IDs())
}

func TestResolve_NaNNeverMatches(t *testing.T) {
	schema := dataset.NewSchema(dataset.Column{Name: "area", Kind: dataset.KindNumeric})
	records := []dataset.Record{
		dataset.NewRecord(0, &schema, dataset.Number(math.NaN())),
		dataset.NewRecord(1, &schema, dataset.Number(5)),
	}
	got := Resolve(State{}.Brush("area", NumericFilter(math.Inf(-1), math.Inf(1))), records, nil)
	assert.Equal(t, []int{1}, got.IDs())
}

func TestResolve_NoFiltersReturnsManual(t *testing.T) {
	records := testRecords(t)
	s := State{}.Click(4, false).Click(0, true)
	assert.Equal(t, []int{4, 0}, Resolve(s, records, nil).IDs())

	assert.True(t, Resolve(State{}, records, nil).Empty())
}

func TestResolve_UnknownDimensionMatchesNothing(t *testing.T) {
	records := testRecords(t)
	got := Resolve(State{}.Brush("stories", NumericFilter(0, 10)), records, nil)
	assert.True(t, got.Empty())
}

func TestState_MutualExclusion(t *testing.T) {
	s := State{}.Click(1, false)
	require.Equal(t, 1, s.Manual().Len())

	s = s.Brush("area", NumericFilter(0, 10))
	assert.True(t, s.Manual().Empty(), "brushing clears the click selection")

	s = s.Click(2, false)
	assert.Empty(t, s.Active(), "clicking clears every brush")
	assert.Equal(t, []int{2}, s.Manual().IDs())

	s = s.Click(3, true).Retract("area")
	assert.True(t, s.Manual().Empty(), "retracting clears the click selection")
}

func TestState_ToggleSemantics(t *testing.T) {
	s := State{}.Click(0, false).Click(1, true).Click(0, true)
	assert.Equal(t, []int{1}, s.Manual().IDs())

	s = s.Click(4, false)
	assert.Equal(t, []int{4}, s.Manual().IDs())
}

func TestState_Immutable(t *testing.T) {
	base := State{}.Brush("area", NumericFilter(0, 1))
	next := base.Brush("price", NumericFilter(0, 1)).Retract("area")

	assert.Equal(t, []string{"area"}, base.Active())
	assert.Equal(t, []string{"price"}, next.Active())
}

func TestState_RetractLastAxis(t *testing.T) {
	records := testRecords(t)
	s := State{}.Brush("area", NumericFilter(0, 10000)).Retract("area")
	assert.Empty(t, s.Active())
	assert.True(t, Resolve(s, records, nil).Empty())
}

func TestFromSpan_Numeric(t *testing.T) {
	m := axis.NewLinear([2]float64{0, 100}, axis.Extent{From: 200, To: 0})

	f, err := FromSpan(m, 50, 150)
	require.NoError(t, err)
	assert.Equal(t, FilterNumeric, f.Type)
	assert.Equal(t, 25.0, f.Min)
	assert.Equal(t, 75.0, f.Max)

	f, err = FromSpan(m, -100, 100)
	require.NoError(t, err)
	assert.Equal(t, 50.0, f.Min)
	assert.Equal(t, 100.0, f.Max, "endpoints past the extent clamp")
}

func TestFromSpan_CategoricalSnap(t *testing.T) {
	m := furnishingAxis()

	// unfurnished sits at 250, semi-furnished at 150, furnished at 50.
	for _, span := range [][2]float64{{120, 240}, {199, 299}, {140, 210}} {
		f, err := FromSpan(m, span[0], span[1])
		require.NoError(t, err)
		assert.Equal(t, FilterCategorical, f.Type)
		assert.Equal(t, 0, f.IndexMin, "span %v", span)
		assert.Equal(t, 1, f.IndexMax, "span %v", span)
	}

	records := testRecords(t)
	f, _ := FromSpan(m, 120, 240)
	got := Resolve(State{}.Brush("furnishingstatus", f), records, map[string]axis.Mapping{"furnishingstatus": m})
	assert.Equal(t, []int{0, 1, 3}, got.IDs())
}

func TestMatch_CategoricalWithoutPointMapping(t *testing.T) {
	f := CategoricalFilter(0, 2)
	assert.False(t, f.Match(dataset.Text("furnished"), nil))
	assert.True(t, f.Match(dataset.Text("furnished"), furnishingAxis()))
	assert.False(t, f.Match(dataset.Text("palatial"), furnishingAxis()))
}
