package view

// ScatterPalette styles scatter marks.
type ScatterPalette struct {
	Radius              float64
	BaseFill            string
	BaseStroke          string
	BaseOpacity         float64
	BaseStrokeWidth     float64
	SelectedFill        string
	SelectedStroke      string
	SelectedOpacity     float64
	SelectedStrokeWidth float64
	DimmedOpacity       float64
}

// DefaultScatterPalette returns the stock scatter colors.
func DefaultScatterPalette() ScatterPalette {
	return ScatterPalette{
		Radius:              5,
		BaseFill:            "#A7F3D0",
		BaseStroke:          "#999",
		BaseOpacity:         0.8,
		BaseStrokeWidth:     0.5,
		SelectedFill:        "#4F46E5",
		SelectedStroke:      "#6D28D9",
		SelectedOpacity:     0.9,
		SelectedStrokeWidth: 1.5,
		DimmedOpacity:       0.2,
	}
}

// markStyle resolves one mark. An empty selection renders every mark in the
// baseline style.
func (p ScatterPalette) markStyle(active, selected bool) Style {
	switch {
	case !active:
		return Style{Fill: p.BaseFill, Stroke: p.BaseStroke, Opacity: p.BaseOpacity, StrokeWidth: p.BaseStrokeWidth}
	case selected:
		return Style{Fill: p.SelectedFill, Stroke: p.SelectedStroke, Opacity: p.SelectedOpacity, StrokeWidth: p.SelectedStrokeWidth}
	default:
		return Style{Fill: p.BaseFill, Stroke: p.BaseStroke, Opacity: p.DimmedOpacity, StrokeWidth: p.BaseStrokeWidth}
	}
}

// LinePalette styles parallel-coordinates polylines.
type LinePalette struct {
	ContextColor    string
	ContextOpacity  float64
	ContextWidth    float64
	BaseColor       string
	BaseOpacity     float64
	BaseWidth       float64
	DimmedOpacity   float64
	SelectedColor   string
	SelectedOpacity float64
	SelectedWidth   float64
	HoverColor      string
	HoverWidth      float64
}

// DefaultLinePalette returns the stock line colors.
func DefaultLinePalette() LinePalette {
	return LinePalette{
		ContextColor:    "#e5e7eb",
		ContextOpacity:  0.2,
		ContextWidth:    1,
		BaseColor:       "#93c5fd",
		BaseOpacity:     0.28,
		BaseWidth:       1.15,
		DimmedOpacity:   0.07,
		SelectedColor:   "#9b2929",
		SelectedOpacity: 0.9,
		SelectedWidth:   2.6,
		HoverColor:      "#4c982e",
		HoverWidth:      3.5,
	}
}

func (p LinePalette) contextStyle() Style {
	return Style{Stroke: p.ContextColor, Opacity: p.ContextOpacity, StrokeWidth: p.ContextWidth}
}

func (p LinePalette) lineStyle(active, selected, hovered bool) Style {
	switch {
	case hovered:
		return Style{Stroke: p.HoverColor, Opacity: 1, StrokeWidth: p.HoverWidth}
	case !active:
		return Style{Stroke: p.BaseColor, Opacity: p.BaseOpacity, StrokeWidth: p.BaseWidth}
	case selected:
		return Style{Stroke: p.SelectedColor, Opacity: p.SelectedOpacity, StrokeWidth: p.SelectedWidth}
	default:
		return Style{Stroke: p.BaseColor, Opacity: p.DimmedOpacity, StrokeWidth: p.BaseWidth}
	}
}
