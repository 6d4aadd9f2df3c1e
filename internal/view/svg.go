package view

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"sync"
)

var svgFuncMap = template.FuncMap{
	"px":  func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	"add": func(a, b float64) float64 { return a + b },
	"neg": func(v float64) float64 { return -v },
}

const svgAxisTemplate = `{{define "axis"}}<g class="axis axis-{{.Dimension}}" data-orient="{{.Orient}}">
{{- if eq .Orient "bottom"}}<g transform="translate(0,{{px .Offset}})">
{{- range .Ticks}}<g class="tick" transform="translate({{px .Position}},0)"><line y2="6" stroke="currentColor"/><text y="9" dy="0.71em" text-anchor="middle">{{.Label}}</text></g>{{end -}}
<text class="label" x="{{px $.Width}}" y="32" text-anchor="end">{{.Label}}</text></g>
{{- else}}<g transform="translate({{px .Offset}},0)">
{{- range .Ticks}}<g class="tick" transform="translate(0,{{px .Position}})"><line x2="-6" stroke="currentColor"/><text x="-9" dy="0.32em" text-anchor="end">{{.Label}}</text></g>{{end -}}
<text class="label" y="-9" text-anchor="middle">{{.Label}}</text></g>
{{- end}}</g>{{end}}`

const scatterSVGTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="{{px .Layout.Width}}" height="{{px .Layout.Height}}" viewBox="0 0 {{px .Layout.Width}} {{px .Layout.Height}}">
<g transform="translate({{px .Layout.Margin.Left}},{{px .Layout.Margin.Top}})">
{{- range .Axes}}{{template "axis" (axisData . $.InnerWidth)}}{{end}}
<g class="marks">
{{- range .Marks}}<circle data-id="{{.ID}}" cx="{{px .CX}}" cy="{{px .CY}}" r="{{px .R}}" fill="{{.Fill}}" stroke="{{.Stroke}}" stroke-width="{{px .StrokeWidth}}" opacity="{{px .Opacity}}"/>{{end -}}
</g>
{{- with .Brush}}<rect class="brush" x="{{px .X0}}" y="{{px .Y0}}" width="{{px (add .X1 (neg .X0))}}" height="{{px (add .Y1 (neg .Y0))}}" fill="#777" fill-opacity="0.3" stroke="#fff"/>{{end}}
</g>
</svg>
`

const parallelSVGTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="{{px .Layout.Width}}" height="{{px .Layout.Height}}" viewBox="0 0 {{px .Layout.Width}} {{px .Layout.Height}}">
<g transform="translate({{px .Layout.Margin.Left}},{{px .Layout.Margin.Top}})">
<g class="background" fill="none">
{{- range .Background}}<path data-id="{{.ID}}" d="{{.Path}}" stroke="{{.Stroke}}" stroke-width="{{px .StrokeWidth}}" opacity="{{px .Opacity}}"/>{{end -}}
</g>
<g class="foreground" fill="none">
{{- range .Foreground}}<path data-id="{{.ID}}" d="{{.Path}}" stroke="{{.Stroke}}" stroke-width="{{px .StrokeWidth}}" opacity="{{px .Opacity}}"/>{{end -}}
</g>
{{- range .Axes}}{{$offset := .Offset}}{{template "axis" (axisData . $.InnerWidth)}}
{{- with .Brush}}<rect class="brush" x="{{px (add $offset -12.0)}}" y="{{px .Y0}}" width="24" height="{{px (add .Y1 (neg .Y0))}}" fill="#777" fill-opacity="0.3" stroke="#fff"/>{{end}}
{{- end}}
</g>
</svg>
`

type axisView struct {
	AxisScene
	Width float64
}

type scatterSVG struct {
	ScatterScene
	InnerWidth float64
}

type parallelSVG struct {
	ParallelScene
	InnerWidth float64
}

var (
	svgTemplates     *template.Template
	svgTemplatesOnce sync.Once
)

func getSVGTemplates() *template.Template {
	svgTemplatesOnce.Do(func() {
		funcs := make(template.FuncMap, len(svgFuncMap)+1)
		for k, v := range svgFuncMap {
			funcs[k] = v
		}
		funcs["axisData"] = func(a AxisScene, w float64) axisView { return axisView{AxisScene: a, Width: w} }

		t := template.Must(template.New("svg").Funcs(funcs).Parse(svgAxisTemplate))
		template.Must(t.New("scatter").Parse(scatterSVGTemplate))
		template.Must(t.New("parallel").Parse(parallelSVGTemplate))
		svgTemplates = t
	})
	return svgTemplates
}

// WriteScatterSVG renders a scatter scene as a standalone SVG document.
func WriteScatterSVG(w io.Writer, scene ScatterScene) error {
	width, _ := scene.Layout.Inner()
	if err := getSVGTemplates().ExecuteTemplate(w, "scatter", scatterSVG{ScatterScene: scene, InnerWidth: width}); err != nil {
		return fmt.Errorf("render scatter svg: %w", err)
	}
	return nil
}

// WriteParallelSVG renders a parallel-coordinates scene as a standalone SVG
// document.
func WriteParallelSVG(w io.Writer, scene ParallelScene) error {
	width, _ := scene.Layout.Inner()
	if err := getSVGTemplates().ExecuteTemplate(w, "parallel", parallelSVG{ParallelScene: scene, InnerWidth: width}); err != nil {
		return fmt.Errorf("render parallel svg: %w", err)
	}
	return nil
}
