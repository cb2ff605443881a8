package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"satquery/internal/modules/saturation/types"
)

var chartTmpl *template.Template

// loadTemplatesFromFS loads the chart template from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	chartTmpl, err = template.ParseFS(sub, "*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads the embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

type SpeciesOption struct {
	ID   string
	Name string
}

// ChartPage is the view model for the T-s chart page.
type ChartPage struct {
	Species         []SpeciesOption
	SelectedID      string
	Units           types.Units
	TemperatureUnit string
	EntropyUnit     string
	Error           string
	Plot            *Plot
}

// Plot is a chart dataset projected onto SVG coordinates, entropy on the x
// axis and temperature on the y axis.
type Plot struct {
	Width, Height            int
	Left, Right, Top, Bottom int
	LabelBelow               int
	Liquid, Vapor            string // polyline points
	TMin, TMax, SMin, SMax   string
}

const (
	plotWidth  = 720
	plotHeight = 440
	plotMargin = 48
)

// NewPlot scales chart into the plot area. It returns nil for an empty or
// inconsistent dataset.
func NewPlot(chart types.ChartData) *Plot {
	n := len(chart.TempValues)
	if n == 0 || len(chart.SatLiquid) != n || len(chart.SatVapor) != n {
		return nil
	}

	tMin, tMax := bounds(chart.TempValues)
	sMin, sMax := bounds(append(append([]float64{}, chart.SatLiquid...), chart.SatVapor...))

	p := &Plot{
		Width:      plotWidth,
		Height:     plotHeight,
		Left:       plotMargin,
		Right:      plotWidth - plotMargin/2,
		Top:        plotMargin / 2,
		Bottom:     plotHeight - plotMargin,
		LabelBelow: plotHeight - plotMargin/2,
		TMin:       formatTick(tMin),
		TMax:       formatTick(tMax),
		SMin:       formatTick(sMin),
		SMax:       formatTick(sMax),
	}

	x := scaler(sMin, sMax, float64(p.Left), float64(p.Right))
	y := scaler(tMin, tMax, float64(p.Bottom), float64(p.Top))
	p.Liquid = points(chart.SatLiquid, chart.TempValues, x, y)
	p.Vapor = points(chart.SatVapor, chart.TempValues, x, y)
	return p
}

func bounds(vs []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// scaler maps [lo, hi] onto [from, to]; a degenerate range maps to the
// middle.
func scaler(lo, hi, from, to float64) func(float64) float64 {
	if hi == lo {
		mid := (from + to) / 2
		return func(float64) float64 { return mid }
	}
	k := (to - from) / (hi - lo)
	return func(v float64) float64 { return from + (v-lo)*k }
}

func points(xs, ys []float64, x, y func(float64) float64) string {
	var b strings.Builder
	for i := range xs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(x(xs[i]), 'f', 1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(y(ys[i]), 'f', 1, 64))
	}
	return b.String()
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'g', 5, 64)
}

func RenderChart(w io.Writer, data *ChartPage) error {
	if chartTmpl == nil {
		return errors.New("chart template not loaded: call views.LoadTemplates during startup")
	}
	return chartTmpl.ExecuteTemplate(w, "chart.html", data)
}
