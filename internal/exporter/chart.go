package exporter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"datamod/internal/analytics"
	"datamod/internal/config"
)

// ErrEmptyChart is returned when a chart has nothing to plot
var ErrEmptyChart = errors.New("chart has no data points")

// maxBarCategories caps the categories drawn in a bar chart
const maxBarCategories = 20

var (
	beforeColor = drawing.ColorFromHex("90CAF9")
	afterColor  = drawing.ColorFromHex("1976D2")
)

// chartSize returns the pixel size of a chart at dpi
func chartSize(dpi int) (int, int) {
	if dpi <= 0 {
		dpi = config.DefaultChartDPI
	}
	return config.ChartWidthInches * dpi, config.ChartHeightInches * dpi
}

// renderChartPNG draws spec as a PNG image
func renderChartPNG(out io.Writer, spec analytics.ChartSpec, dpi int) error {
	if spec.Kind == analytics.ChartBar {
		return renderBarChart(out, spec, dpi)
	}
	if len(spec.Before) == 0 && len(spec.After) == 0 {
		return ErrEmptyChart
	}

	width, height := chartSize(dpi)
	style := func(c drawing.Color) chart.Style {
		if spec.Kind == analytics.ChartScatter {
			return chart.Style{StrokeWidth: chart.Disabled, DotColor: c, DotWidth: 3}
		}
		return chart.Style{StrokeColor: c, StrokeWidth: 2}
	}

	xAxis := chart.XAxis{Name: spec.XLabel, Range: paddedRange(spec, func(p analytics.Point) float64 { return p.X })}
	if spec.TimeAxis {
		xAxis.ValueFormatter = unixSecondsFormatter
	}

	graph := chart.Chart{
		Title:  spec.Title,
		Width:  width,
		Height: height,
		DPI:    float64(dpi),
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: xAxis,
		YAxis: chart.YAxis{
			Name:  spec.YLabel,
			Range: paddedRange(spec, func(p analytics.Point) float64 { return p.Y }),
		},
	}
	if len(spec.Before) > 0 {
		graph.Series = append(graph.Series, series("Before", spec.Before, style(beforeColor)))
	}
	if len(spec.After) > 0 {
		graph.Series = append(graph.Series, series("After", spec.After, style(afterColor)))
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, out)
}

func renderBarChart(out io.Writer, spec analytics.ChartSpec, dpi int) error {
	n := len(spec.Categories)
	if n == 0 {
		return ErrEmptyChart
	}
	if n > maxBarCategories {
		n = maxBarCategories
	}

	width, height := chartSize(dpi)
	// each category gets a labelled before bar followed by an unlabelled after bar
	bars := make([]chart.Value, 0, 2*n)
	top := 0.0
	for i := 0; i < n; i++ {
		bars = append(bars,
			chart.Value{Label: spec.Categories[i], Value: spec.BeforeCounts[i], Style: chart.Style{FillColor: beforeColor, StrokeColor: beforeColor}},
			chart.Value{Value: spec.AfterCounts[i], Style: chart.Style{FillColor: afterColor, StrokeColor: afterColor}},
		)
		top = math.Max(top, math.Max(spec.BeforeCounts[i], spec.AfterCounts[i]))
	}

	graph := chart.BarChart{
		Title:  spec.Title,
		Width:  width,
		Height: height,
		DPI:    float64(dpi),
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth: max(4, width/(len(bars)*3)),
		YAxis: chart.YAxis{
			Name:  spec.YLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: top + 1},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, out)
}

// renderChartPDF places the PNG rendering of spec on a landscape A4 page
func renderChartPDF(out io.Writer, spec analytics.ChartSpec, dpi int) error {
	var img bytes.Buffer
	if err := renderChartPNG(&img, spec, dpi); err != nil {
		return err
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(spec.Title, true)
	pdf.SetCreator(config.AppTitle, true)
	pdf.AddPage()

	opt := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("chart", opt, &img)

	pageW, _ := pdf.GetPageSize()
	left, top, right, _ := pdf.GetMargins()
	w := pageW - left - right
	h := w * config.ChartHeightInches / config.ChartWidthInches
	pdf.ImageOptions("chart", left, top, w, h, false, opt, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build pdf: %w", err)
	}
	return pdf.Output(out)
}

func series(name string, points []analytics.Point, style chart.Style) chart.Series {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	return chart.ContinuousSeries{Name: name, XValues: xs, YValues: ys, Style: style}
}

// paddedRange spans every point of both series; a zero-width span is widened
// so the chart can still be drawn
func paddedRange(spec analytics.ChartSpec, value func(analytics.Point) float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, points := range [][]analytics.Point{spec.Before, spec.After} {
		for _, p := range points {
			v := value(p)
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if lo == hi {
		pad := math.Max(1, math.Abs(lo)*0.1)
		lo, hi = lo-pad, hi+pad
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

func unixSecondsFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return time.Unix(int64(f), 0).UTC().Format("01-02 15:04")
	}
	return ""
}
