package render

import (
	"math"

	"chartlab/internal/chart/axis"
	"chartlab/internal/models"
	"chartlab/pkg/utils"
)

// Default tick counts for the value and index axes.
const (
	DefaultYTickCount = 5
	DefaultXTickCount = 6
)

const (
	tickLength  = 4
	labelOffset = 6
	pointSize   = 2
)

// Style holds the colors and default line width of a chart.
type Style struct {
	AxisColor      string  `mapstructure:"axis_color"`
	GridColor      string  `mapstructure:"grid_color"`
	TextColor      string  `mapstructure:"text_color"`
	LineColor      string  `mapstructure:"line_color"`
	SecondaryColor string  `mapstructure:"secondary_color"`
	PointColor     string  `mapstructure:"point_color"`
	LineWidth      float64 `mapstructure:"line_width"`
}

// DefaultStyle returns the standard light chart palette.
func DefaultStyle() Style {
	return Style{
		AxisColor:      "#ccc",
		GridColor:      "#eee",
		TextColor:      "#666",
		LineColor:      "#0a7",
		SecondaryColor: "#555",
		PointColor:     "#999",
		LineWidth:      2,
	}
}

// Options adjusts a single draw call. Zero values fall back to the
// renderer's defaults.
type Options struct {
	YTickCount    int
	XTickCount    int
	YFormatter    Formatter
	XFormatter    Formatter
	LineColor     string
	LineWidth     float64
	SymmetricZero bool
	Regression    *models.RegressionResult
}

// Line is one series of a multi-line chart.
type Line struct {
	Name   string
	Values []float64
	Color  string
	Width  float64
}

// Layout describes what a draw call produced. It is only valid for the
// surface size it was computed from.
type Layout struct {
	Box     axis.Box
	YTicks  models.TickSet
	XTicks  models.TickSet
	XLabels []int
	Empty   bool
}

// YScale returns the value-to-pixel mapping used for the drawn y axis.
func (l Layout) YScale() func(float64) float64 {
	return l.Box.YScale(l.YTicks.Min, l.YTicks.Max)
}

// XScale returns the value-to-pixel mapping of a scatter chart's x axis.
func (l Layout) XScale() func(float64) float64 {
	return l.Box.XScale(l.XTicks.Min, l.XTicks.Max)
}

// Renderer draws charts onto a Target. It is stateless between calls and
// recomputes geometry from the target size on every draw.
type Renderer struct {
	Style      Style
	Margins    axis.Margins
	YTickCount int
	XTickCount int
}

// NewRenderer creates a renderer with the given style and margins.
func NewRenderer(style Style, margins axis.Margins) *Renderer {
	return &Renderer{
		Style:      style,
		Margins:    margins,
		YTickCount: DefaultYTickCount,
		XTickCount: DefaultXTickCount,
	}
}

// DefaultRenderer creates a renderer with the default style and margins.
func DefaultRenderer() *Renderer {
	return NewRenderer(DefaultStyle(), axis.DefaultMargins())
}

// DefaultFormatter renders up to two fraction digits.
func DefaultFormatter(v float64) string {
	return utils.FormatNumber(v, 2)
}

// DrawLine draws one series against index labels. Missing values break the
// line; x is linear in index position.
func (r *Renderer) DrawLine(t Target, values []float64, labels []string, opts Options) Layout {
	line := Line{
		Values: values,
		Color:  pick(opts.LineColor, r.Style.LineColor),
		Width:  opts.LineWidth,
	}
	return r.DrawMultiLine(t, []Line{line}, labels, opts)
}

// DrawMultiLine draws several series on a shared y range computed over all
// of their present values.
func (r *Renderer) DrawMultiLine(t Target, lines []Line, labels []string, opts Options) Layout {
	t.Clear()
	box := r.box(t)
	layout := Layout{Box: box, Empty: true}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, ln := range lines {
		if min, max, ok := extent(ln.Values); ok {
			lo = math.Min(lo, min)
			hi = math.Max(hi, max)
		}
	}
	if math.IsInf(lo, 1) || box.Degenerate() {
		return layout
	}

	layout.YTicks, layout.XLabels = r.drawAxes(t, box, labels, lo, hi, opts)
	layout.Empty = false
	yScale := layout.YScale()

	for i, ln := range lines {
		color := ln.Color
		if color == "" {
			color = r.Style.SecondaryColor
			if i == 0 {
				color = r.Style.LineColor
			}
		}
		width := pickf(ln.Width, opts.LineWidth, r.Style.LineWidth)
		r.strokeSeries(t, box, ln.Values, yScale, color, width)
	}
	return layout
}

// DrawScatter draws (x, y) pairs with independent value axes. Pairs with a
// missing coordinate are skipped. With opts.Regression set, the fitted line
// is drawn across the x tick range.
func (r *Renderer) DrawScatter(t Target, xs, ys []float64, opts Options) Layout {
	t.Clear()
	box := r.box(t)
	layout := Layout{Box: box, Empty: true}

	px, py := pairs(xs, ys)
	if len(px) == 0 || box.Degenerate() {
		return layout
	}

	xmin, xmax, _ := extent(px)
	ymin, ymax, _ := extent(py)
	if opts.SymmetricZero {
		xAbs := math.Max(math.Abs(xmin), math.Abs(xmax))
		xmin, xmax = -xAbs, xAbs
		yAbs := math.Max(math.Abs(ymin), math.Abs(ymax))
		ymin, ymax = -yAbs, yAbs
	}

	layout.YTicks, _ = r.drawAxes(t, box, nil, ymin, ymax, opts)
	layout.XTicks = axis.PlanTicks(xmin, xmax, pickn(opts.XTickCount, r.XTickCount, DefaultXTickCount))
	layout.Empty = false
	xScale := layout.XScale()
	yScale := layout.YScale()

	xFmt := opts.XFormatter
	if xFmt == nil {
		xFmt = DefaultFormatter
	}
	t.SetStrokeColor(r.Style.GridColor)
	t.SetLineWidth(1)
	t.SetFillColor(r.Style.TextColor)
	t.SetTextAlign(AlignCenter, BaselineTop)
	for _, tick := range layout.XTicks.Ticks {
		x := xScale(tick)
		t.MoveTo(x, box.PlotBottom())
		t.LineTo(x, box.Top)
		t.Stroke()
		t.FillText(xFmt(tick), x, box.PlotBottom()+labelOffset)
	}

	t.SetFillColor(r.Style.PointColor)
	for i := range px {
		x, y := xScale(px[i]), yScale(py[i])
		t.FillRect(x-pointSize/2, y-pointSize/2, pointSize, pointSize)
	}

	if reg := opts.Regression; reg != nil && finite(reg.Alpha) && finite(reg.Beta) {
		x1, x2 := layout.XTicks.Min, layout.XTicks.Max
		t.SetStrokeColor(pick(opts.LineColor, r.Style.LineColor))
		t.SetLineWidth(pickf(opts.LineWidth, r.Style.LineWidth))
		t.MoveTo(xScale(x1), yScale(reg.Alpha+reg.Beta*x1))
		t.LineTo(xScale(x2), yScale(reg.Alpha+reg.Beta*x2))
		t.Stroke()
	}
	return layout
}

// drawAxes draws the axis lines, the y grid with labels and the index-axis
// labels. It returns the y ticks and the label indices drawn.
func (r *Renderer) drawAxes(t Target, box axis.Box, labels []string, yMin, yMax float64, opts Options) (models.TickSet, []int) {
	bottom := box.PlotBottom()
	right := box.PlotRight()

	t.SetStrokeColor(r.Style.AxisColor)
	t.SetLineWidth(1)
	t.MoveTo(box.Left, box.Top)
	t.LineTo(box.Left, bottom)
	t.MoveTo(box.Left, bottom)
	t.LineTo(right, bottom)
	t.Stroke()

	ticks := axis.PlanTicks(yMin, yMax, pickn(opts.YTickCount, r.YTickCount, DefaultYTickCount))
	yScale := box.YScale(ticks.Min, ticks.Max)
	yFmt := opts.YFormatter
	if yFmt == nil {
		yFmt = DefaultFormatter
	}

	t.SetTextAlign(AlignRight, BaselineMiddle)
	for _, tick := range ticks.Ticks {
		y := yScale(tick)
		t.SetStrokeColor(r.Style.GridColor)
		t.MoveTo(box.Left, y)
		t.LineTo(right, y)
		t.Stroke()
		t.SetFillColor(r.Style.TextColor)
		t.FillText(yFmt(tick), box.Left-labelOffset, y)
	}

	n := len(labels)
	if n == 0 {
		return ticks, nil
	}

	stride := n / pickn(opts.XTickCount, r.XTickCount, DefaultXTickCount)
	if stride < 1 {
		stride = 1
	}
	var drawn []int
	for i := 0; i < n; i += stride {
		drawn = append(drawn, i)
	}
	if (n-1)%stride != 0 {
		drawn = append(drawn, n-1)
	}

	t.SetTextAlign(AlignCenter, BaselineTop)
	for _, i := range drawn {
		x := box.IndexX(i, n)
		t.SetStrokeColor(r.Style.AxisColor)
		t.MoveTo(x, bottom)
		t.LineTo(x, bottom+tickLength)
		t.Stroke()
		t.SetFillColor(r.Style.TextColor)
		t.FillText(labels[i], x, bottom+labelOffset)
	}
	return ticks, drawn
}

// strokeSeries draws values as a polyline, lifting the pen at missing values.
func (r *Renderer) strokeSeries(t Target, box axis.Box, values []float64, yScale func(float64) float64, color string, width float64) {
	t.SetStrokeColor(color)
	t.SetLineWidth(width)
	down := false
	for i, v := range values {
		if !finite(v) {
			down = false
			continue
		}
		x, y := box.IndexX(i, len(values)), yScale(v)
		if down {
			t.LineTo(x, y)
		} else {
			t.MoveTo(x, y)
			down = true
		}
	}
	t.Stroke()
}

func (r *Renderer) box(t Target) axis.Box {
	w, h := t.Size()
	return axis.NewBox(w, h, r.Margins)
}

func extent(values []float64) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !finite(v) {
			continue
		}
		ok = true
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	return min, max, ok
}

func pairs(xs, ys []float64) (px, py []float64) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	for i := 0; i < n; i++ {
		if finite(xs[i]) && finite(ys[i]) {
			px = append(px, xs[i])
			py = append(py, ys[i])
		}
	}
	return px, py
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func pickf(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 1
}

func pickn(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 1
}
