// Package chart provides chart instances: a series, its viewport and an
// optional interaction layer, rendered onto a render.Target.
package chart

import (
	"github.com/rs/zerolog"

	"chartlab/internal/chart/axis"
	"chartlab/internal/chart/interact"
	"chartlab/internal/chart/render"
	"chartlab/internal/chart/viewport"
	"chartlab/internal/models"
)

// Kind is the drawing routine a chart uses.
type Kind string

const (
	KindLine      Kind = "line"
	KindMultiLine Kind = "multiline"
	KindScatter   Kind = "scatter"
)

const (
	tooltipCharWidth = 7
	tooltipHeight    = 18
	tooltipPadding   = 4
	tooltipFill      = "#fff"
)

// Chart owns one series set and its viewport. A Chart is not safe for
// concurrent use; each chart has its own state.
type Chart struct {
	id       string
	kind     Kind
	renderer *render.Renderer
	opts     render.Options
	logger   zerolog.Logger

	labels []string
	lines  []render.Line
	xs, ys []float64

	vp          *viewport.Controller
	vpOpts      viewport.Options
	interactive bool
	ic          *interact.Controller

	hover    *interact.Tooltip
	pointerX float64
	layout   render.Layout
}

// Option configures a Chart.
type Option func(*Chart)

// WithInteraction enables hover tooltips, wheel zoom and double-click reset.
func WithInteraction(opts viewport.Options) Option {
	return func(c *Chart) {
		c.interactive = true
		c.vpOpts = opts
	}
}

// WithRenderer sets the renderer. The default uses the standard style.
func WithRenderer(r *render.Renderer) Option {
	return func(c *Chart) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithOptions sets per-chart draw options such as formatters.
func WithOptions(opts render.Options) Option {
	return func(c *Chart) {
		c.opts = opts
	}
}

// WithLogger sets the logger used for viewport changes.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Chart) {
		c.logger = logger
	}
}

// WithID names the chart in log output.
func WithID(id string) Option {
	return func(c *Chart) {
		c.id = id
	}
}

func newChart(kind Kind, opts []Option) *Chart {
	c := &Chart{
		kind:     kind,
		renderer: render.DefaultRenderer(),
		logger:   zerolog.Nop(),
		vpOpts:   viewport.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("chart", c.id).Str("kind", string(kind)).Logger()
	return c
}

// NewLine creates a single-series line chart.
func NewLine(values []float64, labels []string, opts ...Option) *Chart {
	c := newChart(KindLine, opts)
	c.Load([]render.Line{{Values: values, Color: c.opts.LineColor, Width: c.opts.LineWidth}}, labels)
	return c
}

// NewMultiLine creates a chart of several series on a shared y range.
func NewMultiLine(lines []render.Line, labels []string, opts ...Option) *Chart {
	c := newChart(KindMultiLine, opts)
	c.Load(lines, labels)
	return c
}

// NewScatter creates a scatter chart. Scatter charts have no index axis,
// so zoom gestures are ignored.
func NewScatter(xs, ys []float64, opts ...Option) *Chart {
	c := newChart(KindScatter, opts)
	c.xs, c.ys = xs, ys
	c.vp = viewport.New(0, c.vpOpts)
	return c
}

// Load replaces the chart's series and resets the viewport to show all of it.
func (c *Chart) Load(lines []render.Line, labels []string) {
	c.lines = lines
	c.labels = labels
	c.hover = nil

	n := len(labels)
	for _, ln := range lines {
		if len(ln.Values) > n {
			n = len(ln.Values)
		}
	}
	if c.vp == nil {
		c.vp = viewport.New(n, c.vpOpts)
	} else {
		c.vp.Reset(n)
	}

	if c.interactive {
		series := make([]interact.Series, len(lines))
		for i, ln := range lines {
			series[i] = interact.Series{Name: ln.Name, Values: ln.Values, Format: c.opts.YFormatter}
		}
		if c.ic == nil {
			c.ic = interact.NewController(c.vp, labels, series...)
		} else {
			c.ic.SetData(labels, series...)
		}
	}
	c.logger.Debug().Int("len", n).Msg("series loaded")
}

// ID returns the chart's name.
func (c *Chart) ID() string { return c.id }

// Kind returns the chart's drawing routine.
func (c *Chart) Kind() Kind { return c.kind }

// Interactive reports whether interaction is enabled.
func (c *Chart) Interactive() bool { return c.interactive && c.kind != KindScatter }

// Viewport returns the visible index window.
func (c *Chart) Viewport() models.Viewport { return c.vp.Viewport() }

// Layout returns the layout of the most recent render.
func (c *Chart) Layout() render.Layout { return c.layout }

// Tooltip returns the current hover readout, if any.
func (c *Chart) Tooltip() (interact.Tooltip, bool) {
	if c.hover == nil {
		return interact.Tooltip{}, false
	}
	return *c.hover, true
}

// Zoom zooms around the given fraction of the plot width.
func (c *Chart) Zoom(frac float64, dir viewport.Direction) models.Viewport {
	if c.kind == KindScatter {
		return c.vp.Viewport()
	}
	before := c.vp.Viewport()
	after := c.vp.Zoom(frac, dir)
	c.logViewport("zoom", before, after)
	return after
}

// PanTo shows the index range [a, b].
func (c *Chart) PanTo(a, b int) models.Viewport {
	before := c.vp.Viewport()
	after := c.vp.PanTo(a, b)
	c.logViewport("pan", before, after)
	return after
}

// Reset shows the full series.
func (c *Chart) Reset() models.Viewport {
	before := c.vp.Viewport()
	after := c.vp.Reset(c.vp.Len())
	c.logViewport("reset", before, after)
	return after
}

// Render draws the visible window onto t, plus the hover overlay when
// interaction is enabled. Rendering is idempotent.
func (c *Chart) Render(t render.Target) render.Layout {
	switch c.kind {
	case KindScatter:
		c.layout = c.renderer.DrawScatter(t, c.xs, c.ys, c.opts)
	default:
		visible := make([]render.Line, len(c.lines))
		for i, ln := range c.lines {
			visible[i] = ln
			visible[i].Values = c.vp.Window(ln.Values)
		}
		labels := c.vp.WindowLabels(c.labels)
		c.layout = c.renderer.DrawMultiLine(t, visible, labels, c.opts)
	}

	if c.hover != nil && !c.layout.Empty {
		c.drawHover(t)
	}
	return c.layout
}

// Attach subscribes the chart to pointer events from src and re-renders onto
// t after every event that changes what is shown. The returned function
// detaches the chart.
func (c *Chart) Attach(src render.EventSource, t render.Target) func() {
	if !c.Interactive() {
		return func() {}
	}
	return src.Subscribe(func(ev render.Event) {
		if c.Handle(ev, c.box(t)) {
			c.Render(t)
		}
	})
}

// Handle applies a pointer event against the plot box. It reports whether a
// re-render is needed.
func (c *Chart) Handle(ev render.Event, box axis.Box) bool {
	if !c.Interactive() {
		return false
	}

	switch ev.Kind {
	case render.EventMove:
		c.pointerX = ev.X
		return c.updateHover(box)

	case render.EventLeave:
		if c.hover == nil {
			return false
		}
		c.hover = nil
		return true

	case render.EventWheel:
		before := c.vp.Viewport()
		after, changed := c.ic.HandleWheel(box, ev.X, ev.DeltaY)
		if !changed {
			return false
		}
		c.logViewport("wheel", before, after)
		c.pointerX = ev.X
		c.updateHover(box)
		return true

	case render.EventDoubleClick:
		before := c.vp.Viewport()
		after, changed := c.ic.HandleDoubleClick()
		if changed {
			c.logViewport("reset", before, after)
			c.updateHover(box)
		}
		return changed
	}
	return false
}

func (c *Chart) updateHover(box axis.Box) bool {
	prev := c.hover
	tip, ok := c.ic.HandleMove(box, c.pointerX)
	if !ok {
		c.hover = nil
		return prev != nil
	}
	c.hover = &tip
	return prev == nil || prev.Index != tip.Index || prev.Label != tip.Label
}

// drawHover draws a crosshair at the hovered index and the tooltip text in
// the top-left corner of the plot.
func (c *Chart) drawHover(t render.Target) {
	box := c.layout.Box
	vp := c.vp.Viewport()
	style := c.renderer.Style

	n := vp.Span() + 1
	x := box.IndexX(c.hover.Index-vp.A, n)
	t.SetStrokeColor(style.PointColor)
	t.SetLineWidth(1)
	t.MoveTo(x, box.Top)
	t.LineTo(x, box.PlotBottom())
	t.Stroke()

	if len(c.hover.Entries) > 0 {
		y := c.layout.YScale()(c.hover.Entries[0].Value)
		t.SetFillColor(style.LineColor)
		t.FillRect(x-2, y-2, 4, 4)
	}

	text := c.hover.String()
	w := float64(len(text)*tooltipCharWidth + 2*tooltipPadding)
	t.SetFillColor(tooltipFill)
	t.FillRect(box.Left+tooltipPadding, box.Top+tooltipPadding, w, tooltipHeight)
	t.SetFillColor(style.TextColor)
	t.SetTextAlign(render.AlignLeft, render.BaselineMiddle)
	t.FillText(text, box.Left+2*tooltipPadding, box.Top+tooltipPadding+tooltipHeight/2)
}

func (c *Chart) box(t render.Target) axis.Box {
	w, h := t.Size()
	return axis.NewBox(w, h, c.renderer.Margins)
}

func (c *Chart) logViewport(action string, before, after models.Viewport) {
	if before == after {
		return
	}
	c.logger.Debug().
		Str("action", action).
		Int("from_a", before.A).
		Int("from_b", before.B).
		Int("a", after.A).
		Int("b", after.B).
		Msg("viewport changed")
}
