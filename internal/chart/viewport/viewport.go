// Package viewport owns the zoom/pan window over a series.
package viewport

import (
	"math"

	"chartlab/internal/models"
)

// Direction is the sense of a zoom gesture.
type Direction int

const (
	ZoomIn Direction = iota
	ZoomOut
)

func (d Direction) String() string {
	if d == ZoomOut {
		return "out"
	}
	return "in"
}

// Defaults for zoom behavior.
const (
	MinSpan       = 10
	ZoomInFactor  = 0.87
	ZoomOutFactor = 1.15
)

// Options tunes zoom behavior.
type Options struct {
	MinSpan       int
	ZoomInFactor  float64
	ZoomOutFactor float64
}

// DefaultOptions returns the standard zoom factors and span floor.
func DefaultOptions() Options {
	return Options{
		MinSpan:       MinSpan,
		ZoomInFactor:  ZoomInFactor,
		ZoomOutFactor: ZoomOutFactor,
	}
}

// Controller holds the visible index window over a series of length L.
// It keeps no rendering state.
type Controller struct {
	opts Options
	n    int
	vp   models.Viewport
}

// New creates a controller covering a series of length n.
func New(n int, opts Options) *Controller {
	if opts.MinSpan <= 0 {
		opts.MinSpan = MinSpan
	}
	if opts.ZoomInFactor <= 0 || opts.ZoomInFactor >= 1 {
		opts.ZoomInFactor = ZoomInFactor
	}
	if opts.ZoomOutFactor <= 1 {
		opts.ZoomOutFactor = ZoomOutFactor
	}
	c := &Controller{opts: opts}
	c.Reset(n)
	return c
}

// Viewport returns the current window.
func (c *Controller) Viewport() models.Viewport {
	return c.vp
}

// Len returns the length of the series the controller covers.
func (c *Controller) Len() int {
	return c.n
}

// Full reports whether the window covers the whole series.
func (c *Controller) Full() bool {
	return c.vp.A == 0 && c.vp.B == c.last()
}

// Reset shows the whole series of length n.
func (c *Controller) Reset(n int) models.Viewport {
	if n < 0 {
		n = 0
	}
	c.n = n
	c.vp = models.Viewport{A: 0, B: c.last()}
	return c.vp
}

// Zoom scales the window around the index under the pointer. frac is the
// pointer's position across the plot, in [0, 1].
func (c *Controller) Zoom(frac float64, dir Direction) models.Viewport {
	last := c.last()
	if last <= c.opts.MinSpan {
		return c.vp
	}
	if math.IsNaN(frac) {
		return c.vp
	}
	frac = clampf(frac, 0, 1)

	factor := c.opts.ZoomInFactor
	if dir == ZoomOut {
		factor = c.opts.ZoomOutFactor
	}

	a := c.vp.A
	s := c.vp.Span()
	if s <= 0 {
		s = 1
	}
	ns := clamp(round(float64(s)*factor), c.opts.MinSpan, last)
	m := round(float64(a) + float64(s)*frac)
	na := clamp(round(float64(m)-float64(m-a)/float64(s)*float64(ns)), 0, last)
	nb := clamp(na+ns, 0, last)

	c.vp = c.floor(na, nb)
	return c.vp
}

// PanTo sets the window directly, applying the same clamping and span floor.
func (c *Controller) PanTo(a, b int) models.Viewport {
	last := c.last()
	if a > b {
		a, b = b, a
	}
	a = clamp(a, 0, last)
	b = clamp(b, 0, last)
	c.vp = c.floor(a, b)
	return c.vp
}

// Shift moves the window by delta indices keeping its span.
func (c *Controller) Shift(delta int) models.Viewport {
	s := c.vp.Span()
	a := clamp(c.vp.A+delta, 0, c.last()-s)
	return c.PanTo(a, a+s)
}

// Visible returns the samples inside the window.
func (c *Controller) Visible(series models.Series) models.Series {
	return series.Slice(c.vp.A, c.vp.B)
}

// Window returns values[A:B+1], clamped to len(values).
func (c *Controller) Window(values []float64) []float64 {
	a, b := c.vp.A, c.vp.B
	if a >= len(values) {
		return nil
	}
	if b >= len(values) {
		b = len(values) - 1
	}
	return values[a : b+1]
}

// WindowLabels returns labels[A:B+1], clamped to len(labels).
func (c *Controller) WindowLabels(labels []string) []string {
	a, b := c.vp.A, c.vp.B
	if a >= len(labels) {
		return nil
	}
	if b >= len(labels) {
		b = len(labels) - 1
	}
	return labels[a : b+1]
}

// floor restores the minimum span by extending b, then, when b is pinned at
// the end of the series, by moving a.
func (c *Controller) floor(a, b int) models.Viewport {
	last := c.last()
	min := c.opts.MinSpan
	if min > last {
		min = last
	}
	if b-a < min {
		b = clamp(a+min, 0, last)
	}
	if b-a < min {
		a = clamp(b-min, 0, last)
	}
	return models.Viewport{A: a, B: b}
}

func (c *Controller) last() int {
	if c.n == 0 {
		return 0
	}
	return c.n - 1
}

func round(v float64) int {
	return int(math.Round(v))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
