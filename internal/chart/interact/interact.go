// Package interact maps pointer gestures to series indices, tooltips and
// viewport changes.
package interact

import (
	"math"
	"strings"

	"chartlab/internal/chart/axis"
	"chartlab/internal/chart/render"
	"chartlab/internal/chart/viewport"
	"chartlab/internal/models"
)

// Series is one named value sequence shown in tooltips. Values are indexed
// like the chart's labels.
type Series struct {
	Name   string
	Values []float64
	Format render.Formatter
}

// Entry is one formatted tooltip value.
type Entry struct {
	Name  string
	Value float64
	Text  string
}

// Tooltip is the hover readout at a series index.
type Tooltip struct {
	Index   int
	Label   string
	Entries []Entry
}

// String renders the tooltip as "label  name: value  name: value".
func (t Tooltip) String() string {
	parts := []string{t.Label}
	for _, e := range t.Entries {
		if e.Name != "" {
			parts = append(parts, e.Name+": "+e.Text)
		} else {
			parts = append(parts, e.Text)
		}
	}
	return strings.Join(parts, "  ")
}

// IndexAt maps an x pixel over the plot to an absolute series index inside
// the viewport. ok is false when x lies outside the plot.
func IndexAt(box axis.Box, vp models.Viewport, x float64) (int, bool) {
	frac := box.XFraction(x)
	if math.IsNaN(frac) || frac < 0 || frac > 1 {
		return 0, false
	}
	return vp.A + int(math.Round(frac*float64(vp.Span()))), true
}

// Controller turns pointer events into viewport mutations and tooltips.
type Controller struct {
	vp     *viewport.Controller
	labels []string
	series []Series
}

// NewController creates a controller over the given viewport, labels and
// tooltip series.
func NewController(vp *viewport.Controller, labels []string, series ...Series) *Controller {
	return &Controller{vp: vp, labels: labels, series: series}
}

// SetData replaces labels and tooltip series, e.g. after a new series load.
func (c *Controller) SetData(labels []string, series ...Series) {
	c.labels = labels
	c.series = series
}

// Tooltip builds the readout at idx. Missing values are omitted; ok is false
// when idx is out of range or no value is present.
func (c *Controller) Tooltip(idx int) (Tooltip, bool) {
	if idx < 0 {
		return Tooltip{}, false
	}
	tip := Tooltip{Index: idx}
	if idx < len(c.labels) {
		tip.Label = c.labels[idx]
	}
	for _, s := range c.series {
		if idx >= len(s.Values) || models.IsMissing(s.Values[idx]) {
			continue
		}
		format := s.Format
		if format == nil {
			format = render.DefaultFormatter
		}
		v := s.Values[idx]
		tip.Entries = append(tip.Entries, Entry{Name: s.Name, Value: v, Text: format(v)})
	}
	if len(tip.Entries) == 0 {
		return Tooltip{}, false
	}
	return tip, true
}

// HandleMove returns the tooltip under x, if any.
func (c *Controller) HandleMove(box axis.Box, x float64) (Tooltip, bool) {
	idx, ok := IndexAt(box, c.vp.Viewport(), x)
	if !ok {
		return Tooltip{}, false
	}
	return c.Tooltip(idx)
}

// HandleWheel zooms out for positive deltaY and in for negative, anchored
// at the pointer. It reports whether the viewport changed.
func (c *Controller) HandleWheel(box axis.Box, x, deltaY float64) (models.Viewport, bool) {
	before := c.vp.Viewport()
	if deltaY == 0 {
		return before, false
	}
	frac := box.XFraction(x)
	if math.IsNaN(frac) {
		return before, false
	}
	dir := viewport.ZoomIn
	if deltaY > 0 {
		dir = viewport.ZoomOut
	}
	after := c.vp.Zoom(frac, dir)
	return after, after != before
}

// HandleDoubleClick resets the viewport to the full series.
func (c *Controller) HandleDoubleClick() (models.Viewport, bool) {
	before := c.vp.Viewport()
	after := c.vp.Reset(c.vp.Len())
	return after, after != before
}
