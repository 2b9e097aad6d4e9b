package surface

import (
	"image"
	"io"

	"github.com/fogleman/gg"

	"chartlab/internal/chart/render"
)

// Raster is a PNG surface backed by a gg context.
type Raster struct {
	Events

	dc         *gg.Context
	background string
	stroke     string
	fill       string
	ax, ay     float64
}

// NewRaster creates a w x h raster with a white background.
func NewRaster(w, h int) *Raster {
	r := &Raster{
		background: "#fff",
		stroke:     "#000",
		fill:       "#000",
	}
	r.Resize(w, h)
	return r
}

// Resize replaces the backing image. Previously drawn content is lost.
func (r *Raster) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	r.dc = gg.NewContext(w, h)
	r.Clear()
}

func (r *Raster) Size() (float64, float64) {
	return float64(r.dc.Width()), float64(r.dc.Height())
}

func (r *Raster) Clear() {
	r.dc.ClearPath()
	r.dc.SetHexColor(r.background)
	r.dc.Clear()
}

func (r *Raster) SetStrokeColor(hex string) { r.stroke = hex }
func (r *Raster) SetFillColor(hex string)   { r.fill = hex }
func (r *Raster) SetLineWidth(w float64)    { r.dc.SetLineWidth(w) }

// SetTextAlign maps alignment onto gg's anchor fractions.
func (r *Raster) SetTextAlign(align render.Align, baseline render.Baseline) {
	switch align {
	case render.AlignCenter:
		r.ax = 0.5
	case render.AlignRight:
		r.ax = 1
	default:
		r.ax = 0
	}
	switch baseline {
	case render.BaselineMiddle:
		r.ay = 0.5
	case render.BaselineTop:
		r.ay = 1
	default:
		r.ay = 0
	}
}

func (r *Raster) MoveTo(x, y float64) { r.dc.MoveTo(x, y) }
func (r *Raster) LineTo(x, y float64) { r.dc.LineTo(x, y) }

func (r *Raster) Stroke() {
	r.dc.SetHexColor(r.stroke)
	r.dc.Stroke()
}

func (r *Raster) FillRect(x, y, w, h float64) {
	r.dc.SetHexColor(r.fill)
	r.dc.DrawRectangle(x, y, w, h)
	r.dc.Fill()
}

func (r *Raster) FillText(text string, x, y float64) {
	r.dc.SetHexColor(r.fill)
	r.dc.DrawStringAnchored(text, x, y, r.ax, r.ay)
}

// Image returns the backing image.
func (r *Raster) Image() image.Image {
	return r.dc.Image()
}

// Encode writes the surface as PNG.
func (r *Raster) Encode(w io.Writer) error {
	return r.dc.EncodePNG(w)
}
