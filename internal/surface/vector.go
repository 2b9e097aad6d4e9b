package surface

import (
	"io"
	"math"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"chartlab/internal/chart/render"
	"chartlab/internal/errors"
)

// DefaultFontSize is the text size of vector surfaces, in points.
const DefaultFontSize = 9

// Vector is an SVG surface backed by a go-chart renderer. Coordinates are
// rounded to whole pixels.
type Vector struct {
	Events

	w, h       int
	r          chart.Renderer
	font       *truetype.Font
	fontSize   float64
	background string
	stroke     drawing.Color
	fill       drawing.Color
	width      float64
	align      render.Align
	baseline   render.Baseline
}

// NewVector creates a w x h SVG surface with a white background.
func NewVector(w, h int) (*Vector, error) {
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load default font")
	}
	v := &Vector{
		font:       font,
		fontSize:   DefaultFontSize,
		background: "#fff",
		stroke:     drawing.ColorBlack,
		fill:       drawing.ColorBlack,
		width:      1,
	}
	if err := v.Resize(w, h); err != nil {
		return nil, err
	}
	return v, nil
}

// Resize replaces the backing canvas. Previously drawn content is lost.
func (v *Vector) Resize(w, h int) error {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	r, err := chart.SVG(w, h)
	if err != nil {
		return errors.Wrap(err, "failed to create svg renderer")
	}
	v.w, v.h, v.r = w, h, r
	v.paintBackground()
	return nil
}

func (v *Vector) Size() (float64, float64) {
	return float64(v.w), float64(v.h)
}

// Clear starts a fresh canvas of the same size.
func (v *Vector) Clear() {
	if r, err := chart.SVG(v.w, v.h); err == nil {
		v.r = r
	}
	v.paintBackground()
}

func (v *Vector) paintBackground() {
	v.r.SetFont(v.font)
	v.r.SetFontSize(v.fontSize)
	v.r.SetFillColor(ParseColor(v.background))
	v.rect(0, 0, float64(v.w), float64(v.h))
	v.r.Fill()
}

func (v *Vector) SetStrokeColor(hex string) { v.stroke = ParseColor(hex) }
func (v *Vector) SetFillColor(hex string)   { v.fill = ParseColor(hex) }
func (v *Vector) SetLineWidth(w float64)    { v.width = w }

func (v *Vector) SetTextAlign(align render.Align, baseline render.Baseline) {
	v.align, v.baseline = align, baseline
}

func (v *Vector) MoveTo(x, y float64) { v.r.MoveTo(px(x), px(y)) }
func (v *Vector) LineTo(x, y float64) { v.r.LineTo(px(x), px(y)) }

func (v *Vector) Stroke() {
	v.r.SetStrokeColor(v.stroke)
	v.r.SetStrokeWidth(v.width)
	v.r.Stroke()
}

func (v *Vector) FillRect(x, y, w, h float64) {
	v.r.SetFillColor(v.fill)
	v.rect(x, y, w, h)
	v.r.Fill()
}

func (v *Vector) rect(x, y, w, h float64) {
	v.r.MoveTo(px(x), px(y))
	v.r.LineTo(px(x+w), px(y))
	v.r.LineTo(px(x+w), px(y+h))
	v.r.LineTo(px(x), px(y+h))
	v.r.Close()
}

// FillText places text so that (x, y) is the requested anchor. SVG text is
// positioned by its alphabetic baseline.
func (v *Vector) FillText(text string, x, y float64) {
	box := v.r.MeasureText(text)
	tw, th := float64(box.Width()), float64(box.Height())

	switch v.align {
	case render.AlignCenter:
		x -= tw / 2
	case render.AlignRight:
		x -= tw
	}
	switch v.baseline {
	case render.BaselineMiddle:
		y += th / 2
	case render.BaselineTop:
		y += th
	}

	v.r.SetFontColor(v.fill)
	v.r.Text(text, px(x), px(y))
}

// Encode writes the surface as SVG.
func (v *Vector) Encode(w io.Writer) error {
	return v.r.Save(w)
}

// ParseColor converts "#rgb" or "#rrggbb" into a drawing color.
func ParseColor(hex string) drawing.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return drawing.ColorBlack
	}
	return drawing.ColorFromHex(hex)
}

func px(v float64) int {
	return int(math.Round(v))
}
