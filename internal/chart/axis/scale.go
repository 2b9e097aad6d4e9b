package axis

import "math"

// minDenominator substitutes for a zero-width value range.
const minDenominator = 1e-9

// Margins are the distances between the surface edges and the plot area.
type Margins struct {
	Left   float64 `mapstructure:"left"`
	Right  float64 `mapstructure:"right"`
	Top    float64 `mapstructure:"top"`
	Bottom float64 `mapstructure:"bottom"`
}

// DefaultMargins leaves room for y labels on the left and x labels below.
func DefaultMargins() Margins {
	return Margins{Left: 50, Right: 10, Top: 10, Bottom: 28}
}

// Box is the plot rectangle of a surface. It is rebuilt on every draw from
// the surface's current size.
type Box struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
	Width  float64
	Height float64
}

// NewBox lays out margins on a w x h surface.
func NewBox(w, h float64, m Margins) Box {
	return Box{
		Left:   m.Left,
		Right:  m.Right,
		Top:    m.Top,
		Bottom: m.Bottom,
		Width:  w,
		Height: h,
	}
}

// PlotWidth returns the horizontal extent of the plot area.
func (b Box) PlotWidth() float64 {
	return b.Width - b.Left - b.Right
}

// PlotHeight returns the vertical extent of the plot area.
func (b Box) PlotHeight() float64 {
	return b.Height - b.Top - b.Bottom
}

// PlotRight returns the x coordinate of the plot's right edge.
func (b Box) PlotRight() float64 {
	return b.Width - b.Right
}

// PlotBottom returns the y coordinate of the plot's bottom edge.
func (b Box) PlotBottom() float64 {
	return b.Height - b.Bottom
}

// Degenerate reports whether the plot area has no positive extent.
func (b Box) Degenerate() bool {
	return b.PlotWidth() <= 0 || b.PlotHeight() <= 0
}

// YScale maps values in [min, max] to y pixels, higher values to smaller y.
// The domain is not clamped.
func (b Box) YScale(min, max float64) func(float64) float64 {
	den := math.Max(minDenominator, max-min)
	bottom := b.PlotBottom()
	h := b.PlotHeight()
	return func(v float64) float64 {
		t := (v - min) / den
		return bottom - t*h
	}
}

// YValue is the inverse of YScale.
func (b Box) YValue(min, max, y float64) float64 {
	den := math.Max(minDenominator, max-min)
	h := b.PlotHeight()
	if h == 0 {
		return min
	}
	return min + (b.PlotBottom()-y)/h*den
}

// XScale maps values in [min, max] to x pixels across the plot width.
func (b Box) XScale(min, max float64) func(float64) float64 {
	den := math.Max(minDenominator, max-min)
	left := b.Left
	w := b.PlotWidth()
	return func(v float64) float64 {
		t := (v - min) / den
		return left + t*w
	}
}

// IndexX places index i of n samples linearly across the plot width.
func (b Box) IndexX(i, n int) float64 {
	den := n - 1
	if den < 1 {
		den = 1
	}
	return b.Left + float64(i)/float64(den)*b.PlotWidth()
}

// XFraction converts an x pixel to its fraction of the plot width. Values
// outside [0, 1] lie outside the plot.
func (b Box) XFraction(x float64) float64 {
	w := b.PlotWidth()
	if w <= 0 {
		return math.NaN()
	}
	return (x - b.Left) / w
}
