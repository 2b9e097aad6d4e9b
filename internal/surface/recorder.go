package surface

import (
	"chartlab/internal/chart/render"
)

// Point is a path vertex.
type Point struct {
	X, Y float64
}

// Stroke is one stroked path with the style active when it was drawn.
type Stroke struct {
	Color    string
	Width    float64
	Subpaths [][]Point
}

// Text is one FillText call.
type Text struct {
	Text     string
	X, Y     float64
	Color    string
	Align    render.Align
	Baseline render.Baseline
}

// Rect is one FillRect call.
type Rect struct {
	X, Y, W, H float64
	Color      string
}

// Recorder is a render.Target that keeps every drawing call in memory.
type Recorder struct {
	Events

	W, H float64

	Clears  int
	Strokes []Stroke
	Texts   []Text
	Rects   []Rect

	stroke   string
	fill     string
	width    float64
	align    render.Align
	baseline render.Baseline
	path     [][]Point
}

// NewRecorder creates a recorder reporting the given size.
func NewRecorder(w, h float64) *Recorder {
	return &Recorder{W: w, H: h, width: 1}
}

func (r *Recorder) Size() (float64, float64) { return r.W, r.H }

// Resize changes the reported size.
func (r *Recorder) Resize(w, h float64) {
	r.W, r.H = w, h
}

// Clear discards everything drawn so far.
func (r *Recorder) Clear() {
	r.Clears++
	r.Strokes = nil
	r.Texts = nil
	r.Rects = nil
	r.path = nil
}

func (r *Recorder) SetStrokeColor(hex string) { r.stroke = hex }
func (r *Recorder) SetFillColor(hex string)   { r.fill = hex }
func (r *Recorder) SetLineWidth(w float64)    { r.width = w }

func (r *Recorder) SetTextAlign(align render.Align, baseline render.Baseline) {
	r.align, r.baseline = align, baseline
}

func (r *Recorder) MoveTo(x, y float64) {
	r.path = append(r.path, []Point{{x, y}})
}

func (r *Recorder) LineTo(x, y float64) {
	if len(r.path) == 0 {
		r.MoveTo(x, y)
		return
	}
	last := len(r.path) - 1
	r.path[last] = append(r.path[last], Point{x, y})
}

func (r *Recorder) Stroke() {
	if len(r.path) > 0 {
		r.Strokes = append(r.Strokes, Stroke{Color: r.stroke, Width: r.width, Subpaths: r.path})
	}
	r.path = nil
}

func (r *Recorder) FillRect(x, y, w, h float64) {
	r.Rects = append(r.Rects, Rect{X: x, Y: y, W: w, H: h, Color: r.fill})
}

func (r *Recorder) FillText(text string, x, y float64) {
	r.Texts = append(r.Texts, Text{Text: text, X: x, Y: y, Color: r.fill, Align: r.align, Baseline: r.baseline})
}

// StrokesByColor returns the strokes drawn in color.
func (r *Recorder) StrokesByColor(color string) []Stroke {
	var out []Stroke
	for _, s := range r.Strokes {
		if s.Color == color {
			out = append(out, s)
		}
	}
	return out
}

// TextValues returns the drawn strings in order.
func (r *Recorder) TextValues() []string {
	out := make([]string, len(r.Texts))
	for i, t := range r.Texts {
		out[i] = t.Text
	}
	return out
}

// Empty reports whether nothing is currently drawn.
func (r *Recorder) Empty() bool {
	return len(r.Strokes) == 0 && len(r.Texts) == 0 && len(r.Rects) == 0
}
