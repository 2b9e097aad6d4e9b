// Package render draws line, multi-line and scatter charts with axes onto an
// abstract drawing surface.
package render

// Align is the horizontal anchor of text relative to its x coordinate.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Baseline is the vertical anchor of text relative to its y coordinate.
type Baseline int

const (
	BaselineAlphabetic Baseline = iota
	BaselineMiddle
	BaselineTop
)

// Target is a rectangular drawing surface. Paths accumulate between MoveTo
// and Stroke; Stroke draws and then discards the current path. Colors are
// hex strings such as "#0a7".
type Target interface {
	Size() (w, h float64)
	Clear()
	SetStrokeColor(hex string)
	SetFillColor(hex string)
	SetLineWidth(w float64)
	SetTextAlign(align Align, baseline Baseline)
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke()
	FillRect(x, y, w, h float64)
	FillText(text string, x, y float64)
}

// EventKind identifies a pointer event.
type EventKind int

const (
	EventMove EventKind = iota
	EventWheel
	EventDoubleClick
	EventLeave
)

func (k EventKind) String() string {
	switch k {
	case EventMove:
		return "move"
	case EventWheel:
		return "wheel"
	case EventDoubleClick:
		return "dblclick"
	case EventLeave:
		return "leave"
	}
	return "unknown"
}

// Event is a pointer event in surface pixel coordinates. DeltaY is set for
// wheel events; positive values scroll down.
type Event struct {
	Kind   EventKind
	X      float64
	Y      float64
	DeltaY float64
}

// EventSource delivers pointer events for a surface. Subscribe returns a
// function that removes the handler.
type EventSource interface {
	Subscribe(handler func(Event)) (unsubscribe func())
}

// Formatter turns a number into display text.
type Formatter func(float64) string
