package surface

import (
	"io"
	"path/filepath"
	"strings"

	"chartlab/internal/chart/render"
	"chartlab/internal/errors"
)

// Format is an output image format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// Surface is a drawing target that accepts replayed pointer events and can
// be encoded to an image.
type Surface interface {
	render.Target
	render.EventSource
	Dispatch(ev render.Event)
	Encode(w io.Writer) error
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "png":
		return FormatPNG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", errors.NewValidationError("out", path, "output must end in .png or .svg")
}

// New creates a surface of the given format and size.
func New(format Format, w, h int) (Surface, error) {
	switch format {
	case FormatPNG:
		return NewRaster(w, h), nil
	case FormatSVG:
		return NewVector(w, h)
	}
	return nil, errors.NewValidationError("format", string(format), "unsupported surface format")
}
