package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"chartlab/internal/errors"
	"chartlab/pkg/utils"
)

// FormatChange formats a percent change with sign.
func FormatChange(pct float64) string {
	if math.IsNaN(pct) {
		return "n/a"
	}
	return utils.FormatPercent(pct)
}

// FormatDate formats a date in UTC.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// GestureKind is a replayed pointer gesture.
type GestureKind string

const (
	GestureZoomIn  GestureKind = "in"
	GestureZoomOut GestureKind = "out"
	GestureHover   GestureKind = "hover"
	GestureReset   GestureKind = "reset"
	GestureLeave   GestureKind = "leave"
)

// Gesture is a gesture at a fraction of the plot width.
type Gesture struct {
	Kind GestureKind
	Frac float64
}

func (g Gesture) String() string {
	switch g.Kind {
	case GestureReset, GestureLeave:
		return string(g.Kind)
	}
	return string(g.Kind) + "@" + strconv.FormatFloat(g.Frac, 'f', -1, 64)
}

// ParseGestures parses a comma-separated list such as "in@0.7,out@0.2,reset".
// Fractions must lie in [0, 1]; a missing fraction means the plot center.
func ParseGestures(list string) ([]Gesture, error) {
	var out []Gesture
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, frac, hasFrac := strings.Cut(part, "@")
		g := Gesture{Kind: GestureKind(strings.ToLower(name)), Frac: 0.5}
		switch g.Kind {
		case GestureZoomIn, GestureZoomOut, GestureHover:
		case GestureReset, GestureLeave:
			if hasFrac {
				return nil, errors.NewValidationError("gesture", part, string(g.Kind)+" takes no position")
			}
		default:
			return nil, errors.NewValidationError("gesture", part, "expected in, out, hover, reset or leave")
		}
		if hasFrac {
			v, err := strconv.ParseFloat(frac, 64)
			if err != nil || v < 0 || v > 1 {
				return nil, errors.NewValidationError("gesture", part, "position must be a fraction in [0, 1]")
			}
			g.Frac = v
		}
		out = append(out, g)
	}
	return out, nil
}
