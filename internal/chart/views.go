package chart

import (
	"chartlab/internal/analysis"
	"chartlab/internal/chart/render"
	"chartlab/internal/errors"
	"chartlab/pkg/utils"
)

// Views are the analysis views that can be charted, in display order.
var Views = []string{"overview", "trend", "comparative", "ratios", "variance", "regression", "movingavg"}

// ValidView returns ErrUnknownChart for names not in Views.
func ValidView(name string) error {
	for _, v := range Views {
		if v == name {
			return nil
		}
	}
	return errors.Wrapf(errors.ErrUnknownChart, "view %q", name)
}

// Formatter returns the axis and tooltip formatter for a value format.
func Formatter(f analysis.ValueFormat) render.Formatter {
	switch f {
	case analysis.FormatPercent:
		return func(v float64) string { return utils.FormatNumber(v, 2) + "%" }
	default:
		return func(v float64) string { return utils.FormatNumber(v, 6) }
	}
}

// PlotOptions converts a plot's presentation settings to draw options.
func PlotOptions(p analysis.Plot) render.Options {
	return render.Options{
		YTickCount:    p.YTickCount,
		XTickCount:    p.XTickCount,
		YFormatter:    Formatter(p.YFormat),
		XFormatter:    Formatter(p.XFormat),
		SymmetricZero: p.SymmetricZero,
		Regression:    p.Regression,
	}
}

// FromReport builds the chart for an analysis report.
func FromReport(r *analysis.Report, opts ...Option) (*Chart, error) {
	if r == nil {
		return nil, errors.Wrap(errors.ErrUnknownChart, "nil report")
	}
	return FromPlot(r.Name, r.Plot, opts...)
}

// FromPlot builds a chart for p. Options given here are applied after the
// plot's own, so WithOptions replaces the plot's formatters.
func FromPlot(id string, p analysis.Plot, opts ...Option) (*Chart, error) {
	all := append([]Option{WithID(id), WithOptions(PlotOptions(p))}, opts...)

	switch p.Kind {
	case analysis.PlotScatter:
		return NewScatter(p.X, p.Y, all...), nil
	case analysis.PlotLine, analysis.PlotMultiLine:
		lines := make([]render.Line, len(p.Series))
		for i, s := range p.Series {
			lines[i] = render.Line{Name: s.Name, Values: s.Values, Color: s.Color, Width: s.Width}
		}
		if p.Kind == analysis.PlotLine && len(lines) == 1 {
			c := newChart(KindLine, all)
			c.Load(lines, p.Labels)
			return c, nil
		}
		return NewMultiLine(lines, p.Labels, all...), nil
	}
	return nil, errors.Wrapf(errors.ErrUnknownChart, "%s has no plot", id)
}
