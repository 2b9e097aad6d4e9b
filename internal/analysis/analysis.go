// Package analysis derives analytical summaries from a daily price series:
// overview, trend, comparative periods, ratios, variance, regression against
// a benchmark and moving averages.
package analysis

import (
	"time"

	"chartlab/internal/errors"
	"chartlab/internal/models"
)

// Label layouts used by the analyzers.
const (
	LabelMonthYear = "01/06"
	LabelMonthDay  = "01/02"
)

// Input is the immutable data every analyzer reads.
type Input struct {
	Symbol string
	Market models.Market
	// History is the one-year daily series used by the overview.
	History models.Series
	// Series is the long daily series used by every other analyzer.
	Series          models.Series
	Benchmark       models.Series
	BenchmarkTicker string
}

// NewInput combines a long analysis set with a one-year history.
func NewInput(set *models.AnalysisSet, history models.Series) *Input {
	in := &Input{History: history}
	if set != nil {
		in.Symbol = set.Symbol
		in.Market = set.Market
		in.Series = set.Series
		in.Benchmark = set.Benchmark
		in.BenchmarkTicker = set.BenchmarkTicker
	}
	return in
}

// Params tunes the analyzers.
type Params struct {
	MAShort          int
	MALong           int
	MinRegressionObs int
	ZUnusual         float64
	MoMMonths        int
	CrossLookback    int
	Benchmarks       []string
}

// DefaultParams returns the standard analyzer settings.
func DefaultParams() Params {
	return Params{
		MAShort:          50,
		MALong:           200,
		MinRegressionObs: 30,
		ZUnusual:         2,
		MoMMonths:        6,
		CrossLookback:    200,
		Benchmarks:       []string{"I:SPX", "SPY"},
	}
}

// Minimum observation counts for derived metrics.
const (
	MinYoYMonths      = 13
	MinQoQQuarters    = 2
	MinVarianceMonths = 6
)

// PlotKind selects the chart drawn for a report.
type PlotKind string

const (
	PlotNone      PlotKind = ""
	PlotLine      PlotKind = "line"
	PlotMultiLine PlotKind = "multiline"
	PlotScatter   PlotKind = "scatter"
)

// ValueFormat selects how axis and tooltip values are printed.
type ValueFormat string

const (
	FormatNumber  ValueFormat = "number"
	FormatPercent ValueFormat = "percent"
)

// PlotSeries is one line of a plot.
type PlotSeries struct {
	Name   string
	Values []float64
	Color  string
	Width  float64
}

// Plot is the chart a report is shown with.
type Plot struct {
	Kind          PlotKind
	Labels        []string
	Series        []PlotSeries
	X, Y          []float64
	Regression    *models.RegressionResult
	SymmetricZero bool
	XFormat       ValueFormat
	YFormat       ValueFormat
	XTickCount    int
	YTickCount    int
}

// Empty reports whether the plot has nothing to draw.
func (p Plot) Empty() bool {
	switch p.Kind {
	case PlotScatter:
		return len(p.X) == 0
	case PlotLine, PlotMultiLine:
		return len(p.Series) == 0
	}
	return true
}

// Report is the outcome of one analyzer.
type Report struct {
	Name    string             `json:"name"`
	Title   string             `json:"title"`
	Lines   []string           `json:"lines"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Notes   []string           `json:"notes,omitempty"`
	Plot    Plot               `json:"-"`
	// Conditions are reportable errors such as insufficient data. They are
	// shown as explanatory text next to the rest of the report.
	Conditions []error        `json:"-"`
	Duration   time.Duration  `json:"-"`
}

func newReport(name, title string) *Report {
	return &Report{Name: name, Title: title, Metrics: make(map[string]float64)}
}

func (r *Report) line(s string) {
	r.Lines = append(r.Lines, s)
}

// note records a reportable condition.
func (r *Report) note(err error, text string) {
	r.Conditions = append(r.Conditions, err)
	r.Notes = append(r.Notes, text)
}

// HasCondition reports whether any condition matches target.
func (r *Report) HasCondition(target error) bool {
	for _, c := range r.Conditions {
		if errors.Is(c, target) {
			return true
		}
	}
	return false
}

// Analyzer computes one report from an input. Analyzers are pure functions
// of their input and may run concurrently.
type Analyzer interface {
	Name() string
	Title() string
	Analyze(in *Input) (*Report, error)
}

// lastValid returns the last present close of a series.
func lastValid(s models.Series) (models.Sample, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Valid() {
			return s[i], true
		}
	}
	return models.Sample{}, false
}

// firstValid returns the first present close of a series.
func firstValid(s models.Series) (models.Sample, bool) {
	for _, smp := range s {
		if smp.Valid() {
			return smp, true
		}
	}
	return models.Sample{}, false
}

// aboveBelow describes v relative to ref.
func aboveBelow(v, ref float64) string {
	if v >= ref {
		return "above"
	}
	return "below"
}
