package analysis

import (
	"fmt"
	"strings"

	"chartlab/internal/analysis/stats"
	"chartlab/internal/errors"
	"chartlab/internal/models"
	"chartlab/pkg/utils"
)

// Regression fits the symbol's daily returns against the benchmark's.
type Regression struct {
	Params Params
}

func (g *Regression) Name() string  { return "regression" }
func (g *Regression) Title() string { return "Regression" }

func (g *Regression) Analyze(in *Input) (*Report, error) {
	r := newReport(g.Name(), g.Title())
	if in.BenchmarkTicker == "" || len(in.Benchmark) == 0 {
		tried := g.Params.Benchmarks
		if len(tried) == 0 {
			tried = DefaultParams().Benchmarks
		}
		r.note(errors.ErrBenchmarkUnavailable,
			fmt.Sprintf("Benchmark unavailable (tried %s)", strings.Join(tried, " and ")))
		return r, nil
	}

	y := stats.ReturnsPct(in.Series.Closes())
	x := stats.ReturnsPct(in.Benchmark.Closes())
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	need := g.Params.MinRegressionObs
	if need <= 0 {
		need = DefaultParams().MinRegressionObs
	}
	if n < need {
		r.note(errors.NewInsufficientDataError("regression", n, need),
			fmt.Sprintf("Not enough overlapping daily observations (need ~%d+, have %d)", need, n))
		return r, nil
	}

	x, y = x[len(x)-n:], y[len(y)-n:]
	fit := stats.LinearRegression(x, y)
	r.Metrics["beta"] = fit.Beta
	r.Metrics["alpha_daily_pct"] = fit.Alpha * 100
	r.Metrics["r2"] = fit.R2
	r.Metrics["observations"] = float64(n)
	r.line("Benchmark used: " + in.BenchmarkTicker)
	r.line("Beta: " + utils.FormatNumber(fit.Beta, 2))
	r.line("Alpha (daily): " + utils.FormatFractionPercent(fit.Alpha))
	r.line("R²: " + utils.FormatFractionPercent(fit.R2))

	r.Plot = Plot{
		Kind:          PlotScatter,
		X:             stats.Scale(x, 100),
		Y:             stats.Scale(y, 100),
		Regression:    &models.RegressionResult{Alpha: fit.Alpha * 100, Beta: fit.Beta, R2: fit.R2},
		SymmetricZero: true,
		XFormat:       FormatPercent,
		YFormat:       FormatPercent,
		XTickCount:    6,
		YTickCount:    5,
	}
	return r, nil
}

var _ Analyzer = (*Regression)(nil)
