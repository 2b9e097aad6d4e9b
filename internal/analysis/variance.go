package analysis

import (
	"fmt"
	"math"

	"chartlab/internal/analysis/resample"
	"chartlab/internal/analysis/stats"
	"chartlab/internal/errors"
	"chartlab/pkg/utils"
)

// Variance reports the distribution of monthly returns and how unusual the
// latest month is.
type Variance struct {
	Params Params
}

func (v *Variance) Name() string  { return "variance" }
func (v *Variance) Title() string { return "Variance" }

func (v *Variance) Analyze(in *Input) (*Report, error) {
	months := resample.ToMonthly(in.Series)
	r := newReport(v.Name(), v.Title())
	if len(months) < MinVarianceMonths {
		r.note(errors.NewInsufficientDataError("monthly returns", len(months), MinVarianceMonths),
			fmt.Sprintf("Not enough monthly data (have %d months, need %d)", len(months), MinVarianceMonths))
		return r, nil
	}

	// Returns stay paired with the month they end in.
	var labels []string
	var returns []float64
	for i := 1; i < len(months); i++ {
		prev := months[i-1].Close
		if prev == 0 {
			continue
		}
		labels = append(labels, months[i].PeriodKey)
		returns = append(returns, (months[i].Close-prev)/prev)
	}
	if len(returns) == 0 {
		return nil, errors.NewDataError("monthly returns", in.Symbol, "no computable returns", errors.ErrDataNotFound)
	}

	mean, sd := stats.MeanStdDev(returns)
	latest := returns[len(returns)-1]
	z := stats.ZScore(latest, mean, sd)
	threshold := v.Params.ZUnusual
	if threshold <= 0 {
		threshold = DefaultParams().ZUnusual
	}

	r.Metrics["mean_pct"] = mean * 100
	r.Metrics["sd_pct"] = sd * 100
	r.Metrics["latest_pct"] = latest * 100
	r.Metrics["z"] = z
	r.line("Mean monthly return: " + utils.FormatFractionPercent(mean))
	r.line("Std dev: " + utils.FormatFractionPercent(sd))
	r.line(fmt.Sprintf("Latest month (%s): %s", labels[len(labels)-1], utils.FormatFractionPercent(latest)))
	verdict := "within normal range"
	if math.Abs(z) >= threshold {
		verdict = "unusual"
	}
	r.line(fmt.Sprintf("z-score: %s (%s)", utils.FormatNumber(z, 2), verdict))

	r.Plot = Plot{
		Kind:       PlotLine,
		Labels:     labels,
		Series:     []PlotSeries{{Name: "Monthly return", Values: stats.Scale(returns, 100)}},
		YFormat:    FormatPercent,
		XTickCount: 8,
		YTickCount: 5,
	}
	return r, nil
}

var _ Analyzer = (*Variance)(nil)
