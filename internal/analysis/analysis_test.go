package analysis

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"chartlab/internal/errors"
	"chartlab/internal/models"
)

var day0 = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

// daily builds one sample per calendar day starting at day0.
func daily(closes ...float64) models.Series {
	s := make(models.Series, len(closes))
	for i, c := range closes {
		s[i] = models.Sample{Time: day0.AddDate(0, 0, i), Close: c}
	}
	return s
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func hasLine(r *Report, prefix string) bool {
	for _, l := range r.Lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

// twoYears returns 252 samples over 2022 and 2023 with a known last close
// per month: 10 samples in each month of the first year, 11 in the second.
func twoYears() (models.Series, []float64) {
	var s models.Series
	monthClose := make([]float64, 24)
	for m := 0; m < 24; m++ {
		per := 10
		if m >= 12 {
			per = 11
		}
		monthClose[m] = 100 + float64(m)*3 + float64(m%5)
		base := time.Date(2022+m/12, time.Month(m%12+1), 1, 0, 0, 0, 0, time.UTC)
		for d := 0; d < per; d++ {
			c := monthClose[m] - float64(per-1-d)*0.5
			s = append(s, models.Sample{Time: base.AddDate(0, 0, d*2), Close: c})
		}
	}
	return s, monthClose
}

func TestYearOverYearEndToEnd(t *testing.T) {
	series, monthClose := twoYears()
	if len(series) != 252 {
		t.Fatalf("fixture has %d samples, want 252", len(series))
	}

	r, err := (&Trend{Params: DefaultParams()}).Analyze(&Input{Symbol: "TEST", Series: series})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	want := (monthClose[23] - monthClose[11]) / monthClose[11] * 100
	got, ok := r.Metrics["yoy_pct"]
	if !ok {
		t.Fatalf("yoy_pct missing, notes = %v", r.Notes)
	}
	if !near(got, want, 1e-9) {
		t.Errorf("yoy_pct = %v, want %v", got, want)
	}
	if len(r.Plot.Labels) != 24 || r.Plot.Labels[0] != "2022-01" || r.Plot.Labels[23] != "2023-12" {
		t.Errorf("plot labels = %v", r.Plot.Labels)
	}
	if r.Plot.XTickCount != 8 {
		t.Errorf("XTickCount = %d, want 8", r.Plot.XTickCount)
	}
}

func TestYearOverYearInsufficient(t *testing.T) {
	months := make([]models.AggregatedPoint, 12)
	_, err := YearOverYear(months)
	if !errors.Is(err, errors.ErrInsufficientData) {
		t.Fatalf("YearOverYear() error = %v, want ErrInsufficientData", err)
	}
	var ide *errors.InsufficientDataError
	if !errors.As(err, &ide) || ide.Have != 12 || ide.Need != 13 {
		t.Errorf("error = %+v", ide)
	}
}

func TestQuarterOverQuarter(t *testing.T) {
	q := []models.AggregatedPoint{
		{PeriodKey: "2023-Q1", Close: 90},
		{PeriodKey: "2023-Q2", Close: 100},
		{PeriodKey: "2023-Q3", Close: 110},
	}
	got, err := QuarterOverQuarter(q)
	if err != nil {
		t.Fatalf("QuarterOverQuarter() error = %v", err)
	}
	if !near(got, 10, 1e-9) {
		t.Errorf("QuarterOverQuarter() = %v, want 10", got)
	}
	if _, err := QuarterOverQuarter(q[:1]); !errors.Is(err, errors.ErrInsufficientData) {
		t.Errorf("single quarter error = %v", err)
	}
}

func TestMonthOverMonth(t *testing.T) {
	months := make([]models.AggregatedPoint, 8)
	for i := range months {
		months[i] = models.AggregatedPoint{PeriodKey: time.Month(i + 1).String(), Close: float64(100 + i*10)}
	}

	got := MonthOverMonth(months, 6)
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
	if got[0].From != "July" || got[0].To != "August" {
		t.Errorf("newest change = %+v", got[0])
	}
	if !near(got[0].Pct, (170.0-160.0)/160.0*100, 1e-9) {
		t.Errorf("newest pct = %v", got[0].Pct)
	}
	if got[5].To != "March" {
		t.Errorf("oldest change = %+v", got[5])
	}

	if got := MonthOverMonth(months[:3], 6); len(got) != 2 {
		t.Errorf("short input len = %d, want 2", len(got))
	}
	if got := MonthOverMonth(months[:1], 6); len(got) != 0 {
		t.Errorf("single month len = %d, want 0", len(got))
	}
}

func TestPeriodChangesSkipZeroBase(t *testing.T) {
	months := make([]models.AggregatedPoint, 14)
	for i := range months {
		months[i] = models.AggregatedPoint{PeriodKey: fmt.Sprintf("2023-%02d", i+1), Close: float64(100 + i)}
	}
	months[1].Close = 0
	months[12].Close = 0

	yoy, err := YearOverYear(months)
	if !errors.Is(err, errors.ErrZeroBase) || yoy != 0 {
		t.Errorf("YearOverYear() = %v, %v, want ErrZeroBase", yoy, err)
	}
	if !errors.IsReportable(err) {
		t.Error("zero base should be reportable")
	}

	q := []models.AggregatedPoint{{PeriodKey: "2023-Q1", Close: 0}, {PeriodKey: "2023-Q2", Close: 5}}
	if _, err := QuarterOverQuarter(q); !errors.Is(err, errors.ErrZeroBase) {
		t.Errorf("QuarterOverQuarter() error = %v, want ErrZeroBase", err)
	}

	got := MonthOverMonth(months, 13)
	if len(got) != 11 {
		t.Fatalf("len = %d, want 11", len(got))
	}
	for _, ch := range got {
		if math.IsInf(ch.Pct, 0) || math.IsNaN(ch.Pct) {
			t.Errorf("change %s → %s = %v", ch.From, ch.To, ch.Pct)
		}
		if ch.From == "2023-02" || ch.From == "2023-13" {
			t.Errorf("zero-base pair %s → %s reported", ch.From, ch.To)
		}
	}

	r, err := (&Trend{Params: DefaultParams()}).Analyze(&Input{Series: monthlyCloses(months)})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if _, ok := r.Metrics["yoy_pct"]; ok {
		t.Error("yoy_pct present with a zero base")
	}
	if !r.HasCondition(errors.ErrZeroBase) {
		t.Errorf("conditions = %v", r.Conditions)
	}
	for k, v := range r.Metrics {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			t.Errorf("metric %s = %v", k, v)
		}
	}
}

// monthlyCloses builds one sample on the 15th of each month from 2022-01.
func monthlyCloses(months []models.AggregatedPoint) models.Series {
	s := make(models.Series, len(months))
	for i, m := range months {
		s[i] = models.Sample{Time: time.Date(2022, time.Month(i+1), 15, 0, 0, 0, 0, time.UTC), Close: m.Close}
	}
	return s
}

func TestTrendNotesMissingYoY(t *testing.T) {
	r, err := (&Trend{Params: DefaultParams()}).Analyze(&Input{Series: daily(ramp(120, 100, 1)...)})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !r.HasCondition(errors.ErrInsufficientData) {
		t.Error("expected insufficient data condition for YoY")
	}
	if _, ok := r.Metrics["yoy_pct"]; ok {
		t.Error("yoy_pct should be absent")
	}
	if _, ok := r.Metrics["mom_pct"]; !ok {
		t.Error("mom_pct should be present")
	}
}

func TestTrendNoData(t *testing.T) {
	_, err := (&Trend{}).Analyze(&Input{Symbol: "X", Series: daily(models.Missing, models.Missing)})
	if !errors.Is(err, errors.ErrDataNotFound) {
		t.Errorf("error = %v, want ErrDataNotFound", err)
	}
}

func TestComparative(t *testing.T) {
	series, monthClose := twoYears()
	r, err := (&Comparative{}).Analyze(&Input{Series: series})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	// Q3 2023 ends in September, Q4 in December.
	wantQoQ := (monthClose[23] - monthClose[20]) / monthClose[20] * 100
	if !near(r.Metrics["qoq_pct"], wantQoQ, 1e-9) {
		t.Errorf("qoq_pct = %v, want %v", r.Metrics["qoq_pct"], wantQoQ)
	}
	if len(r.Plot.Labels) != 12 || r.Plot.Labels[0] != "2023-01" {
		t.Errorf("labels = %v", r.Plot.Labels)
	}
	if r.Plot.XTickCount != 12 {
		t.Errorf("XTickCount = %d", r.Plot.XTickCount)
	}
}

func TestOverview(t *testing.T) {
	r, err := (&Overview{}).Analyze(&Input{History: daily(100, 110, models.Missing, 120)})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if r.Metrics["price"] != 120 {
		t.Errorf("price = %v", r.Metrics["price"])
	}
	if !near(r.Metrics["change_1y_pct"], 20, 1e-9) {
		t.Errorf("change_1y_pct = %v", r.Metrics["change_1y_pct"])
	}
	if r.Plot.Labels[0] != "01/22" {
		t.Errorf("label = %q, want 01/22", r.Plot.Labels[0])
	}
	if len(r.Plot.Series[0].Values) != 4 {
		t.Error("plot should keep the missing sample as a gap")
	}
}

func TestOverviewFallsBackToSeries(t *testing.T) {
	r, err := (&Overview{}).Analyze(&Input{Series: daily(ramp(300, 1, 1)...)})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got := len(r.Plot.Series[0].Values); got != 252 {
		t.Errorf("plotted %d samples, want 252", got)
	}
}

func TestRatios(t *testing.T) {
	closes := ramp(400, 100, 1)
	r, err := (&Ratios{Params: DefaultParams()}).Analyze(&Input{Series: daily(closes...)})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if r.Metrics["high_52w"] != 499 || r.Metrics["low_52w"] != 135 {
		t.Errorf("52w range = %v..%v", r.Metrics["low_52w"], r.Metrics["high_52w"])
	}
	if r.Metrics["price_to_high"] != 1 {
		t.Errorf("price_to_high = %v", r.Metrics["price_to_high"])
	}
	ma50 := 499 - 24.5
	if !near(r.Metrics["price_to_ma50"], 499/ma50, 1e-9) {
		t.Errorf("price_to_ma50 = %v", r.Metrics["price_to_ma50"])
	}
	if !hasLine(r, "Price / MA200") {
		t.Errorf("lines = %v", r.Lines)
	}
	if len(r.Plot.Labels) != 365 || r.Plot.Labels[0] != "02/07" {
		t.Errorf("labels len=%d first=%q", len(r.Plot.Labels), r.Plot.Labels[0])
	}
}

func TestRatiosShortSeries(t *testing.T) {
	r, err := (&Ratios{Params: DefaultParams()}).Analyze(&Input{Series: daily(ramp(30, 10, 1)...)})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(r.Conditions) != 2 {
		t.Fatalf("conditions = %v, want MA50 and MA200", r.Conditions)
	}
	if !r.HasCondition(errors.ErrInsufficientData) {
		t.Error("expected insufficient data")
	}
}

func TestVariance(t *testing.T) {
	series, monthClose := twoYears()
	r, err := (&Variance{Params: DefaultParams()}).Analyze(&Input{Series: series})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	latest := (monthClose[23] - monthClose[22]) / monthClose[22] * 100
	if !near(r.Metrics["latest_pct"], latest, 1e-9) {
		t.Errorf("latest_pct = %v, want %v", r.Metrics["latest_pct"], latest)
	}
	if len(r.Plot.Labels) != 23 || r.Plot.Labels[0] != "2022-02" {
		t.Errorf("labels = %v", r.Plot.Labels)
	}
	if r.Plot.YFormat != FormatPercent {
		t.Errorf("YFormat = %v", r.Plot.YFormat)
	}
	if !near(r.Plot.Series[0].Values[22], latest, 1e-9) {
		t.Errorf("plotted latest = %v", r.Plot.Series[0].Values[22])
	}
}

func TestVarianceUnusualMonth(t *testing.T) {
	var s models.Series
	for m := 0; m < 12; m++ {
		c := 100 + float64(m%2)
		if m == 11 {
			c = 150
		}
		s = append(s, models.Sample{Time: time.Date(2023, time.Month(m+1), 15, 0, 0, 0, 0, time.UTC), Close: c})
	}
	r, err := (&Variance{Params: DefaultParams()}).Analyze(&Input{Series: s})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if math.Abs(r.Metrics["z"]) < 2 {
		t.Fatalf("z = %v, want |z| >= 2", r.Metrics["z"])
	}
	if !hasLine(r, "z-score") || !strings.Contains(r.Lines[len(r.Lines)-1], "unusual") {
		t.Errorf("lines = %v", r.Lines)
	}
}

func TestVarianceInsufficient(t *testing.T) {
	r, err := (&Variance{}).Analyze(&Input{Series: daily(ramp(100, 1, 1)...)})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !r.HasCondition(errors.ErrInsufficientData) || !r.Plot.Empty() {
		t.Errorf("report = %+v", r)
	}
}

// compounded builds closes whose daily returns are exactly rets.
func compounded(start float64, rets []float64) []float64 {
	out := []float64{start}
	for _, r := range rets {
		out = append(out, out[len(out)-1]*(1+r))
	}
	return out
}

func TestRegressionRecoversFit(t *testing.T) {
	n := 60
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = 0.01 * math.Sin(float64(i))
		y[i] = 0.001 + 1.5*x[i]
	}
	in := &Input{
		Series:          daily(compounded(50, y)...),
		Benchmark:       daily(compounded(4000, x)...),
		BenchmarkTicker: "I:SPX",
	}

	r, err := (&Regression{Params: DefaultParams()}).Analyze(in)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !near(r.Metrics["beta"], 1.5, 1e-6) {
		t.Errorf("beta = %v, want 1.5", r.Metrics["beta"])
	}
	if !near(r.Metrics["alpha_daily_pct"], 0.1, 1e-6) {
		t.Errorf("alpha = %v, want 0.1", r.Metrics["alpha_daily_pct"])
	}
	if !near(r.Metrics["r2"], 1, 1e-6) {
		t.Errorf("r2 = %v, want 1", r.Metrics["r2"])
	}
	if r.Lines[0] != "Benchmark used: I:SPX" {
		t.Errorf("first line = %q", r.Lines[0])
	}
	p := r.Plot
	if p.Kind != PlotScatter || !p.SymmetricZero || p.Regression == nil || len(p.X) != n {
		t.Fatalf("plot = %+v", p)
	}
	if !near(p.X[1], x[1]*100, 1e-9) || !near(p.Regression.Alpha, 0.1, 1e-6) {
		t.Errorf("scatter not scaled to percent: x=%v alpha=%v", p.X[1], p.Regression.Alpha)
	}
}

func TestRegressionBenchmarkUnavailable(t *testing.T) {
	r, err := (&Regression{Params: DefaultParams()}).Analyze(&Input{Series: daily(ramp(100, 1, 1)...)})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !r.HasCondition(errors.ErrBenchmarkUnavailable) {
		t.Fatal("expected benchmark unavailable")
	}
	if r.HasCondition(errors.ErrInsufficientData) {
		t.Error("benchmark unavailable must not read as insufficient data")
	}
	if r.Notes[0] != "Benchmark unavailable (tried I:SPX and SPY)" {
		t.Errorf("note = %q", r.Notes[0])
	}
}

func TestRegressionInsufficientOverlap(t *testing.T) {
	in := &Input{
		Series:          daily(ramp(100, 1, 1)...),
		Benchmark:       daily(ramp(21, 1, 1)...),
		BenchmarkTicker: "SPY",
	}
	r, err := (&Regression{Params: DefaultParams()}).Analyze(in)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	var ide *errors.InsufficientDataError
	if !errors.As(r.Conditions[0], &ide) || ide.Have != 20 || ide.Need != 30 {
		t.Errorf("condition = %v", r.Conditions)
	}
	if r.Notes[0] != "Not enough overlapping daily observations (need ~30+, have 20)" {
		t.Errorf("note = %q", r.Notes[0])
	}
}

func TestLastCross(t *testing.T) {
	m := models.Missing
	short := []float64{m, 1, 2, 3, 4, 3, 2}
	long := []float64{m, m, 3, 3.5, 3, 3.1, 3.2}

	got := LastCross(short, long, 0)
	if got.Kind != CrossDeath || got.Index != 5 {
		t.Errorf("LastCross() = %+v, want death at 5", got)
	}
	if got := LastCross(short[:5], long[:5], 0); got.Kind != CrossGolden || got.Index != 4 {
		t.Errorf("LastCross(prefix) = %+v, want golden at 4", got)
	}
	if got := LastCross(short, long, 2); got.Kind != CrossNone || got.Index != -1 {
		t.Errorf("LastCross(lookback 2) = %+v, want none", got)
	}
}

func TestMovingAverage(t *testing.T) {
	closes := append(ramp(220, 300, -1), ramp(60, 81, 3)...)
	r, err := (&MovingAverage{Params: DefaultParams()}).Analyze(&Input{Series: daily(closes...)})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(r.Plot.Series) != 3 {
		t.Fatalf("series = %d, want 3", len(r.Plot.Series))
	}
	colors := []string{"#0a7", "#999", "#555"}
	for i, s := range r.Plot.Series {
		if s.Color != colors[i] || len(s.Values) != len(closes) {
			t.Errorf("series %d = %s len %d", i, s.Color, len(s.Values))
		}
	}
	if !hasLine(r, "Last golden cross") {
		t.Errorf("lines = %v", r.Lines)
	}
	if !hasLine(r, "Price vs MA200: above") {
		t.Errorf("lines = %v", r.Lines)
	}
}

func TestMovingAverageShortSeries(t *testing.T) {
	r, err := (&MovingAverage{Params: DefaultParams()}).Analyze(&Input{Series: daily(ramp(60, 1, 1)...)})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(r.Conditions) != 1 || r.Notes[0] != "MA200: not enough data" {
		t.Errorf("notes = %v", r.Notes)
	}
	if !hasLine(r, "No golden/death cross") {
		t.Errorf("lines = %v", r.Lines)
	}
}
