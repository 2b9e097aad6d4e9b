package stats

import (
	"math"
	"testing"

	"chartlab/internal/models"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	if models.IsMissing(a) || models.IsMissing(b) {
		return models.IsMissing(a) && models.IsMissing(b)
	}
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Abs(b))
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{models.Missing, models.Missing, 2, 3, 4}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("SMA[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSMARestartsAfterGap(t *testing.T) {
	m := models.Missing
	got := SMA([]float64{1, 2, m, 4, 5, 6, 7}, 3)
	want := []float64{m, m, m, m, m, 5, 6}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("SMA[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSMAVariantsAgree(t *testing.T) {
	clean := make([]float64, 400)
	for i := range clean {
		clean[i] = 100 + 10*math.Sin(float64(i)/7) + float64(i)*0.05
	}
	gapped := append([]float64(nil), clean...)
	const gap = 250
	gapped[gap] = models.Missing

	for _, window := range []int{50, 200} {
		for name, values := range map[string][]float64{"clean": clean, "gapped": gapped} {
			running := SMA(values, window)
			direct := SMAWindow(values, window)
			if len(running) != len(values) || len(direct) != len(values) {
				t.Fatalf("%s window %d: lengths differ", name, window)
			}
			for i := range values {
				if models.IsMissing(running[i]) != models.IsMissing(direct[i]) {
					t.Fatalf("%s window %d: presence differs at %d", name, window, i)
				}
				if !models.IsMissing(running[i]) && math.Abs(running[i]-direct[i]) > 1e-8 {
					t.Fatalf("%s window %d: values differ at %d: %v vs %v", name, window, i, running[i], direct[i])
				}
			}
		}

		sma := SMA(clean, window)
		if models.IsMissing(sma[window-1]) {
			t.Errorf("window %d: expected first value at index %d", window, window-1)
		}
		if !models.IsMissing(sma[window-2]) {
			t.Errorf("window %d: expected no value before index %d", window, window-1)
		}
		for i := window - 1; i < len(clean); i++ {
			if models.IsMissing(sma[i]) {
				t.Fatalf("window %d: missing value at %d on a gap-free series", window, i)
			}
		}

		// A gap empties the next window-1 positions; earlier values are untouched.
		withGap := SMA(gapped, window)
		for i := window - 1; i < gap; i++ {
			if !almostEqual(withGap[i], sma[i]) {
				t.Fatalf("window %d: value before gap changed at %d", window, i)
			}
		}
		restart := gap + window
		for i := gap; i < restart && i < len(gapped); i++ {
			if !models.IsMissing(withGap[i]) {
				t.Fatalf("window %d: expected no value at %d after gap", window, i)
			}
		}
		if restart < len(gapped) && !almostEqual(withGap[restart], sma[restart]) {
			t.Errorf("window %d: SMA[%d] = %v after restart, want %v", window, restart, withGap[restart], sma[restart])
		}
	}
}

func TestSMAInvalidWindow(t *testing.T) {
	for _, v := range SMA([]float64{1, 2, 3}, 0) {
		if !models.IsMissing(v) {
			t.Fatalf("window 0 should produce only missing values")
		}
	}
}

func TestReturnsPct(t *testing.T) {
	got := ReturnsPct([]float64{100, 110, models.Missing, 121})
	if len(got) != 1 {
		t.Fatalf("expected one surviving pair, got %v", got)
	}
	if !almostEqual(got[0], 0.10) {
		t.Errorf("return = %v, want 0.10", got[0])
	}

	if got := ReturnsPct([]float64{0, 5, 10}); len(got) != 1 || !almostEqual(got[0], 1) {
		t.Errorf("zero previous value should be skipped, got %v", got)
	}
}

func TestCovVar(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}
	cv := CovVar(x, y)
	if !almostEqual(cv.VarX, 5.0/3.0) {
		t.Errorf("VarX = %v, want %v", cv.VarX, 5.0/3.0)
	}
	if !almostEqual(cv.Cov, 10.0/3.0) {
		t.Errorf("Cov = %v, want %v", cv.Cov, 10.0/3.0)
	}
	if !almostEqual(cv.MeanX, 2.5) || !almostEqual(cv.MeanY, 5) {
		t.Errorf("means = %v, %v", cv.MeanX, cv.MeanY)
	}
}

func TestCovVarUsesTrailingElements(t *testing.T) {
	x := []float64{99, 99, 1, 2, 3}
	y := []float64{1, 2, 3}
	if cv := CovVar(x, y); !almostEqual(cv.MeanX, 2) {
		t.Errorf("MeanX = %v, want trailing mean 2", cv.MeanX)
	}
}

func TestCovVarTooShort(t *testing.T) {
	if cv := CovVar([]float64{1}, []float64{2}); cv != (CovVarResult{}) {
		t.Errorf("expected zero result, got %+v", cv)
	}
}

func TestLinearRegressionRoundTrip(t *testing.T) {
	x := make([]float64, 50)
	y := make([]float64, 50)
	for i := range x {
		x[i] = float64(i) * 0.3
		y[i] = 2*x[i] + 1
	}

	r := LinearRegression(x, y)
	if !almostEqual(r.Beta, 2) || !almostEqual(r.Alpha, 1) || !almostEqual(r.R2, 1) {
		t.Errorf("regression = %+v, want beta=2 alpha=1 r2=1", r)
	}
}

func TestLinearRegressionZeroVariance(t *testing.T) {
	r := LinearRegression([]float64{3, 3, 3}, []float64{1, 2, 3})
	if r.Beta != 0 {
		t.Errorf("beta = %v, want 0", r.Beta)
	}
	if !almostEqual(r.Alpha, 2) {
		t.Errorf("alpha = %v, want mean(y) = 2", r.Alpha)
	}
}

func TestRSquaredConstantY(t *testing.T) {
	if r2 := RSquared([]float64{1, 2, 3}, []float64{4, 4, 4}, 0, 4); r2 != 0 {
		t.Errorf("constant y should yield 0, got %v", r2)
	}
}

func TestMeanStdDevAndZScore(t *testing.T) {
	mean, sd := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if !almostEqual(mean, 5) {
		t.Errorf("mean = %v, want 5", mean)
	}
	if !almostEqual(sd, math.Sqrt(32.0/7.0)) {
		t.Errorf("sd = %v, want %v", sd, math.Sqrt(32.0/7.0))
	}
	if z := ZScore(9, mean, sd); !almostEqual(z, 4/sd) {
		t.Errorf("z = %v", z)
	}
	if z := ZScore(1, 1, 0); z != 0 {
		t.Errorf("zero sd should give z=0, got %v", z)
	}
	if _, sd := MeanStdDev([]float64{3}); sd != 0 {
		t.Errorf("single value sd = %v, want 0", sd)
	}
}

func TestExtent(t *testing.T) {
	min, max, ok := Extent([]float64{models.Missing, 3, -1, models.Missing, 8})
	if !ok || min != -1 || max != 8 {
		t.Errorf("Extent = %v, %v, %v", min, max, ok)
	}
	if _, _, ok := Extent([]float64{models.Missing}); ok {
		t.Error("all-missing input should report !ok")
	}
}

func TestPctChange(t *testing.T) {
	if got, ok := PctChange(80, 100); !ok || !almostEqual(got, 25) {
		t.Errorf("PctChange = %v, %v, want 25", got, ok)
	}
	for _, tc := range [][2]float64{{0, 100}, {0, 0}, {models.Missing, 1}, {1, models.Missing}} {
		if got, ok := PctChange(tc[0], tc[1]); ok || got != 0 {
			t.Errorf("PctChange(%v, %v) = %v, %v, want 0, false", tc[0], tc[1], got, ok)
		}
	}
}
