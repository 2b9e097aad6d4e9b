package render_test

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartlab/internal/chart/render"
	"chartlab/internal/models"
	"chartlab/internal/surface"
)

func labels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("L%d", i)
	}
	return out
}

func TestDrawLineEmptyClearsSurface(t *testing.T) {
	rec := surface.NewRecorder(400, 200)
	r := render.DefaultRenderer()

	layout := r.DrawLine(rec, nil, nil, render.Options{})
	assert.True(t, layout.Empty)
	assert.Equal(t, 1, rec.Clears)
	assert.True(t, rec.Empty())

	m := models.Missing
	layout = r.DrawLine(rec, []float64{m, m, m}, labels(3), render.Options{})
	assert.True(t, layout.Empty)
	assert.Equal(t, 2, rec.Clears)
	assert.True(t, rec.Empty())
}

func TestDrawLineBreaksAtMissing(t *testing.T) {
	rec := surface.NewRecorder(400, 200)
	r := render.DefaultRenderer()

	values := []float64{1, 2, models.Missing, 4, 5}
	layout := r.DrawLine(rec, values, labels(len(values)), render.Options{})
	require.False(t, layout.Empty)

	lines := rec.StrokesByColor("#0a7")
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Subpaths, 2)
	assert.Len(t, lines[0].Subpaths[0], 2)
	assert.Len(t, lines[0].Subpaths[1], 2)
	assert.Equal(t, 2.0, lines[0].Width)
}

func TestDrawLineIndexSpacing(t *testing.T) {
	// Plot width is 160 - 50 - 10 = 100.
	rec := surface.NewRecorder(160, 100)
	r := render.DefaultRenderer()

	r.DrawLine(rec, []float64{3, 1, 2}, labels(3), render.Options{})
	lines := rec.StrokesByColor("#0a7")
	require.Len(t, lines, 1)
	pts := lines[0].Subpaths[0]
	require.Len(t, pts, 3)
	assert.InDelta(t, 50, pts[0].X, 1e-9)
	assert.InDelta(t, 100, pts[1].X, 1e-9)
	assert.InDelta(t, 150, pts[2].X, 1e-9)
	assert.Less(t, pts[0].Y, pts[2].Y, "higher values sit higher on the surface")
}

func TestDrawLineAlwaysDrawsLastLabel(t *testing.T) {
	rec := surface.NewRecorder(600, 300)
	r := render.DefaultRenderer()

	lbls := labels(14)
	values := make([]float64, len(lbls))
	for i := range values {
		values[i] = float64(i)
	}

	layout := r.DrawLine(rec, values, lbls, render.Options{})
	// 14 labels with 6 ticks gives a stride of 2; index 13 is appended.
	assert.Equal(t, []int{0, 2, 4, 6, 8, 10, 12, 13}, layout.XLabels)
	assert.Contains(t, rec.TextValues(), "L13")
}

func TestDrawLineUsesInjectedFormatter(t *testing.T) {
	rec := surface.NewRecorder(400, 200)
	r := render.DefaultRenderer()

	layout := r.DrawLine(rec, []float64{10, 20}, labels(2), render.Options{
		YFormatter: func(v float64) string { return fmt.Sprintf("$%.0f", v) },
	})
	for _, tick := range layout.YTicks.Ticks {
		assert.Contains(t, rec.TextValues(), fmt.Sprintf("$%.0f", tick))
	}
	for _, txt := range rec.Texts {
		if txt.Align == render.AlignRight {
			assert.Equal(t, render.BaselineMiddle, txt.Baseline)
			assert.Equal(t, 44.0, txt.X)
		}
	}
}

func TestDrawMultiLineSharedRange(t *testing.T) {
	rec := surface.NewRecorder(400, 200)
	r := render.DefaultRenderer()

	layout := r.DrawMultiLine(rec, []render.Line{
		{Name: "price", Values: []float64{1, 2, 3}},
		{Name: "ma", Values: []float64{models.Missing, 10, 20}, Width: 1},
	}, labels(3), render.Options{})

	require.False(t, layout.Empty)
	assert.LessOrEqual(t, layout.YTicks.Min, 1.0)
	assert.GreaterOrEqual(t, layout.YTicks.Max, 20.0)

	primary := rec.StrokesByColor("#0a7")
	secondary := rec.StrokesByColor("#555")
	require.Len(t, primary, 1)
	require.Len(t, secondary, 1)
	assert.Equal(t, 1.0, secondary[0].Width)
	assert.Len(t, secondary[0].Subpaths[0], 2)
}

func TestDrawScatterSymmetricZero(t *testing.T) {
	rec := surface.NewRecorder(400, 300)
	r := render.DefaultRenderer()

	xs := []float64{-0.01, 0.03, 0.01, models.Missing}
	ys := []float64{0.02, -0.01, 0.005, 0.01}
	layout := r.DrawScatter(rec, xs, ys, render.Options{SymmetricZero: true})

	require.False(t, layout.Empty)
	assert.InDelta(t, -layout.XTicks.Max, layout.XTicks.Min, 1e-12)
	assert.InDelta(t, -layout.YTicks.Max, layout.YTicks.Min, 1e-12)
	require.Len(t, rec.Rects, 3, "pair with a missing coordinate is skipped")
	for _, rect := range rec.Rects {
		assert.Equal(t, "#999", rect.Color)
		assert.Equal(t, 2.0, rect.W)
	}
}

func TestDrawScatterRegressionOverlay(t *testing.T) {
	rec := surface.NewRecorder(400, 300)
	r := render.DefaultRenderer()

	xs := []float64{0, 1, 2, 3}
	ys := []float64{1, 3, 5, 7}
	reg := &models.RegressionResult{Alpha: 1, Beta: 2, R2: 1}
	layout := r.DrawScatter(rec, xs, ys, render.Options{Regression: reg})

	lines := rec.StrokesByColor("#0a7")
	require.Len(t, lines, 1)
	pts := lines[0].Subpaths[0]
	require.Len(t, pts, 2)

	xScale, yScale := layout.XScale(), layout.YScale()
	assert.InDelta(t, xScale(layout.XTicks.Min), pts[0].X, 1e-9)
	assert.InDelta(t, xScale(layout.XTicks.Max), pts[1].X, 1e-9)
	assert.InDelta(t, yScale(1+2*layout.XTicks.Min), pts[0].Y, 1e-9)
	assert.InDelta(t, yScale(1+2*layout.XTicks.Max), pts[1].Y, 1e-9)
}

func TestDrawZeroSizedTarget(t *testing.T) {
	rec := surface.NewRecorder(0, 0)
	r := render.DefaultRenderer()

	assert.True(t, r.DrawLine(rec, []float64{1, 2, 3}, labels(3), render.Options{}).Empty)
	assert.True(t, r.DrawScatter(rec, []float64{1, 2}, []float64{1, 2}, render.Options{}).Empty)
	assert.True(t, rec.Empty())
}

func TestRedrawAfterResize(t *testing.T) {
	rec := surface.NewRecorder(400, 200)
	r := render.DefaultRenderer()

	first := r.DrawLine(rec, []float64{1, 2, 3}, labels(3), render.Options{})
	rec.Resize(800, 400)
	second := r.DrawLine(rec, []float64{1, 2, 3}, labels(3), render.Options{})

	assert.Equal(t, 400.0, first.Box.Width)
	assert.Equal(t, 800.0, second.Box.Width)
	pts := rec.StrokesByColor("#0a7")[0].Subpaths[0]
	assert.InDelta(t, 790, pts[2].X, 1e-9)
}

// Property: every vertex of a drawn line lies inside the plot rectangle,
// since the nice y range encloses all values.
func TestProperty_LineStaysInsidePlot(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("line vertices are within the plot box", prop.ForAll(
		func(values []float64, nullEvery int) bool {
			for i := range values {
				if nullEvery > 0 && i%nullEvery == 0 {
					values[i] = models.Missing
				}
			}
			rec := surface.NewRecorder(640, 320)
			layout := render.DefaultRenderer().DrawLine(rec, values, labels(len(values)), render.Options{})
			if layout.Empty {
				return true
			}
			box := layout.Box
			for _, s := range rec.StrokesByColor("#0a7") {
				for _, sp := range s.Subpaths {
					for _, p := range sp {
						if p.X < box.Left-1e-6 || p.X > box.PlotRight()+1e-6 {
							return false
						}
						if p.Y < box.Top-1e-6 || p.Y > box.PlotBottom()+1e-6 || math.IsNaN(p.Y) {
							return false
						}
					}
				}
			}
			return true
		},
		gen.SliceOfN(60, gen.Float64Range(-1e6, 1e6)),
		gen.IntRange(0, 7),
	))

	properties.TestingRun(t)
}
