package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chartlab/internal/analysis"
	"chartlab/internal/chart"
	"chartlab/internal/chart/render"
	"chartlab/internal/errors"
	"chartlab/internal/logging"
	"chartlab/internal/models"
	"chartlab/internal/surface"
)

// addChartCommands adds the render and analyze commands.
func addChartCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRenderCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
}

// symbolFlags are the data selection flags shared by chart commands.
type symbolFlags struct {
	market string
	days   int
}

func (f *symbolFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.market, "market", "m", "", "market: stocks, indices or fx (default: from ticker prefix)")
	cmd.Flags().IntVar(&f.days, "days", 0, "analysis window in calendar days (default: from config)")
}

// parseSymbol normalizes a ticker and resolves its market.
func parseSymbol(arg, market string) (string, models.Market, error) {
	symbol := strings.ToUpper(strings.TrimSpace(arg))
	if symbol == "" {
		return "", "", errors.NewValidationError("symbol", arg, "symbol is required")
	}
	m, ok := models.ParseMarket(market, symbol)
	if !ok {
		return "", "", errors.NewValidationError("market", market, "must be stocks, indices or fx")
	}
	return symbol, m, nil
}

// loadInput fetches what the named analyzers read: the one-year history for
// the overview and the long analysis set for the rest.
func loadInput(ctx context.Context, app *App, symbol string, market models.Market, days int, names []string) (*analysis.Input, error) {
	p, err := app.Provider()
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = app.Config.Analysis.Days
	}

	needHistory, needSet := false, false
	for _, n := range names {
		if n == "overview" {
			needHistory = true
		} else {
			needSet = true
		}
	}

	var (
		history models.Series
		set     *models.AnalysisSet
	)
	g, gctx := errgroup.WithContext(ctx)
	if needHistory {
		g.Go(func() error {
			s, err := p.DailySeries(gctx, symbol, market)
			history = s
			return err
		})
	}
	if needSet {
		g.Go(func() error {
			s, err := p.AnalysisSeries(gctx, symbol, market, days)
			set = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in := analysis.NewInput(set, history)
	in.Symbol = symbol
	in.Market = market
	return in, nil
}

// renderResult describes a written chart.
type renderResult struct {
	Symbol   string          `json:"symbol"`
	View     string          `json:"view"`
	Path     string          `json:"path"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Points   int             `json:"points"`
	Viewport models.Viewport `json:"viewport"`
	Tooltip  string          `json:"tooltip,omitempty"`
	Lines    []string        `json:"lines"`
	Notes    []string        `json:"notes,omitempty"`
}

// renderOptions holds the render command settings.
type renderOptions struct {
	view     string
	out      string
	width    int
	height   int
	window   string
	gestures []Gesture
}

func newRenderCmd(app *App) *cobra.Command {
	var (
		flags  symbolFlags
		opts   renderOptions
		zoom   string
		hover  string
		static bool
	)

	cmd := &cobra.Command{
		Use:   "render <symbol>",
		Short: "Render one analysis view to PNG or SVG",
		Long: `Render one analysis view of a symbol to an image file.

Views: ` + strings.Join(chart.Views, ", ") + `

Pointer gestures can be replayed before the image is written:
  --zoom in@0.7,out@0.2   wheel zoom at fractions of the plot width
  --zoom reset            double-click reset
  --hover 0.5             hover tooltip at a fraction of the plot width`,
		Example: `  chartlab render AAPL --view trend --out aapl-trend.png
  chartlab render I:SPX --view movingavg --out spx.svg --zoom in@0.9,in@0.9 --hover 0.95
  chartlab render C:EURUSD --view overview --out eur.png --window 100:200`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol, market, err := parseSymbol(args[0], flags.market)
			if err != nil {
				return err
			}
			if err := chart.ValidView(opts.view); err != nil {
				return err
			}
			if opts.out == "" {
				opts.out = strings.ReplaceAll(symbol, ":", "_") + "-" + opts.view + ".png"
			}
			if opts.width <= 0 {
				opts.width = app.Config.Chart.Width
			}
			if opts.height <= 0 {
				opts.height = app.Config.Chart.Height
			}
			if opts.gestures, err = ParseGestures(zoom); err != nil {
				return err
			}
			if hover != "" {
				g, err := ParseGestures("hover@" + hover)
				if err != nil {
					return err
				}
				opts.gestures = append(opts.gestures, g...)
			}

			in, err := loadInput(cmd.Context(), app, symbol, market, flags.days, []string{opts.view})
			if err != nil {
				return err
			}
			res, err := renderView(cmd.Context(), app, in, opts, !static)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(res)
			}
			output.Success("Wrote %s (%dx%d, %s of %s)", res.Path, res.Width, res.Height, res.View, res.Symbol)
			output.Dim("Visible window: %d..%d of %d points", res.Viewport.A, res.Viewport.B, res.Points)
			if res.Tooltip != "" {
				output.Info("Tooltip: %s", res.Tooltip)
			}
			for _, l := range res.Lines {
				output.Printf("  %s\n", l)
			}
			for _, n := range res.Notes {
				output.Warning("  %s", n)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&opts.view, "view", "v", "overview", "view to render")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file, .png or .svg (default: <symbol>-<view>.png)")
	cmd.Flags().IntVar(&opts.width, "width", 0, "image width (default: from config)")
	cmd.Flags().IntVar(&opts.height, "height", 0, "image height (default: from config)")
	cmd.Flags().StringVar(&opts.window, "window", "", "show only the index range a:b")
	cmd.Flags().StringVar(&zoom, "zoom", "", "zoom gestures to replay, e.g. in@0.7,out@0.2,reset")
	cmd.Flags().StringVar(&hover, "hover", "", "hover position as a fraction of the plot width")
	cmd.Flags().BoolVar(&static, "static", false, "disable interaction; gestures are ignored")

	return cmd
}

// renderView runs the view's analyzer, draws its chart, replays gestures and
// writes the image.
func renderView(ctx context.Context, app *App, in *analysis.Input, opts renderOptions, interactive bool) (*renderResult, error) {
	report, err := app.Engine().Run(ctx, opts.view, in)
	if err != nil {
		return nil, err
	}
	if report.Plot.Empty() {
		msg := "nothing to draw"
		if len(report.Notes) > 0 {
			msg = strings.Join(report.Notes, "; ")
		}
		return nil, errors.NewDataError("chart", in.Symbol, opts.view+": "+msg, errors.ErrInsufficientData)
	}

	logger := logging.WithChart(logging.WithSymbol(app.Logger, in.Symbol), opts.view)
	chartOpts := []chart.Option{chart.WithRenderer(app.Config.Renderer()), chart.WithLogger(logger)}
	if interactive {
		chartOpts = append(chartOpts, chart.WithInteraction(app.Config.ViewportOptions()))
	}
	c, err := chart.FromReport(report, chartOpts...)
	if err != nil {
		return nil, err
	}

	format, err := surface.FormatFromPath(opts.out)
	if err != nil {
		return nil, err
	}
	surf, err := surface.New(format, opts.width, opts.height)
	if err != nil {
		return nil, err
	}

	if opts.window != "" {
		a, b, err := parseWindow(opts.window)
		if err != nil {
			return nil, err
		}
		c.PanTo(a, b)
	}

	layout := c.Render(surf)
	detach := c.Attach(surf, surf)
	if len(opts.gestures) > 0 && !c.Interactive() {
		logger.Warn().Str("kind", string(c.Kind())).Msg("Chart is not interactive, gestures ignored")
	}
	for _, g := range opts.gestures {
		surf.Dispatch(gestureEvent(g, layout))
	}
	detach()

	f, err := os.Create(opts.out)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create output file")
	}
	if err := surf.Encode(f); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to encode chart")
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	logging.LogRender(logger, opts.view, opts.out, opts.width, opts.height)

	res := &renderResult{
		Symbol:   in.Symbol,
		View:     opts.view,
		Path:     opts.out,
		Width:    opts.width,
		Height:   opts.height,
		Points:   plotPoints(report.Plot),
		Viewport: c.Viewport(),
		Lines:    report.Lines,
		Notes:    report.Notes,
	}
	if tip, ok := c.Tooltip(); ok {
		res.Tooltip = tip.String()
	}
	return res, nil
}

// gestureEvent maps a gesture to a pointer event inside the plot box.
func gestureEvent(g Gesture, layout render.Layout) render.Event {
	box := layout.Box
	ev := render.Event{
		X: box.Left + g.Frac*box.PlotWidth(),
		Y: box.Top + box.PlotHeight()/2,
	}
	switch g.Kind {
	case GestureZoomIn:
		ev.Kind, ev.DeltaY = render.EventWheel, -100
	case GestureZoomOut:
		ev.Kind, ev.DeltaY = render.EventWheel, 100
	case GestureReset:
		ev.Kind = render.EventDoubleClick
	case GestureLeave:
		ev.Kind = render.EventLeave
	default:
		ev.Kind = render.EventMove
	}
	return ev
}

// parseWindow parses "a:b".
func parseWindow(s string) (int, int, error) {
	as, bs, ok := strings.Cut(s, ":")
	a, errA := strconv.Atoi(strings.TrimSpace(as))
	b, errB := strconv.Atoi(strings.TrimSpace(bs))
	if !ok || errA != nil || errB != nil || a < 0 || b < a {
		return 0, 0, errors.NewValidationError("window", s, "expected a:b with 0 <= a <= b")
	}
	return a, b, nil
}

func plotPoints(p analysis.Plot) int {
	if p.Kind == analysis.PlotScatter {
		return len(p.X)
	}
	return len(p.Labels)
}

func newAnalyzeCmd(app *App) *cobra.Command {
	var (
		flags symbolFlags
		only  []string
	)

	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Print the analytics report of a symbol",
		Long: `Run every analyzer (or the ones named with --only) against a symbol and
print the results. Insufficient data and a missing benchmark are reported
next to the affected metric.`,
		Example: `  chartlab analyze AAPL
  chartlab analyze TSLA --only regression,movingavg --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol, market, err := parseSymbol(args[0], flags.market)
			if err != nil {
				return err
			}

			engine := app.Engine()
			names := engine.List()
			if len(only) > 0 {
				names = only
				for _, n := range names {
					if err := chart.ValidView(n); err != nil {
						return err
					}
				}
			}

			in, err := loadInput(cmd.Context(), app, symbol, market, flags.days, names)
			if err != nil {
				return err
			}
			results, err := engine.RunSelected(cmd.Context(), in, names)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(analysisJSON(in, results))
			}
			printAnalysis(output, in, results)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringSliceVar(&only, "only", nil, "analyzers to run (default: all)")
	return cmd
}

type analysisOutput struct {
	Symbol          string             `json:"symbol"`
	Market          models.Market      `json:"market"`
	BenchmarkTicker string             `json:"benchmark_ticker,omitempty"`
	Reports         []*analysis.Report `json:"reports"`
	Errors          map[string]string  `json:"errors,omitempty"`
}

func analysisJSON(in *analysis.Input, results []analysis.Result) analysisOutput {
	out := analysisOutput{Symbol: in.Symbol, Market: in.Market, BenchmarkTicker: in.BenchmarkTicker}
	for _, r := range results {
		if r.Err != nil {
			if out.Errors == nil {
				out.Errors = make(map[string]string)
			}
			out.Errors[r.Name] = r.Err.Error()
			continue
		}
		out.Reports = append(out.Reports, r.Report)
	}
	return out
}

func printAnalysis(output *Output, in *analysis.Input, results []analysis.Result) {
	output.Bold("%s (%s)", in.Symbol, in.Market)
	if in.BenchmarkTicker != "" {
		output.Dim("Benchmark: %s", in.BenchmarkTicker)
	}
	for _, r := range results {
		output.Println()
		if r.Err != nil {
			output.Error("%s: %v", r.Name, r.Err)
			continue
		}
		output.Printf("%s %s\n", output.Title(r.Report.Title), output.DimText(fmt.Sprintf("(%s)", FormatDuration(r.Report.Duration))))
		for _, l := range r.Report.Lines {
			output.Printf("  %s\n", l)
		}
		for _, n := range r.Report.Notes {
			output.Printf("  %s\n", output.Yellow(n))
		}
	}
}
