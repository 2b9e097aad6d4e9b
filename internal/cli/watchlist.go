package cli

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chartlab/internal/analysis"
	"chartlab/internal/errors"
	"chartlab/internal/logging"
	"chartlab/internal/provider"
	"chartlab/internal/store"
	"chartlab/pkg/utils"
)

// addWatchlistCommands adds watchlist management commands.
func addWatchlistCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Manage saved symbols",
	}

	cmd.AddCommand(newWatchlistAddCmd(app))
	cmd.AddCommand(newWatchlistRemoveCmd(app))
	cmd.AddCommand(newWatchlistListCmd(app))
	cmd.AddCommand(newWatchlistScanCmd(app))

	rootCmd.AddCommand(cmd)
}

func newWatchlistAddCmd(app *App) *cobra.Command {
	var market, name string

	cmd := &cobra.Command{
		Use:   "add <symbol>",
		Short: "Add a symbol to the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, m, err := parseSymbol(args[0], market)
			if err != nil {
				return err
			}
			st, err := app.Store()
			if err != nil {
				return err
			}
			entry := store.WatchlistEntry{Symbol: symbol, Market: m, Name: name, AddedAt: time.Now()}
			if err := st.AddToWatchlist(cmd.Context(), entry); err != nil {
				return err
			}
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(entry)
			}
			output.Success("Added %s to watchlist", symbol)
			return nil
		},
	}

	cmd.Flags().StringVarP(&market, "market", "m", "", "market (default: from ticker prefix)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newWatchlistRemoveCmd(app *App) *cobra.Command {
	var market string

	cmd := &cobra.Command{
		Use:     "remove <symbol>",
		Aliases: []string{"rm"},
		Short:   "Remove a symbol from the watchlist",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, m, err := parseSymbol(args[0], market)
			if err != nil {
				return err
			}
			st, err := app.Store()
			if err != nil {
				return err
			}
			if err := st.RemoveFromWatchlist(cmd.Context(), symbol, m); err != nil {
				return err
			}
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"removed": symbol})
			}
			output.Success("Removed %s from watchlist", symbol)
			return nil
		},
	}

	cmd.Flags().StringVarP(&market, "market", "m", "", "market (default: from ticker prefix)")
	return cmd
}

func newWatchlistListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List watchlist symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.Store()
			if err != nil {
				return err
			}
			entries, err := st.GetWatchlist(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Dim("Watchlist is empty. Use 'chartlab watchlist add <symbol>'.")
				return nil
			}
			table := NewTable(output, "SYMBOL", "MARKET", "NAME", "ADDED")
			for _, e := range entries {
				table.AddRow(e.Symbol, string(e.Market), TruncateString(e.Name, 30), FormatDate(e.AddedAt))
			}
			table.Render()
			return nil
		},
	}
}

// scanRow is one watchlist symbol's overview.
type scanRow struct {
	Symbol    string   `json:"symbol"`
	Market    string   `json:"market"`
	Price     float64  `json:"price"`
	Change1Y  *float64 `json:"change_1y_pct,omitempty"`
	Freshness string   `json:"freshness,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func newWatchlistScanCmd(app *App) *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Show price and one-year change for every watchlist symbol",
		Long: `Run the overview for every watchlist symbol. Symbols are fetched in parallel;
a failing symbol is reported in its row and does not stop the scan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.Store()
			if err != nil {
				return err
			}
			entries, err := st.GetWatchlist(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				if output.IsJSON() {
					return output.JSON([]scanRow{})
				}
				output.Dim("Watchlist is empty.")
				return nil
			}
			// Open the provider once before fanning out.
			if _, err := app.Provider(); err != nil {
				return err
			}
			if parallel <= 0 {
				parallel = app.Config.Analysis.Workers
			}

			rows, err := scanWatchlist(cmd.Context(), app, entries, parallel)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rows)
			}

			table := NewTable(output, "SYMBOL", "MARKET", "PRICE", "1Y", "CACHE")
			for _, r := range rows {
				if r.Error != "" {
					table.AddRow(r.Symbol, r.Market, "-", "-", output.Red(TruncateString(r.Error, 40)))
					continue
				}
				change := math.NaN()
				if r.Change1Y != nil {
					change = *r.Change1Y
				}
				table.AddRow(r.Symbol, r.Market, utils.FormatPrice(r.Price), output.Change(change), r.Freshness)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 0, "symbols fetched at once (default: analysis.workers)")
	return cmd
}

// scanWatchlist runs the overview for each entry with at most limit in
// flight. Per-symbol failures land in the row; only cancellation aborts.
func scanWatchlist(ctx context.Context, app *App, entries []store.WatchlistEntry, limit int) ([]scanRow, error) {
	rows := make([]scanRow, len(entries))
	engine := app.Engine()
	logger := logging.WithOperation(logging.FromContext(ctx), "watchlist scan")
	freshness := providerFreshness(app)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			row := scanRow{Symbol: e.Symbol, Market: string(e.Market)}
			in, err := loadInput(gctx, app, e.Symbol, e.Market, 0, []string{"overview"})
			if err == nil {
				var report *analysis.Report
				if report, err = engine.Run(gctx, "overview", in); err == nil {
					row.Price = report.Metrics["price"]
					if v, ok := report.Metrics["change_1y_pct"]; ok {
						row.Change1Y = &v
					}
				}
			}
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				row.Error = err.Error()
				symLogger := logging.WithSymbol(logger, e.Symbol)
				symLogger.Warn().Err(err).Msg("Symbol scan failed")
			}
			if freshness != nil {
				row.Freshness = freshness(gctx, e)
			}
			mu.Lock()
			rows[i] = row
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// providerFreshness describes the history cache of an entry when caching is
// enabled.
func providerFreshness(app *App) func(context.Context, store.WatchlistEntry) string {
	if !app.Config.Provider.Cache {
		return nil
	}
	st, err := app.Store()
	if err != nil {
		return nil
	}
	cfg := provider.Freshness(app.Config)
	return func(ctx context.Context, e store.WatchlistEntry) string {
		f, err := store.CheckFreshness(ctx, st, cfg, e.Symbol, e.Market, store.CacheHistory, 0, time.Now())
		if err != nil {
			return "-"
		}
		return store.FormatFreshness(f)
	}
}
