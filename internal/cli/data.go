package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"chartlab/internal/errors"
	"chartlab/internal/provider"
	"chartlab/internal/store"
)

// addDataCommands adds local store commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
	rootCmd.AddCommand(newDataCmd(app))
}

func newImportCmd(app *App) *cobra.Command {
	var market string

	cmd := &cobra.Command{
		Use:   "import <symbol> <file.csv>",
		Short: "Load a CSV of daily closes into the local store",
		Long: `Load a CSV file with date,close columns into the local store. Dates may be
YYYY-MM-DD, RFC 3339 or unix milliseconds; an empty close is stored as missing.
Use '-' to read from stdin.`,
		Example: `  chartlab import AAPL aapl.csv
  chartlab import I:SPX spx.csv --market indices`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol, m, err := parseSymbol(args[0], market)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return errors.Wrap(err, "failed to open csv")
				}
				defer f.Close()
				r = f
			}
			series, err := provider.ReadCSV(r)
			if err != nil {
				return err
			}
			if len(series) == 0 {
				return errors.NewDataError("csv", symbol, "file has no rows", errors.ErrDataNotFound)
			}

			st, err := app.Store()
			if err != nil {
				return err
			}
			if err := st.SaveSeries(cmd.Context(), symbol, m, series); err != nil {
				return err
			}
			app.Logger.Info().Str("symbol", symbol).Int("rows", len(series)).Msg("Imported closes")

			first, last := series[0].Time, series[len(series)-1].Time
			if output.IsJSON() {
				return output.JSON(store.SymbolSummary{Symbol: symbol, Market: m, Count: len(series), First: first, Last: last})
			}
			output.Success("Imported %d closes for %s (%s to %s)", len(series), symbol, FormatDate(first), FormatDate(last))
			return nil
		},
	}

	cmd.Flags().StringVarP(&market, "market", "m", "", "market: stocks, indices or fx (default: from ticker prefix)")
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var (
		market string
		since  string
	)

	cmd := &cobra.Command{
		Use:   "export <symbol> [file.csv]",
		Short: "Write stored daily closes as CSV",
		Example: `  chartlab export AAPL > aapl.csv
  chartlab export AAPL aapl.csv --since 2024-01-01`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, m, err := parseSymbol(args[0], market)
			if err != nil {
				return err
			}
			var from time.Time
			if since != "" {
				if from, err = time.Parse(provider.DateLayout, since); err != nil {
					return errors.NewValidationError("since", since, "expected YYYY-MM-DD")
				}
			}

			st, err := app.Store()
			if err != nil {
				return err
			}
			series, err := st.GetSeries(cmd.Context(), symbol, m, from, time.Time{})
			if err != nil {
				return err
			}
			if len(series) == 0 {
				return errors.NewDataError("store", symbol, "no stored closes", errors.ErrSymbolNotFound)
			}

			w := cmd.OutOrStdout()
			if len(args) == 2 {
				f, err := os.Create(args[1])
				if err != nil {
					return errors.Wrap(err, "failed to create csv")
				}
				defer f.Close()
				w = f
			}
			if err := provider.WriteCSV(w, series); err != nil {
				return err
			}
			if len(args) == 2 {
				NewOutput(cmd).Success("Exported %d closes to %s", len(series), args[1])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&market, "market", "m", "", "market: stocks, indices or fx (default: from ticker prefix)")
	cmd.Flags().StringVar(&since, "since", "", "first date to export (YYYY-MM-DD)")
	return cmd
}

func newDataCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Inspect the local store",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored symbols with cache freshness",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			st, err := app.Store()
			if err != nil {
				return err
			}
			symbols, err := st.ListSymbols(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(symbols)
			}
			if len(symbols) == 0 {
				output.Dim("No stored data. Use 'chartlab import' or render a symbol with caching enabled.")
				return nil
			}

			freshness := provider.Freshness(app.Config)
			now := time.Now()
			table := NewTable(output, "SYMBOL", "MARKET", "CLOSES", "FIRST", "LAST", "HISTORY CACHE")
			for _, s := range symbols {
				f, err := store.CheckFreshness(cmd.Context(), st, freshness, s.Symbol, s.Market, store.CacheHistory, 0, now)
				status := "-"
				if err == nil {
					status = store.FormatFreshness(f)
					if !f.IsFresh && !f.LastUpdated.IsZero() {
						status = output.Yellow(status)
					}
				}
				table.AddRow(s.Symbol, string(s.Market), strconv.Itoa(s.Count), FormatDate(s.First), FormatDate(s.Last), status)
			}
			table.Render()
			return nil
		},
	})

	var market string
	del := &cobra.Command{
		Use:   "delete <symbol>",
		Short: "Delete a symbol's stored closes and cache entries",
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
			if err := st.DeleteSeries(cmd.Context(), symbol, m); err != nil {
				return err
			}
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": symbol})
			}
			output.Success("Deleted %s", symbol)
			return nil
		},
	}
	del.Flags().StringVarP(&market, "market", "m", "", "market (default: from ticker prefix)")
	cmd.AddCommand(del)

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the database path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.Config.Storage.DBPath)
		},
	})

	return cmd
}
