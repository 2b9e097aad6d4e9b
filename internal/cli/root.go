package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chartlab/internal/analysis"
	"chartlab/internal/config"
	"chartlab/internal/errors"
	"chartlab/internal/logging"
	"chartlab/internal/provider"
	"chartlab/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies. The store and provider are opened
// on first use.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	store    store.DataStore
	provider provider.DataProvider
}

// Store opens the SQLite store.
func (a *App) Store() (store.DataStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	path := a.Config.Storage.DBPath
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Str("path", path).Msg("SQLite store initialized")
	a.store = s
	return s, nil
}

// Provider builds the configured data provider. Without a usable store the
// provider runs uncached.
func (a *App) Provider() (provider.DataProvider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	var st store.DataStore
	if a.Config.Provider.Cache || a.Config.Provider.Kind == config.ProviderStore {
		s, err := a.Store()
		if err != nil {
			if a.Config.Provider.Kind == config.ProviderStore {
				return nil, err
			}
			a.Logger.Warn().Err(err).Msg("Failed to initialize store, caching disabled")
		} else {
			st = s
		}
	}
	p, err := provider.New(a.Config, st, a.Logger)
	if err != nil {
		return nil, err
	}
	a.provider = p
	return p, nil
}

// Engine returns an analysis engine with every built-in analyzer.
func (a *App) Engine() *analysis.Engine {
	return analysis.NewDefaultEngine(a.Config.Analysis.Workers, a.Config.AnalysisParams(), a.Logger)
}

// Close releases the store.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	a.provider = nil
	return err
}

// NewRootCmd creates the root command for the CLI. Configuration and the
// logger are loaded before any subcommand runs.
func NewRootCmd() *cobra.Command {
	app := &App{Config: config.Default(), Logger: zerolog.Nop()}
	var started time.Time

	rootCmd := &cobra.Command{
		Use:   "chartlab",
		Short: "Chartlab - charting and analytics for daily price series",
		Long: `Chartlab renders interactive-style line and scatter charts of daily closes
and derives analytics from them: trend, period comparisons, 52-week ratios,
monthly return variance, beta against a benchmark and moving averages.

Data comes from Polygon.io, a directory of CSV files or the local store.

Use 'chartlab commands' to list every command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			app.Config = cfg

			lc := cfg.LogConfig()
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				lc.Level = "debug"
			}
			lc.Out = cmd.ErrOrStderr()
			app.Logger = logging.NewLoggerWithConfig(lc)
			cmd.SetContext(logging.WithLogger(cmd.Context(), app.Logger))

			started = time.Now()
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.WithOperation(app.Logger, cmd.CommandPath())
			logger.Debug().
				Dur("duration", time.Since(started)).
				Msg("Command finished")
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/chartlab)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addChartCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addWatchlistCommands(rootCmd, app)
	addHelpCommands(rootCmd)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("chartlab v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.ConfigPath(app.Config.Dir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"dir": app.Config.Dir, "config": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			if app.Config.Provider.Kind == config.ProviderPolygon && !app.Config.HasPolygonKey() {
				output.Warning("No Polygon API key: set POLYGON_API_KEY or edit credentials.toml")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Chart")
	output.Printf("  Size:            %dx%d\n", cfg.Chart.Width, cfg.Chart.Height)
	output.Printf("  Ticks (y/x):     %d/%d\n", cfg.Chart.YTickCount, cfg.Chart.XTickCount)
	m := cfg.Chart.Margins
	output.Printf("  Margins:         left %.0f, right %.0f, top %.0f, bottom %.0f\n", m.Left, m.Right, m.Top, m.Bottom)
	output.Printf("  Line color:      %s\n", cfg.Chart.Style.LineColor)
	output.Println()

	output.Bold("Interaction")
	output.Printf("  Zoom in/out:     %.2f / %.2f\n", cfg.Interaction.ZoomInFactor, cfg.Interaction.ZoomOutFactor)
	output.Printf("  Min span:        %d\n", cfg.Interaction.MinSpan)
	output.Println()

	output.Bold("Analysis")
	output.Printf("  Days:            %d\n", cfg.Analysis.Days)
	output.Printf("  Benchmarks:      %v\n", cfg.Analysis.Benchmarks)
	output.Printf("  Moving averages: %d / %d\n", cfg.Analysis.MAShort, cfg.Analysis.MALong)
	output.Printf("  Regression obs:  %d\n", cfg.Analysis.MinRegressionObs)
	output.Printf("  Unusual |z|:     %.1f\n", cfg.Analysis.ZUnusual)
	output.Println()

	output.Bold("Provider")
	output.Printf("  Kind:            %s\n", cfg.Provider.Kind)
	if cfg.Provider.Kind == config.ProviderCSV {
		output.Printf("  CSV dir:         %s\n", cfg.Provider.CSVDir)
	}
	output.Printf("  Cache:           %v (history %s, analysis %s)\n", cfg.Provider.Cache, cfg.Provider.HistoryTTL, cfg.Provider.AnalysisTTL)
	output.Printf("  Polygon key:     %v\n", cfg.HasPolygonKey())
	output.Printf("  Database:        %s\n", cfg.Storage.DBPath)
}
