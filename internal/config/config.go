// Package config provides configuration management for chartlab.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"chartlab/internal/analysis"
	"chartlab/internal/chart/axis"
	"chartlab/internal/chart/render"
	"chartlab/internal/chart/viewport"
	"chartlab/internal/errors"
	"chartlab/internal/logging"
)

// Provider kinds.
const (
	ProviderPolygon = "polygon"
	ProviderCSV     = "csv"
	ProviderStore   = "store"
)

// Config holds all application configuration.
type Config struct {
	Chart       ChartConfig       `mapstructure:"chart"`
	Interaction InteractionConfig `mapstructure:"interaction"`
	Analysis    AnalysisConfig    `mapstructure:"analysis"`
	Provider    ProviderConfig    `mapstructure:"provider"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Credentials Credentials       `mapstructure:"-" json:"-"` // Loaded separately

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// ChartConfig holds surface size, layout and palette.
type ChartConfig struct {
	Width      int          `mapstructure:"width"`
	Height     int          `mapstructure:"height"`
	YTickCount int          `mapstructure:"y_tick_count"`
	XTickCount int          `mapstructure:"x_tick_count"`
	Margins    axis.Margins `mapstructure:"margins"`
	Style      render.Style `mapstructure:"style"`
}

// InteractionConfig holds zoom behavior.
type InteractionConfig struct {
	ZoomInFactor  float64 `mapstructure:"zoom_in_factor"`
	ZoomOutFactor float64 `mapstructure:"zoom_out_factor"`
	MinSpan       int     `mapstructure:"min_span"`
}

// AnalysisConfig holds analyzer settings.
type AnalysisConfig struct {
	Days             int      `mapstructure:"days"`
	Benchmarks       []string `mapstructure:"benchmarks"`
	MinRegressionObs int      `mapstructure:"min_regression_obs"`
	MAShort          int      `mapstructure:"ma_short"`
	MALong           int      `mapstructure:"ma_long"`
	ZUnusual         float64  `mapstructure:"z_unusual"`
	Workers          int      `mapstructure:"workers"`
}

// ProviderConfig selects and tunes the market data source.
type ProviderConfig struct {
	Kind          string        `mapstructure:"kind"` // polygon, csv, store
	Timeout       time.Duration `mapstructure:"timeout"`
	CSVDir        string        `mapstructure:"csv_dir"`
	HistoryTTL    time.Duration `mapstructure:"history_ttl"`
	AnalysisTTL   time.Duration `mapstructure:"analysis_ttl"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	Cache         bool          `mapstructure:"cache"`

	// BreakerThreshold is the number of consecutive upstream failures before
	// requests are short-circuited; 0 disables the breaker.
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
	// RateLimit caps Polygon requests per minute; 0 is unlimited.
	RateLimit        int           `mapstructure:"rate_limit"`
}

// StorageConfig holds the local store location.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// Credentials holds API credentials.
type Credentials struct {
	Polygon PolygonCredentials `mapstructure:"polygon"`
}

// PolygonCredentials holds Polygon.io API credentials.
type PolygonCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/chartlab"
	}
	return filepath.Join(home, ".config", "chartlab")
}

// Default returns the built-in configuration.
func Default() *Config {
	params := analysis.DefaultParams()
	vp := viewport.DefaultOptions()
	return &Config{
		Chart: ChartConfig{
			Width:      800,
			Height:     300,
			YTickCount: render.DefaultYTickCount,
			XTickCount: render.DefaultXTickCount,
			Margins:    axis.DefaultMargins(),
			Style:      render.DefaultStyle(),
		},
		Interaction: InteractionConfig{
			ZoomInFactor:  vp.ZoomInFactor,
			ZoomOutFactor: vp.ZoomOutFactor,
			MinSpan:       vp.MinSpan,
		},
		Analysis: AnalysisConfig{
			Days:             730,
			Benchmarks:       params.Benchmarks,
			MinRegressionObs: params.MinRegressionObs,
			MAShort:          params.MAShort,
			MALong:           params.MALong,
			ZUnusual:         params.ZUnusual,
			Workers:          4,
		},
		Provider: ProviderConfig{
			Kind:             ProviderPolygon,
			Timeout:          15 * time.Second,
			HistoryTTL:       15 * time.Minute,
			AnalysisTTL:      15 * time.Minute,
			RetryAttempts:    3,
			Cache:            true,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(DefaultConfigDir(), "chartlab.db"),
		},
		Logging: LoggingConfig{
			Level:    "info",
			Console:  true,
			FilePath: logging.DefaultLogPath(),
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files
// are created from templates and the defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()
	cfg.Dir = configDir
	cfg.Storage.DBPath = filepath.Join(configDir, "chartlab.db")

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// .env files only fill variables that are not already set.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("chart.width", cfg.Chart.Width)
	v.SetDefault("chart.height", cfg.Chart.Height)
	v.SetDefault("chart.y_tick_count", cfg.Chart.YTickCount)
	v.SetDefault("chart.x_tick_count", cfg.Chart.XTickCount)
	v.SetDefault("chart.margins.left", cfg.Chart.Margins.Left)
	v.SetDefault("chart.margins.right", cfg.Chart.Margins.Right)
	v.SetDefault("chart.margins.top", cfg.Chart.Margins.Top)
	v.SetDefault("chart.margins.bottom", cfg.Chart.Margins.Bottom)
	v.SetDefault("chart.style.axis_color", cfg.Chart.Style.AxisColor)
	v.SetDefault("chart.style.grid_color", cfg.Chart.Style.GridColor)
	v.SetDefault("chart.style.text_color", cfg.Chart.Style.TextColor)
	v.SetDefault("chart.style.line_color", cfg.Chart.Style.LineColor)
	v.SetDefault("chart.style.secondary_color", cfg.Chart.Style.SecondaryColor)
	v.SetDefault("chart.style.point_color", cfg.Chart.Style.PointColor)
	v.SetDefault("chart.style.line_width", cfg.Chart.Style.LineWidth)

	v.SetDefault("interaction.zoom_in_factor", cfg.Interaction.ZoomInFactor)
	v.SetDefault("interaction.zoom_out_factor", cfg.Interaction.ZoomOutFactor)
	v.SetDefault("interaction.min_span", cfg.Interaction.MinSpan)

	v.SetDefault("analysis.days", cfg.Analysis.Days)
	v.SetDefault("analysis.benchmarks", cfg.Analysis.Benchmarks)
	v.SetDefault("analysis.min_regression_obs", cfg.Analysis.MinRegressionObs)
	v.SetDefault("analysis.ma_short", cfg.Analysis.MAShort)
	v.SetDefault("analysis.ma_long", cfg.Analysis.MALong)
	v.SetDefault("analysis.z_unusual", cfg.Analysis.ZUnusual)
	v.SetDefault("analysis.workers", cfg.Analysis.Workers)

	v.SetDefault("provider.kind", cfg.Provider.Kind)
	v.SetDefault("provider.timeout", cfg.Provider.Timeout)
	v.SetDefault("provider.csv_dir", cfg.Provider.CSVDir)
	v.SetDefault("provider.history_ttl", cfg.Provider.HistoryTTL)
	v.SetDefault("provider.analysis_ttl", cfg.Provider.AnalysisTTL)
	v.SetDefault("provider.retry_attempts", cfg.Provider.RetryAttempts)
	v.SetDefault("provider.cache", cfg.Provider.Cache)
	v.SetDefault("provider.breaker_threshold", cfg.Provider.BreakerThreshold)
	v.SetDefault("provider.breaker_cooldown", cfg.Provider.BreakerCooldown)
	v.SetDefault("provider.rate_limit", cfg.Provider.RateLimit)

	v.SetDefault("storage.db_path", cfg.Storage.DBPath)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.file_path", cfg.Logging.FilePath)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Credentials.Polygon.APIKey = v
	}
	if v := os.Getenv("CHARTLAB_PROVIDER"); v != "" {
		cfg.Provider.Kind = v
	}
	if v := os.Getenv("CHARTLAB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.Wrapf(errors.ErrConfigInvalid, format, args...)
	}

	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return invalid("chart size must be positive, got %dx%d", c.Chart.Width, c.Chart.Height)
	}
	m := c.Chart.Margins
	if m.Left < 0 || m.Right < 0 || m.Top < 0 || m.Bottom < 0 {
		return invalid("chart margins must be non-negative")
	}
	if m.Left+m.Right >= float64(c.Chart.Width) || m.Top+m.Bottom >= float64(c.Chart.Height) {
		return invalid("chart margins leave no plot area")
	}
	if c.Chart.YTickCount < 1 || c.Chart.XTickCount < 1 {
		return invalid("tick counts must be at least 1")
	}

	if c.Interaction.ZoomInFactor <= 0 || c.Interaction.ZoomInFactor >= 1 {
		return invalid("zoom_in_factor must be between 0 and 1, got %v", c.Interaction.ZoomInFactor)
	}
	if c.Interaction.ZoomOutFactor <= 1 {
		return invalid("zoom_out_factor must be greater than 1, got %v", c.Interaction.ZoomOutFactor)
	}
	if c.Interaction.MinSpan < 1 {
		return invalid("min_span must be at least 1")
	}

	if c.Analysis.Days < 1 {
		return invalid("analysis days must be positive")
	}
	if c.Analysis.MAShort < 1 || c.Analysis.MALong <= c.Analysis.MAShort {
		return invalid("moving averages must satisfy 0 < ma_short < ma_long")
	}
	if c.Analysis.MinRegressionObs < 2 {
		return invalid("min_regression_obs must be at least 2")
	}
	if c.Analysis.ZUnusual <= 0 {
		return invalid("z_unusual must be positive")
	}

	switch c.Provider.Kind {
	case ProviderPolygon, ProviderCSV, ProviderStore:
	default:
		return invalid("unknown provider kind: %s (must be 'polygon', 'csv' or 'store')", c.Provider.Kind)
	}
	if c.Provider.Kind == ProviderCSV && c.Provider.CSVDir == "" {
		return invalid("provider csv_dir is required for the csv provider")
	}
	if c.Provider.RetryAttempts < 1 {
		return invalid("retry_attempts must be at least 1")
	}
	if c.Provider.BreakerThreshold < 0 || c.Provider.BreakerCooldown < 0 || c.Provider.RateLimit < 0 {
		return invalid("breaker and rate limit settings must be non-negative")
	}

	return nil
}

// HasPolygonKey returns true if a Polygon API key is configured.
func (c *Config) HasPolygonKey() bool {
	return c.Credentials.Polygon.APIKey != ""
}

// AnalysisParams returns the analyzer settings.
func (c *Config) AnalysisParams() analysis.Params {
	params := analysis.DefaultParams()
	params.MAShort = c.Analysis.MAShort
	params.MALong = c.Analysis.MALong
	params.MinRegressionObs = c.Analysis.MinRegressionObs
	params.ZUnusual = c.Analysis.ZUnusual
	if len(c.Analysis.Benchmarks) > 0 {
		params.Benchmarks = c.Analysis.Benchmarks
	}
	return params
}

// ViewportOptions returns the zoom settings.
func (c *Config) ViewportOptions() viewport.Options {
	return viewport.Options{
		MinSpan:       c.Interaction.MinSpan,
		ZoomInFactor:  c.Interaction.ZoomInFactor,
		ZoomOutFactor: c.Interaction.ZoomOutFactor,
	}
}

// Renderer returns a renderer with the configured palette and layout.
func (c *Config) Renderer() *render.Renderer {
	r := render.NewRenderer(c.Chart.Style, c.Chart.Margins)
	r.YTickCount = c.Chart.YTickCount
	r.XTickCount = c.Chart.XTickCount
	return r
}

// LogConfig returns the logger settings.
func (c *Config) LogConfig() logging.LogConfig {
	lc := logging.DefaultLogConfig()
	lc.Level = c.Logging.Level
	lc.Console = c.Logging.Console
	lc.File = c.Logging.File
	if c.Logging.FilePath != "" {
		lc.FilePath = c.Logging.FilePath
	}
	return lc
}
