package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# chartlab configuration

[chart]
# Output size in pixels
width = 800
height = 300
# Target tick counts per axis
y_tick_count = 5
x_tick_count = 6

[chart.margins]
left = 50
right = 10
top = 10
bottom = 28

[chart.style]
axis_color = "#ccc"
grid_color = "#eee"
text_color = "#666"
line_color = "#0a7"
secondary_color = "#555"
point_color = "#999"
line_width = 2.0

[interaction]
# Wheel zoom factors; in must be below 1, out above 1
zoom_in_factor = 0.87
zoom_out_factor = 1.15
# Smallest visible index span
min_span = 10

[analysis]
# Days of history loaded for the analytics views
days = 730
# Benchmarks tried in order for regression
benchmarks = ["I:SPX", "SPY"]
min_regression_obs = 30
ma_short = 50
ma_long = 200
# |z| at or above this marks the latest month as unusual
z_unusual = 2.0
workers = 4

[provider]
# Data source: "polygon", "csv" or "store"
kind = "polygon"
timeout = "15s"
# Directory of <SYMBOL>.csv files for the csv provider
csv_dir = ""
# Cache fetched series in the local store
cache = true
history_ttl = "15m"
analysis_ttl = "15m"
retry_attempts = 3
# Stop calling the upstream after this many consecutive failures (0 = never)
breaker_threshold = 5
breaker_cooldown = "30s"
# Polygon requests per minute (0 = unlimited; the free tier allows 5)
rate_limit = 0

[storage]
# SQLite database path (defaults to ~/.config/chartlab/chartlab.db)
# db_path = ""

[logging]
# Level: debug, info, warn, error
level = "info"
console = true
file = false
# file_path = ""
`

const credentialsTemplate = `# chartlab credentials
# Keep this file private (chmod 600)

[polygon]
# Polygon.io API key; POLYGON_API_KEY overrides this value
api_key = ""
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}

// ConfigPath returns the path of config.toml in dir.
func ConfigPath(dir string) string {
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return filepath.Join(dir, "config.toml")
}
