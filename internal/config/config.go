package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gonum.org/v1/plot/vg"

	"github.com/victoralfred/varbacktest/internal/logging"
	"github.com/victoralfred/varbacktest/pkg/backtest"
)

// Config holds the settings shared by programs built on the backtest package
type Config struct {
	Log  logging.Config
	Plot backtest.PlotStyle

	// PlotFile is where the chart is written; empty leaves the chart unsaved
	PlotFile string
	// Alpha is the nominal breach probability used by the demo
	Alpha float64
}

// Load reads an optional .env file from the working directory, then the
// process environment. Unset or malformed values fall back to defaults.
func Load() (*Config, error) {
	return LoadFiles()
}

// LoadFiles is Load with explicit .env paths. Missing files are ignored;
// variables already set in the environment win over file values.
func LoadFiles(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, err
		}
	}

	log := logging.DefaultConfig()
	log.Level = getEnv("LOG_LEVEL", log.Level)
	log.Format = getEnv("LOG_FORMAT", log.Format)
	log.Output = getEnv("LOG_OUTPUT", log.Output)
	log.Environment = getEnv("ENVIRONMENT", log.Environment)

	plot := backtest.DefaultPlotStyle()
	plot.Width = vg.Length(getEnvFloat("PLOT_WIDTH_IN", float64(plot.Width/vg.Inch))) * vg.Inch
	plot.Height = vg.Length(getEnvFloat("PLOT_HEIGHT_IN", float64(plot.Height/vg.Inch))) * vg.Inch
	plot.FontSize = vg.Points(getEnvFloat("PLOT_FONT_SIZE", plot.FontSize.Points()))
	plot.LaTeX = getEnvBool("PLOT_LATEX", plot.LaTeX)
	plot.Grid = getEnvBool("PLOT_GRID", plot.Grid)
	plot.MarkBreaches = getEnvBool("PLOT_MARK_BREACHES", plot.MarkBreaches)
	plot.Title = getEnv("PLOT_TITLE", plot.Title)

	return &Config{
		Log:      log,
		Plot:     plot,
		PlotFile: getEnv("PLOT_FILE", "var_backtest.png"),
		Alpha:    getEnvFloat("DEMO_ALPHA", 0.05),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
