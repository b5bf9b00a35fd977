package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config contains configuration for the backtest logger
type Config struct {
	Level       string `json:"level"`
	Format      string `json:"format"` // "json" or "console"
	Output      string `json:"output"` // "stdout", "stderr" or a file path
	ServiceName string `json:"service_name"`
	Environment string `json:"environment"`
}

// DefaultConfig returns a production-ready logger configuration
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "json",
		Output:      "stdout",
		ServiceName: "varbacktest",
		Environment: "production",
	}
}

// New builds a zap logger from cfg
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Sampling = nil
	if cfg.Output != "" {
		zc.OutputPaths = []string{cfg.Output}
	}

	fields := map[string]interface{}{}
	if cfg.ServiceName != "" {
		fields["service"] = cfg.ServiceName
	}
	if cfg.Environment != "" {
		fields["env"] = cfg.Environment
	}
	zc.InitialFields = fields

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
