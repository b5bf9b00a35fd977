// Command demo backtests a rolling historical VaR forecast on a synthetic,
// regime-switching return series and writes the comparison chart.
package main

import (
	"log"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/victoralfred/varbacktest/internal/config"
	"github.com/victoralfred/varbacktest/internal/logging"
	"github.com/victoralfred/varbacktest/pkg/backtest"
)

const (
	observations = 500
	window       = 100
	seed         = 42
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.Alpha <= 0 || cfg.Alpha >= 1 {
		logger.Fatal("Alpha must lie strictly between 0 and 1", zap.Float64("alpha", cfg.Alpha))
	}

	actual, forecast := rollingHistoricalVaR(syntheticReturns(), cfg.Alpha)

	bt, err := backtest.New(actual, forecast, cfg.Alpha, backtest.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create backtest", zap.Error(err))
	}

	summary := bt.Summary()
	logger.Info("Backtest summary",
		zap.Int("observations", summary.Observations),
		zap.Int("hits", summary.Hits),
		zap.Float64("hit_rate", summary.HitRate),
		zap.Float64("expected_hits", summary.ExpectedHits),
		zap.Float64("mean_duration", summary.MeanDuration),
		zap.Ints("durations", summary.Durations),
		zap.Bool("no_breaches", summary.NoBreaches),
	)

	if _, err := bt.Plot(cfg.Plot, cfg.PlotFile); err != nil {
		logger.Fatal("Failed to plot backtest", zap.Error(err))
	}
}

// syntheticReturns draws daily returns whose volatility jumps for a stretch
// in the middle of the sample, so breaches cluster.
func syntheticReturns() backtest.Series {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

	series := backtest.Series{
		Index:  make([]time.Time, observations),
		Values: make([]float64, observations),
	}
	for i := 0; i < observations; i++ {
		sigma := 0.01
		if i >= 300 && i < 360 {
			sigma = 0.03
		}
		series.Index[i] = start.AddDate(0, 0, i)
		series.Values[i] = rng.NormFloat64() * sigma
	}
	return series
}

// rollingHistoricalVaR forecasts each day's alpha-quantile from the preceding
// window and returns the aligned out-of-sample pair.
func rollingHistoricalVaR(returns backtest.Series, alpha float64) (backtest.Series, backtest.Series) {
	n := len(returns.Values) - window
	actual := backtest.Series{
		Index:  append([]time.Time(nil), returns.Index[window:]...),
		Values: append([]float64(nil), returns.Values[window:]...),
	}
	forecast := backtest.Series{Index: actual.Index, Values: make([]float64, n)}

	sorted := make([]float64, window)
	for i := 0; i < n; i++ {
		copy(sorted, returns.Values[i:i+window])
		sort.Float64s(sorted)
		forecast.Values[i] = stat.Quantile(alpha, stat.Empirical, sorted, nil)
	}
	return actual, forecast
}
