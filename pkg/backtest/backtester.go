// Package backtest compares realized values against Value-at-Risk forecasts.
//
// A Backtester is built once from an actual series, an aligned forecast
// series and the nominal breach probability alpha. Every query is a pure
// function of those inputs and returns freshly allocated results, so a
// Backtester is safe for concurrent use.
package backtest

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Series is a time-labelled sequence of observations
type Series struct {
	Index  []time.Time `json:"index"`
	Values []float64   `json:"values"`
}

// SeriesFromDecimals converts decimal P&L values into a Series
func SeriesFromDecimals(index []time.Time, values []decimal.Decimal) Series {
	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i] = v.InexactFloat64()
	}
	return Series{Index: index, Values: floats}
}

// Option configures a Backtester
type Option func(*Backtester)

// WithLogger sets the logger used for construction and export events
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backtester) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithID overrides the generated run identifier
func WithID(id uuid.UUID) Option {
	return func(b *Backtester) {
		b.id = id
	}
}

// Backtester holds an immutable actual/forecast pair and derives breach statistics from it
type Backtester struct {
	id       uuid.UUID
	index    []time.Time
	actual   []float64
	forecast []float64
	alpha    float64
	logger   *zap.Logger
}

// New validates and copies the inputs. The time index is taken from actual; a
// non-empty forecast index must carry the same timestamps. Every value must be
// finite.
func New(actual, forecast Series, alpha float64, opts ...Option) (*Backtester, error) {
	const op = "backtest.New"

	n := len(actual.Values)
	if n == 0 {
		return nil, NewBacktestError(ErrInvalidInput, "actual series is empty", op).
			WithConstraint("min_observations", 1)
	}
	if len(forecast.Values) != n {
		return nil, newLengthMismatchError(op, "forecast", n, len(forecast.Values))
	}
	if len(actual.Index) != n {
		return nil, newLengthMismatchError(op, "index", n, len(actual.Index))
	}
	if len(forecast.Index) > 0 {
		if len(forecast.Index) != n {
			return nil, newLengthMismatchError(op, "forecast_index", n, len(forecast.Index))
		}
		for i := range forecast.Index {
			if !forecast.Index[i].Equal(actual.Index[i]) {
				return nil, NewBacktestError(ErrInvalidInput, "forecast is not aligned with actual", op).
					WithDetails("position", i).
					WithExpected("timestamp", actual.Index[i]).
					WithDetails("timestamp", forecast.Index[i])
			}
		}
	}
	if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
		return nil, newInvalidAlphaError(op, alpha)
	}
	if err := checkFinite(op, "actual", actual.Values); err != nil {
		return nil, err
	}
	if err := checkFinite(op, "forecast", forecast.Values); err != nil {
		return nil, err
	}

	b := &Backtester{
		id:       uuid.New(),
		index:    append([]time.Time(nil), actual.Index...),
		actual:   append([]float64(nil), actual.Values...),
		forecast: append([]float64(nil), forecast.Values...),
		alpha:    alpha,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(
		zap.String("component", "var-backtest"),
		zap.String("run_id", b.id.String()),
	)

	b.logger.Debug("Backtest created",
		zap.Int("observations", n),
		zap.Float64("alpha", alpha),
		zap.Int("hits", b.NumberOfHits()),
	)

	return b, nil
}

// ID returns the run identifier attached to log entries
func (b *Backtester) ID() uuid.UUID {
	return b.id
}

// Len returns the number of observations
func (b *Backtester) Len() int {
	return len(b.actual)
}

// Alpha returns the nominal breach probability
func (b *Backtester) Alpha() float64 {
	return b.alpha
}

// Index returns a copy of the time labels
func (b *Backtester) Index() []time.Time {
	return append([]time.Time(nil), b.index...)
}

// Actual returns a copy of the realized values
func (b *Backtester) Actual() []float64 {
	return append([]float64(nil), b.actual...)
}

// Forecast returns a copy of the forecasted thresholds
func (b *Backtester) Forecast() []float64 {
	return append([]float64(nil), b.forecast...)
}

// HitSeries returns 1 at every position where the actual value fell below the forecast, 0 elsewhere
func (b *Backtester) HitSeries() []int {
	hits := make([]int, len(b.actual))
	for i := range b.actual {
		if b.actual[i] < b.forecast[i] {
			hits[i] = 1
		}
	}
	return hits
}

// HitIndices returns the positions of true breaches in ascending order
func (b *Backtester) HitIndices() []int {
	indices := []int{}
	for i, h := range b.HitSeries() {
		if h == 1 {
			indices = append(indices, i)
		}
	}
	return indices
}

// NumberOfHits returns the total breach count, in [0, N]
func (b *Backtester) NumberOfHits() int {
	total := 0
	for _, h := range b.HitSeries() {
		total += h
	}
	return total
}

// HitRate returns the empirical breach frequency, NumberOfHits / N
func (b *Backtester) HitRate() float64 {
	return stat.Mean(toFloats(b.HitSeries()), nil)
}

// ExpectedHits returns N * alpha, the breach count of a calibrated model
func (b *Backtester) ExpectedHits() float64 {
	return float64(len(b.actual)) * b.alpha
}

// DurationSeries returns the gaps, in observations, between consecutive ones of
// the hit series after forcing its first and last positions to 1.
//
// With N == 1 the result is empty. With no breaches and N >= 2 the result is
// the single boundary span [N-1], which does not describe a real breach gap.
func (b *Backtester) DurationSeries() []int {
	marked := b.HitSeries()
	marked[0] = 1
	marked[len(marked)-1] = 1

	durations := []int{}
	last := 0
	for i := 1; i < len(marked); i++ {
		if marked[i] == 1 {
			durations = append(durations, i-last)
			last = i
		}
	}
	return durations
}

func checkFinite(operation, field string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewBacktestError(ErrInvalidInput, field+" series contains a non-finite value", operation).
				WithDetails("position", i).
				WithDetails(field, v).
				WithConstraint("finite", true)
		}
	}
	return nil
}

func toFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
