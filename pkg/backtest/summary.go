package backtest

import (
	"gonum.org/v1/gonum/stat"
)

// Summary bundles the breach statistics handed to calibration and independence tests
type Summary struct {
	Observations int     `json:"observations"`
	Alpha        float64 `json:"alpha"`
	Hits         int     `json:"hits"`
	HitRate      float64 `json:"hit_rate"`
	ExpectedHits float64 `json:"expected_hits"`
	HitIndices   []int   `json:"hit_indices"`
	Durations    []int   `json:"durations"`
	MeanDuration float64 `json:"mean_duration"`
	// NoBreaches marks a sample without any breach; Durations then holds only
	// the boundary span and is not a breach-to-breach gap.
	NoBreaches bool `json:"no_breaches"`
}

// Summary computes every derived statistic in one pass over the queries
func (b *Backtester) Summary() Summary {
	hits := b.NumberOfHits()
	durations := b.DurationSeries()

	var meanDuration float64
	if len(durations) > 0 {
		meanDuration = stat.Mean(toFloats(durations), nil)
	}

	return Summary{
		Observations: b.Len(),
		Alpha:        b.alpha,
		Hits:         hits,
		HitRate:      b.HitRate(),
		ExpectedHits: b.ExpectedHits(),
		HitIndices:   b.HitIndices(),
		Durations:    durations,
		MeanDuration: meanDuration,
		NoBreaches:   hits == 0,
	}
}
