package indicators

import (
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// StochasticResult holds %K and its smoothed %D
type StochasticResult struct {
	K float64
	D float64
}

// Stochastic locates the close within the recent high/low range
type Stochastic struct {
	kPeriod int
	dPeriod int
}

// NewStochastic creates a new Stochastic oscillator
func NewStochastic(kPeriod, dPeriod int) *Stochastic {
	return &Stochastic{kPeriod: kPeriod, dPeriod: dPeriod}
}

// Calculate returns %K for the latest bar and %D as the SMA of the last dPeriod %K values.
// A flat range yields %K = 50.
func (s *Stochastic) Calculate(data []types.OHLCV) (StochasticResult, bool) {
	if s.kPeriod <= 0 || s.dPeriod <= 0 || len(data) < s.GetRequiredPeriods() {
		return StochasticResult{}, false
	}

	ks := make([]float64, 0, s.dPeriod)
	for end := len(data) - s.dPeriod + 1; end <= len(data); end++ {
		window := data[end-s.kPeriod : end]
		high, low := highLow(window)
		last := window[len(window)-1].Close
		k := 50.0
		if high > low {
			k = 100 * (last - low) / (high - low)
		}
		ks = append(ks, k)
	}

	d, _ := SimpleAverage(ks, s.dPeriod)
	return StochasticResult{K: ks[len(ks)-1], D: d}, true
}

// GetName returns the indicator name
func (s *Stochastic) GetName() string {
	return "STOCH"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (s *Stochastic) GetRequiredPeriods() int {
	return s.kPeriod + s.dPeriod - 1
}

// highLow returns the highest high and lowest low of a window
func highLow(window []types.OHLCV) (high, low float64) {
	high, low = window[0].High, window[0].Low
	for _, bar := range window[1:] {
		if bar.High > high {
			high = bar.High
		}
		if bar.Low < low {
			low = bar.Low
		}
	}
	return high, low
}
