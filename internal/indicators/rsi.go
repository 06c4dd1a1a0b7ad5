package indicators

import (
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// RSI calculates the Relative Strength Index from the ratio of mean gain to mean loss
type RSI struct {
	period int
}

// NewRSI creates a new RSI instance with the given period
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Calculate computes the RSI over the last period price changes.
// When the mean loss is zero the RSI is 100.
func (r *RSI) Calculate(data []types.OHLCV) (float64, bool) {
	return RelativeStrength(types.Closes(data), r.period)
}

// GetName returns the indicator name
func (r *RSI) GetName() string {
	return "RSI"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (r *RSI) GetRequiredPeriods() int {
	return r.period + 1
}

// RelativeStrength computes the RSI of a price slice
func RelativeStrength(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}

	recent := prices[len(prices)-period-1:]
	gainSum, lossSum := 0.0, 0.0
	for i := 1; i < len(recent); i++ {
		change := recent[i] - recent[i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum -= change
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}
