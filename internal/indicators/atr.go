package indicators

import (
	"math"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// ATR represents the Average True Range technical indicator
// ATR measures market volatility by decomposing the entire range of an asset price for that period
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Calculate returns the Wilder-smoothed true range of the latest bar
func (a *ATR) Calculate(data []types.OHLCV) (float64, bool) {
	if a.period <= 0 || len(data) < a.GetRequiredPeriods() {
		return 0, false
	}

	ranges := trueRanges(data)
	atr := 0.0
	for _, tr := range ranges[:a.period] {
		atr += tr
	}
	atr /= float64(a.period)

	for _, tr := range ranges[a.period:] {
		atr = (atr*float64(a.period-1) + tr) / float64(a.period)
	}
	return atr, true
}

// GetName returns the indicator name
func (a *ATR) GetName() string {
	return "ATR"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (a *ATR) GetRequiredPeriods() int {
	return a.period + 1 // Need extra period for True Range calculation
}

// trueRanges returns TR for every bar after the first
func trueRanges(data []types.OHLCV) []float64 {
	if len(data) < 2 {
		return nil
	}
	out := make([]float64, len(data)-1)
	for i := 1; i < len(data); i++ {
		out[i-1] = trueRange(data[i], data[i-1].Close)
	}
	return out
}

// trueRange = max(High-Low, abs(High-PrevClose), abs(Low-PrevClose))
func trueRange(current types.OHLCV, prevClose float64) float64 {
	hl := current.High - current.Low
	hc := math.Abs(current.High - prevClose)
	lc := math.Abs(current.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}
