package indicators

import (
	"math"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// cciConstant is Lambert's scaling so that most values fall within +-100
const cciConstant = 0.015

// CCI represents the Commodity Channel Index
type CCI struct {
	period int
}

// NewCCI creates a new CCI indicator
func NewCCI(period int) *CCI {
	return &CCI{period: period}
}

// Calculate returns (TP - SMA(TP)) / (0.015 * meanDeviation) for the latest bar.
// Zero mean deviation yields 0.
func (c *CCI) Calculate(data []types.OHLCV) (float64, bool) {
	if c.period <= 0 || len(data) < c.period {
		return 0, false
	}

	window := data[len(data)-c.period:]
	typical := make([]float64, len(window))
	for i, bar := range window {
		typical[i] = (bar.High + bar.Low + bar.Close) / 3.0
	}

	mean, _ := SimpleAverage(typical, c.period)
	deviation := 0.0
	for _, tp := range typical {
		deviation += math.Abs(tp - mean)
	}
	deviation /= float64(c.period)

	if deviation == 0 {
		return 0, true
	}
	return (typical[len(typical)-1] - mean) / (cciConstant * deviation), true
}

// GetName returns the indicator name
func (c *CCI) GetName() string {
	return "CCI"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (c *CCI) GetRequiredPeriods() int {
	return c.period
}
