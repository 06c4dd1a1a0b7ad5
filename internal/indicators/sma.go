package indicators

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// SMA represents the Simple Moving Average technical indicator
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate returns the mean close over the last period bars
func (s *SMA) Calculate(data []types.OHLCV) (float64, bool) {
	return SimpleAverage(types.Closes(data), s.period)
}

// GetName returns the indicator name
func (s *SMA) GetName() string {
	return "SMA"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}

// SimpleAverage is the mean of the last period values
func SimpleAverage(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	return stat.Mean(values[len(values)-period:], nil), true
}
