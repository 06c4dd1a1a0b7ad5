package indicators

import (
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// EMA represents the Exponential Moving Average technical indicator
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator
func NewEMA(period int) *EMA {
	return &EMA{period: period}
}

// Calculate returns the latest EMA of the close series
func (e *EMA) Calculate(data []types.OHLCV) (float64, bool) {
	series := ExponentialSeries(types.Closes(data), e.period)
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// GetName returns the indicator name
func (e *EMA) GetName() string {
	return "EMA"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (e *EMA) GetRequiredPeriods() int {
	return e.period
}

// ExponentialSeries returns the EMA of values, seeded with the SMA of the first period values.
// Element i of the result corresponds to values[i+period-1]. Returns nil if there is not enough data.
func ExponentialSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	alpha := 2.0 / float64(period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, seed)
	prev := seed
	for _, v := range values[period:] {
		// EMA = (Value * Alpha) + (Previous EMA * (1 - Alpha))
		prev = v*alpha + prev*(1-alpha)
		out = append(out, prev)
	}
	return out
}
