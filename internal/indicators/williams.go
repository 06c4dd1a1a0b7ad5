package indicators

import (
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// WilliamsR measures the close against the period high, on a -100..0 scale
type WilliamsR struct {
	period int
}

// NewWilliamsR creates a new Williams %R indicator
func NewWilliamsR(period int) *WilliamsR {
	return &WilliamsR{period: period}
}

// Calculate returns -100 * (high - close) / (high - low). A flat range yields -50.
func (w *WilliamsR) Calculate(data []types.OHLCV) (float64, bool) {
	if w.period <= 0 || len(data) < w.period {
		return 0, false
	}

	window := data[len(data)-w.period:]
	high, low := highLow(window)
	if high == low {
		return -50, true
	}
	last := window[len(window)-1].Close
	return -100 * (high - last) / (high - low), true
}

// GetName returns the indicator name
func (w *WilliamsR) GetName() string {
	return "WILLR"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (w *WilliamsR) GetRequiredPeriods() int {
	return w.period
}
