package indicators

import (
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// MFI represents the Money Flow Index technical indicator
// MFI combines price and volume to measure buying/selling pressure
//
//	Raw Money Flow = Typical Price * Volume
//	Money Ratio = Positive Money Flow / Negative Money Flow
//	Money Flow Index = 100 - (100 / (1 + Money Ratio))
type MFI struct {
	period int
}

// NewMFI creates a new Money Flow Index indicator with given period
func NewMFI(period int) *MFI {
	return &MFI{period: period}
}

// Calculate returns the MFI over the last period typical-price changes.
// With no negative flow the index is 100; with no flow at all it is 50.
func (m *MFI) Calculate(data []types.OHLCV) (float64, bool) {
	if m.period <= 0 || len(data) < m.GetRequiredPeriods() {
		return 0, false
	}

	recent := data[len(data)-m.period-1:]
	positive, negative := 0.0, 0.0
	prevTypical := typicalPrice(recent[0])
	for _, bar := range recent[1:] {
		tp := typicalPrice(bar)
		flow := tp * bar.Volume
		if tp > prevTypical {
			positive += flow
		} else if tp < prevTypical {
			negative += flow
		}
		prevTypical = tp
	}

	if negative == 0 {
		if positive == 0 {
			return 50, true
		}
		return 100, true
	}
	ratio := positive / negative
	return 100 - (100 / (1 + ratio)), true
}

// GetName returns the indicator name
func (m *MFI) GetName() string {
	return "MFI"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (m *MFI) GetRequiredPeriods() int {
	return m.period + 1 // Need period+1 for comparison
}

func typicalPrice(bar types.OHLCV) float64 {
	return (bar.High + bar.Low + bar.Close) / 3.0
}
