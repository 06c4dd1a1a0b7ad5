package indicators

import (
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// MACDResult holds the MACD line, its signal line and the histogram
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes EMA(fast) - EMA(slow) with an EMA signal line
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD instance with specified fast, slow, and signal periods
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

// Calculate computes the MACD line, signal line, and histogram for the latest bar
func (m *MACD) Calculate(data []types.OHLCV) (MACDResult, bool) {
	if len(data) < m.GetRequiredPeriods() {
		return MACDResult{}, false
	}

	closes := types.Closes(data)
	fast := ExponentialSeries(closes, m.fastPeriod)
	slow := ExponentialSeries(closes, m.slowPeriod)

	// both series end at the last close; align fast onto slow
	offset := len(fast) - len(slow)
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}

	signal := ExponentialSeries(line, m.signalPeriod)
	if len(signal) == 0 {
		return MACDResult{}, false
	}

	last := line[len(line)-1]
	sig := signal[len(signal)-1]
	return MACDResult{MACD: last, Signal: sig, Histogram: last - sig}, true
}

// GetName returns the indicator name
func (m *MACD) GetName() string {
	return "MACD"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (m *MACD) GetRequiredPeriods() int {
	slow := m.slowPeriod
	if m.fastPeriod > slow {
		slow = m.fastPeriod
	}
	return slow + m.signalPeriod - 1
}
