package types

import "time"

// OHLCV is a single price bar. Series are ordered ascending by Timestamp.
type OHLCV struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Closes extracts the close prices of a bar series
func Closes(data []OHLCV) []float64 {
	closes := make([]float64, len(data))
	for i, bar := range data {
		closes[i] = bar.Close
	}
	return closes
}

// Last returns the most recent bar, or false for an empty series
func Last(data []OHLCV) (OHLCV, bool) {
	if len(data) == 0 {
		return OHLCV{}, false
	}
	return data[len(data)-1], true
}

// Side is the direction of an open position
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Sign returns +1 for Long and -1 for Short
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}
