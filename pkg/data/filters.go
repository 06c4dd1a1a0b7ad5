package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// ValidateTimeSequence ensures data is strictly ascending by timestamp
func ValidateTimeSequence(data []types.OHLCV) error {
	for i := 1; i < len(data); i++ {
		if data[i].Timestamp.Before(data[i-1].Timestamp) {
			return fmt.Errorf("data not in chronological order at index %d: %s comes after %s",
				i, data[i].Timestamp.Format(time.RFC3339), data[i-1].Timestamp.Format(time.RFC3339))
		}
		if data[i].Timestamp.Equal(data[i-1].Timestamp) {
			return fmt.Errorf("duplicate timestamp at index %d: %s",
				i, data[i].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// Normalize returns a copy sorted ascending with duplicate timestamps removed, keeping the first
func Normalize(data []types.OHLCV) []types.OHLCV {
	sorted := make([]types.OHLCV, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := sorted[:0]
	for i, bar := range sorted {
		if i > 0 && bar.Timestamp.Equal(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, bar)
	}
	return out
}

// Tail returns at most the last n bars of data
func Tail(data []types.OHLCV, n int) []types.OHLCV {
	if n <= 0 || n >= len(data) {
		return data
	}
	return data[len(data)-n:]
}
