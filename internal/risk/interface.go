package risk

import "github.com/ducminhle1904/crypto-risk-engine/pkg/types"

// Sizer converts a gated signal into a trade quantity
type Sizer interface {
	// Size returns the quantity to open; a zero quantity carries the rejection reason
	Size(req SizingRequest) SizingDecision
}

// StopEngine sets and trails the protective levels of a position
type StopEngine interface {
	// Levels returns the initial stop-loss and take-profit for a new position
	Levels(side types.Side, entry float64, vol VolatilityState) (Levels, error)

	// Trail returns the stop to use at the current price, never looser than stop
	Trail(side types.Side, entry, current, stop float64) (float64, bool)
}
