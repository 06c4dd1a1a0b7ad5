package risk

import (
	"math"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
	"github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

const (
	// RewardRiskRatio fixes take-profit distance at twice the stop distance
	RewardRiskRatio = 2.0

	// volatility at which the base stop is used unadjusted
	referenceVolatility = 0.2

	// widest stop, as a fraction of entry, regardless of adjustments
	maxStopFraction = 0.5
)

// Levels are the protective prices of a position
type Levels struct {
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// StopLossEngine places adaptive stops and trails them as price moves into profit
type StopLossEngine struct {
	cfg config.StopConfig
}

// NewStopLossEngine creates a stop engine from validated configuration
func NewStopLossEngine(cfg config.StopConfig) *StopLossEngine {
	return &StopLossEngine{cfg: cfg}
}

// TrendAdjustment widens stops while volatility is rising and tightens them while it falls
func TrendAdjustment(trend VolatilityTrend) float64 {
	switch trend {
	case VolatilityIncreasing:
		return 1.2
	case VolatilityDecreasing:
		return 0.8
	default:
		return 1.0
	}
}

// StopFraction returns the stop distance as a fraction of entry for the volatility state
func (e *StopLossEngine) StopFraction(vol VolatilityState) float64 {
	volAdj := 1 + (vol.Annualized-referenceVolatility)*0.5
	fraction := e.cfg.BaseStopPct * volAdj * TrendAdjustment(vol.Trend)
	return math.Min(fraction, maxStopFraction)
}

// Levels returns stop-loss and take-profit for a new position at entry
func (e *StopLossEngine) Levels(side types.Side, entry float64, vol VolatilityState) (Levels, error) {
	if entry <= 0 {
		return Levels{}, errors.Degenerate("stoploss", "levels", "entry price must be positive")
	}
	fraction := e.StopFraction(vol)
	if fraction <= 0 {
		return Levels{}, errors.Degenerate("stoploss", "levels", "non-positive stop distance")
	}

	stop := entry * (1 - side.Sign()*fraction)
	return Levels{
		StopLoss:   stop,
		TakeProfit: TakeProfit(side, entry, stop),
	}, nil
}

// TakeProfit places the target at RewardRiskRatio times the stop distance beyond entry
func TakeProfit(side types.Side, entry, stop float64) float64 {
	return entry + RewardRiskRatio*side.Sign()*math.Abs(entry-stop)
}

// Trail returns the stop to hold at current and whether it moved.
// Trailing engages once the move from entry in the position's favor reaches the trigger;
// the candidate stop is adopted only when it is tighter than stop.
func (e *StopLossEngine) Trail(side types.Side, entry, current, stop float64) (float64, bool) {
	if entry <= 0 || current <= 0 {
		return stop, false
	}

	profit := side.Sign() * (current - entry) / entry
	if profit < e.cfg.TrailingTriggerPct {
		return stop, false
	}

	candidate := current * (1 - side.Sign()*e.cfg.TrailingPct)
	if side == types.Short {
		if candidate < stop {
			return candidate, true
		}
		return stop, false
	}
	if candidate > stop {
		return candidate, true
	}
	return stop, false
}

// Crossed reports whether current has reached the stop or the target
func Crossed(side types.Side, current float64, l Levels) (stopped, tookProfit bool) {
	if side == types.Short {
		return current >= l.StopLoss, current <= l.TakeProfit
	}
	return current <= l.StopLoss, current >= l.TakeProfit
}
