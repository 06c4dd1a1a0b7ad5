package risk

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ducminhle1904/crypto-risk-engine/internal/indicators"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// VolatilityTrend classifies short-window against long-window realized volatility
type VolatilityTrend string

const (
	VolatilityIncreasing VolatilityTrend = "INCREASING"
	VolatilityStable     VolatilityTrend = "STABLE"
	VolatilityDecreasing VolatilityTrend = "DECREASING"
)

// DefaultTrendTolerance is the relative band around the long-window volatility treated as stable
const DefaultTrendTolerance = 0.1

// VolatilityState is the volatility input to stop placement
type VolatilityState struct {
	Annualized float64
	Trend      VolatilityTrend
}

// BandVolatility estimates annualized volatility from the Bollinger width at price
func BandVolatility(b indicators.Bands, price, factor float64) (float64, bool) {
	width, ok := b.Width(price)
	if !ok || width < 0 {
		return 0, false
	}
	return width * factor, true
}

// RealizedVolatility is the sample standard deviation of log returns, scaled by sqrt(periodsPerYear).
// It needs at least three closes; non-positive prices make it undefined.
func RealizedVolatility(closes []float64, periodsPerYear float64) (float64, bool) {
	if len(closes) < 3 {
		return 0, false
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return 0, false
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	return stat.StdDev(returns, nil) * math.Sqrt(periodsPerYear), true
}

// ClassifyVolatilityTrend compares realized volatility over the last short bars against the last long bars.
// Increasing when the short window exceeds the long one by more than tolerance, Decreasing when it is
// below by more than tolerance. Falls back to Stable when either window cannot be measured.
func ClassifyVolatilityTrend(bars []types.OHLCV, short, long int, tolerance float64) VolatilityTrend {
	if short < 2 || long <= short || len(bars) < long+1 {
		return VolatilityStable
	}
	closes := types.Closes(bars)

	shortVol, ok := RealizedVolatility(closes[len(closes)-short-1:], 1)
	if !ok {
		return VolatilityStable
	}
	longVol, ok := RealizedVolatility(closes[len(closes)-long-1:], 1)
	if !ok || longVol == 0 {
		return VolatilityStable
	}

	switch ratio := shortVol / longVol; {
	case ratio > 1+tolerance:
		return VolatilityIncreasing
	case ratio < 1-tolerance:
		return VolatilityDecreasing
	default:
		return VolatilityStable
	}
}
