package indicators

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// Bands holds the Bollinger envelope for the latest bar
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Width returns (upper - lower) / price, or false for a non-positive price
func (b Bands) Width(price float64) (float64, bool) {
	if price <= 0 {
		return 0, false
	}
	return (b.Upper - b.Lower) / price, true
}

// BollingerBands represents the Bollinger Bands indicator
type BollingerBands struct {
	period         int
	stdDevMultiple float64
}

// NewBollingerBands creates a new BollingerBands instance with the given period and standard deviation multiplier
func NewBollingerBands(period int, stdDev float64) *BollingerBands {
	return &BollingerBands{
		period:         period,
		stdDevMultiple: stdDev,
	}
}

// Calculate computes the upper, middle, and lower bands using the population standard deviation
func (bb *BollingerBands) Calculate(data []types.OHLCV) (Bands, bool) {
	if bb.period <= 0 || len(data) < bb.period {
		return Bands{}, false
	}

	recent := types.Closes(data[len(data)-bb.period:])
	middle, variance := stat.PopMeanVariance(recent, nil)
	stdDev := math.Sqrt(variance)

	return Bands{
		Upper:  middle + bb.stdDevMultiple*stdDev,
		Middle: middle,
		Lower:  middle - bb.stdDevMultiple*stdDev,
	}, true
}

// GetName returns the indicator name
func (bb *BollingerBands) GetName() string {
	return "BB"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (bb *BollingerBands) GetRequiredPeriods() int {
	return bb.period
}
