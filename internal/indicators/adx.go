package indicators

import (
	"math"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// ADX represents the Average Directional Index technical indicator
// ADX measures trend strength regardless of direction (0-100 scale)
// Values > 20 indicate trending market, > 40 indicate strong trend
type ADX struct {
	period int
}

// NewADX creates a new ADX indicator
func NewADX(period int) *ADX {
	return &ADX{period: period}
}

// Calculate runs Wilder's smoothing over TR and directional movement, then smooths DX into ADX
func (adx *ADX) Calculate(data []types.OHLCV) (float64, bool) {
	if adx.period <= 0 || len(data) < adx.GetRequiredPeriods() {
		return 0, false
	}

	p := float64(adx.period)
	trSum, plusDMSum, minusDMSum := 0.0, 0.0, 0.0
	dxValues := make([]float64, 0, len(data))

	for i := 1; i < len(data); i++ {
		current := data[i]
		previous := data[i-1]

		tr := trueRange(current, previous.Close)

		plusDM, minusDM := 0.0, 0.0
		highDiff := current.High - previous.High
		lowDiff := previous.Low - current.Low
		if highDiff > lowDiff && highDiff > 0 {
			plusDM = highDiff
		}
		if lowDiff > highDiff && lowDiff > 0 {
			minusDM = lowDiff
		}

		if i <= adx.period {
			// accumulate the initial sums
			trSum += tr
			plusDMSum += plusDM
			minusDMSum += minusDM
			if i < adx.period {
				continue
			}
		} else {
			// Wilder's smoothing
			trSum = trSum - trSum/p + tr
			plusDMSum = plusDMSum - plusDMSum/p + plusDM
			minusDMSum = minusDMSum - minusDMSum/p + minusDM
		}

		dxValues = append(dxValues, directionalIndex(plusDMSum, minusDMSum, trSum))
	}

	if len(dxValues) < adx.period {
		return 0, false
	}

	value := 0.0
	for _, dx := range dxValues[:adx.period] {
		value += dx
	}
	value /= p
	for _, dx := range dxValues[adx.period:] {
		value = (value*(p-1) + dx) / p
	}
	return value, true
}

// GetName returns the indicator name
func (adx *ADX) GetName() string {
	return "ADX"
}

// GetRequiredPeriods returns minimum periods needed for calculation
func (adx *ADX) GetRequiredPeriods() int {
	return adx.period*2 + 1
}

// directionalIndex returns DX from smoothed directional movement; a zero range yields 0
func directionalIndex(plusDM, minusDM, tr float64) float64 {
	if tr == 0 {
		return 0
	}
	plusDI := plusDM / tr * 100
	minusDI := minusDM / tr * 100
	diSum := plusDI + minusDI
	if diSum == 0 {
		return 0
	}
	return math.Abs(plusDI-minusDI) / diSum * 100
}
