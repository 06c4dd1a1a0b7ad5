package indicators

import (
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// OBV represents the On-Balance Volume technical indicator
type OBV struct{}

// NewOBV creates a new OBV indicator
func NewOBV() *OBV {
	return &OBV{}
}

// Calculate accumulates volume signed by close-to-close direction:
//   - If Close[i] > Close[i-1], OBV[i] = OBV[i-1] + Volume[i]
//   - If Close[i] = Close[i-1], OBV[i] = OBV[i-1]
//   - If Close[i] < Close[i-1], OBV[i] = OBV[i-1] - Volume[i]
func (o *OBV) Calculate(data []types.OHLCV) (float64, bool) {
	if len(data) < o.GetRequiredPeriods() {
		return 0, false
	}

	obv := 0.0
	for i := 1; i < len(data); i++ {
		switch {
		case data[i].Close > data[i-1].Close:
			obv += data[i].Volume
		case data[i].Close < data[i-1].Close:
			obv -= data[i].Volume
		}
	}
	return obv, true
}

// GetName returns the indicator name
func (o *OBV) GetName() string {
	return "OBV"
}

// GetRequiredPeriods returns the minimum number of periods needed
func (o *OBV) GetRequiredPeriods() int {
	return 2
}
