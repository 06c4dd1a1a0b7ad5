package indicators

// Indicator is implemented by every calculator in this package. Calculations are pure:
// they read the bar series and never keep state between calls.
type Indicator interface {
	GetName() string
	GetRequiredPeriods() int
}

// Names of the values an indicator Set may carry
const (
	Price         = "close"
	SMA20         = "sma_20"
	SMA50         = "sma_50"
	EMA12         = "ema_12"
	EMA26         = "ema_26"
	RSI14         = "rsi_14"
	MACDLine      = "macd"
	MACDSignal    = "macd_signal"
	MACDHistogram = "macd_histogram"
	BBUpper       = "bb_upper"
	BBMiddle      = "bb_middle"
	BBLower       = "bb_lower"
	StochK        = "stoch_k"
	StochD        = "stoch_d"
	WilliamsR14   = "williams_r_14"
	CCI20         = "cci_20"
	ATR14         = "atr_14"
	ADX14         = "adx_14"
	OBVValue      = "obv"
	MFI14         = "mfi_14"
)

// Set maps indicator names to values for one symbol at one timestamp.
// An indicator whose window was not satisfied is absent, never zero.
type Set map[string]float64

// Get returns the named value and whether it was computed
func (s Set) Get(name string) (float64, bool) {
	v, ok := s[name]
	return v, ok
}

// Has reports whether every named value is present
func (s Set) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := s[n]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
