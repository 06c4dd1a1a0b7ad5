package indicators

import (
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// Periods configures the indicator windows
type Periods struct {
	SMAShort    int
	SMALong     int
	RSI         int
	MACDFast    int
	MACDSlow    int
	MACDSignal  int
	Bollinger   int
	BollingerK  float64
	StochasticK int
	StochasticD int
	WilliamsR   int
	CCI         int
	ATR         int
	ADX         int
	MFI         int
}

// DefaultPeriods returns the standard window defaults
func DefaultPeriods() Periods {
	return Periods{
		SMAShort:    20,
		SMALong:     50,
		RSI:         14,
		MACDFast:    12,
		MACDSlow:    26,
		MACDSignal:  9,
		Bollinger:   20,
		BollingerK:  2.0,
		StochasticK: 14,
		StochasticD: 3,
		WilliamsR:   14,
		CCI:         20,
		ATR:         14,
		ADX:         14,
		MFI:         14,
	}
}

// Calculator turns a bar series into an indicator Set
type Calculator struct {
	smaShort   *SMA
	smaLong    *SMA
	emaFast    *EMA
	emaSlow    *EMA
	rsi        *RSI
	macd       *MACD
	bollinger  *BollingerBands
	stochastic *Stochastic
	williams   *WilliamsR
	cci        *CCI
	atr        *ATR
	adx        *ADX
	obv        *OBV
	mfi        *MFI
}

// NewCalculator creates a calculator with the default windows
func NewCalculator() *Calculator {
	return NewCalculatorWithPeriods(DefaultPeriods())
}

// NewCalculatorWithPeriods creates a calculator with custom windows
func NewCalculatorWithPeriods(p Periods) *Calculator {
	return &Calculator{
		smaShort:   NewSMA(p.SMAShort),
		smaLong:    NewSMA(p.SMALong),
		emaFast:    NewEMA(p.MACDFast),
		emaSlow:    NewEMA(p.MACDSlow),
		rsi:        NewRSI(p.RSI),
		macd:       NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal),
		bollinger:  NewBollingerBands(p.Bollinger, p.BollingerK),
		stochastic: NewStochastic(p.StochasticK, p.StochasticD),
		williams:   NewWilliamsR(p.WilliamsR),
		cci:        NewCCI(p.CCI),
		atr:        NewATR(p.ATR),
		adx:        NewADX(p.ADX),
		obv:        NewOBV(),
		mfi:        NewMFI(p.MFI),
	}
}

// RequiredPeriods returns the longest window among all indicators
func (c *Calculator) RequiredPeriods() int {
	longest := 0
	for _, ind := range c.all() {
		if n := ind.GetRequiredPeriods(); n > longest {
			longest = n
		}
	}
	return longest
}

// Calculate computes every indicator whose window is satisfied. Indicators with too few bars are omitted.
func (c *Calculator) Calculate(data []types.OHLCV) Set {
	set := make(Set)
	last, ok := types.Last(data)
	if !ok {
		return set
	}
	set[Price] = last.Close

	put := func(name string, v float64, ok bool) {
		if ok {
			set[name] = v
		}
	}

	v, ok := c.smaShort.Calculate(data)
	put(SMA20, v, ok)
	v, ok = c.smaLong.Calculate(data)
	put(SMA50, v, ok)
	v, ok = c.emaFast.Calculate(data)
	put(EMA12, v, ok)
	v, ok = c.emaSlow.Calculate(data)
	put(EMA26, v, ok)
	v, ok = c.rsi.Calculate(data)
	put(RSI14, v, ok)

	if m, ok := c.macd.Calculate(data); ok {
		set[MACDLine] = m.MACD
		set[MACDSignal] = m.Signal
		set[MACDHistogram] = m.Histogram
	}

	if b, ok := c.bollinger.Calculate(data); ok {
		set[BBUpper] = b.Upper
		set[BBMiddle] = b.Middle
		set[BBLower] = b.Lower
	}

	if s, ok := c.stochastic.Calculate(data); ok {
		set[StochK] = s.K
		set[StochD] = s.D
	}

	v, ok = c.williams.Calculate(data)
	put(WilliamsR14, v, ok)
	v, ok = c.cci.Calculate(data)
	put(CCI20, v, ok)
	v, ok = c.atr.Calculate(data)
	put(ATR14, v, ok)
	v, ok = c.adx.Calculate(data)
	put(ADX14, v, ok)
	v, ok = c.obv.Calculate(data)
	put(OBVValue, v, ok)
	v, ok = c.mfi.Calculate(data)
	put(MFI14, v, ok)

	return set
}

func (c *Calculator) all() []Indicator {
	return []Indicator{
		c.smaShort, c.smaLong, c.emaFast, c.emaSlow, c.rsi, c.macd, c.bollinger,
		c.stochastic, c.williams, c.cci, c.atr, c.adx, c.obv, c.mfi,
	}
}
