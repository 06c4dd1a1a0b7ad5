package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// generateTestData builds bars whose close follows closeFn, with a +-1 high/low range
func generateTestData(n int, closeFn func(i int) float64) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	data := make([]types.OHLCV, n)
	for i := 0; i < n; i++ {
		c := closeFn(i)
		data[i] = types.OHLCV{
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
		}
	}
	return data
}

func linear(start, step float64) func(i int) float64 {
	return func(i int) float64 { return start + step*float64(i) }
}

func constant(v float64) func(i int) float64 {
	return func(int) float64 { return v }
}

// generateRealisticData is a deterministic trending series with cycles
func generateRealisticData(n int) []types.OHLCV {
	return generateTestData(n, func(i int) float64 {
		return 100 + 0.2*float64(i) + 5*math.Sin(float64(i)/4) + 2*math.Cos(float64(i)/1.7)
	})
}

func TestSMA_Calculate(t *testing.T) {
	sma := NewSMA(20)

	value, ok := sma.Calculate(generateTestData(20, linear(1, 1)))
	require.True(t, ok)
	assert.InDelta(t, 10.5, value, 1e-9)

	_, ok = sma.Calculate(generateTestData(19, linear(1, 1)))
	assert.False(t, ok)
	assert.Equal(t, 20, sma.GetRequiredPeriods())
}

func TestExponentialSeries(t *testing.T) {
	series := ExponentialSeries([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, series, 3)
	assert.InDelta(t, 2.0, series[0], 1e-9)
	assert.InDelta(t, 3.0, series[1], 1e-9)
	assert.InDelta(t, 4.0, series[2], 1e-9)

	assert.Nil(t, ExponentialSeries([]float64{1, 2}, 3))
}

func TestRSI_Calculate(t *testing.T) {
	rsi := NewRSI(14)

	t.Run("rising prices have no losses", func(t *testing.T) {
		value, ok := rsi.Calculate(generateTestData(20, linear(100, 1)))
		require.True(t, ok)
		assert.Equal(t, 100.0, value)
	})

	t.Run("falling prices have no gains", func(t *testing.T) {
		value, ok := rsi.Calculate(generateTestData(20, linear(100, -1)))
		require.True(t, ok)
		assert.InDelta(t, 0.0, value, 1e-9)
	})

	t.Run("balanced moves give 50", func(t *testing.T) {
		data := generateTestData(15, func(i int) float64 { return 100 + float64(i%2) })
		value, ok := rsi.Calculate(data)
		require.True(t, ok)
		assert.InDelta(t, 50.0, value, 1e-9)
	})

	t.Run("insufficient data", func(t *testing.T) {
		_, ok := rsi.Calculate(generateTestData(14, linear(100, 1)))
		assert.False(t, ok)
		assert.Equal(t, 15, rsi.GetRequiredPeriods())
	})
}

func TestRSI_AlwaysWithinRange(t *testing.T) {
	rsi := NewRSI(14)
	data := generateRealisticData(200)

	for i := rsi.GetRequiredPeriods(); i <= len(data); i++ {
		value, ok := rsi.Calculate(data[:i])
		require.True(t, ok)
		assert.GreaterOrEqual(t, value, 0.0)
		assert.LessOrEqual(t, value, 100.0)
	}
}

func TestMACD_Calculate(t *testing.T) {
	macd := NewMACD(12, 26, 9)
	assert.Equal(t, 34, macd.GetRequiredPeriods())

	_, ok := macd.Calculate(generateTestData(33, linear(100, 1)))
	assert.False(t, ok)

	flat, ok := macd.Calculate(generateTestData(60, constant(100)))
	require.True(t, ok)
	assert.InDelta(t, 0.0, flat.MACD, 1e-9)
	assert.InDelta(t, 0.0, flat.Signal, 1e-9)
	assert.InDelta(t, 0.0, flat.Histogram, 1e-9)

	rising, ok := macd.Calculate(generateTestData(60, linear(100, 1)))
	require.True(t, ok)
	assert.Greater(t, rising.MACD, 0.0)
	assert.InDelta(t, rising.MACD-rising.Signal, rising.Histogram, 1e-12)
}

func TestBollingerBands_Calculate(t *testing.T) {
	bb := NewBollingerBands(5, 2.0)

	bands, ok := bb.Calculate(generateTestData(5, linear(1, 1)))
	require.True(t, ok)
	assert.InDelta(t, 3.0, bands.Middle, 1e-9)
	assert.InDelta(t, 3.0+2*math.Sqrt(2), bands.Upper, 1e-9)
	assert.InDelta(t, 3.0-2*math.Sqrt(2), bands.Lower, 1e-9)

	width, ok := bands.Width(3.0)
	require.True(t, ok)
	assert.InDelta(t, 4*math.Sqrt(2)/3, width, 1e-9)

	flat, ok := bb.Calculate(generateTestData(10, constant(50)))
	require.True(t, ok)
	assert.Equal(t, flat.Upper, flat.Lower)

	_, ok = bb.Calculate(generateTestData(4, linear(1, 1)))
	assert.False(t, ok)
}

func TestStochasticAndWilliams(t *testing.T) {
	data := generateTestData(30, linear(100, 1))

	stoch, ok := NewStochastic(14, 3).Calculate(data)
	require.True(t, ok)
	// highest high is close+1, lowest low is 13 bars back minus 1
	assert.InDelta(t, 100*14.0/15.0, stoch.K, 1e-9)
	assert.InDelta(t, 100*14.0/15.0, stoch.D, 1e-9)

	wr, ok := NewWilliamsR(14).Calculate(data)
	require.True(t, ok)
	assert.InDelta(t, -100*1.0/15.0, wr, 1e-9)

	_, ok = NewStochastic(14, 3).Calculate(data[:15])
	assert.False(t, ok)
}

func TestCCI_Calculate(t *testing.T) {
	value, ok := NewCCI(20).Calculate(generateTestData(25, constant(10)))
	require.True(t, ok)
	assert.Equal(t, 0.0, value)

	rising, ok := NewCCI(20).Calculate(generateTestData(25, linear(10, 1)))
	require.True(t, ok)
	assert.Greater(t, rising, 100.0)
}

func TestATR_Calculate(t *testing.T) {
	atr := NewATR(14)
	value, ok := atr.Calculate(generateTestData(30, linear(100, 1)))
	require.True(t, ok)
	assert.InDelta(t, 2.0, value, 1e-9)

	_, ok = atr.Calculate(generateTestData(14, linear(100, 1)))
	assert.False(t, ok)
}

func TestADX_StrongTrend(t *testing.T) {
	adx := NewADX(14)
	value, ok := adx.Calculate(generateTestData(60, linear(100, 1)))
	require.True(t, ok)
	assert.InDelta(t, 100.0, value, 1e-6)

	_, ok = adx.Calculate(generateTestData(28, linear(100, 1)))
	assert.False(t, ok)
}

func TestOBVAndMFI(t *testing.T) {
	data := generateTestData(5, linear(100, 1))

	obv, ok := NewOBV().Calculate(data)
	require.True(t, ok)
	assert.Equal(t, 4000.0, obv)

	mfi, ok := NewMFI(3).Calculate(data)
	require.True(t, ok)
	assert.Equal(t, 100.0, mfi)

	falling, ok := NewMFI(3).Calculate(generateTestData(5, linear(100, -1)))
	require.True(t, ok)
	assert.InDelta(t, 0.0, falling, 1e-9)
}

func TestCalculator_OmitsUnsatisfiedWindows(t *testing.T) {
	calc := NewCalculator()

	set := calc.Calculate(generateTestData(30, linear(100, 1)))
	assert.True(t, set.Has(Price, SMA20, RSI14, BBUpper, BBLower, StochK, ATR14, ADX14, MFI14, CCI20))
	_, hasSMA50 := set.Get(SMA50)
	assert.False(t, hasSMA50)
	_, hasMACD := set.Get(MACDLine)
	assert.False(t, hasMACD)

	assert.Empty(t, calc.Calculate(nil))
}

func TestCalculator_FullSetAndPurity(t *testing.T) {
	calc := NewCalculator()
	data := generateRealisticData(100)
	require.GreaterOrEqual(t, len(data), calc.RequiredPeriods())

	first := calc.Calculate(data)
	second := calc.Calculate(data)
	assert.Equal(t, first, second)

	for _, name := range []string{
		Price, SMA20, SMA50, EMA12, EMA26, RSI14, MACDLine, MACDSignal, MACDHistogram,
		BBUpper, BBMiddle, BBLower, StochK, StochD, WilliamsR14, CCI20, ATR14, ADX14, OBVValue, MFI14,
	} {
		_, ok := first.Get(name)
		assert.True(t, ok, "missing %s", name)
	}

	clone := first.Clone()
	clone[RSI14] = -1
	assert.NotEqual(t, first[RSI14], clone[RSI14])
}
