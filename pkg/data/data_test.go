package data

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

const sampleCSV = `timestamp,open,high,low,close,volume
2024-01-01 00:00:00,100,105,99,104,1000
2024-01-01 01:00:00,104,106,103,105,1200
2024-01-01 02:00:00,105,bad,103,104,900
2024-01-01 03:00:00,104,104,100,101,1100
2024-01-01 04:00:00,101,100,99,100,800
2024-01-01 05:00:00,100,102
`

func hourly(n int) []types.OHLCV {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.OHLCV, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = types.OHLCV{Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10, Timestamp: start.Add(time.Duration(i) * time.Hour)}
	}
	return out
}

func TestCSVProvider_Parse(t *testing.T) {
	bars, err := NewCSVProvider().Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	// bad number, high below open and short row are skipped
	require.Len(t, bars, 3)
	assert.Equal(t, 104.0, bars[0].Close)
	assert.Equal(t, 101.0, bars[2].Close)
	assert.Equal(t, time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC), bars[2].Timestamp)
}

func TestCSVProvider_LoadData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "BTCUSDT.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	p := NewCSVProvider()
	bars, err := p.LoadData(path)
	require.NoError(t, err)
	assert.NoError(t, p.ValidateData(bars))

	_, err = p.LoadData(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestCSVProvider_ValidateData(t *testing.T) {
	p := NewCSVProvider()
	assert.Error(t, p.ValidateData(nil))

	bars := hourly(3)
	bars[1].Low = bars[1].Close + 5
	assert.Error(t, p.ValidateData(bars))

	bars = hourly(3)
	bars[2].Timestamp = bars[0].Timestamp
	assert.Error(t, p.ValidateData(bars))
}

func TestNormalizeAndTail(t *testing.T) {
	bars := hourly(4)
	shuffled := []types.OHLCV{bars[2], bars[0], bars[3], bars[1], bars[0]}

	norm := Normalize(shuffled)
	require.Len(t, norm, 4)
	assert.NoError(t, ValidateTimeSequence(norm))
	assert.Equal(t, bars[2].Timestamp, shuffled[0].Timestamp, "input is not reordered")

	assert.Len(t, Tail(norm, 2), 2)
	assert.Equal(t, bars[3], Tail(norm, 1)[0])
	assert.Len(t, Tail(norm, 10), 4)
}

func TestFindDataFile(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, FindDataFile(dir, "BTCUSDT"))

	nested := filepath.Join(dir, "bybit", "linear", "ETHUSDT", "60")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "candles.csv"), []byte(sampleCSV), 0o644))
	assert.Equal(t, filepath.Join(nested, "candles.csv"), FindDataFile(dir, "ethusdt"))

	flat := filepath.Join(dir, "BTCUSDT.csv")
	require.NoError(t, os.WriteFile(flat, []byte(sampleCSV), 0o644))
	assert.Equal(t, flat, FindDataFile(dir, "BTCUSDT"))
}

type countingLoader struct {
	*CSVProvider
	calls int
}

func (c *countingLoader) LoadData(source string) ([]types.OHLCV, error) {
	c.calls++
	return c.CSVProvider.LoadData(source)
}

func TestCachedProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "BTCUSDT.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	inner := &countingLoader{CSVProvider: NewCSVProvider()}
	cached := NewCachedProvider(inner, zerolog.Nop())

	first, err := cached.LoadData(path)
	require.NoError(t, err)
	first[0].Close = -1

	second, err := cached.LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 104.0, second[0].Close, "cache hands out copies")
	assert.Equal(t, 1, cached.CacheSize())
}

func TestReplayProvider(t *testing.T) {
	ctx := context.Background()
	rp := NewReplayProvider(map[string][]types.OHLCV{"btcusdt": hourly(5)}, 3)

	bars, err := rp.GetBars(ctx, "BTCUSDT", 10)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, 102.0, bars[2].Close)

	assert.True(t, rp.Advance())
	bars, err = rp.GetBars(ctx, "BTCUSDT", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 103.0, bars[1].Close)

	assert.True(t, rp.Advance())
	assert.Zero(t, rp.Remaining("BTCUSDT"))
	assert.False(t, rp.Advance())

	bars[0].Close = 0
	again, err := rp.GetBars(ctx, "BTCUSDT", 2)
	require.NoError(t, err)
	assert.Equal(t, 103.0, again[0].Close)
}

func TestReplayProvider_Errors(t *testing.T) {
	rp := NewReplayProvider(map[string][]types.OHLCV{"BTCUSDT": hourly(5)}, 0)

	_, err := rp.GetBars(context.Background(), "BTCUSDT", 10)
	assert.ErrorIs(t, err, errors.ErrDataUnavailable)

	_, err = rp.GetBars(context.Background(), "DOGEUSDT", 10)
	assert.ErrorIs(t, err, errors.ErrDataUnavailable)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	_, err = rp.GetBars(ctx, "BTCUSDT", 10)
	assert.ErrorIs(t, err, errors.ErrTickTimeout)
}

func TestLoadReplay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BTCUSDT.csv"), []byte(sampleCSV), 0o644))

	rp, err := LoadReplay(NewCSVProvider(), dir, []string{"BTCUSDT"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, rp.Remaining("BTCUSDT"))

	_, err = LoadReplay(NewCSVProvider(), dir, []string{"ETHUSDT"}, 2)
	assert.ErrorIs(t, err, errors.ErrDataUnavailable)
}
