package data

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// ReplayProvider serves preloaded series as if they were arriving live: each Advance
// reveals one more bar per symbol, and GetBars never returns bars beyond the cursor.
type ReplayProvider struct {
	mu     sync.RWMutex
	series map[string][]types.OHLCV
	cursor map[string]int
}

// NewReplayProvider creates a replay over series, revealing the first warmup bars immediately
func NewReplayProvider(series map[string][]types.OHLCV, warmup int) *ReplayProvider {
	rp := &ReplayProvider{
		series: make(map[string][]types.OHLCV, len(series)),
		cursor: make(map[string]int, len(series)),
	}
	for symbol, bars := range series {
		key := strings.ToUpper(symbol)
		rp.series[key] = Normalize(bars)
		rp.cursor[key] = min(warmup, len(rp.series[key]))
	}
	return rp
}

// LoadReplay builds a replay provider by locating and loading one file per symbol under dataRoot
func LoadReplay(loader Loader, dataRoot string, symbols []string, warmup int) (*ReplayProvider, error) {
	series := make(map[string][]types.OHLCV, len(symbols))
	for _, symbol := range symbols {
		path := FindDataFile(dataRoot, symbol)
		if path == "" {
			return nil, errors.DataUnavailable("replay", "locate", symbol, fmt.Errorf("no candle file under %s", dataRoot))
		}
		bars, err := loader.LoadData(path)
		if err != nil {
			return nil, errors.DataUnavailable("replay", "load", symbol, err)
		}
		if err := loader.ValidateData(Normalize(bars)); err != nil {
			return nil, errors.DataUnavailable("replay", "validate", symbol, err)
		}
		series[symbol] = bars
	}
	return NewReplayProvider(series, warmup), nil
}

// Advance reveals the next bar of every symbol and reports whether any symbol moved
func (rp *ReplayProvider) Advance() bool {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	moved := false
	for symbol, bars := range rp.series {
		if rp.cursor[symbol] < len(bars) {
			rp.cursor[symbol]++
			moved = true
		}
	}
	return moved
}

// Remaining returns how many bars of symbol are still unrevealed
func (rp *ReplayProvider) Remaining(symbol string) int {
	rp.mu.RLock()
	defer rp.mu.RUnlock()
	key := strings.ToUpper(symbol)
	return len(rp.series[key]) - rp.cursor[key]
}

// GetBars returns up to lookback revealed bars for symbol
func (rp *ReplayProvider) GetBars(ctx context.Context, symbol string, lookback int) ([]types.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Classify(err, "replay", "get_bars", symbol)
	}

	rp.mu.RLock()
	defer rp.mu.RUnlock()

	key := strings.ToUpper(symbol)
	bars, ok := rp.series[key]
	if !ok {
		return nil, errors.DataUnavailable("replay", "get_bars", symbol, fmt.Errorf("unknown symbol"))
	}
	revealed := bars[:rp.cursor[key]]
	if len(revealed) == 0 {
		return nil, errors.DataUnavailable("replay", "get_bars", symbol, fmt.Errorf("no bars revealed yet"))
	}

	window := Tail(revealed, lookback)
	out := make([]types.OHLCV, len(window))
	copy(out, window)
	return out, nil
}
