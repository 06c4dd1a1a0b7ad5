package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
	"github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/internal/evidence"
	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio/storage"
	"github.com/ducminhle1904/crypto-risk-engine/internal/signal"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeMarket serves per-symbol bar series; symbols in block wait for the deadline,
// symbols in stall sleep without looking at the context
type fakeMarket struct {
	mu     sync.Mutex
	series map[string][]types.OHLCV
	block  map[string]bool
	stall  map[string]time.Duration
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		series: make(map[string][]types.OHLCV),
		block:  make(map[string]bool),
		stall:  make(map[string]time.Duration),
	}
}

func (f *fakeMarket) set(symbol string, bars []types.OHLCV) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.series[symbol] = bars
}

func (f *fakeMarket) push(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bars := f.series[symbol]
	prev := bars[len(bars)-1]
	f.series[symbol] = append(bars, bar(prev.Close, price, prev.Timestamp.Add(time.Hour)))
}

func (f *fakeMarket) setBlocking(symbol string, blocking bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block[symbol] = blocking
}

func (f *fakeMarket) setStall(symbol string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stall[symbol] = d
}

func (f *fakeMarket) GetBars(ctx context.Context, symbol string, lookback int) ([]types.OHLCV, error) {
	f.mu.Lock()
	blocking := f.block[symbol]
	stall := f.stall[symbol]
	bars, ok := f.series[symbol]
	f.mu.Unlock()

	if stall > 0 {
		time.Sleep(stall)
	}
	if blocking {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if !ok {
		return nil, fmt.Errorf("no series for %s", symbol)
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	return append([]types.OHLCV(nil), bars...), nil
}

// recordingNotifier keeps every alert it receives
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) SendAlert(_ context.Context, level, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, level+": "+message)
	return nil
}

func (r *recordingNotifier) received(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func bar(open, close float64, ts time.Time) types.OHLCV {
	hi, lo := open, close
	if close > open {
		hi, lo = close, open
	}
	return types.OHLCV{
		Open:      open,
		High:      hi * 1.002,
		Low:       lo * 0.998,
		Close:     close,
		Volume:    1000,
		Timestamp: ts,
	}
}

// crashSeries is a flat market followed by a steady slide into deeply oversold territory
func crashSeries() []types.OHLCV {
	start := testNow.Add(-100 * time.Hour)
	var bars []types.OHLCV
	price := 100.0
	for i := 0; i < 40; i++ {
		next := 100.0 + 0.5
		if i%2 == 1 {
			next = 100.0 - 0.5
		}
		bars = append(bars, bar(price, next, start.Add(time.Duration(i)*time.Hour)))
		price = next
	}
	for i := 40; i < 60; i++ {
		next := price * 0.985
		if i == 59 {
			next = price * 0.94
		}
		bars = append(bars, bar(price, next, start.Add(time.Duration(i)*time.Hour)))
		price = next
	}
	return bars
}

func newsEvidence() evidence.Bundle {
	return evidence.Bundle{
		Textual: []evidence.Item{{
			Description: "exchange inflows slowing",
			Timestamp:   time.Now(),
			Source:      "news",
			Confidence:  evidence.Float(0.8),
		}},
	}
}

func testConfig(symbols ...string) *config.Config {
	cfg := config.Default()
	cfg.Symbols = symbols
	cfg.Sizing.MaxLossFraction = 0.2
	cfg.Runtime.FetchTimeoutSeconds = 1
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, market *fakeMarket, ev evidence.Provider) *Orchestrator {
	t.Helper()
	o, err := New(cfg, market, ev, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return o
}

func TestNew_Validation(t *testing.T) {
	market := newFakeMarket()
	ev := evidence.NewStaticProvider(nil)

	_, err := New(nil, market, ev)
	assert.Equal(t, errors.KindConfigInvalid, errors.KindOf(err))

	bad := testConfig("BTCUSDT")
	bad.Sizing.RiskPerTrade = 0
	_, err = New(bad, market, ev)
	assert.Equal(t, errors.KindConfigInvalid, errors.KindOf(err))

	_, err = New(testConfig("BTCUSDT"), nil, ev)
	assert.Error(t, err)

	_, err = New(testConfig("BTCUSDT"), market, nil)
	assert.Error(t, err)

	o, err := New(testConfig("BTCUSDT"), market, ev)
	require.NoError(t, err)
	assert.Equal(t, StateNoPosition, o.State("BTCUSDT"))
	assert.False(t, o.ReduceRisk())
	_, ok := o.Risk()
	assert.False(t, ok)
}

func TestTick_OpensPositionOnGatedSignal(t *testing.T) {
	market := newFakeMarket()
	market.set("BTCUSDT", crashSeries())
	ev := evidence.NewStaticProvider(map[string]evidence.Bundle{"BTCUSDT": newsEvidence()})
	o := newTestOrchestrator(t, testConfig("BTCUSDT"), market, ev)

	res := o.Tick(context.Background())

	sym := res.Symbols["BTCUSDT"]
	require.NoError(t, sym.Err)
	assert.Equal(t, ActionOpened, sym.Action)
	assert.True(t, sym.Signal.GatePassed)
	assert.True(t, sym.Signal.Direction.IsBuy())
	assert.GreaterOrEqual(t, sym.Signal.Confidence, 0.6)

	positions := o.Positions()
	require.Len(t, positions, 1)
	pos := positions[0]
	assert.Equal(t, types.Long, pos.Side)
	assert.Greater(t, pos.Quantity, 0.0)
	assert.Less(t, pos.StopLoss, pos.EntryPrice)
	assert.Greater(t, pos.TakeProfit, pos.EntryPrice)
	assert.InDelta(t, 2*(pos.EntryPrice-pos.StopLoss), pos.TakeProfit-pos.EntryPrice, 1e-6)
	assert.LessOrEqual(t, pos.Quantity*pos.EntryPrice, 0.1*1_000_000+1e-6)
	assert.Equal(t, StateOpen, o.State("BTCUSDT"))

	snap, ok := o.Risk()
	require.True(t, ok)
	assert.Equal(t, 1, snap.OpenPositions)
	assert.False(t, snap.ShouldReduceRisk)
	assert.Equal(t, int64(1), res.Number)
	assert.NotEmpty(t, res.ID)
}

func TestTick_HoldsWithoutTextualEvidence(t *testing.T) {
	market := newFakeMarket()
	market.set("BTCUSDT", crashSeries())
	o := newTestOrchestrator(t, testConfig("BTCUSDT"), market, evidence.NewStaticProvider(nil))

	res := o.Tick(context.Background())

	sym := res.Symbols["BTCUSDT"]
	require.NoError(t, sym.Err)
	assert.Equal(t, ActionNone, sym.Action)
	assert.Equal(t, signal.Hold, sym.Signal.Direction)
	assert.Equal(t, signal.InsufficientEvidenceReason, sym.Signal.Reason)
	assert.Contains(t, sym.Signal.Missing, evidence.CategoryTextual)
	assert.Empty(t, o.Positions())
	assert.Equal(t, StateNoPosition, o.State("BTCUSDT"))
	assert.Empty(t, res.Stale)
	assert.Equal(t, 1, o.ErrorCounts()[errors.KindEvidenceInsufficient])

	stored, ok := o.Signal("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, signal.Hold, stored.Direction)
}

func TestTick_TimeoutMarksSymbolStale(t *testing.T) {
	market := newFakeMarket()
	market.set("BTCUSDT", crashSeries())
	market.set("ETHUSDT", crashSeries())
	ev := evidence.NewStaticProvider(map[string]evidence.Bundle{
		"BTCUSDT": newsEvidence(),
		"ETHUSDT": newsEvidence(),
	})
	o := newTestOrchestrator(t, testConfig("BTCUSDT", "ETHUSDT"), market, ev)

	o.Tick(context.Background())
	before, ok := o.book.Get("ETHUSDT")
	require.True(t, ok)

	market.setBlocking("ETHUSDT", true)
	market.push("BTCUSDT", before.EntryPrice)
	res := o.Tick(context.Background())

	eth := res.Symbols["ETHUSDT"]
	require.Error(t, eth.Err)
	assert.Equal(t, errors.KindTickTimeout, errors.KindOf(eth.Err))
	assert.Equal(t, []string{"ETHUSDT"}, res.Stale)
	assert.NoError(t, res.Symbols["BTCUSDT"].Err)

	after, ok := o.book.Get("ETHUSDT")
	require.True(t, ok)
	assert.True(t, after.Stale)
	assert.Equal(t, before.StopLoss, after.StopLoss)
	assert.Equal(t, before.CurrentPrice, after.CurrentPrice)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, 1, o.ErrorCounts()[errors.KindTickTimeout])

	market.setBlocking("ETHUSDT", false)
	res = o.Tick(context.Background())
	assert.Empty(t, res.Stale)
}

func TestTick_DeadlineHoldsWhenProviderIgnoresContext(t *testing.T) {
	market := newFakeMarket()
	market.set("BTCUSDT", crashSeries())
	market.set("ETHUSDT", crashSeries())
	market.setStall("ETHUSDT", 3*time.Second)
	o := newTestOrchestrator(t, testConfig("BTCUSDT", "ETHUSDT"), market, evidence.NewStaticProvider(nil))

	start := time.Now()
	res := o.Tick(context.Background())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2500*time.Millisecond)
	assert.Equal(t, errors.KindTickTimeout, errors.KindOf(res.Symbols["ETHUSDT"].Err))
	assert.NoError(t, res.Symbols["BTCUSDT"].Err)
	assert.Equal(t, []string{"ETHUSDT"}, res.Stale)
}

func TestTick_ReduceRiskBlocksNewEntries(t *testing.T) {
	market := newFakeMarket()
	market.set("BTCUSDT", crashSeries())
	ev := evidence.NewStaticProvider(nil)

	cfg := testConfig("BTCUSDT")
	// annual horizon puts VaR above the limit on every tick
	cfg.Portfolio.VaRHorizonDays = 252
	notifier := &recordingNotifier{}
	o, err := New(cfg, market, ev, WithClock(func() time.Time { return testNow }), WithNotifier(notifier))
	require.NoError(t, err)

	o.Tick(context.Background())
	require.True(t, o.ReduceRisk())
	assert.Eventually(t, func() bool { return notifier.received("Reduce-risk mode engaged") },
		time.Second, 10*time.Millisecond)

	ev.Set("BTCUSDT", newsEvidence())
	res := o.Tick(context.Background())

	sym := res.Symbols["BTCUSDT"]
	require.NoError(t, sym.Err)
	assert.True(t, sym.Signal.GatePassed)
	assert.Equal(t, ActionBlocked, sym.Action)
	assert.Empty(t, o.Positions())
}

func TestTick_StopOutRealizesLoss(t *testing.T) {
	market := newFakeMarket()
	market.set("BTCUSDT", crashSeries())
	ev := evidence.NewStaticProvider(map[string]evidence.Bundle{"BTCUSDT": newsEvidence()})
	notifier := &recordingNotifier{}
	o, err := New(testConfig("BTCUSDT"), market, ev, WithClock(func() time.Time { return testNow }), WithNotifier(notifier))
	require.NoError(t, err)

	o.Tick(context.Background())
	pos, ok := o.book.Get("BTCUSDT")
	require.True(t, ok)

	market.push("BTCUSDT", pos.EntryPrice*0.4)
	res := o.Tick(context.Background())

	assert.Equal(t, ActionClosed, res.Symbols["BTCUSDT"].Action)
	assert.Empty(t, o.Positions())
	assert.Equal(t, StateNoPosition, o.State("BTCUSDT"))

	trades := o.ClosedTrades()
	require.Len(t, trades, 1)
	assert.Equal(t, portfolio.StatusStoppedOut, trades[0].Status)
	assert.InDelta(t, (pos.EntryPrice*0.4-pos.EntryPrice)*pos.Quantity, trades[0].RealizedPnL, 1e-6)
	assert.Less(t, o.Equity(), 1_000_000.0)
	assert.Eventually(t, func() bool { return notifier.received("BTCUSDT LONG stopped out") },
		time.Second, 10*time.Millisecond)
}

func TestTick_TrailsStopInProfit(t *testing.T) {
	market := newFakeMarket()
	market.set("BTCUSDT", crashSeries())
	ev := evidence.NewStaticProvider(map[string]evidence.Bundle{"BTCUSDT": newsEvidence()})
	o := newTestOrchestrator(t, testConfig("BTCUSDT"), market, ev)

	o.Tick(context.Background())
	pos, ok := o.book.Get("BTCUSDT")
	require.True(t, ok)

	price := pos.EntryPrice * 1.06
	market.push("BTCUSDT", price)
	res := o.Tick(context.Background())

	assert.Equal(t, ActionTrailed, res.Symbols["BTCUSDT"].Action)
	after, ok := o.book.Get("BTCUSDT")
	require.True(t, ok)
	assert.InDelta(t, price*0.97, after.StopLoss, 1e-6)
	assert.Greater(t, after.StopLoss, pos.StopLoss)
	assert.Equal(t, price, after.CurrentPrice)
	assert.True(t, after.Trailing)
}

func TestClosePosition(t *testing.T) {
	market := newFakeMarket()
	market.set("BTCUSDT", crashSeries())
	ev := evidence.NewStaticProvider(map[string]evidence.Bundle{"BTCUSDT": newsEvidence()})
	o := newTestOrchestrator(t, testConfig("BTCUSDT"), market, ev)

	_, err := o.ClosePosition("BTCUSDT", "")
	assert.Error(t, err)

	o.Tick(context.Background())
	trade, err := o.ClosePosition("BTCUSDT", "")
	require.NoError(t, err)
	assert.Equal(t, portfolio.StatusClosed, trade.Status)
	assert.Equal(t, "manual close", trade.Reason)
	assert.InDelta(t, 0, trade.RealizedPnL, 1e-9)
	assert.Equal(t, StateNoPosition, o.State("BTCUSDT"))
	assert.Len(t, o.ClosedTrades(), 1)
}

func TestSnapshotJSON(t *testing.T) {
	market := newFakeMarket()
	market.set("BTCUSDT", crashSeries())
	ev := evidence.NewStaticProvider(map[string]evidence.Bundle{"BTCUSDT": newsEvidence()})
	o := newTestOrchestrator(t, testConfig("BTCUSDT"), market, ev)

	res := o.Tick(context.Background())

	raw, err := o.SnapshotJSON()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	ts, ok := doc["timestamp"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(testNow))

	assert.Equal(t, res.ID, doc["tick_id"])
	assert.Len(t, doc["positions"], 1)
	assert.Len(t, doc["signals"], 1)
	assert.Equal(t, string(StateOpen), doc["states"].(map[string]interface{})["BTCUSDT"])
	assert.Contains(t, doc, "risk")

	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	require.NotNil(t, snap.Risk)
	assert.Equal(t, 1, snap.Risk.OpenPositions)
	assert.Empty(t, snap.StaleSymbols)
}

func TestRun_StopsOnCancel(t *testing.T) {
	market := newFakeMarket()
	market.set("BTCUSDT", crashSeries())

	ticks := make(chan TickResult, 4)
	o, err := New(testConfig("BTCUSDT"), market, evidence.NewStaticProvider(nil),
		WithTickHook(func(r TickResult) { ticks <- r }))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	select {
	case r := <-ticks:
		assert.Equal(t, int64(1), r.Number)
	case <-time.After(5 * time.Second):
		t.Fatal("first tick did not run")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestStateStore_RestoresBookAcrossRestart(t *testing.T) {
	market := newFakeMarket()
	market.set("BTCUSDT", crashSeries())
	ev := evidence.NewStaticProvider(map[string]evidence.Bundle{"BTCUSDT": newsEvidence()})

	store, err := storage.NewFileStorage(filepath.Join(t.TempDir(), "book.json"))
	require.NoError(t, err)

	cfg := testConfig("BTCUSDT")
	first, err := New(cfg, market, ev, WithClock(func() time.Time { return testNow }), WithStateStore(store))
	require.NoError(t, err)
	res := first.Tick(context.Background())
	opened := first.Positions()
	require.Len(t, opened, 1)

	second, err := New(cfg, market, ev, WithClock(func() time.Time { return testNow }), WithStateStore(store))
	require.NoError(t, err)

	restored := second.Positions()
	require.Len(t, restored, 1)
	assert.Equal(t, opened[0].ID, restored[0].ID)
	assert.Equal(t, opened[0].StopLoss, restored[0].StopLoss)
	assert.Equal(t, StateOpen, second.State("BTCUSDT"))
	assert.Equal(t, res.ID, second.Snapshot().TickID)

	trade, err := second.ClosePosition("BTCUSDT", "")
	require.NoError(t, err)

	state, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, state.Positions)
	require.Len(t, state.Closed, 1)
	assert.Equal(t, trade.PositionID, state.Closed[0].PositionID)
}
