package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/internal/evidence"
	"github.com/ducminhle1904/crypto-risk-engine/internal/indicators"
	"github.com/ducminhle1904/crypto-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-risk-engine/internal/notifications"
	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/crypto-risk-engine/internal/risk"
	"github.com/ducminhle1904/crypto-risk-engine/internal/signal"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// Action is what a tick did with a symbol's position
type Action string

const (
	ActionNone     Action = "NONE"
	ActionOpened   Action = "OPENED"
	ActionUpdated  Action = "UPDATED"
	ActionTrailed  Action = "TRAILED"
	ActionClosed   Action = "CLOSED"
	ActionRejected Action = "REJECTED"
	ActionBlocked  Action = "BLOCKED"
	ActionSkipped  Action = "SKIPPED"
)

// SymbolResult is the outcome of one symbol in one tick
type SymbolResult struct {
	Symbol string
	Action Action
	Signal signal.Signal
	Detail string
	Err    error
}

// TickResult summarizes a completed tick
type TickResult struct {
	ID        string
	Number    int64
	Timestamp time.Time
	Duration  time.Duration
	Symbols   map[string]SymbolResult
	Risk      portfolio.RiskSnapshot
	Stale     []string
}

// Tick processes every symbol once, waits for all of them, then recomputes portfolio
// risk and publishes the reduce-risk directive for the next tick.
func (o *Orchestrator) Tick(ctx context.Context) TickResult {
	started := time.Now()
	ts := o.now()
	id := uuid.NewString()
	reduce := o.ReduceRisk()

	log := o.log.With().Str("tick", id).Logger()

	results := make(chan SymbolResult, len(o.cfg.Symbols))
	sem := make(chan struct{}, o.cfg.Runtime.Workers)
	var wg sync.WaitGroup

	for _, symbol := range o.cfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- o.processSymbol(ctx, symbol, ts, reduce)
		}(symbol)
	}
	wg.Wait()
	close(results)

	bySymbol := make(map[string]SymbolResult, len(o.cfg.Symbols))
	for res := range results {
		bySymbol[res.Symbol] = res
		if engErr := symbolError(res); engErr != nil {
			o.errs.RecordError(engErr)
			monitoring.RecordError(string(engErr.Kind))

			if engErr.GetRecoveryAction() == errors.RecoveryActionSkip {
				o.book.MarkStale(res.Symbol)
				if o.health != nil {
					o.health.RecordError(engErr)
				}
				log.Warn().
					Str("symbol", res.Symbol).
					Str("kind", string(engErr.Kind)).
					Err(engErr).
					Msg("symbol skipped this tick")
				continue
			}
			log.Debug().
				Str("symbol", res.Symbol).
				Str("kind", string(engErr.Kind)).
				Err(engErr).
				Msg("symbol processed without a trade")
		}
		o.book.MarkFresh(res.Symbol, ts)
	}

	snap := o.monitor.Assess(o.book.Positions(), o.Equity(), ts)
	stale := o.book.StaleSymbols()

	o.mu.Lock()
	o.tickCount++
	o.lastTickID = id
	o.risk = &snap
	o.reduceRisk = snap.ShouldReduceRisk
	number := o.tickCount
	o.mu.Unlock()

	o.persist(id, ts)

	if snap.ShouldReduceRisk != reduce {
		if snap.ShouldReduceRisk {
			o.alert(notifications.LevelWarning, fmt.Sprintf(
				"Reduce-risk mode engaged: drawdown %.2f%%, VaR95 $%.2f, risk score %.2f. New entries are blocked.",
				snap.MaxDrawdown*100, snap.VaR95, snap.RiskScore))
		} else {
			o.alert(notifications.LevelInfo, "Reduce-risk mode cleared. New entries are allowed again.")
		}
	}

	duration := time.Since(started)
	monitoring.UpdatePortfolio(snap)
	monitoring.RecordTick(duration, len(stale))
	if o.health != nil {
		o.health.RecordTick(ts, stale)
	}

	event := log.Info()
	if snap.ShouldReduceRisk {
		event = log.Warn()
	}
	event.
		Int64("number", number).
		Int("open_positions", snap.OpenPositions).
		Float64("portfolio_value", snap.PortfolioValue).
		Float64("max_drawdown", snap.MaxDrawdown).
		Float64("risk_score", snap.RiskScore).
		Bool("reduce_risk", snap.ShouldReduceRisk).
		Strs("stale", stale).
		Dur("took", duration).
		Msg("tick complete")

	result := TickResult{
		ID:        id,
		Number:    number,
		Timestamp: ts,
		Duration:  duration,
		Symbols:   bySymbol,
		Risk:      snap.Clone(),
		Stale:     stale,
	}
	if o.onTick != nil {
		o.onTick(result)
	}
	return result
}

// processSymbol runs fetch, indicators, scoring, gating and the position branch for one symbol.
// A returned error means nothing was written for the symbol.
func (o *Orchestrator) processSymbol(ctx context.Context, symbol string, ts time.Time, reduce bool) (res SymbolResult) {
	res = SymbolResult{Symbol: symbol, Action: ActionSkipped}
	defer func() {
		if r := recover(); r != nil {
			res = SymbolResult{
				Symbol: symbol,
				Action: ActionSkipped,
				Err:    errors.Degenerate("orchestrator", "process", fmt.Sprintf("panic: %v", r)),
			}
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.Runtime.FetchTimeout())
	defer cancel()

	bars, err := withDeadline(fetchCtx, func(ctx context.Context) ([]types.OHLCV, error) {
		return o.market.GetBars(ctx, symbol, o.cfg.Runtime.Lookback)
	})
	if err != nil {
		res.Err = errors.Classify(err, "market", "get_bars", symbol)
		return res
	}
	last, ok := types.Last(bars)
	if !ok || last.Close <= 0 {
		res.Err = errors.InsufficientData("market", symbol, len(bars), 1)
		return res
	}

	external, err := withDeadline(fetchCtx, func(ctx context.Context) (evidence.Bundle, error) {
		return o.evidence.GetEvidence(ctx, symbol, o.cfg.Evidence.Window())
	})
	if err != nil {
		res.Err = errors.Classify(err, "evidence", "get_evidence", symbol)
		return res
	}

	price := last.Close
	set := o.calc.Calculate(bars)
	sig := o.gate.Evaluate(o.scorer.Score(symbol, set, ts), external)

	o.mu.Lock()
	o.signals[symbol] = sig.Clone()
	o.mu.Unlock()

	o.monitor.ObservePrice(symbol, price)
	monitoring.UpdatePrice(symbol, price)
	monitoring.RecordSignal(symbol, string(sig.Direction), sig.Confidence, sig.Reason == signal.InsufficientEvidenceReason)

	res.Signal = sig
	if pos, holding := o.book.Get(symbol); holding {
		res.Action, res.Detail, res.Err = o.manage(pos, price, ts)
		return res
	}

	res.Action, res.Detail, res.Err = o.enter(symbol, sig, bars, set, price, ts, reduce)
	return res
}

// symbolError classifies what went wrong for a symbol, counting a gate suppression
// as insufficient evidence even though the symbol itself was processed
func symbolError(res SymbolResult) *errors.EngineError {
	if res.Err != nil {
		return errors.Classify(res.Err, "orchestrator", "tick", res.Symbol)
	}
	if res.Signal.Reason == signal.InsufficientEvidenceReason {
		return errors.EvidenceInsufficient(res.Symbol, fmt.Sprintf("missing %v", res.Signal.Missing))
	}
	return nil
}

// withDeadline returns when fetch completes or ctx is done, whichever comes first.
// A collaborator that ignores ctx is left to finish in the background; its result is dropped.
func withDeadline[T any](ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errors.Degenerate("orchestrator", "fetch", fmt.Sprintf("panic: %v", r))}
			}
		}()
		val, err := fetch(ctx)
		done <- outcome{val: val, err: err}
	}()

	select {
	case out := <-done:
		return out.val, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// manage closes a position whose stop or target was crossed, otherwise re-marks and trails it
func (o *Orchestrator) manage(pos portfolio.Position, price float64, ts time.Time) (Action, string, error) {
	levels := risk.Levels{StopLoss: pos.StopLoss, TakeProfit: pos.TakeProfit}
	stopped, tookProfit := risk.Crossed(pos.Side, price, levels)
	if stopped || tookProfit {
		status, reason := portfolio.StatusStoppedOut, "stop loss hit"
		if tookProfit && !stopped {
			status, reason = portfolio.StatusTookProfit, "take profit hit"
		}
		trade, err := o.closePosition(pos, price, status, reason)
		if err != nil {
			return ActionNone, "", err
		}
		return ActionClosed, fmt.Sprintf("%s pnl=%.2f", status, trade.RealizedPnL), nil
	}

	stop, moved := o.stops.Trail(pos.Side, pos.EntryPrice, price, pos.StopLoss)
	updated, err := o.book.Update(pos.Symbol, func(p portfolio.Position) (portfolio.Position, error) {
		return p.Mark(price, stop, ts), nil
	})
	if err != nil {
		return ActionNone, "", err
	}
	o.setState(pos.Symbol, StateOpen)

	if moved {
		o.log.Info().
			Str("symbol", pos.Symbol).
			Float64("price", price).
			Float64("old_stop", pos.StopLoss).
			Float64("new_stop", updated.StopLoss).
			Msg("trailing stop tightened")
		return ActionTrailed, fmt.Sprintf("stop %.4f -> %.4f", pos.StopLoss, updated.StopLoss), nil
	}
	return ActionUpdated, "", nil
}

// enter opens a position for an actionable signal when the sizer allows it
func (o *Orchestrator) enter(symbol string, sig signal.Signal, bars []types.OHLCV, set indicators.Set, price float64, ts time.Time, reduce bool) (Action, string, error) {
	if !sig.Actionable() {
		return ActionNone, sig.Reason, nil
	}
	if reduce {
		o.log.Info().Str("symbol", symbol).Str("direction", string(sig.Direction)).Msg("entry blocked while portfolio reduces risk")
		return ActionBlocked, risk.ReasonReduceRiskMode, nil
	}

	side := types.Long
	if sig.Direction.IsSell() {
		side = types.Short
	}

	bands, hasBands := bandsFrom(set)
	vol := o.volatility(bars, bands, hasBands, price)
	trend := risk.ClassifyVolatilityTrend(bars, o.cfg.Stops.ShortWindow, o.cfg.Stops.LongWindow, o.cfg.Stops.TrendTolerance)

	levels, err := o.stops.Levels(side, price, risk.VolatilityState{Annualized: vol, Trend: trend})
	if err != nil {
		return ActionNone, "", err
	}

	req := risk.SizingRequest{
		Equity:     o.Equity(),
		Entry:      price,
		StopLoss:   levels.StopLoss,
		Side:       side,
		Confidence: sig.Confidence,
		RiskLevel:  sig.RiskLevel,
		Volatility: vol,
	}
	if hasBands {
		req.Bands = &bands
	}
	decision := o.sizer.Size(req)
	if !decision.Accepted() {
		o.log.Debug().Str("symbol", symbol).Str("reason", decision.Reason).Msg("entry rejected by sizer")
		return ActionRejected, decision.Reason, nil
	}

	pos, err := portfolio.NewPosition(symbol, side, price, float64(decision.Quantity), levels.StopLoss, levels.TakeProfit, ts)
	if err != nil {
		return ActionNone, "", err
	}
	if err := o.book.Open(pos); err != nil {
		return ActionNone, "", err
	}
	o.setState(symbol, StateOpen)

	monitoring.RecordOpen(symbol, string(side))
	o.log.Info().
		Str("symbol", symbol).
		Str("side", string(side)).
		Str("direction", string(sig.Direction)).
		Float64("confidence", sig.Confidence).
		Float64("entry", price).
		Int64("quantity", decision.Quantity).
		Float64("stop_loss", levels.StopLoss).
		Float64("take_profit", levels.TakeProfit).
		Str("vol_trend", string(trend)).
		Msg("position opened")
	return ActionOpened, fmt.Sprintf("qty=%d", decision.Quantity), nil
}

// volatility prefers the band-width estimate and falls back to realized volatility
func (o *Orchestrator) volatility(bars []types.OHLCV, bands indicators.Bands, hasBands bool, price float64) float64 {
	if hasBands {
		if v, ok := risk.BandVolatility(bands, price, o.cfg.Volatility.BandwidthFactor); ok {
			return v
		}
	}
	if v, ok := risk.RealizedVolatility(types.Closes(bars), tradingPeriodsPerYear); ok {
		return v
	}
	return 0
}

const tradingPeriodsPerYear = 365.0

func bandsFrom(set indicators.Set) (indicators.Bands, bool) {
	if !set.Has(indicators.BBUpper, indicators.BBMiddle, indicators.BBLower) {
		return indicators.Bands{}, false
	}
	return indicators.Bands{
		Upper:  set[indicators.BBUpper],
		Middle: set[indicators.BBMiddle],
		Lower:  set[indicators.BBLower],
	}, true
}

// SymbolNames returns the processed symbols in order
func (r TickResult) SymbolNames() []string {
	out := make([]string, 0, len(r.Symbols))
	for s := range r.Symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
