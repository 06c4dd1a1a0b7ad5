package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
	"github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/internal/evidence"
	"github.com/ducminhle1904/crypto-risk-engine/internal/indicators"
	"github.com/ducminhle1904/crypto-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/crypto-risk-engine/internal/notifications"
	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio/storage"
	"github.com/ducminhle1904/crypto-risk-engine/internal/risk"
	"github.com/ducminhle1904/crypto-risk-engine/internal/signal"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/data"
)

// State is the per-symbol position state
type State string

const (
	StateNoPosition   State = "NO_POSITION"
	StateOpen         State = "OPEN"
	StatePendingClose State = "PENDING_CLOSE"
)

const (
	maxRecentErrors = 100
	alertTimeout    = 10 * time.Second
)

// StateStore persists the position book between runs
type StateStore interface {
	Load() (storage.BookState, bool, error)
	Save(storage.BookState) error
}

// Orchestrator runs the per-tick pipeline for every configured symbol and owns
// the position book and the latest portfolio risk snapshot.
type Orchestrator struct {
	cfg *config.Config
	log zerolog.Logger

	market   data.MarketDataProvider
	evidence evidence.Provider

	calc    *indicators.Calculator
	scorer  *signal.Scorer
	gate    *signal.Gate
	sizer   risk.Sizer
	stops   *risk.StopLossEngine
	book    *portfolio.Book
	monitor *portfolio.Monitor
	errs    *errors.ErrorStats
	health  *monitoring.HealthChecker
	store   StateStore
	notify  notifications.Notifier
	onTick  func(TickResult)
	now     func() time.Time

	// Tick state
	mu         sync.RWMutex
	signals    map[string]signal.Signal
	states     map[string]State
	risk       *portfolio.RiskSnapshot
	reduceRisk bool
	tickCount  int64
	lastTickID string

	// Run control
	controlMu sync.Mutex
	running   bool
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l.With().Str("component", "orchestrator").Logger() }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithHealth reports tick liveness to h
func WithHealth(h *monitoring.HealthChecker) Option {
	return func(o *Orchestrator) { o.health = h }
}

// WithStateStore restores the book from s on construction and saves it after every tick
func WithStateStore(s StateStore) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithNotifier sends reduce-risk transitions and protective closes to n
func WithNotifier(n notifications.Notifier) Option {
	return func(o *Orchestrator) { o.notify = n }
}

// WithTickHook calls fn after every completed tick
func WithTickHook(fn func(TickResult)) Option {
	return func(o *Orchestrator) { o.onTick = fn }
}

// New builds an orchestrator from validated configuration and its two collaborators
func New(cfg *config.Config, market data.MarketDataProvider, ev evidence.Provider, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.ConfigInvalid("config", "configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if market == nil {
		return nil, errors.ConfigInvalid("market", "market data provider is required")
	}
	if ev == nil {
		return nil, errors.ConfigInvalid("evidence", "evidence provider is required")
	}

	o := &Orchestrator{
		cfg:      cfg,
		log:      zerolog.Nop(),
		market:   market,
		evidence: ev,
		calc:     indicators.NewCalculator(),
		scorer:   signal.NewScorer(),
		gate:     signal.NewGate(cfg.Evidence.ConfidenceThreshold, cfg.Evidence.ImportantFeatures),
		sizer:    risk.NewPositionSizer(cfg.Sizing, cfg.Volatility),
		stops:    risk.NewStopLossEngine(cfg.Stops),
		book:     portfolio.NewBook(cfg.Portfolio.HistoryLength),
		monitor:  portfolio.NewMonitor(cfg.Portfolio),
		errs:     errors.NewErrorStats(maxRecentErrors),
		now:      time.Now,
		signals:  make(map[string]signal.Signal),
		states:   make(map[string]State),
	}
	for _, symbol := range cfg.Symbols {
		o.states[symbol] = StateNoPosition
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.restore(); err != nil {
		return nil, err
	}
	return o, nil
}

// restore loads the persisted book, if any
func (o *Orchestrator) restore() error {
	if o.store == nil {
		return nil
	}
	state, ok, err := o.store.Load()
	if err != nil {
		return errors.DataUnavailable("orchestrator", "restore", "", err)
	}
	if !ok {
		return nil
	}
	if err := o.book.Restore(state.Positions, state.Closed, state.RealizedPnL); err != nil {
		return errors.DataUnavailable("orchestrator", "restore", "", err)
	}
	for _, p := range state.Positions {
		o.states[p.Symbol] = StateOpen
	}
	o.lastTickID = state.TickID

	o.log.Info().
		Int("positions", len(state.Positions)).
		Int("closed_trades", len(state.Closed)).
		Float64("realized_pnl", state.RealizedPnL).
		Time("saved_at", state.SavedAt).
		Msg("book restored")
	return nil
}

// persist saves the book; failures are logged and retried on the next tick
func (o *Orchestrator) persist(tickID string, ts time.Time) {
	if o.store == nil {
		return
	}
	err := o.store.Save(storage.BookState{
		SavedAt:     ts,
		TickID:      tickID,
		Positions:   o.book.Positions(),
		Closed:      o.book.Closed(),
		RealizedPnL: o.book.RealizedPnL(),
	})
	if err != nil {
		o.log.Error().Err(err).Msg("failed to persist book state")
	}
}

// Run ticks immediately and then every poll interval until ctx is cancelled
func (o *Orchestrator) Run(ctx context.Context) error {
	o.controlMu.Lock()
	if o.running {
		o.controlMu.Unlock()
		return fmt.Errorf("orchestrator is already running")
	}
	o.running = true
	o.controlMu.Unlock()

	defer func() {
		o.controlMu.Lock()
		o.running = false
		o.controlMu.Unlock()
	}()

	ticker := time.NewTicker(o.cfg.Runtime.PollInterval())
	defer ticker.Stop()

	o.log.Info().
		Strs("symbols", o.cfg.Symbols).
		Dur("interval", o.cfg.Runtime.PollInterval()).
		Msg("orchestration loop started")

	for {
		o.Tick(ctx)

		select {
		case <-ctx.Done():
			o.log.Info().Msg("orchestration loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ReduceRisk reports the directive published by the last tick
func (o *Orchestrator) ReduceRisk() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.reduceRisk
}

// State returns the position state of symbol
func (o *Orchestrator) State(symbol string) State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if s, ok := o.states[symbol]; ok {
		return s
	}
	return StateNoPosition
}

// Signal returns the latest gated signal for symbol
func (o *Orchestrator) Signal(symbol string) (signal.Signal, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.signals[symbol]
	if !ok {
		return signal.Signal{}, false
	}
	return s.Clone(), true
}

// Risk returns the latest portfolio risk snapshot, false before the first tick
func (o *Orchestrator) Risk() (portfolio.RiskSnapshot, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.risk == nil {
		return portfolio.RiskSnapshot{}, false
	}
	return o.risk.Clone(), true
}

// Positions returns copies of the open positions
func (o *Orchestrator) Positions() []portfolio.Position {
	return o.book.Positions()
}

// ClosedTrades returns a copy of the trade ledger
func (o *Orchestrator) ClosedTrades() []portfolio.ClosedTrade {
	return o.book.Closed()
}

// ErrorCounts returns per-kind error counts since start
func (o *Orchestrator) ErrorCounts() map[errors.ErrorKind]int {
	return o.errs.Counts()
}

// Equity is the configured account equity plus realized PnL
func (o *Orchestrator) Equity() float64 {
	return o.cfg.AccountEquity + o.book.RealizedPnL()
}

// ClosePosition closes the open position of symbol at its last marked price
func (o *Orchestrator) ClosePosition(symbol, reason string) (portfolio.ClosedTrade, error) {
	pos, ok := o.book.Get(symbol)
	if !ok {
		return portfolio.ClosedTrade{}, fmt.Errorf("close %s: no open position", symbol)
	}
	if reason == "" {
		reason = "manual close"
	}
	trade, err := o.closePosition(pos, pos.CurrentPrice, portfolio.StatusClosed, reason)
	if err != nil {
		return trade, err
	}
	o.mu.RLock()
	tickID := o.lastTickID
	o.mu.RUnlock()
	o.persist(tickID, o.now())
	return trade, nil
}

func (o *Orchestrator) setState(symbol string, s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states[symbol] = s
}

// closePosition moves the symbol through PendingClose and records the realized trade
func (o *Orchestrator) closePosition(pos portfolio.Position, price float64, status portfolio.Status, reason string) (portfolio.ClosedTrade, error) {
	o.setState(pos.Symbol, StatePendingClose)

	trade, err := o.book.Close(pos.Symbol, price, status, reason, o.now())
	if err != nil {
		if _, still := o.book.Get(pos.Symbol); still {
			o.setState(pos.Symbol, StateOpen)
		} else {
			o.setState(pos.Symbol, StateNoPosition)
		}
		return portfolio.ClosedTrade{}, err
	}
	o.setState(pos.Symbol, StateNoPosition)

	monitoring.RecordClose(trade)
	switch status {
	case portfolio.StatusStoppedOut:
		o.alert(notifications.LevelWarning, fmt.Sprintf("%s %s stopped out at %.4f, PnL %+.2f",
			trade.Symbol, trade.Side, trade.ExitPrice, trade.RealizedPnL))
	case portfolio.StatusTookProfit:
		o.alert(notifications.LevelSuccess, fmt.Sprintf("%s %s took profit at %.4f, PnL %+.2f",
			trade.Symbol, trade.Side, trade.ExitPrice, trade.RealizedPnL))
	}
	o.log.Info().
		Str("symbol", trade.Symbol).
		Str("side", string(trade.Side)).
		Str("status", string(trade.Status)).
		Float64("entry", trade.EntryPrice).
		Float64("exit", trade.ExitPrice).
		Float64("realized_pnl", trade.RealizedPnL).
		Str("reason", reason).
		Msg("position closed")
	return trade, nil
}

// alert sends in the background so a slow notifier never delays a tick
func (o *Orchestrator) alert(level, message string) {
	if o.notify == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
		defer cancel()
		if err := o.notify.SendAlert(ctx, level, message); err != nil {
			o.log.Warn().Err(err).Str("level", level).Msg("alert not delivered")
		}
	}()
}
