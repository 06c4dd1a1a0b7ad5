package safety

import (
	"context"
	stderrors "errors"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/data"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// GuardedMarket puts a per-symbol circuit breaker in front of a market data provider.
// A symbol whose fetches keep failing is skipped without a network call until its cooldown ends;
// the orchestrator sees a DataUnavailable error and marks it stale as usual.
type GuardedMarket struct {
	next     data.MarketDataProvider
	breakers *CircuitBreakerManager
}

// NewGuardedMarket wraps next
func NewGuardedMarket(next data.MarketDataProvider, config CircuitBreakerConfig, log zerolog.Logger) *GuardedMarket {
	breakers := NewCircuitBreakerManager(config)
	breakers.OnStateChange(func(symbol string, from, to CircuitBreakerState) {
		log.Warn().
			Str("symbol", symbol).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("market data circuit breaker changed state")
	})
	return &GuardedMarket{next: next, breakers: breakers}
}

// GetBars fetches through the symbol's breaker
func (g *GuardedMarket) GetBars(ctx context.Context, symbol string, lookback int) ([]types.OHLCV, error) {
	var bars []types.OHLCV
	err := g.breakers.Get(symbol).Call(func() error {
		var err error
		bars, err = g.next.GetBars(ctx, symbol, lookback)
		return err
	})

	var open *ErrOpen
	if stderrors.As(err, &open) {
		return nil, errors.DataUnavailable("market", "get_bars", symbol, err)
	}
	return bars, err
}

// OpenSymbols lists symbols currently skipped by their breaker
func (g *GuardedMarket) OpenSymbols() []string {
	return g.breakers.GetOpenCircuits()
}
