package config

import (
	"fmt"

	engerrors "github.com/ducminhle1904/crypto-risk-engine/internal/errors"
)

const (
	// MinLookback is the largest indicator window the calculator needs
	MinLookback = 50
	// MaxRiskPerTrade caps the fraction of equity risked on one trade
	MaxRiskPerTrade = 0.1
)

// Validate checks every field once at startup and names the first invalid one
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return engerrors.ConfigInvalid("symbols", "at least one symbol is required")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s == "" {
			return engerrors.ConfigInvalid("symbols", "symbol names must not be empty")
		}
		if seen[s] {
			return engerrors.ConfigInvalid("symbols", fmt.Sprintf("duplicate symbol %s", s))
		}
		seen[s] = true
	}

	if c.AccountEquity <= 0 {
		return engerrors.ConfigInvalid("account_equity", fmt.Sprintf("must be positive, got %.2f", c.AccountEquity))
	}

	checks := []struct {
		field    string
		value    float64
		min, max float64
		openMin  bool
	}{
		{"risk_per_trade", c.Sizing.RiskPerTrade, 0, MaxRiskPerTrade, true},
		{"max_position_fraction", c.Sizing.MaxPositionFraction, 0, 1, true},
		{"max_loss_fraction", c.Sizing.MaxLossFraction, 0, 1, true},
		{"volatility.high_threshold", c.Volatility.HighThreshold, 0, 10, true},
		{"volatility.extreme_threshold", c.Volatility.ExtremeThreshold, 0, 10, true},
		{"volatility.high_multiplier", c.Volatility.HighMultiplier, 0, 1, true},
		{"volatility.extreme_multiplier", c.Volatility.ExtremeMultiplier, 0, 1, true},
		{"volatility.bandwidth_factor", c.Volatility.BandwidthFactor, 0, 100, true},
		{"evidence_confidence_threshold", c.Evidence.ConfidenceThreshold, 0, 1, true},
		{"base_stop_pct", c.Stops.BaseStopPct, 0, 0.5, true},
		{"trailing_trigger_pct", c.Stops.TrailingTriggerPct, 0, 1, true},
		{"trailing_pct", c.Stops.TrailingPct, 0, 0.5, true},
		{"stops.trend_tolerance", c.Stops.TrendTolerance, 0, 1, true},
		{"risk_free_rate", c.Portfolio.RiskFreeRate, 0, 0.5, false},
		{"portfolio.assumed_annual_vol", c.Portfolio.AssumedAnnualVol, 0, 5, true},
		{"portfolio.var_horizon_days", c.Portfolio.VaRHorizonDays, 0, 252, true},
	}
	for _, ch := range checks {
		lowOK := ch.value >= ch.min
		if ch.openMin {
			lowOK = ch.value > ch.min
		}
		if !lowOK || ch.value > ch.max {
			bracket := "["
			if ch.openMin {
				bracket = "("
			}
			return engerrors.ConfigInvalid(ch.field,
				fmt.Sprintf("must be within %s%g, %g], got %g", bracket, ch.min, ch.max, ch.value))
		}
	}

	if c.Volatility.HighThreshold >= c.Volatility.ExtremeThreshold {
		return engerrors.ConfigInvalid("volatility.high_threshold",
			fmt.Sprintf("must be below extreme threshold %g, got %g", c.Volatility.ExtremeThreshold, c.Volatility.HighThreshold))
	}
	if c.Volatility.ExtremeMultiplier > c.Volatility.HighMultiplier {
		return engerrors.ConfigInvalid("volatility.extreme_multiplier",
			fmt.Sprintf("must not exceed high multiplier %g, got %g", c.Volatility.HighMultiplier, c.Volatility.ExtremeMultiplier))
	}

	if c.Stops.ShortWindow < 2 || c.Stops.LongWindow <= c.Stops.ShortWindow {
		return engerrors.ConfigInvalid("stops.windows",
			fmt.Sprintf("need 2 <= short_window < long_window, got %d/%d", c.Stops.ShortWindow, c.Stops.LongWindow))
	}

	if c.Evidence.WindowMinutes <= 0 {
		return engerrors.ConfigInvalid("evidence.window_minutes", fmt.Sprintf("must be positive, got %d", c.Evidence.WindowMinutes))
	}

	if c.Portfolio.HistoryLength < 2 {
		return engerrors.ConfigInvalid("portfolio.history_length", fmt.Sprintf("must be at least 2, got %d", c.Portfolio.HistoryLength))
	}
	if c.Portfolio.CorrelationLookback < 2 {
		return engerrors.ConfigInvalid("portfolio.correlation_lookback", fmt.Sprintf("must be at least 2, got %d", c.Portfolio.CorrelationLookback))
	}

	if c.Runtime.PollIntervalSeconds <= 0 || c.Runtime.PollIntervalSeconds > 86400 {
		return engerrors.ConfigInvalid("poll_interval_seconds", fmt.Sprintf("must be within (0, 86400], got %d", c.Runtime.PollIntervalSeconds))
	}
	if c.Runtime.FetchTimeoutSeconds <= 0 || c.Runtime.FetchTimeoutSeconds > 600 {
		return engerrors.ConfigInvalid("fetch_timeout_seconds", fmt.Sprintf("must be within (0, 600], got %d", c.Runtime.FetchTimeoutSeconds))
	}
	if c.Runtime.Lookback < MinLookback {
		return engerrors.ConfigInvalid("lookback", fmt.Sprintf("must be at least %d bars, got %d", MinLookback, c.Runtime.Lookback))
	}
	if c.Runtime.Lookback <= c.Stops.LongWindow {
		return engerrors.ConfigInvalid("lookback", fmt.Sprintf("must exceed stops.long_window %d, got %d", c.Stops.LongWindow, c.Runtime.Lookback))
	}
	if c.Runtime.Workers <= 0 {
		return engerrors.ConfigInvalid("workers", fmt.Sprintf("must be positive, got %d", c.Runtime.Workers))
	}
	if c.Runtime.HTTPPort < 0 || c.Runtime.HTTPPort > 65535 {
		return engerrors.ConfigInvalid("http_port", fmt.Sprintf("must be within [0, 65535], got %d", c.Runtime.HTTPPort))
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		return engerrors.ConfigInvalid("log_format", fmt.Sprintf("must be console or json, got %q", c.LogFormat))
	}

	return nil
}
