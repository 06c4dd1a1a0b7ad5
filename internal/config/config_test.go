package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerrors "github.com/ducminhle1904/crypto-risk-engine/internal/errors"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.02, cfg.Sizing.RiskPerTrade)
	assert.Equal(t, 0.1, cfg.Sizing.MaxPositionFraction)
	assert.Equal(t, 0.05, cfg.Sizing.MaxLossFraction)
	assert.Equal(t, 0.6, cfg.Evidence.ConfidenceThreshold)
	assert.Equal(t, 0.4, cfg.Volatility.HighThreshold)
	assert.Equal(t, 0.6, cfg.Volatility.ExtremeThreshold)
	assert.Equal(t, 0.7, cfg.Volatility.HighMultiplier)
	assert.Equal(t, 0.4, cfg.Volatility.ExtremeMultiplier)
}

func TestValidate_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"zero risk per trade", func(c *Config) { c.Sizing.RiskPerTrade = 0 }, "risk_per_trade"},
		{"excessive risk per trade", func(c *Config) { c.Sizing.RiskPerTrade = 0.5 }, "risk_per_trade"},
		{"negative position fraction", func(c *Config) { c.Sizing.MaxPositionFraction = -0.1 }, "max_position_fraction"},
		{"max loss above one", func(c *Config) { c.Sizing.MaxLossFraction = 1.5 }, "max_loss_fraction"},
		{"inverted volatility thresholds", func(c *Config) { c.Volatility.HighThreshold = 0.7 }, "volatility.high_threshold"},
		{"extreme multiplier above high", func(c *Config) { c.Volatility.ExtremeMultiplier = 0.9 }, "volatility.extreme_multiplier"},
		{"confidence threshold above one", func(c *Config) { c.Evidence.ConfidenceThreshold = 1.2 }, "evidence_confidence_threshold"},
		{"zero poll interval", func(c *Config) { c.Runtime.PollIntervalSeconds = 0 }, "poll_interval_seconds"},
		{"short lookback", func(c *Config) { c.Runtime.Lookback = 20 }, "lookback"},
		{"no symbols", func(c *Config) { c.Symbols = nil }, "symbols"},
		{"duplicate symbols", func(c *Config) { c.Symbols = []string{"BTCUSDT", "BTCUSDT"} }, "symbols"},
		{"zero trailing pct", func(c *Config) { c.Stops.TrailingPct = 0 }, "trailing_pct"},
		{"negative risk free rate", func(c *Config) { c.Portfolio.RiskFreeRate = -0.01 }, "risk_free_rate"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, engerrors.ErrConfigInvalid))

			var engineErr *engerrors.EngineError
			require.True(t, stderrors.As(err, &engineErr))
			assert.Equal(t, tt.field, engineErr.Operation)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_RISK_PER_TRADE", "0.01")
	t.Setenv("ENGINE_SYMBOLS", "btcusdt, solusdt")
	t.Setenv("ENGINE_POLL_INTERVAL_SECONDS", "5")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 0.01, cfg.Sizing.RiskPerTrade)
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, cfg.Symbols)
	assert.Equal(t, 5, cfg.Runtime.PollIntervalSeconds)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ENGINE_MAX_LOSS_FRACTION=0.08\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("ENGINE_MAX_LOSS_FRACTION") })

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 0.08, cfg.Sizing.MaxLossFraction)
}

func TestLoad_JSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"account_equity": 50000, "stops": {"base_stop_pct": 0.03, "trailing_trigger_pct": 0.05, "trailing_pct": 0.02, "short_window": 5, "long_window": 20, "trend_tolerance": 0.1}}`), 0644))
	t.Setenv("ENGINE_CONFIG_FILE", path)

	cfg, err := Load(filepath.Join(dir, "none.env"))
	require.NoError(t, err)
	assert.Equal(t, 50000.0, cfg.AccountEquity)
	assert.Equal(t, 0.03, cfg.Stops.BaseStopPct)
	assert.Equal(t, 20, cfg.Stops.LongWindow)
}

func TestLoad_InvalidNumberFailsFast(t *testing.T) {
	t.Setenv("ENGINE_RISK_PER_TRADE", "two percent")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, engerrors.ErrConfigInvalid))
	assert.Contains(t, err.Error(), "ENGINE_RISK_PER_TRADE")
}
