package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	engerrors "github.com/ducminhle1904/crypto-risk-engine/internal/errors"
)

// EnvPrefix prefixes every environment variable the engine reads
const EnvPrefix = "ENGINE_"

// Config is the validated, strongly typed engine configuration
type Config struct {
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	LogDir    string `json:"log_dir"`

	Symbols       []string `json:"symbols"`
	AccountEquity float64  `json:"account_equity"`

	Sizing     SizingConfig     `json:"sizing"`
	Volatility VolatilityConfig `json:"volatility"`
	Stops      StopConfig       `json:"stops"`
	Evidence   EvidenceConfig   `json:"evidence"`
	Portfolio  PortfolioConfig  `json:"portfolio"`
	Runtime    RuntimeConfig    `json:"runtime"`
	Alerts     AlertConfig      `json:"alerts"`
}

// SizingConfig drives the position sizer
type SizingConfig struct {
	RiskPerTrade        float64 `json:"risk_per_trade"`
	MaxPositionFraction float64 `json:"max_position_fraction"`
	MaxLossFraction     float64 `json:"max_loss_fraction"`
}

// VolatilityConfig holds the band-width volatility thresholds and their size multipliers
type VolatilityConfig struct {
	HighThreshold     float64 `json:"high_threshold"`
	ExtremeThreshold  float64 `json:"extreme_threshold"`
	HighMultiplier    float64 `json:"high_multiplier"`
	ExtremeMultiplier float64 `json:"extreme_multiplier"`
	// BandwidthFactor scales (upper-lower)/price into an annualized volatility estimate
	BandwidthFactor float64 `json:"bandwidth_factor"`
}

// StopConfig drives the adaptive stop-loss engine
type StopConfig struct {
	BaseStopPct        float64 `json:"base_stop_pct"`
	TrailingTriggerPct float64 `json:"trailing_trigger_pct"`
	TrailingPct        float64 `json:"trailing_pct"`
	ShortWindow        int     `json:"short_window"`
	LongWindow         int     `json:"long_window"`
	TrendTolerance     float64 `json:"trend_tolerance"`
}

// EvidenceConfig drives the evidence gate
type EvidenceConfig struct {
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	WindowMinutes       int      `json:"window_minutes"`
	ImportantFeatures   []string `json:"important_features"`
	File                string   `json:"file"`
}

// PortfolioConfig drives the portfolio risk monitor.
// VaRHorizonDays scales the annual volatility to the VaR horizon; 252 gives the annual figure.
type PortfolioConfig struct {
	RiskFreeRate        float64 `json:"risk_free_rate"`
	AssumedAnnualVol    float64 `json:"assumed_annual_vol"`
	HistoryLength       int     `json:"history_length"`
	CorrelationLookback int     `json:"correlation_lookback"`
	VaRHorizonDays      float64 `json:"var_horizon_days"`
}

// RuntimeConfig controls the tick loop. An empty StateFile disables book persistence.
type RuntimeConfig struct {
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	FetchTimeoutSeconds int    `json:"fetch_timeout_seconds"`
	Lookback            int    `json:"lookback"`
	Workers             int    `json:"workers"`
	DataDir             string `json:"data_dir"`
	HTTPPort            int    `json:"http_port"`
	StateFile           string `json:"state_file"`
}

// AlertConfig enables Telegram alerts when both fields are set
type AlertConfig struct {
	TelegramToken  string `json:"telegram_token"`
	TelegramChatID string `json:"telegram_chat_id"`
}

// Enabled reports whether alerts are configured
func (a AlertConfig) Enabled() bool {
	return a.TelegramToken != "" && a.TelegramChatID != ""
}

// PollInterval returns the tick interval
func (r RuntimeConfig) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalSeconds) * time.Second
}

// FetchTimeout returns the per-symbol fetch deadline
func (r RuntimeConfig) FetchTimeout() time.Duration {
	return time.Duration(r.FetchTimeoutSeconds) * time.Second
}

// Window returns the evidence lookback window
func (e EvidenceConfig) Window() time.Duration {
	return time.Duration(e.WindowMinutes) * time.Minute
}

// Default returns the documented defaults
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "console",
		Symbols:       []string{"BTCUSDT", "ETHUSDT"},
		AccountEquity: 1_000_000,
		Sizing: SizingConfig{
			RiskPerTrade:        0.02,
			MaxPositionFraction: 0.1,
			MaxLossFraction:     0.05,
		},
		Volatility: VolatilityConfig{
			HighThreshold:     0.4,
			ExtremeThreshold:  0.6,
			HighMultiplier:    0.7,
			ExtremeMultiplier: 0.4,
			BandwidthFactor:   6.0,
		},
		Stops: StopConfig{
			BaseStopPct:        0.05,
			TrailingTriggerPct: 0.05,
			TrailingPct:        0.03,
			ShortWindow:        10,
			LongWindow:         30,
			TrendTolerance:     0.1,
		},
		Evidence: EvidenceConfig{
			ConfidenceThreshold: 0.6,
			WindowMinutes:       24 * 60,
			ImportantFeatures:   []string{"rsi_14", "macd_histogram", "adx_14", "mfi_14"},
		},
		Portfolio: PortfolioConfig{
			RiskFreeRate:        0.0,
			AssumedAnnualVol:    0.2,
			HistoryLength:       252,
			CorrelationLookback: 30,
			VaRHorizonDays:      1,
		},
		Runtime: RuntimeConfig{
			PollIntervalSeconds: 60,
			FetchTimeoutSeconds: 10,
			Lookback:            100,
			Workers:             4,
			DataDir:             "data",
			HTTPPort:            8080,
		},
	}
}

// Load builds the configuration: defaults, then the optional JSON file, then the optional .env
// file and process environment. The result is validated before it is returned.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, engerrors.ConfigInvalid("env_file", fmt.Sprintf("could not load %s: %v", envFile, err))
		}
	}

	cfg := Default()

	if path := os.Getenv(EnvPrefix + "CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes a JSON config file over the current values
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return engerrors.ConfigInvalid("config_file", fmt.Sprintf("could not read %s: %v", path, err))
	}
	if err := json.Unmarshal(data, c); err != nil {
		return engerrors.ConfigInvalid("config_file", fmt.Sprintf("could not parse %s: %v", path, err))
	}
	return nil
}

// applyEnv overrides fields from ENGINE_* environment variables
func (c *Config) applyEnv() error {
	env := envReader{}

	c.LogLevel = env.str("LOG_LEVEL", c.LogLevel)
	c.LogFormat = env.str("LOG_FORMAT", c.LogFormat)
	c.LogDir = env.str("LOG_DIR", c.LogDir)
	c.Symbols = env.list("SYMBOLS", c.Symbols)
	c.AccountEquity = env.number("ACCOUNT_EQUITY", c.AccountEquity)

	c.Sizing.RiskPerTrade = env.number("RISK_PER_TRADE", c.Sizing.RiskPerTrade)
	c.Sizing.MaxPositionFraction = env.number("MAX_POSITION_FRACTION", c.Sizing.MaxPositionFraction)
	c.Sizing.MaxLossFraction = env.number("MAX_LOSS_FRACTION", c.Sizing.MaxLossFraction)

	c.Volatility.HighThreshold = env.number("VOLATILITY_HIGH", c.Volatility.HighThreshold)
	c.Volatility.ExtremeThreshold = env.number("VOLATILITY_EXTREME", c.Volatility.ExtremeThreshold)
	c.Volatility.HighMultiplier = env.number("VOLATILITY_HIGH_MULTIPLIER", c.Volatility.HighMultiplier)
	c.Volatility.ExtremeMultiplier = env.number("VOLATILITY_EXTREME_MULTIPLIER", c.Volatility.ExtremeMultiplier)
	c.Volatility.BandwidthFactor = env.number("VOLATILITY_BANDWIDTH_FACTOR", c.Volatility.BandwidthFactor)

	c.Stops.BaseStopPct = env.number("BASE_STOP_PCT", c.Stops.BaseStopPct)
	c.Stops.TrailingTriggerPct = env.number("TRAILING_TRIGGER_PCT", c.Stops.TrailingTriggerPct)
	c.Stops.TrailingPct = env.number("TRAILING_PCT", c.Stops.TrailingPct)

	c.Evidence.ConfidenceThreshold = env.number("EVIDENCE_CONFIDENCE_THRESHOLD", c.Evidence.ConfidenceThreshold)
	c.Evidence.File = env.str("EVIDENCE_FILE", c.Evidence.File)

	c.Portfolio.RiskFreeRate = env.number("RISK_FREE_RATE", c.Portfolio.RiskFreeRate)
	c.Portfolio.AssumedAnnualVol = env.number("ASSUMED_ANNUAL_VOL", c.Portfolio.AssumedAnnualVol)
	c.Portfolio.VaRHorizonDays = env.number("VAR_HORIZON_DAYS", c.Portfolio.VaRHorizonDays)

	c.Runtime.PollIntervalSeconds = env.integer("POLL_INTERVAL_SECONDS", c.Runtime.PollIntervalSeconds)
	c.Runtime.FetchTimeoutSeconds = env.integer("FETCH_TIMEOUT_SECONDS", c.Runtime.FetchTimeoutSeconds)
	c.Runtime.Lookback = env.integer("LOOKBACK", c.Runtime.Lookback)
	c.Runtime.Workers = env.integer("WORKERS", c.Runtime.Workers)
	c.Runtime.DataDir = env.str("DATA_DIR", c.Runtime.DataDir)
	c.Runtime.HTTPPort = env.integer("HTTP_PORT", c.Runtime.HTTPPort)
	c.Runtime.StateFile = env.str("STATE_FILE", c.Runtime.StateFile)

	c.Alerts.TelegramToken = env.str("TELEGRAM_TOKEN", c.Alerts.TelegramToken)
	c.Alerts.TelegramChatID = env.str("TELEGRAM_CHAT_ID", c.Alerts.TelegramChatID)

	return env.err
}

// envReader reads ENGINE_* variables and keeps the first parse error
type envReader struct {
	err error
}

func (r *envReader) lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(val) == "" {
		return "", false
	}
	return strings.TrimSpace(val), true
}

func (r *envReader) str(key, def string) string {
	if val, ok := r.lookup(key); ok {
		return val
	}
	return def
}

func (r *envReader) list(key string, def []string) []string {
	val, ok := r.lookup(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}

func (r *envReader) number(key string, def float64) float64 {
	val, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(key, val)
		return def
	}
	return f
}

func (r *envReader) integer(key string, def int) int {
	val, ok := r.lookup(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		r.fail(key, val)
		return def
	}
	return i
}

func (r *envReader) fail(key, val string) {
	if r.err == nil {
		r.err = engerrors.ConfigInvalid(strings.ToLower(key),
			fmt.Sprintf("%s%s=%q is not a number", EnvPrefix, key, val))
	}
}
