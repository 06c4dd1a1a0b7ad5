package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
	"github.com/ducminhle1904/crypto-risk-engine/internal/indicators"
	"github.com/ducminhle1904/crypto-risk-engine/internal/signal"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// Rejection reasons reported on a zero-quantity decision
const (
	ReasonInvalidInput   = "invalid sizing input"
	ReasonZeroRisk       = "entry equals stop loss"
	ReasonMaxLossGuard   = "band excursion exceeds max loss fraction"
	ReasonBelowOneUnit   = "sized below one unit"
	ReasonReduceRiskMode = "portfolio is reducing risk"
)

// SizingRequest carries everything the sizer needs for one proposed entry.
// Volatility is the annualized estimate (see BandVolatility). Bands drives the
// max-loss guard; nil skips it.
type SizingRequest struct {
	Equity     float64
	Entry      float64
	StopLoss   float64
	Side       types.Side
	Confidence float64
	RiskLevel  signal.RiskLevel
	Volatility float64
	Bands      *indicators.Bands
}

// SizingDecision is the sizer's output. Quantity zero means do not open.
type SizingDecision struct {
	Quantity           int64   `json:"quantity"`
	RiskAmount         float64 `json:"risk_amount"`
	PerUnitRisk        float64 `json:"per_unit_risk"`
	BaseQuantity       int64   `json:"base_quantity"`
	RiskMultiplier     float64 `json:"risk_multiplier"`
	VolatilityMultiple float64 `json:"volatility_multiplier"`
	Capped             bool    `json:"capped"`
	Reason             string  `json:"reason,omitempty"`
}

// Accepted reports a positive quantity
func (d SizingDecision) Accepted() bool {
	return d.Quantity > 0
}

// PositionSizer implements fixed-fractional sizing with confidence, volatility and exposure caps
type PositionSizer struct {
	sizing     config.SizingConfig
	volatility config.VolatilityConfig
}

// NewPositionSizer creates a sizer from validated configuration
func NewPositionSizer(sizing config.SizingConfig, volatility config.VolatilityConfig) *PositionSizer {
	return &PositionSizer{
		sizing:     sizing,
		volatility: volatility,
	}
}

// RiskLevelMultiplier scales size by signal risk level
func RiskLevelMultiplier(level signal.RiskLevel) float64 {
	switch level {
	case signal.RiskLow:
		return 1.0
	case signal.RiskMedium:
		return 0.7
	default:
		return 0.4
	}
}

// VolatilityMultiplier returns the size multiplier for an annualized volatility estimate
func (ps *PositionSizer) VolatilityMultiplier(vol float64) float64 {
	switch {
	case vol >= ps.volatility.ExtremeThreshold:
		return ps.volatility.ExtremeMultiplier
	case vol >= ps.volatility.HighThreshold:
		return ps.volatility.HighMultiplier
	default:
		return 1.0
	}
}

// Size computes the quantity for req
func (ps *PositionSizer) Size(req SizingRequest) SizingDecision {
	if req.Equity <= 0 || req.Entry <= 0 || req.StopLoss <= 0 || math.IsNaN(req.Confidence) {
		return SizingDecision{Reason: ReasonInvalidInput}
	}

	equity := decimal.NewFromFloat(req.Equity)
	entry := decimal.NewFromFloat(req.Entry)

	riskAmount := equity.Mul(decimal.NewFromFloat(ps.sizing.RiskPerTrade))
	perUnitRisk := entry.Sub(decimal.NewFromFloat(req.StopLoss)).Abs()

	decision := SizingDecision{
		RiskAmount:  riskAmount.InexactFloat64(),
		PerUnitRisk: perUnitRisk.InexactFloat64(),
	}
	if perUnitRisk.IsZero() {
		decision.Reason = ReasonZeroRisk
		return decision
	}

	base := riskAmount.Div(perUnitRisk).Floor()
	decision.BaseQuantity = base.IntPart()

	confidence := math.Max(0, math.Min(1, req.Confidence))
	decision.RiskMultiplier = RiskLevelMultiplier(req.RiskLevel) * confidence
	decision.VolatilityMultiple = ps.VolatilityMultiplier(req.Volatility)

	qty := base.
		Mul(decimal.NewFromFloat(decision.RiskMultiplier)).
		Mul(decimal.NewFromFloat(decision.VolatilityMultiple)).
		Floor()

	maxQty := equity.Mul(decimal.NewFromFloat(ps.sizing.MaxPositionFraction)).Div(entry).Floor()
	if qty.GreaterThan(maxQty) {
		qty = maxQty
		decision.Capped = true
	}

	if req.Bands != nil {
		if excursion, ok := adverseExcursion(req.Side, req.Entry, *req.Bands); ok && excursion >= ps.sizing.MaxLossFraction {
			decision.Reason = fmt.Sprintf("%s (%.4f >= %.4f)", ReasonMaxLossGuard, excursion, ps.sizing.MaxLossFraction)
			return decision
		}
	}

	decision.Quantity = qty.IntPart()
	if decision.Quantity <= 0 {
		decision.Quantity = 0
		decision.Reason = ReasonBelowOneUnit
	}
	return decision
}

// adverseExcursion is the distance to the opposite band as a fraction of entry
func adverseExcursion(side types.Side, entry float64, b indicators.Bands) (float64, bool) {
	if entry <= 0 {
		return 0, false
	}
	if side == types.Short {
		return (b.Upper - entry) / entry, true
	}
	return (entry - b.Lower) / entry, true
}
