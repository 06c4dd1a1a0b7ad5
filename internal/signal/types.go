package signal

import (
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/internal/evidence"
	"github.com/ducminhle1904/crypto-risk-engine/internal/indicators"
)

// Direction is the trade direction a signal recommends
type Direction string

const (
	StrongBuy  Direction = "STRONG_BUY"
	Buy        Direction = "BUY"
	Hold       Direction = "HOLD"
	Sell       Direction = "SELL"
	StrongSell Direction = "STRONG_SELL"
)

// IsBuy reports Buy or StrongBuy
func (d Direction) IsBuy() bool {
	return d == Buy || d == StrongBuy
}

// IsSell reports Sell or StrongSell
func (d Direction) IsSell() bool {
	return d == Sell || d == StrongSell
}

// Strength grades the vote margin behind a direction
type Strength string

const (
	StrengthWeak       Strength = "WEAK"
	StrengthMedium     Strength = "MEDIUM"
	StrengthStrong     Strength = "STRONG"
	StrengthVeryStrong Strength = "VERY_STRONG"
)

// RiskLevel is derived from confidence
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Vote records what one indicator rule contributed to the tally
type Vote struct {
	Indicator string  `json:"indicator"`
	Buy       int     `json:"buy"`
	Sell      int     `json:"sell"`
	Value     float64 `json:"value"`
	Reason    string  `json:"reason"`
}

// Signal is a scored, possibly gated, trading recommendation for one symbol.
// GatePassed is true only once the evidence gate authorized a non-Hold direction.
type Signal struct {
	Symbol     string              `json:"symbol"`
	Direction  Direction           `json:"direction"`
	Strength   Strength            `json:"strength"`
	Score      float64             `json:"score"`
	Confidence float64             `json:"confidence"`
	RiskLevel  RiskLevel           `json:"risk_level"`
	BuyVotes   int                 `json:"buy_votes"`
	SellVotes  int                 `json:"sell_votes"`
	Votes      []Vote              `json:"votes"`
	Evidence   evidence.Bundle     `json:"evidence"`
	GatePassed bool                `json:"gate_passed"`
	Reason     string              `json:"reason,omitempty"`
	Missing    []evidence.Category `json:"missing_evidence,omitempty"`
	Price      float64             `json:"price"`
	Indicators indicators.Set      `json:"indicators"`
	Timestamp  time.Time           `json:"timestamp"`
}

// Actionable reports whether the signal may open a position
func (s Signal) Actionable() bool {
	return s.GatePassed && s.Direction != Hold
}

// Clone returns a deep copy safe to hand to readers
func (s Signal) Clone() Signal {
	out := s
	out.Votes = append([]Vote(nil), s.Votes...)
	out.Evidence = s.Evidence.Clone()
	out.Missing = append([]evidence.Category(nil), s.Missing...)
	if s.Indicators != nil {
		out.Indicators = s.Indicators.Clone()
	}
	return out
}

// RiskLevelFor maps confidence to a risk level: >=0.8 Low, >=0.6 Medium, else High
func RiskLevelFor(confidence float64) RiskLevel {
	switch {
	case confidence >= 0.8:
		return RiskLow
	case confidence >= 0.6:
		return RiskMedium
	default:
		return RiskHigh
	}
}
