package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/internal/indicators"
)

// Rule thresholds for the vote table
const (
	RSIOversold     = 30.0
	RSIOverbought   = 70.0
	StochOversold   = 20.0
	StochOverbought = 80.0
	CCIOversold     = -100.0
	CCIOverbought   = 100.0
	WillROversold   = -80.0
	WillROverbought = -20.0
	MFIOversold     = 20.0
	MFIOverbought   = 80.0
)

// Rule names, used as Vote.Indicator
const (
	RuleRSI        = "RSI"
	RuleMACD       = "MACD"
	RuleBollinger  = "BOLLINGER"
	RuleStochastic = "STOCHASTIC"
	RuleTrend      = "TREND"
	RuleCCI        = "CCI"
	RuleWilliamsR  = "WILLIAMS_R"
	RuleMFI        = "MFI"
)

// Scorer converts an indicator set into a vote tally and a directional signal
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score tallies the votes for the set. Rules whose inputs are absent cast no vote.
// The result is never gated; pass it through the evidence gate before acting on it.
func (s *Scorer) Score(symbol string, set indicators.Set, ts time.Time) Signal {
	votes := Tally(set)

	buy, sell := 0, 0
	for _, v := range votes {
		buy += v.Buy
		sell += v.Sell
	}
	diff := buy - sell
	direction, strength, confidence := Classify(diff)

	price, _ := set.Get(indicators.Price)
	return Signal{
		Symbol:     symbol,
		Direction:  direction,
		Strength:   strength,
		Score:      float64(diff),
		Confidence: confidence,
		RiskLevel:  RiskLevelFor(confidence),
		BuyVotes:   buy,
		SellVotes:  sell,
		Votes:      votes,
		Price:      price,
		Indicators: set.Clone(),
		Timestamp:  ts,
	}
}

// Classify maps the vote difference to direction, strength and base confidence
func Classify(diff int) (Direction, Strength, float64) {
	abs := diff
	if abs < 0 {
		abs = -abs
	}

	var strength Strength
	var confidence float64
	switch {
	case abs >= 3:
		strength = StrengthVeryStrong
		confidence = math.Min(0.95, 0.6+0.1*float64(abs-3))
	case abs == 2:
		strength = StrengthStrong
		confidence = math.Min(0.9, 0.5+0.1*float64(abs))
	case abs == 1:
		strength = StrengthMedium
		confidence = 0.4 + 0.1*float64(abs)
	default:
		return Hold, StrengthWeak, 0.3
	}

	if diff > 0 {
		if abs >= 3 {
			return StrongBuy, strength, confidence
		}
		return Buy, strength, confidence
	}
	if abs >= 3 {
		return StrongSell, strength, confidence
	}
	return Sell, strength, confidence
}

// Tally applies the fixed rule table to a set and returns one Vote per rule that fired
func Tally(set indicators.Set) []Vote {
	var votes []Vote
	add := func(v Vote) {
		if v.Buy > 0 || v.Sell > 0 {
			votes = append(votes, v)
		}
	}

	if rsi, ok := set.Get(indicators.RSI14); ok {
		v := Vote{Indicator: RuleRSI, Value: rsi}
		if rsi < RSIOversold {
			v.Buy, v.Reason = 2, fmt.Sprintf("RSI %.1f oversold", rsi)
		} else if rsi > RSIOverbought {
			v.Sell, v.Reason = 2, fmt.Sprintf("RSI %.1f overbought", rsi)
		}
		add(v)
	}

	if set.Has(indicators.MACDLine, indicators.MACDSignal, indicators.MACDHistogram) {
		macd, sig, hist := set[indicators.MACDLine], set[indicators.MACDSignal], set[indicators.MACDHistogram]
		v := Vote{Indicator: RuleMACD, Value: hist}
		if macd > sig && hist > 0 {
			v.Buy, v.Reason = 1, "MACD above signal with positive histogram"
		} else if macd < sig && hist < 0 {
			v.Sell, v.Reason = 1, "MACD below signal with negative histogram"
		}
		add(v)
	}

	if set.Has(indicators.Price, indicators.BBUpper, indicators.BBLower) {
		price := set[indicators.Price]
		v := Vote{Indicator: RuleBollinger, Value: price}
		if price <= set[indicators.BBLower] {
			v.Buy, v.Reason = 1, "price at or below lower band"
		} else if price >= set[indicators.BBUpper] {
			v.Sell, v.Reason = 1, "price at or above upper band"
		}
		add(v)
	}

	if set.Has(indicators.StochK, indicators.StochD) {
		k, d := set[indicators.StochK], set[indicators.StochD]
		v := Vote{Indicator: RuleStochastic, Value: k}
		if k < StochOversold && d < StochOversold {
			v.Buy, v.Reason = 1, fmt.Sprintf("stochastic %.1f/%.1f oversold", k, d)
		} else if k > StochOverbought && d > StochOverbought {
			v.Sell, v.Reason = 1, fmt.Sprintf("stochastic %.1f/%.1f overbought", k, d)
		}
		add(v)
	}

	if set.Has(indicators.Price, indicators.SMA20, indicators.SMA50) {
		price, short, long := set[indicators.Price], set[indicators.SMA20], set[indicators.SMA50]
		v := Vote{Indicator: RuleTrend, Value: short - long}
		if price > short && short > long {
			v.Buy, v.Reason = 1, "price above SMA20 above SMA50"
		} else if price < short && short < long {
			v.Sell, v.Reason = 1, "price below SMA20 below SMA50"
		}
		add(v)
	}

	if cci, ok := set.Get(indicators.CCI20); ok {
		v := Vote{Indicator: RuleCCI, Value: cci}
		if cci < CCIOversold {
			v.Buy, v.Reason = 1, fmt.Sprintf("CCI %.0f oversold", cci)
		} else if cci > CCIOverbought {
			v.Sell, v.Reason = 1, fmt.Sprintf("CCI %.0f overbought", cci)
		}
		add(v)
	}

	if wr, ok := set.Get(indicators.WilliamsR14); ok {
		v := Vote{Indicator: RuleWilliamsR, Value: wr}
		if wr < WillROversold {
			v.Buy, v.Reason = 1, fmt.Sprintf("Williams %%R %.1f oversold", wr)
		} else if wr > WillROverbought {
			v.Sell, v.Reason = 1, fmt.Sprintf("Williams %%R %.1f overbought", wr)
		}
		add(v)
	}

	if mfi, ok := set.Get(indicators.MFI14); ok {
		v := Vote{Indicator: RuleMFI, Value: mfi}
		if mfi < MFIOversold {
			v.Buy, v.Reason = 1, fmt.Sprintf("MFI %.1f oversold", mfi)
		} else if mfi > MFIOverbought {
			v.Sell, v.Reason = 1, fmt.Sprintf("MFI %.1f overbought", mfi)
		}
		add(v)
	}

	return votes
}
