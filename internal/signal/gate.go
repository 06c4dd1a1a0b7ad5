package signal

import (
	"github.com/ducminhle1904/crypto-risk-engine/internal/evidence"
	"github.com/ducminhle1904/crypto-risk-engine/internal/indicators"
)

// InsufficientEvidenceReason is recorded on every signal the gate suppresses
const InsufficientEvidenceReason = "insufficient corroborating evidence"

// RankedRules are the indicators whose votes count as technical evidence
var RankedRules = []string{RuleRSI, RuleMACD, RuleBollinger}

// DefaultImportantFeatures are the indicators whose presence counts as feature evidence
var DefaultImportantFeatures = []string{
	indicators.RSI14,
	indicators.MACDHistogram,
	indicators.ADX14,
	indicators.MFI14,
}

// Gate is the evidence interlock between scoring and any position action.
// It holds configuration only; Apply is a pure function of its inputs.
type Gate struct {
	threshold float64
	important []string
}

// NewGate creates a gate with the confidence threshold and important feature names.
// A nil feature list selects DefaultImportantFeatures.
func NewGate(threshold float64, important []string) *Gate {
	if important == nil {
		important = DefaultImportantFeatures
	}
	return &Gate{
		threshold: threshold,
		important: append([]string(nil), important...),
	}
}

// Threshold returns the minimum confidence for a non-Hold direction
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Apply returns a copy of sig with the given evidence attached, downgraded to Hold
// unless every category is non-empty and confidence meets the threshold.
func (g *Gate) Apply(sig Signal, ev evidence.Bundle) Signal {
	out := sig.Clone()
	out.Evidence = ev.Clone()
	out.Missing = ev.Missing()
	out.GatePassed = false

	if out.Direction == Hold {
		return out
	}

	if len(out.Missing) > 0 || out.Confidence < g.threshold {
		out.Direction = Hold
		out.Strength = StrengthWeak
		out.Reason = InsufficientEvidenceReason
		return out
	}

	out.GatePassed = true
	out.Reason = ""
	return out
}

// Evaluate derives technical and feature evidence from the signal itself,
// merges the collaborator's evidence and applies the gate.
func (g *Gate) Evaluate(sig Signal, external evidence.Bundle) Signal {
	derived := evidence.FromIndicators(sig.Indicators, Contributing(sig), g.important, sig.Timestamp)
	return g.Apply(sig, derived.Merge(external))
}

// Contributing returns the ranked rules that voted in the signal's direction
func Contributing(sig Signal) []string {
	var names []string
	for _, rule := range RankedRules {
		for _, v := range sig.Votes {
			if v.Indicator != rule {
				continue
			}
			if (sig.Direction.IsBuy() && v.Buy > 0) || (sig.Direction.IsSell() && v.Sell > 0) {
				names = append(names, rule)
			}
		}
	}
	return names
}
