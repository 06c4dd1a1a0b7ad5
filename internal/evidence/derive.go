package evidence

import (
	"fmt"
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/internal/indicators"
)

// TrendStrengthThreshold is the ADX level above which a trend counts as technical evidence
const TrendStrengthThreshold = 25.0

// Derived evidence sources
const (
	SourceTally   = "vote_tally"
	SourceFeature = "feature_presence"
)

// FromIndicators derives technical and feature evidence from a computed set.
// contributing names the ranked indicators that voted in the signal's direction;
// important lists the indicator names whose presence counts as feature evidence.
func FromIndicators(set indicators.Set, contributing, important []string, ts time.Time) Bundle {
	var b Bundle

	for _, name := range contributing {
		b.Technical = append(b.Technical, Item{
			Description: fmt.Sprintf("%s contributed to the vote tally", name),
			Timestamp:   ts,
			Source:      SourceTally,
		})
	}
	// A strong trend only corroborates a tally that already has a ranked contributor
	if adx, ok := set.Get(indicators.ADX14); ok && adx > TrendStrengthThreshold && len(contributing) > 0 {
		b.Technical = append(b.Technical, Item{
			Description: fmt.Sprintf("ADX %.1f confirms trend strength", adx),
			Timestamp:   ts,
			Source:      SourceTally,
			Score:       Float(adx),
		})
	}

	for _, name := range important {
		if v, ok := set.Get(name); ok {
			b.Feature = append(b.Feature, Item{
				Description: fmt.Sprintf("%s present", name),
				Timestamp:   ts,
				Source:      SourceFeature,
				Score:       Float(v),
			})
		}
	}

	return b
}
