package evidence

import (
	"context"
	"time"
)

// Category names an evidence list
type Category string

const (
	CategoryTechnical Category = "technical"
	CategoryTextual   Category = "textual"
	CategoryFeature   Category = "feature"
)

// Item is a single piece of corroborating evidence
type Item struct {
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source,omitempty"`
	Score       *float64  `json:"score,omitempty"`
	Confidence  *float64  `json:"confidence,omitempty"`
}

// Bundle groups evidence by category
type Bundle struct {
	Technical []Item `json:"technical"`
	Textual   []Item `json:"textual"`
	Feature   []Item `json:"feature"`
}

// Provider is the evidence/sentiment collaborator
type Provider interface {
	// GetEvidence returns the evidence recorded for symbol within window of now
	GetEvidence(ctx context.Context, symbol string, window time.Duration) (Bundle, error)
}

// Merge returns a new bundle holding the items of both bundles, b first
func (b Bundle) Merge(other Bundle) Bundle {
	return Bundle{
		Technical: appendItems(b.Technical, other.Technical),
		Textual:   appendItems(b.Textual, other.Textual),
		Feature:   appendItems(b.Feature, other.Feature),
	}
}

// Missing returns the categories that hold no items
func (b Bundle) Missing() []Category {
	var missing []Category
	if len(b.Technical) == 0 {
		missing = append(missing, CategoryTechnical)
	}
	if len(b.Textual) == 0 {
		missing = append(missing, CategoryTextual)
	}
	if len(b.Feature) == 0 {
		missing = append(missing, CategoryFeature)
	}
	return missing
}

// Since keeps only items at or after cutoff
func (b Bundle) Since(cutoff time.Time) Bundle {
	return Bundle{
		Technical: filterSince(b.Technical, cutoff),
		Textual:   filterSince(b.Textual, cutoff),
		Feature:   filterSince(b.Feature, cutoff),
	}
}

// Clone returns a deep copy
func (b Bundle) Clone() Bundle {
	return Bundle{}.Merge(b)
}

func appendItems(a, b []Item) []Item {
	out := make([]Item, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func filterSince(items []Item, cutoff time.Time) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.Timestamp.Before(cutoff) {
			out = append(out, it)
		}
	}
	return out
}

// Float returns a pointer to v, for the optional Item fields
func Float(v float64) *float64 {
	return &v
}
