package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// StaticProvider serves evidence from an in-memory table, optionally loaded from a JSON file
// of the form {"BTCUSDT": {"technical": [...], "textual": [...], "feature": [...]}}.
type StaticProvider struct {
	mu      sync.RWMutex
	bundles map[string]Bundle
	now     func() time.Time
}

// NewStaticProvider creates a provider over the given bundles
func NewStaticProvider(bundles map[string]Bundle) *StaticProvider {
	p := &StaticProvider{
		bundles: make(map[string]Bundle, len(bundles)),
		now:     time.Now,
	}
	for symbol, b := range bundles {
		p.bundles[strings.ToUpper(symbol)] = b.Clone()
	}
	return p
}

// LoadFile reads a JSON evidence table
func LoadFile(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read evidence file: %w", err)
	}

	var bundles map[string]Bundle
	if err := json.Unmarshal(data, &bundles); err != nil {
		return nil, fmt.Errorf("failed to parse evidence file %s: %w", path, err)
	}
	return NewStaticProvider(bundles), nil
}

// WithClock overrides the time source used for window filtering
func (p *StaticProvider) WithClock(now func() time.Time) *StaticProvider {
	p.now = now
	return p
}

// Set replaces the bundle for a symbol
func (p *StaticProvider) Set(symbol string, b Bundle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bundles[strings.ToUpper(symbol)] = b.Clone()
}

// GetEvidence returns the symbol's items within window; an unknown symbol yields an empty bundle
func (p *StaticProvider) GetEvidence(ctx context.Context, symbol string, window time.Duration) (Bundle, error) {
	if err := ctx.Err(); err != nil {
		return Bundle{}, err
	}

	p.mu.RLock()
	b, ok := p.bundles[strings.ToUpper(symbol)]
	p.mu.RUnlock()
	if !ok {
		return Bundle{}, nil
	}
	if window <= 0 {
		return b.Clone(), nil
	}
	return b.Since(p.now().Add(-window)), nil
}
