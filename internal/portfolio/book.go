package portfolio

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Book owns the position map and the closed-trade ledger. All writes go through
// its methods under one lock; readers always receive copies.
type Book struct {
	mu          sync.RWMutex
	positions   map[string]Position
	closed      []ClosedTrade
	lastUpdated map[string]time.Time
	stale       map[string]bool
	maxClosed   int
	realized    float64
}

// NewBook creates an empty book keeping at most maxClosed ledger entries (0 keeps all)
func NewBook(maxClosed int) *Book {
	return &Book{
		positions:   make(map[string]Position),
		lastUpdated: make(map[string]time.Time),
		stale:       make(map[string]bool),
		maxClosed:   maxClosed,
	}
}

// Open inserts a new open position; a symbol holds at most one
func (b *Book) Open(p Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.positions[p.Symbol]; exists {
		return &PortfolioError{
			Code:      ErrPositionExists,
			Message:   fmt.Sprintf("position %s already open", p.Symbol),
			Symbol:    p.Symbol,
			Timestamp: p.OpenedAt,
		}
	}
	b.positions[p.Symbol] = p
	return nil
}

// Get returns a copy of the open position for symbol
func (b *Book) Get(symbol string) (Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.positions[symbol]
	if ok {
		p.Stale = b.stale[symbol]
	}
	return p, ok
}

// Update replaces the open position for symbol with fn's result. If fn fails the
// stored position is left untouched.
func (b *Book) Update(symbol string, fn func(Position) (Position, error)) (Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.positions[symbol]
	if !ok {
		return Position{}, notFound(symbol)
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	if next.Symbol != symbol || next.ID != current.ID {
		return current, &PortfolioError{
			Code:      ErrInvalidPosition,
			Message:   "update must not change position identity",
			Symbol:    symbol,
			Timestamp: next.UpdatedAt,
		}
	}
	b.positions[symbol] = next
	return next, nil
}

// Close removes the open position for symbol, records it in the ledger and returns the entry
func (b *Book) Close(symbol string, price float64, status Status, reason string, ts time.Time) (ClosedTrade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, ok := b.positions[symbol]
	if !ok {
		return ClosedTrade{}, notFound(symbol)
	}
	if !status.IsTerminal() {
		status = StatusClosed
	}

	_, trade := current.Close(price, status, reason, ts)
	delete(b.positions, symbol)
	b.realized += trade.RealizedPnL
	b.closed = append(b.closed, trade)
	if b.maxClosed > 0 && len(b.closed) > b.maxClosed {
		b.closed = append([]ClosedTrade(nil), b.closed[len(b.closed)-b.maxClosed:]...)
	}
	return trade, nil
}

// Positions returns copies of all open positions ordered by symbol, with stale flags applied
func (b *Book) Positions() []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Position, 0, len(b.positions))
	for symbol, p := range b.positions {
		p.Stale = b.stale[symbol]
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Closed returns a copy of the trade ledger, oldest first
func (b *Book) Closed() []ClosedTrade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]ClosedTrade(nil), b.closed...)
}

// RealizedPnL is the total realized PnL, including trades already trimmed from the ledger
func (b *Book) RealizedPnL() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.realized
}

// Restore loads persisted positions and ledger into an empty book
func (b *Book) Restore(positions []Position, closed []ClosedTrade, realized float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.positions) > 0 || len(b.closed) > 0 {
		return &PortfolioError{Code: ErrInvalidPosition, Message: "restore requires an empty book"}
	}
	for _, p := range positions {
		if _, dup := b.positions[p.Symbol]; dup {
			return &PortfolioError{
				Code:    ErrPositionExists,
				Message: fmt.Sprintf("duplicate position %s in restored state", p.Symbol),
				Symbol:  p.Symbol,
			}
		}
		p.Stale = false
		b.positions[p.Symbol] = p
	}
	b.closed = append([]ClosedTrade(nil), closed...)
	if b.maxClosed > 0 && len(b.closed) > b.maxClosed {
		b.closed = b.closed[len(b.closed)-b.maxClosed:]
	}
	b.realized = realized
	return nil
}

// MarkFresh records a successful update of symbol at ts
func (b *Book) MarkFresh(symbol string, ts time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastUpdated[symbol] = ts
	delete(b.stale, symbol)
}

// MarkStale flags symbol as not refreshed this cycle
func (b *Book) MarkStale(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stale[symbol] = true
}

// LastUpdated returns when symbol was last refreshed
func (b *Book) LastUpdated(symbol string) (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ts, ok := b.lastUpdated[symbol]
	return ts, ok
}

// StaleSymbols returns the sorted stale symbols
func (b *Book) StaleSymbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.stale))
	for symbol := range b.stale {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

func notFound(symbol string) *PortfolioError {
	return &PortfolioError{
		Code:      ErrPositionNotFound,
		Message:   fmt.Sprintf("no open position for %s", symbol),
		Symbol:    symbol,
		Timestamp: time.Now(),
	}
}
