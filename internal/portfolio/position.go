package portfolio

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// Position is an open or closed holding in one symbol. Positions are values:
// every mutation returns a new Position so an update is applied whole or not at all.
type Position struct {
	ID            string     `json:"id"`
	Symbol        string     `json:"symbol"`
	Side          types.Side `json:"side"`
	EntryPrice    float64    `json:"entry_price"`
	CurrentPrice  float64    `json:"current_price"`
	Quantity      float64    `json:"quantity"`
	StopLoss      float64    `json:"stop_loss"`
	TakeProfit    float64    `json:"take_profit"`
	Status        Status     `json:"status"`
	UnrealizedPnL float64    `json:"unrealized_pnl"`
	RiskScore     float64    `json:"risk_score"`
	Trailing      bool       `json:"trailing"`
	Stale         bool       `json:"stale"`
	OpenedAt      time.Time  `json:"opened_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewPosition validates the protective levels and returns an open position.
// For Long the stop must sit below entry and the target at or above it; Short mirrors.
func NewPosition(symbol string, side types.Side, entry, quantity, stopLoss, takeProfit float64, ts time.Time) (Position, error) {
	if entry <= 0 || quantity <= 0 {
		return Position{}, &PortfolioError{
			Code:      ErrInvalidPosition,
			Message:   fmt.Sprintf("entry %.4f and quantity %.4f must be positive", entry, quantity),
			Symbol:    symbol,
			Timestamp: ts,
		}
	}

	valid := stopLoss < entry && entry <= takeProfit
	if side == types.Short {
		valid = stopLoss > entry && entry >= takeProfit
	}
	if !valid {
		return Position{}, &PortfolioError{
			Code:      ErrInvalidPosition,
			Message:   fmt.Sprintf("%s levels out of order: stop %.4f entry %.4f target %.4f", side, stopLoss, entry, takeProfit),
			Symbol:    symbol,
			Timestamp: ts,
		}
	}

	return Position{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		Side:         side,
		EntryPrice:   entry,
		CurrentPrice: entry,
		Quantity:     quantity,
		StopLoss:     stopLoss,
		TakeProfit:   takeProfit,
		Status:       StatusOpen,
		OpenedAt:     ts,
		UpdatedAt:    ts,
	}, nil
}

// PnLAt is the profit of the position if it were marked at price
func (p Position) PnLAt(price float64) float64 {
	return p.Side.Sign() * (price - p.EntryPrice) * p.Quantity
}

// CostBasis is entry price times quantity
func (p Position) CostBasis() float64 {
	return p.EntryPrice * p.Quantity
}

// Exposure is the current market value of the position
func (p Position) Exposure() float64 {
	return p.CurrentPrice * p.Quantity
}

// ReturnFraction is unrealized PnL relative to cost basis
func (p Position) ReturnFraction() float64 {
	basis := p.CostBasis()
	if basis == 0 {
		return 0
	}
	return p.UnrealizedPnL / basis
}

// Mark returns p re-priced at price with the given stop. Price, PnL, risk score and stop
// change together. A stop looser than the current one is ignored.
func (p Position) Mark(price, stop float64, ts time.Time) Position {
	out := p
	out.CurrentPrice = price
	out.UnrealizedPnL = p.PnLAt(price)
	if tighter(p.Side, stop, p.StopLoss) {
		out.StopLoss = stop
		out.Trailing = true
	}
	out.RiskScore = stopProximity(out)
	out.UpdatedAt = ts
	return out
}

// Close returns the terminal position and its ledger entry
func (p Position) Close(price float64, status Status, reason string, ts time.Time) (Position, ClosedTrade) {
	out := p.Mark(price, p.StopLoss, ts)
	out.Status = status

	return out, ClosedTrade{
		PositionID:  p.ID,
		Symbol:      p.Symbol,
		Side:        p.Side,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   price,
		Quantity:    p.Quantity,
		RealizedPnL: out.UnrealizedPnL,
		Status:      status,
		Reason:      reason,
		OpenedAt:    p.OpenedAt,
		ClosedAt:    ts,
	}
}

func tighter(side types.Side, candidate, current float64) bool {
	if side == types.Short {
		return candidate < current
	}
	return candidate > current
}

// stopProximity is how much of the distance from entry to stop the price has covered, in [0,1]
func stopProximity(p Position) float64 {
	distance := math.Abs(p.EntryPrice - p.StopLoss)
	if distance == 0 {
		return 1
	}
	adverse := -p.Side.Sign() * (p.CurrentPrice - p.EntryPrice)
	return math.Max(0, math.Min(1, adverse/distance))
}
