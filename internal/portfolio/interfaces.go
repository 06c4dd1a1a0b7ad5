package portfolio

import (
	"errors"
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// Status is the lifecycle state of a position
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusClosed     Status = "CLOSED"
	StatusStoppedOut Status = "STOPPED_OUT"
	StatusTookProfit Status = "TOOK_PROFIT"
)

// IsTerminal reports whether the position is no longer open
func (s Status) IsTerminal() bool {
	return s != StatusOpen
}

// ClosedTrade is a realized position kept in the trade ledger
type ClosedTrade struct {
	PositionID  string     `json:"position_id"`
	Symbol      string     `json:"symbol"`
	Side        types.Side `json:"side"`
	EntryPrice  float64    `json:"entry_price"`
	ExitPrice   float64    `json:"exit_price"`
	Quantity    float64    `json:"quantity"`
	RealizedPnL float64    `json:"realized_pnl"`
	Status      Status     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	OpenedAt    time.Time  `json:"opened_at"`
	ClosedAt    time.Time  `json:"closed_at"`
}

// RiskSnapshot is the portfolio-level risk picture for one tick
type RiskSnapshot struct {
	Timestamp         time.Time                     `json:"timestamp"`
	TotalExposure     float64                       `json:"total_exposure"`
	PortfolioValue    float64                       `json:"portfolio_value"`
	MaxDrawdown       float64                       `json:"max_drawdown"`
	VaR95             float64                       `json:"var_95"`
	SharpeRatio       float64                       `json:"sharpe_ratio"`
	CorrelationMatrix map[string]map[string]float64 `json:"correlation_matrix"`
	RiskScore         float64                       `json:"risk_score"`
	ShouldReduceRisk  bool                          `json:"should_reduce_risk"`
	HighRiskPositions []string                      `json:"high_risk_positions"`
	OpenPositions     int                           `json:"open_positions"`
}

// Clone returns a deep copy safe to publish
func (s RiskSnapshot) Clone() RiskSnapshot {
	out := s
	out.HighRiskPositions = append([]string(nil), s.HighRiskPositions...)
	if s.CorrelationMatrix != nil {
		out.CorrelationMatrix = make(map[string]map[string]float64, len(s.CorrelationMatrix))
		for a, row := range s.CorrelationMatrix {
			r := make(map[string]float64, len(row))
			for b, v := range row {
				r[b] = v
			}
			out.CorrelationMatrix[a] = r
		}
	}
	return out
}

// PortfolioError represents portfolio-specific errors
type PortfolioError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Symbol    string    `json:"symbol,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *PortfolioError) Error() string {
	if e.Symbol != "" {
		return e.Code + " [" + e.Symbol + "]: " + e.Message
	}
	return e.Code + ": " + e.Message
}

// Common error codes
const (
	ErrPositionExists   = "POSITION_EXISTS"
	ErrPositionNotFound = "POSITION_NOT_FOUND"
	ErrInvalidPosition  = "INVALID_POSITION"
)

// HasCode reports whether err is a PortfolioError with the given code
func HasCode(err error, code string) bool {
	var pe *PortfolioError
	return errors.As(err, &pe) && pe.Code == code
}
