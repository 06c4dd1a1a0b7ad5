package portfolio

import (
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
)

// Reduce-risk limits
const (
	MaxRiskScore          = 0.7
	MaxDrawdownLimit      = 0.15
	MaxVaRFraction        = 0.1
	HighRiskReturnLimit   = 0.1
	minCorrelationSamples = 3

	z95                = 1.645
	tradingDaysPerYear = 252.0
)

// Monitor aggregates open positions into portfolio risk. It keeps the portfolio
// value history and a per-tick price history between ticks.
type Monitor struct {
	cfg config.PortfolioConfig

	mu          sync.Mutex
	values      []float64
	maxDrawdown float64
	// one row per assessed tick; a symbol absent from a row was not priced that tick
	priceRows []map[string]float64
	pending   map[string]float64
}

// NewMonitor creates a monitor from validated configuration
func NewMonitor(cfg config.PortfolioConfig) *Monitor {
	return &Monitor{
		cfg:     cfg,
		pending: make(map[string]float64),
	}
}

// ObservePrice records the price of symbol for the tick that the next Assess closes
func (m *Monitor) ObservePrice(symbol string, price float64) {
	if price <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[symbol] = price
}

// Assess records the current portfolio value and returns the risk snapshot.
// Call it once per tick after every symbol has been processed.
func (m *Monitor) Assess(positions []Position, equity float64, ts time.Time) RiskSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := RiskSnapshot{
		Timestamp:         ts,
		HighRiskPositions: []string{},
	}

	unrealized := 0.0
	for _, p := range positions {
		if p.Status.IsTerminal() {
			continue
		}
		snap.OpenPositions++
		snap.TotalExposure += p.Exposure()
		unrealized += p.UnrealizedPnL
		if math.Abs(p.ReturnFraction()) > HighRiskReturnLimit {
			snap.HighRiskPositions = append(snap.HighRiskPositions, p.Symbol)
		}
	}
	sort.Strings(snap.HighRiskPositions)

	snap.PortfolioValue = equity + unrealized
	m.recordValue(snap.PortfolioValue)
	m.recordPrices()

	snap.MaxDrawdown = m.maxDrawdown
	snap.VaR95 = ParametricVaR(snap.PortfolioValue, m.cfg.AssumedAnnualVol, m.cfg.VaRHorizonDays)
	snap.SharpeRatio = SharpeRatio(periodReturns(m.values), m.cfg.RiskFreeRate)
	snap.CorrelationMatrix = m.correlationMatrix()

	exposureRatio, varRatio := 1.0, 1.0
	if snap.PortfolioValue > 0 {
		exposureRatio = math.Min(snap.TotalExposure/snap.PortfolioValue, 1)
		varRatio = math.Min(snap.VaR95/snap.PortfolioValue, 1)
	}
	drawdownRisk := math.Min(2*snap.MaxDrawdown, 1)
	snap.RiskScore = clip01((exposureRatio + drawdownRisk + varRatio) / 3)

	snap.ShouldReduceRisk = snap.RiskScore > MaxRiskScore ||
		snap.MaxDrawdown > MaxDrawdownLimit ||
		varRatio > MaxVaRFraction

	return snap
}

// MaxDrawdown returns the largest peak-to-trough decline of the retained value history
func (m *Monitor) MaxDrawdown() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxDrawdown
}

func (m *Monitor) recordValue(v float64) {
	m.values = append(m.values, v)
	if len(m.values) > m.cfg.HistoryLength {
		m.values = m.values[len(m.values)-m.cfg.HistoryLength:]
	}
	m.maxDrawdown = MaxDrawdown(m.values)
}

// recordPrices closes the current tick's price row
func (m *Monitor) recordPrices() {
	m.priceRows = append(m.priceRows, m.pending)
	m.pending = make(map[string]float64, len(m.pending))
	if keep := m.cfg.CorrelationLookback + 1; len(m.priceRows) > keep {
		m.priceRows = m.priceRows[len(m.priceRows)-keep:]
	}
}

// MaxDrawdown is the largest peak-to-trough decline of values as a fraction of the peak
func MaxDrawdown(values []float64) float64 {
	peak, worst := 0.0, 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			worst = math.Max(worst, (peak-v)/peak)
		}
	}
	return worst
}

// pairedReturns returns the simple returns of a and b over the ticks where both were
// priced at both ends, so the two slices line up tick for tick
func (m *Monitor) pairedReturns(a, b string) ([]float64, []float64) {
	var ra, rb []float64
	for i := 1; i < len(m.priceRows); i++ {
		prev, cur := m.priceRows[i-1], m.priceRows[i]
		pa, okPA := prev[a]
		ca, okCA := cur[a]
		pb, okPB := prev[b]
		cb, okCB := cur[b]
		if !okPA || !okCA || !okPB || !okCB {
			continue
		}
		ra = append(ra, ca/pa-1)
		rb = append(rb, cb/pb-1)
	}
	return ra, rb
}

func (m *Monitor) correlationMatrix() map[string]map[string]float64 {
	seen := make(map[string]bool)
	for _, row := range m.priceRows {
		for s := range row {
			seen[s] = true
		}
	}
	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	matrix := make(map[string]map[string]float64, len(symbols))
	for _, a := range symbols {
		matrix[a] = make(map[string]float64, len(symbols))
	}
	for i, a := range symbols {
		matrix[a][a] = 1.0
		for _, b := range symbols[i+1:] {
			c := Correlation(m.pairedReturns(a, b))
			matrix[a][b] = c
			matrix[b][a] = c
		}
	}
	return matrix
}

// ParametricVaR is the 95% normal VaR of value over horizonDays trading days
func ParametricVaR(value, annualVol, horizonDays float64) float64 {
	if value <= 0 || annualVol <= 0 || horizonDays <= 0 {
		return 0
	}
	return value * annualVol * math.Sqrt(horizonDays/tradingDaysPerYear) * z95
}

// SharpeRatio is (mean return - riskFree) / stddev of returns, 0 when undefined
func SharpeRatio(returns []float64, riskFree float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return (mean - riskFree) / std
}

// Correlation is the Pearson correlation over the overlapping tail of a and b,
// 0 when there is too little overlap or either series is flat
func Correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < minCorrelationSamples {
		return 0
	}
	c := stat.Correlation(a[len(a)-n:], b[len(b)-n:], nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, c))
}

// periodReturns converts a value series into simple returns, skipping non-positive bases
func periodReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			out = append(out, values[i]/values[i-1]-1)
		}
	}
	return out
}

func clip01(v float64) float64 {
	if math.IsNaN(v) {
		return 1
	}
	return math.Max(0, math.Min(1, v))
}
