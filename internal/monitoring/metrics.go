package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio"
)

var (
	// Tick metrics
	ticksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "risk_engine_ticks_total",
			Help: "Total number of completed ticks",
		},
	)

	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "risk_engine_tick_duration_seconds",
			Help:    "Wall time of a full tick including portfolio aggregation",
			Buckets: prometheus.DefBuckets,
		},
	)

	staleSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_engine_stale_symbols",
			Help: "Symbols not refreshed in the last tick",
		},
	)

	// Signal metrics
	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_signals_total",
			Help: "Gated signals by direction",
		},
		[]string{"symbol", "direction"},
	)

	gateSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_gate_suppressed_total",
			Help: "Directional signals downgraded to hold by the evidence gate",
		},
		[]string{"symbol"},
	)

	signalConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_engine_signal_confidence",
			Help: "Confidence of the latest signal",
		},
		[]string{"symbol"},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_engine_current_price",
			Help: "Latest close of trading symbol",
		},
		[]string{"symbol"},
	)

	// Position metrics
	positionsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_positions_opened_total",
			Help: "Positions opened",
		},
		[]string{"symbol", "side"},
	)

	positionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_positions_closed_total",
			Help: "Positions closed by exit status",
		},
		[]string{"symbol", "status"},
	)

	realizedPnL = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_realized_pnl_abs_total",
			Help: "Absolute realized PnL by sign",
		},
		[]string{"sign"},
	)

	// Portfolio metrics
	portfolioGauges = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_engine_portfolio",
			Help: "Latest portfolio risk snapshot values",
		},
		[]string{"metric"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_errors_total",
			Help: "Total number of per-symbol errors by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(tickDuration)
	prometheus.MustRegister(staleSymbols)
	prometheus.MustRegister(signalsTotal)
	prometheus.MustRegister(gateSuppressedTotal)
	prometheus.MustRegister(signalConfidence)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(positionsOpened)
	prometheus.MustRegister(positionsClosed)
	prometheus.MustRegister(realizedPnL)
	prometheus.MustRegister(portfolioGauges)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus metrics endpoint
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordTick records a completed tick
func RecordTick(d time.Duration, stale int) {
	ticksTotal.Inc()
	tickDuration.Observe(d.Seconds())
	staleSymbols.Set(float64(stale))
}

// RecordSignal records a gated signal; suppressed marks a gate downgrade
func RecordSignal(symbol, direction string, confidence float64, suppressed bool) {
	signalsTotal.WithLabelValues(symbol, direction).Inc()
	signalConfidence.WithLabelValues(symbol).Set(confidence)
	if suppressed {
		gateSuppressedTotal.WithLabelValues(symbol).Inc()
	}
}

// UpdatePrice updates the current price metric
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// RecordOpen records a new position
func RecordOpen(symbol, side string) {
	positionsOpened.WithLabelValues(symbol, side).Inc()
}

// RecordClose records a closed trade
func RecordClose(t portfolio.ClosedTrade) {
	positionsClosed.WithLabelValues(t.Symbol, string(t.Status)).Inc()
	if t.RealizedPnL >= 0 {
		realizedPnL.WithLabelValues("profit").Add(t.RealizedPnL)
	} else {
		realizedPnL.WithLabelValues("loss").Add(-t.RealizedPnL)
	}
}

// UpdatePortfolio publishes the latest risk snapshot
func UpdatePortfolio(s portfolio.RiskSnapshot) {
	portfolioGauges.WithLabelValues("value").Set(s.PortfolioValue)
	portfolioGauges.WithLabelValues("exposure").Set(s.TotalExposure)
	portfolioGauges.WithLabelValues("max_drawdown").Set(s.MaxDrawdown)
	portfolioGauges.WithLabelValues("var_95").Set(s.VaR95)
	portfolioGauges.WithLabelValues("sharpe").Set(s.SharpeRatio)
	portfolioGauges.WithLabelValues("risk_score").Set(s.RiskScore)
	portfolioGauges.WithLabelValues("open_positions").Set(float64(s.OpenPositions))
	reduce := 0.0
	if s.ShouldReduceRisk {
		reduce = 1
	}
	portfolioGauges.WithLabelValues("reduce_risk").Set(reduce)
}

// RecordError records an error metric
func RecordError(kind string) {
	errorsTotal.WithLabelValues(kind).Inc()
}
