package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker tracks tick liveness for the /health endpoint
type HealthChecker struct {
	mu           sync.RWMutex
	started      time.Time
	lastTick     time.Time
	maxTickAge   time.Duration
	staleSymbols []string
	lastError    string
	openCircuits func() []string
	now          func() time.Time
}

// HealthStatus is the /health response body
type HealthStatus struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	LastTick     time.Time `json:"last_tick"`
	Uptime       string    `json:"uptime"`
	StaleSymbols []string  `json:"stale_symbols,omitempty"`
	OpenCircuits []string  `json:"open_circuits,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// NewHealthChecker reports degraded once no tick completed within maxTickAge
func NewHealthChecker(maxTickAge time.Duration) *HealthChecker {
	return &HealthChecker{
		started:    time.Now(),
		maxTickAge: maxTickAge,
		now:        time.Now,
	}
}

// WithCircuitSource reports the symbols whose market data breaker is open
func (h *HealthChecker) WithCircuitSource(open func() []string) *HealthChecker {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.openCircuits = open
	return h
}

// RecordTick notes a completed tick and the symbols it left stale
func (h *HealthChecker) RecordTick(ts time.Time, stale []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTick = ts
	h.staleSymbols = append([]string(nil), stale...)
}

// RecordError keeps the most recent per-symbol error message
func (h *HealthChecker) RecordError(err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastError = err.Error()
}

// Status computes the current health
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var open []string
	if h.openCircuits != nil {
		open = h.openCircuits()
	}

	now := h.now()
	status := "healthy"
	switch {
	case h.lastTick.IsZero() || now.Sub(h.lastTick) > h.maxTickAge:
		status = "degraded"
	case len(h.staleSymbols) > 0 || len(open) > 0:
		status = "partial"
	}

	return HealthStatus{
		Status:       status,
		Timestamp:    now,
		LastTick:     h.lastTick,
		Uptime:       now.Sub(h.started).Round(time.Second).String(),
		StaleSymbols: append([]string(nil), h.staleSymbols...),
		OpenCircuits: open,
		LastError:    h.lastError,
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "degraded" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(health)
}
