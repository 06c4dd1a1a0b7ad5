package orchestrator

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/internal/errors"
	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/crypto-risk-engine/internal/signal"
)

// Snapshot is a point-in-time, JSON-serializable view of the engine
type Snapshot struct {
	Timestamp    time.Time                `json:"timestamp"`
	TickID       string                   `json:"tick_id,omitempty"`
	Tick         int64                    `json:"tick"`
	Equity       float64                  `json:"equity"`
	ReduceRisk   bool                     `json:"reduce_risk"`
	Signals      []signal.Signal          `json:"signals"`
	Positions    []portfolio.Position     `json:"positions"`
	ClosedTrades []portfolio.ClosedTrade  `json:"closed_trades"`
	Risk         *portfolio.RiskSnapshot  `json:"risk,omitempty"`
	States       map[string]State         `json:"states"`
	StaleSymbols []string                 `json:"stale_symbols"`
	Errors       map[errors.ErrorKind]int `json:"errors"`
}

// Snapshot copies the current engine state. It never blocks a running tick for longer
// than a map copy.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	snap := Snapshot{
		Timestamp:  o.now(),
		TickID:     o.lastTickID,
		Tick:       o.tickCount,
		ReduceRisk: o.reduceRisk,
		Signals:    make([]signal.Signal, 0, len(o.signals)),
		States:     make(map[string]State, len(o.states)),
	}
	for _, s := range o.signals {
		snap.Signals = append(snap.Signals, s.Clone())
	}
	for symbol, st := range o.states {
		snap.States[symbol] = st
	}
	if o.risk != nil {
		r := o.risk.Clone()
		snap.Risk = &r
	}
	o.mu.RUnlock()

	sort.Slice(snap.Signals, func(i, j int) bool {
		return snap.Signals[i].Symbol < snap.Signals[j].Symbol
	})

	snap.Equity = o.Equity()
	snap.Positions = o.book.Positions()
	snap.ClosedTrades = o.book.Closed()
	snap.StaleSymbols = o.book.StaleSymbols()
	snap.Errors = o.errs.Counts()

	if snap.StaleSymbols == nil {
		snap.StaleSymbols = []string{}
	}
	return snap
}

// SnapshotJSON serializes Snapshot for the HTTP endpoint and the report writer
func (o *Orchestrator) SnapshotJSON() ([]byte, error) {
	return json.MarshalIndent(o.Snapshot(), "", "  ")
}
