package reporting

import (
	"github.com/ducminhle1904/crypto-risk-engine/internal/orchestrator"
	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	json    *DefaultJSONWriter
}

// NewDefaultReporter creates a new default reporter with all functionality
func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(),
		csv:     NewDefaultCSVReporter(),
		json:    NewDefaultJSONWriter(),
	}
}

// Console output methods
func (r *DefaultReporter) RenderTick(res orchestrator.TickResult, positions []portfolio.Position) {
	r.console.RenderTick(res, positions)
}

func (r *DefaultReporter) RenderSnapshot(snap orchestrator.Snapshot) {
	r.console.RenderSnapshot(snap)
}

// File output methods
func (r *DefaultReporter) WriteSnapshotJSON(snap orchestrator.Snapshot, path string) error {
	return r.json.WriteSnapshotJSON(snap, path)
}

func (r *DefaultReporter) WriteTradesCSV(trades []portfolio.ClosedTrade, path string) error {
	return r.csv.WriteTradesCSV(trades, path)
}

var _ Reporter = (*DefaultReporter)(nil)
