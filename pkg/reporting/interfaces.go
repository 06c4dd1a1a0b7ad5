package reporting

import (
	"github.com/ducminhle1904/crypto-risk-engine/internal/orchestrator"
	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio"
)

// Package reporting renders engine state for operators and writes it to disk

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	RenderTick(res orchestrator.TickResult, positions []portfolio.Position)
	RenderSnapshot(snap orchestrator.Snapshot)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteSnapshotJSON(snap orchestrator.Snapshot, path string) error
	WriteTradesCSV(trades []portfolio.ClosedTrade, path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
}
