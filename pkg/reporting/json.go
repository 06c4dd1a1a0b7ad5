package reporting

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ducminhle1904/crypto-risk-engine/internal/orchestrator"
)

// DefaultJSONWriter writes snapshots as indented JSON
type DefaultJSONWriter struct{}

// NewDefaultJSONWriter creates a new JSON writer
func NewDefaultJSONWriter() *DefaultJSONWriter {
	return &DefaultJSONWriter{}
}

// WriteSnapshotJSON marshals snap and writes it to path atomically
func (w *DefaultJSONWriter) WriteSnapshotJSON(snap orchestrator.Snapshot, path string) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it into place,
// so readers never observe a partial file
func WriteFileAtomic(path string, data []byte) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to commit %s: %w", path, err)
	}
	return nil
}
