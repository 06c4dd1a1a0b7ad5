package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultOutputDir returns results/<date> for a run started at ts
func DefaultOutputDir(root string, ts time.Time) string {
	if root == "" {
		root = "results"
	}
	return filepath.Join(root, ts.UTC().Format("20060102"))
}

// SnapshotPath names the snapshot file of a run
func SnapshotPath(dir string, ts time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("snapshot_%s.json", ts.UTC().Format("150405")))
}

// TradesPath names the trade ledger file of a run
func TradesPath(dir string, ts time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("trades_%s.csv", ts.UTC().Format("150405")))
}

// EnsureDirectoryExists creates the parent directory of path if it doesn't exist
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
