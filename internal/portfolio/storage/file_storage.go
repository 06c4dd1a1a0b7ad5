package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio"
)

// staleLockAge is the age after which a lock left by a dead process is removed
const staleLockAge = 5 * time.Minute

// BookState is the persisted form of the position book
type BookState struct {
	SavedAt     time.Time               `json:"saved_at"`
	TickID      string                  `json:"tick_id,omitempty"`
	Positions   []portfolio.Position    `json:"positions"`
	Closed      []portfolio.ClosedTrade `json:"closed_trades"`
	RealizedPnL float64                 `json:"realized_pnl"`
}

// FileStorage persists the book as a JSON file guarded by a lock file
type FileStorage struct {
	mu       sync.RWMutex
	filePath string
	lockFile string
	isLocked bool
}

// NewFileStorage creates a file-based store at filePath, creating its directory
func NewFileStorage(filePath string) (*FileStorage, error) {
	if filePath == "" {
		filePath = "book_state.json"
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return &FileStorage{
		filePath: filePath,
		lockFile: filePath + ".lock",
	}, nil
}

// Path returns the state file path
func (f *FileStorage) Path() string {
	return f.filePath
}

// Save writes state through a temporary file and an atomic rename
func (f *FileStorage) Save(state BookState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := validateState(state); err != nil {
		return fmt.Errorf("refusing to save invalid book state: %w", err)
	}
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal book state: %w", err)
	}

	tempFile := f.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}
	if err := os.Rename(tempFile, f.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to commit state file: %w", err)
	}
	return nil
}

// Load reads the persisted state. A missing file is not an error: ok is false.
func (f *FileStorage) Load() (state BookState, ok bool, err error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.filePath)
	if os.IsNotExist(err) {
		return BookState{}, false, nil
	}
	if err != nil {
		return BookState{}, false, fmt.Errorf("failed to read book state file: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return BookState{}, false, fmt.Errorf("failed to unmarshal book state: %w", err)
	}
	if err := validateState(state); err != nil {
		return BookState{}, false, fmt.Errorf("invalid book state: %w", err)
	}
	return state, true, nil
}

// Lock creates a lock file so two engines never share one state file
func (f *FileStorage) Lock() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isLocked {
		return fmt.Errorf("storage is already locked")
	}

	if _, err := os.Stat(f.lockFile); err == nil {
		if err := f.checkStaleLock(); err != nil {
			return err
		}
	}

	lockData, err := json.Marshal(lockInfo{
		Timestamp: time.Now(),
		PID:       os.Getpid(),
		Hostname:  getHostname(),
	})
	if err != nil {
		return fmt.Errorf("failed to create lock data: %w", err)
	}

	file, err := os.OpenFile(f.lockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(lockData); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}

	f.isLocked = true
	return nil
}

// Unlock removes the lock file
func (f *FileStorage) Unlock() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.isLocked {
		return nil
	}
	if err := os.Remove(f.lockFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	f.isLocked = false
	return nil
}

// IsLocked returns true if this store holds the lock
func (f *FileStorage) IsLocked() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.isLocked
}

// BackupState copies the current state file next to it and returns the backup path
func (f *FileStorage) BackupState() (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.filePath)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("no state file to backup")
	}
	if err != nil {
		return "", fmt.Errorf("failed to read state file for backup: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup_%s", f.filePath, time.Now().Format("20060102_150405"))
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	return backupPath, nil
}

type lockInfo struct {
	Timestamp time.Time `json:"timestamp"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
}

func validateState(state BookState) error {
	seen := make(map[string]bool, len(state.Positions))
	for _, p := range state.Positions {
		if p.Symbol == "" || p.ID == "" {
			return fmt.Errorf("position without symbol or id")
		}
		if seen[p.Symbol] {
			return fmt.Errorf("duplicate position for %s", p.Symbol)
		}
		seen[p.Symbol] = true

		if p.Quantity <= 0 || p.EntryPrice <= 0 {
			return fmt.Errorf("invalid quantity or entry for %s", p.Symbol)
		}
		if p.Status.IsTerminal() {
			return fmt.Errorf("closed position %s stored as open", p.Symbol)
		}
	}
	return nil
}

func (f *FileStorage) checkStaleLock() error {
	data, err := os.ReadFile(f.lockFile)
	if err != nil {
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	var info lockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		os.Remove(f.lockFile)
		return nil
	}
	if age := time.Since(info.Timestamp); age > staleLockAge {
		os.Remove(f.lockFile)
		return nil
	}
	return fmt.Errorf("book state %s is locked by pid %d on %s", f.filePath, info.PID, info.Hostname)
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
