package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
)

// ErrorKind represents the class of failure an engine operation can hit
type ErrorKind string

const (
	// KindDataUnavailable means a fetch failed or returned fewer bars/evidence than required
	KindDataUnavailable ErrorKind = "DATA_UNAVAILABLE"
	// KindComputationDegenerate means a formula hit a degenerate input (zero denominator etc.)
	KindComputationDegenerate ErrorKind = "COMPUTATION_DEGENERATE"
	// KindEvidenceInsufficient is a designed suppression to Hold, not a failure
	KindEvidenceInsufficient ErrorKind = "EVIDENCE_INSUFFICIENT"
	// KindConfigInvalid is fatal at startup
	KindConfigInvalid ErrorKind = "CONFIG_INVALID"
	// KindTickTimeout means a per-symbol fetch exceeded its deadline
	KindTickTimeout ErrorKind = "TICK_TIMEOUT"
)

// Sentinel values usable with errors.Is
var (
	ErrDataUnavailable       = &EngineError{Kind: KindDataUnavailable}
	ErrComputationDegenerate = &EngineError{Kind: KindComputationDegenerate}
	ErrEvidenceInsufficient  = &EngineError{Kind: KindEvidenceInsufficient}
	ErrConfigInvalid         = &EngineError{Kind: KindConfigInvalid}
	ErrTickTimeout           = &EngineError{Kind: KindTickTimeout}
)

// EngineError represents a categorized error with context
type EngineError struct {
	Kind       ErrorKind
	Component  string
	Operation  string
	Symbol     string
	Message    string
	Underlying error
}

// Error implements the error interface
func (e *EngineError) Error() string {
	where := e.Component
	if e.Operation != "" {
		where = fmt.Sprintf("%s.%s", e.Component, e.Operation)
	}
	msg := fmt.Sprintf("[%s:%s]", e.Kind, where)
	if e.Symbol != "" {
		msg += " " + e.Symbol
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Underlying != nil {
		msg += fmt.Sprintf(": %v", e.Underlying)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is matches any EngineError of the same kind, so sentinels work with errors.Is
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// IsFatal returns whether this error should stop the process
func (e *EngineError) IsFatal() bool {
	return e.Kind == KindConfigInvalid
}

// DataUnavailable wraps a failed or short fetch for a symbol
func DataUnavailable(component, operation, symbol string, err error) *EngineError {
	return &EngineError{
		Kind:       KindDataUnavailable,
		Component:  component,
		Operation:  operation,
		Symbol:     symbol,
		Message:    "data unavailable",
		Underlying: err,
	}
}

// InsufficientData reports that fewer items than required were returned
func InsufficientData(component, symbol string, got, required int) *EngineError {
	return &EngineError{
		Kind:      KindDataUnavailable,
		Component: component,
		Operation: "fetch",
		Symbol:    symbol,
		Message:   fmt.Sprintf("insufficient data: got %d, need %d", got, required),
	}
}

// Degenerate reports a computation that fell back to its documented default
func Degenerate(component, operation, message string) *EngineError {
	return &EngineError{
		Kind:      KindComputationDegenerate,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// EvidenceInsufficient records a gate suppression
func EvidenceInsufficient(symbol, message string) *EngineError {
	return &EngineError{
		Kind:      KindEvidenceInsufficient,
		Component: "evidence_gate",
		Operation: "apply",
		Symbol:    symbol,
		Message:   message,
	}
}

// ConfigInvalid reports an invalid configuration field
func ConfigInvalid(field, message string) *EngineError {
	return &EngineError{
		Kind:      KindConfigInvalid,
		Component: "config",
		Operation: field,
		Message:   message,
	}
}

// TickTimeout reports a per-symbol fetch that hit its deadline
func TickTimeout(symbol string, err error) *EngineError {
	return &EngineError{
		Kind:       KindTickTimeout,
		Component:  "orchestrator",
		Operation:  "fetch",
		Symbol:     symbol,
		Message:    "deadline exceeded",
		Underlying: err,
	}
}

// Classify maps an arbitrary error from a collaborator into an EngineError
func Classify(err error, component, operation, symbol string) *EngineError {
	if err == nil {
		return nil
	}

	var engineErr *EngineError
	if stderrors.As(err, &engineErr) {
		return engineErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return TickTimeout(symbol, err)
	}

	return DataUnavailable(component, operation, symbol, err)
}

// KindOf returns the kind of an error, or "" if it is not an EngineError
func KindOf(err error) ErrorKind {
	var engineErr *EngineError
	if stderrors.As(err, &engineErr) {
		return engineErr.Kind
	}
	return ""
}

// RecoveryAction is the orchestrator's response to an error kind
type RecoveryAction string

const (
	RecoveryActionNone RecoveryAction = "NONE"
	RecoveryActionSkip RecoveryAction = "SKIP"
	RecoveryActionStop RecoveryAction = "STOP"
)

// GetRecoveryAction suggests a recovery action based on error kind
func (e *EngineError) GetRecoveryAction() RecoveryAction {
	switch e.Kind {
	case KindConfigInvalid:
		return RecoveryActionStop
	case KindEvidenceInsufficient:
		return RecoveryActionNone
	default:
		// the symbol is skipped for this tick and retried on the next
		return RecoveryActionSkip
	}
}

// ErrorStats tracks error statistics
type ErrorStats struct {
	mu              sync.Mutex
	totalErrors     int
	errorsByKind    map[ErrorKind]int
	recentErrors    []*EngineError
	maxRecentErrors int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		errorsByKind:    make(map[ErrorKind]int),
		recentErrors:    make([]*EngineError, 0, maxRecentErrors),
		maxRecentErrors: maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *EngineError) {
	if err == nil {
		return
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	es.totalErrors++
	es.errorsByKind[err.Kind]++

	es.recentErrors = append(es.recentErrors, err)
	if len(es.recentErrors) > es.maxRecentErrors {
		es.recentErrors = es.recentErrors[1:]
	}
}

// Total returns the number of recorded errors
func (es *ErrorStats) Total() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.totalErrors
}

// Count returns the number of recorded errors of a kind
func (es *ErrorStats) Count(kind ErrorKind) int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.errorsByKind[kind]
}

// Recent returns a copy of the most recent errors
func (es *ErrorStats) Recent() []*EngineError {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make([]*EngineError, len(es.recentErrors))
	copy(out, es.recentErrors)
	return out
}

// Counts returns a copy of the per-kind error counts
func (es *ErrorStats) Counts() map[ErrorKind]int {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make(map[ErrorKind]int, len(es.errorsByKind))
	for k, v := range es.errorsByKind {
		out[k] = v
	}
	return out
}
