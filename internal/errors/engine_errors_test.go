package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineError_IsMatchesKind(t *testing.T) {
	err := DataUnavailable("market_data", "get_bars", "BTCUSDT", fmt.Errorf("connection refused"))

	assert.True(t, stderrors.Is(err, ErrDataUnavailable))
	assert.False(t, stderrors.Is(err, ErrTickTimeout))

	wrapped := fmt.Errorf("tick failed: %w", err)
	assert.True(t, stderrors.Is(wrapped, ErrDataUnavailable))
	assert.Equal(t, KindDataUnavailable, KindOf(wrapped))
}

func TestClassify(t *testing.T) {
	t.Run("deadline becomes tick timeout", func(t *testing.T) {
		err := Classify(context.DeadlineExceeded, "market_data", "get_bars", "ETHUSDT")
		require.NotNil(t, err)
		assert.Equal(t, KindTickTimeout, err.Kind)
		assert.Equal(t, "ETHUSDT", err.Symbol)
		assert.Equal(t, RecoveryActionSkip, err.GetRecoveryAction())
	})

	t.Run("existing engine error passes through", func(t *testing.T) {
		orig := InsufficientData("market_data", "SOLUSDT", 10, 50)
		assert.Same(t, orig, Classify(orig, "x", "y", "z"))
	})

	t.Run("unknown error is data unavailable", func(t *testing.T) {
		err := Classify(fmt.Errorf("boom"), "evidence", "get_evidence", "BTCUSDT")
		assert.Equal(t, KindDataUnavailable, err.Kind)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Classify(nil, "a", "b", "c"))
	})
}

func TestConfigInvalidIsFatal(t *testing.T) {
	err := ConfigInvalid("risk_per_trade", "must be within (0, 0.1]")
	assert.True(t, err.IsFatal())
	assert.Equal(t, RecoveryActionStop, err.GetRecoveryAction())
	assert.Contains(t, err.Error(), "risk_per_trade")
}

func TestErrorStats(t *testing.T) {
	stats := NewErrorStats(2)
	stats.RecordError(TickTimeout("A", nil))
	stats.RecordError(TickTimeout("B", nil))
	stats.RecordError(DataUnavailable("c", "o", "C", nil))
	stats.RecordError(nil)

	assert.Equal(t, 3, stats.Total())
	assert.Equal(t, 2, stats.Count(KindTickTimeout))
	assert.Equal(t, map[ErrorKind]int{KindTickTimeout: 2, KindDataUnavailable: 1}, stats.Counts())

	recent := stats.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "B", recent[0].Symbol)
	assert.Equal(t, "C", recent[1].Symbol)
}
