package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormatAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New("debug", FormatJSON, &buf), "orchestrator")

	l.Info().Str("symbol", "BTCUSDT").Msg("tick complete")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "orchestrator", entry["component"])
	assert.Equal(t, "BTCUSDT", entry["symbol"])
	assert.Equal(t, "tick complete", entry["message"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New("verbose-ish", FormatJSON, &buf)

	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	l.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestOpen_WritesToDirectory(t *testing.T) {
	dir := t.TempDir()
	l, closer, err := Open(Options{Level: "info", Format: FormatJSON, Dir: dir})
	require.NoError(t, err)
	defer closer.Close()

	l.Info().Msg("hello")
}
