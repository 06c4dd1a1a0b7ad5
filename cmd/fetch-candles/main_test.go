package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/data"
)

const samplePage = `[
 [1704067200000,"42000.1","42100.5","41900.0","42050.2","12.5",1704070799999,"0",10,"0","0","0"],
 [1704070800000,"42050.2","42200.0","42000.0","42150.0","8.25",1704074399999,"0",10,"0","0","0"],
 [1704074400000,"42150.0","42160.0","41800.0","41850.5","20",1704077999999,"0",10,"0","0","0"]
]`

func TestParseKlines(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	end := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC).UnixMilli()

	bars, lastOpen, err := parseKlines([]byte(samplePage), start, end)
	require.NoError(t, err)
	require.Len(t, bars, 2, "row at the end bound is excluded")
	assert.Equal(t, int64(1704074400000), lastOpen)
	assert.Equal(t, 42050.2, bars[0].Close)
	assert.Equal(t, 12.5, bars[0].Volume)
	assert.True(t, bars[1].Timestamp.Equal(time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)))

	bars, lastOpen, err = parseKlines([]byte(`[]`), start, end)
	require.NoError(t, err)
	assert.Empty(t, bars)
	assert.Zero(t, lastOpen)

	_, _, err = parseKlines([]byte(`{"code":-1121}`), start, end)
	assert.Error(t, err)
}

func TestEncodeCSV_ReadableByLoader(t *testing.T) {
	bars, _, err := parseKlines([]byte(samplePage), 0, 1<<62)
	require.NoError(t, err)

	body, err := encodeCSV(bars)
	require.NoError(t, err)

	loaded, err := data.NewCSVProvider().WithLogger(zerolog.Nop()).Parse(bytes.NewReader(body))
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i := range bars {
		assert.True(t, bars[i].Timestamp.Equal(loaded[i].Timestamp))
		assert.Equal(t, bars[i].Close, loaded[i].Close)
		assert.Equal(t, bars[i].Volume, loaded[i].Volume)
	}
}
