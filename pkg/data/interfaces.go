package data

import (
	"context"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// MarketDataProvider is the market-data collaborator the engine polls every tick
type MarketDataProvider interface {
	// GetBars returns up to lookback of the most recent bars for symbol, oldest first
	GetBars(ctx context.Context, symbol string, lookback int) ([]types.OHLCV, error)
}

// Loader reads a full bar series from a source such as a file path
type Loader interface {
	// LoadData loads historical data from the specified source
	LoadData(source string) ([]types.OHLCV, error)

	// ValidateData validates the integrity of the loaded data
	ValidateData(data []types.OHLCV) error

	// GetName returns the name of the loader
	GetName() string
}

// DataCache caches loaded series by source
type DataCache interface {
	Get(key string) ([]types.OHLCV, bool)
	Set(key string, data []types.OHLCV)
	Clear()
	Size() int
}

// CSVColumnMapping defines the column positions for different CSV formats
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// Predefined CSV formats
var (
	DefaultCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02 15:04:05",
	}

	RFC3339CSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02T15:04:05Z07:00",
	}
)
