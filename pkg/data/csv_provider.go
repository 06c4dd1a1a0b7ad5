package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

// CSVProvider loads OHLCV bars from CSV files with a header row
type CSVProvider struct {
	format CSVColumnMapping
	log    zerolog.Logger
}

// NewCSVProvider creates a new CSV loader with the default format
func NewCSVProvider() *CSVProvider {
	return NewCSVProviderWithFormat(DefaultCSVFormat)
}

// NewCSVProviderWithFormat creates a new CSV loader with a custom format
func NewCSVProviderWithFormat(format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{
		format: format,
		log:    zerolog.Nop(),
	}
}

// WithLogger sets the logger used to report skipped rows
func (p *CSVProvider) WithLogger(l zerolog.Logger) *CSVProvider {
	p.log = l
	return p
}

// GetName returns the name of the loader
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads historical data from a CSV file
func (p *CSVProvider) LoadData(source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", source, err)
	}
	defer file.Close()

	return p.Parse(file)
}

// Parse reads bars from r. Malformed or inconsistent rows are skipped and logged.
func (p *CSVProvider) Parse(r io.Reader) ([]types.OHLCV, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var data []types.OHLCV
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		lineNum++

		bar, err := p.parseRecord(record)
		if err != nil {
			p.log.Warn().Int("line", lineNum).Err(err).Msg("skipping CSV row")
			continue
		}
		data = append(data, bar)
	}

	return data, nil
}

func (p *CSVProvider) parseRecord(record []string) (types.OHLCV, error) {
	f := p.format
	if len(record) < f.MinColumns {
		return types.OHLCV{}, fmt.Errorf("insufficient columns: expected %d, got %d", f.MinColumns, len(record))
	}

	timestamp, err := time.Parse(f.DateFormat, record[f.TimestampCol])
	if err != nil {
		return types.OHLCV{}, fmt.Errorf("invalid timestamp %q: %w", record[f.TimestampCol], err)
	}

	cols := []struct {
		name string
		idx  int
	}{
		{"open", f.OpenCol},
		{"high", f.HighCol},
		{"low", f.LowCol},
		{"close", f.CloseCol},
		{"volume", f.VolumeCol},
	}
	values := make([]float64, len(cols))
	for i, c := range cols {
		v, err := strconv.ParseFloat(record[c.idx], 64)
		if err != nil {
			return types.OHLCV{}, fmt.Errorf("invalid %s %q: %w", c.name, record[c.idx], err)
		}
		values[i] = v
	}

	bar := types.OHLCV{
		Timestamp: timestamp,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}
	if err := validateBar(bar); err != nil {
		return types.OHLCV{}, err
	}
	return bar, nil
}

// ValidateData validates the integrity of loaded data
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	if len(data) == 0 {
		return fmt.Errorf("no data provided")
	}
	for i, bar := range data {
		if err := validateBar(bar); err != nil {
			return fmt.Errorf("invalid price data at index %d: %w", i, err)
		}
	}
	return ValidateTimeSequence(data)
}

func validateBar(bar types.OHLCV) error {
	if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
		return fmt.Errorf("prices must be positive")
	}
	if bar.Volume < 0 {
		return fmt.Errorf("volume must not be negative")
	}
	if bar.High < bar.Open || bar.High < bar.Close || bar.High < bar.Low {
		return fmt.Errorf("high (%.4f) is lower than other prices", bar.High)
	}
	if bar.Low > bar.Open || bar.Low > bar.Close {
		return fmt.Errorf("low (%.4f) is higher than other prices", bar.Low)
	}
	return nil
}
