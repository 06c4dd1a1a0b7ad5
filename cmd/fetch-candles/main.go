package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/crypto-risk-engine/internal/logger"
	"github.com/ducminhle1904/crypto-risk-engine/internal/safety"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/data"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/reporting"
	"github.com/ducminhle1904/crypto-risk-engine/pkg/types"
)

const klinesURL = "https://api.binance.com/api/v3/klines"

func main() {
	var (
		symbols   = flag.String("symbols", "BTCUSDT,ETHUSDT", "Comma-separated list of symbols")
		interval  = flag.String("interval", "1h", "Kline interval (1m, 5m, 15m, 30m, 1h, 4h, 1d)")
		outdir    = flag.String("outdir", "data", "Directory to write <SYMBOL>/candles.csv files")
		startDate = flag.String("start", "", "Start date (YYYY-MM-DD), default one year ago")
		endDate   = flag.String("end", "", "End date (YYYY-MM-DD), default now")
		limit     = flag.Int("limit", 1000, "Number of klines per request")
	)
	flag.Parse()

	log := logger.New("info", logger.FormatConsole, os.Stderr)

	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)
	if *startDate != "" {
		parsed, err := time.Parse("2006-01-02", *startDate)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid start date")
		}
		start = parsed
	}
	if *endDate != "" {
		parsed, err := time.Parse("2006-01-02", *endDate)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid end date")
		}
		end = parsed
	}

	client := &http.Client{Timeout: 30 * time.Second}
	// stay well under the public klines weight limit
	limiter := safety.NewRateLimiter("binance-klines", 5, 10)
	ctx := context.Background()

	for _, symbol := range strings.Split(*symbols, ",") {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		path := filepath.Join(*outdir, symbol, "candles.csv")
		if err := downloadOne(ctx, client, limiter, log, symbol, *interval, start, end, *limit, path); err != nil {
			log.Fatal().Err(err).Str("symbol", symbol).Msg("download failed")
		}
	}
}

func downloadOne(ctx context.Context, client *http.Client, limiter *safety.RateLimiter, log zerolog.Logger, symbol, interval string, start, end time.Time, limit int, path string) error {
	log.Info().
		Str("symbol", symbol).
		Str("interval", interval).
		Time("start", start).
		Time("end", end).
		Msg("downloading klines")

	bars, err := downloadKlines(ctx, client, limiter, symbol, interval, start, end, limit)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("no klines returned for %s %s", symbol, interval)
	}
	bars = data.Normalize(bars)
	if err := data.NewCSVProvider().ValidateData(bars); err != nil {
		return fmt.Errorf("downloaded data failed validation: %w", err)
	}

	body, err := encodeCSV(bars)
	if err != nil {
		return err
	}
	if err := reporting.WriteFileAtomic(path, body); err != nil {
		return err
	}

	first, last := bars[0], bars[len(bars)-1]
	log.Info().
		Str("symbol", symbol).
		Int("bars", len(bars)).
		Time("first", first.Timestamp).
		Time("last", last.Timestamp).
		Str("path", path).
		Msg("klines saved")
	return nil
}

func downloadKlines(ctx context.Context, client *http.Client, limiter *safety.RateLimiter, symbol, interval string, start, end time.Time, limit int) ([]types.OHLCV, error) {
	var all []types.OHLCV

	startMs := start.UnixMilli()
	endMs := end.UnixMilli()

	for startMs < endMs {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		url := fmt.Sprintf("%s?symbol=%s&interval=%s&startTime=%d&limit=%d", klinesURL, symbol, interval, startMs, limit)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(raw))
		}

		page, lastOpen, err := parseKlines(raw, startMs, endMs)
		if err != nil {
			return nil, err
		}
		if lastOpen == 0 {
			break
		}
		all = append(all, page...)
		startMs = lastOpen + 1
	}

	return all, nil
}

// parseKlines decodes one Binance klines page, keeping rows with open time in [startMs, endMs).
// It returns the open time of the last row in the page, 0 for an empty page.
func parseKlines(body []byte, startMs, endMs int64) ([]types.OHLCV, int64, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, 0, fmt.Errorf("JSON decode error: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}

	var bars []types.OHLCV
	var lastOpen int64
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return nil, 0, fmt.Errorf("bad open time: %w", err)
		}
		lastOpen = openTime

		var fields [5]float64
		for i := range fields {
			var s string
			if err := json.Unmarshal(row[i+1], &s); err != nil {
				return nil, 0, fmt.Errorf("bad price field: %w", err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, 0, fmt.Errorf("bad price field %q: %w", s, err)
			}
			fields[i] = v
		}

		if openTime < startMs || openTime >= endMs {
			continue
		}
		bars = append(bars, types.OHLCV{
			Timestamp: time.UnixMilli(openTime).UTC(),
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
		})
	}
	return bars, lastOpen, nil
}

// encodeCSV writes bars in the default candle layout read by the CSV loader
func encodeCSV(bars []types.OHLCV) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return nil, err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			b.Timestamp.UTC().Format(data.DefaultCSVFormat.DateFormat),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
