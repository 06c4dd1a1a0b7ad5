package data

import (
	"os"
	"path/filepath"
	"strings"
)

// FindDataFile locates the candle file for symbol under dataRoot. It tries, in order:
//
//	{root}/{SYMBOL}.csv
//	{root}/{SYMBOL}/candles.csv
//	{root}/{exchange}/{category}/{SYMBOL}/{interval}/candles.csv
//
// and returns the first match, or "" when none exists.
func FindDataFile(dataRoot, symbol string) string {
	symbol = strings.ToUpper(symbol)

	candidates := []string{
		filepath.Join(dataRoot, symbol+".csv"),
		filepath.Join(dataRoot, symbol, "candles.csv"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	matches, err := filepath.Glob(filepath.Join(dataRoot, "*", "*", symbol, "*", "candles.csv"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}
