package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio"
)

// DefaultCSVReporter writes the closed-trade ledger as CSV
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

var tradeHeader = []string{
	"Position_ID",
	"Symbol",
	"Side",
	"Opened_At",
	"Closed_At",
	"Entry_Price",
	"Exit_Price",
	"Quantity",
	"Realized_PnL",
	"Status",
	"Reason",
}

// WriteTradesCSV writes one row per closed trade plus a total row
func (r *DefaultCSVReporter) WriteTradesCSV(trades []portfolio.ClosedTrade, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(tradeHeader); err != nil {
		return err
	}

	total := 0.0
	for _, t := range trades {
		total += t.RealizedPnL
		if err := w.Write([]string{
			t.PositionID,
			t.Symbol,
			string(t.Side),
			t.OpenedAt.UTC().Format(time.RFC3339),
			t.ClosedAt.UTC().Format(time.RFC3339),
			formatFloat(t.EntryPrice),
			formatFloat(t.ExitPrice),
			formatFloat(t.Quantity),
			formatFloat(t.RealizedPnL),
			string(t.Status),
			t.Reason,
		}); err != nil {
			return err
		}
	}

	if err := w.Write([]string{"TOTAL", "", "", "", "", "", "", "", formatFloat(total), "", ""}); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	return WriteFileAtomic(path, buf.Bytes())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
