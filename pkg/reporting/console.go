package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/crypto-risk-engine/internal/orchestrator"
	"github.com/ducminhle1904/crypto-risk-engine/internal/portfolio"
	"github.com/ducminhle1904/crypto-risk-engine/internal/signal"
)

// DefaultConsoleReporter renders tick summaries as tables
type DefaultConsoleReporter struct {
	out io.Writer
}

// NewDefaultConsoleReporter creates a console reporter writing to stdout
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return NewConsoleReporter(os.Stdout)
}

// NewConsoleReporter creates a console reporter writing to out
func NewConsoleReporter(out io.Writer) *DefaultConsoleReporter {
	return &DefaultConsoleReporter{out: out}
}

// RenderTick prints one row per symbol followed by the open positions and portfolio risk
func (r *DefaultConsoleReporter) RenderTick(res orchestrator.TickResult, positions []portfolio.Position) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(fmt.Sprintf("TICK #%d  %s", res.Number, res.Timestamp.UTC().Format("2006-01-02 15:04:05")))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Price", "Direction", "Confidence", "Votes", "Action", "Detail"})

	for _, symbol := range res.SymbolNames() {
		sr := res.Symbols[symbol]
		if sr.Err != nil {
			t.AppendRow(table.Row{symbol, "-", "-", "-", "-", "STALE", sr.Err.Error()})
			continue
		}
		sig := sr.Signal
		t.AppendRow(table.Row{
			symbol,
			fmt.Sprintf("%.4f", sig.Price),
			directionLabel(sig),
			fmt.Sprintf("%.2f", sig.Confidence),
			fmt.Sprintf("%d/%d", sig.BuyVotes, sig.SellVotes),
			string(sr.Action),
			sr.Detail,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 7, WidthMax: 40},
	})
	t.Render()

	if len(positions) > 0 {
		r.renderPositions(positions)
	}
	r.renderRisk(res.Risk)
	fmt.Fprintln(r.out)
}

// RenderSnapshot prints the final state: positions, closed trades and risk
func (r *DefaultConsoleReporter) RenderSnapshot(snap orchestrator.Snapshot) {
	if len(snap.Positions) > 0 {
		r.renderPositions(snap.Positions)
	}

	if len(snap.ClosedTrades) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		t.SetTitle("CLOSED TRADES")
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Symbol", "Side", "Entry", "Exit", "Qty", "PnL", "Status"})

		total := 0.0
		for _, tr := range snap.ClosedTrades {
			total += tr.RealizedPnL
			t.AppendRow(table.Row{
				tr.Symbol,
				string(tr.Side),
				fmt.Sprintf("%.4f", tr.EntryPrice),
				fmt.Sprintf("%.4f", tr.ExitPrice),
				fmt.Sprintf("%.0f", tr.Quantity),
				fmt.Sprintf("%+.2f", tr.RealizedPnL),
				string(tr.Status),
			})
		}
		t.AppendFooter(table.Row{"", "", "", "", "Total", fmt.Sprintf("%+.2f", total), ""})
		t.Render()
	}

	if snap.Risk != nil {
		r.renderRisk(*snap.Risk)
	}
}

func (r *DefaultConsoleReporter) renderPositions(positions []portfolio.Position) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("OPEN POSITIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Symbol", "Side", "Entry", "Current", "Qty", "Stop", "Target", "uPnL", "Risk"})

	for _, p := range positions {
		stop := fmt.Sprintf("%.4f", p.StopLoss)
		if p.Trailing {
			stop += " (T)"
		}
		symbol := p.Symbol
		if p.Stale {
			symbol += " *"
		}
		t.AppendRow(table.Row{
			symbol,
			string(p.Side),
			fmt.Sprintf("%.4f", p.EntryPrice),
			fmt.Sprintf("%.4f", p.CurrentPrice),
			fmt.Sprintf("%.0f", p.Quantity),
			stop,
			fmt.Sprintf("%.4f", p.TakeProfit),
			fmt.Sprintf("%+.2f", p.UnrealizedPnL),
			fmt.Sprintf("%.2f", p.RiskScore),
		})
	}
	t.Render()
}

func (r *DefaultConsoleReporter) renderRisk(s portfolio.RiskSnapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("PORTFOLIO RISK")
	t.SetStyle(table.StyleRounded)

	mode := "normal"
	if s.ShouldReduceRisk {
		mode = "REDUCE RISK"
	}
	t.AppendRows([]table.Row{
		{"Portfolio Value", fmt.Sprintf("$%.2f", s.PortfolioValue)},
		{"Exposure", fmt.Sprintf("$%.2f", s.TotalExposure)},
		{"Max Drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdown*100)},
		{"VaR 95%", fmt.Sprintf("$%.2f", s.VaR95)},
		{"Sharpe", fmt.Sprintf("%.2f", s.SharpeRatio)},
		{"Risk Score", fmt.Sprintf("%.2f", s.RiskScore)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Mode", mode},
		{"High Risk", strings.Join(s.HighRiskPositions, ", ")},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, WidthMax: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 40, Align: text.AlignLeft},
	})
	t.Render()
}

func directionLabel(sig signal.Signal) string {
	if sig.Reason == signal.InsufficientEvidenceReason {
		return string(sig.Direction) + " (gated)"
	}
	return string(sig.Direction)
}
