package notifier

import (
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"BandSentinel/internal/model"
)

// Round2 renders v with exactly two decimals. Display only.
func Round2(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func signalMarker(s model.Signal) string {
	switch s {
	case model.SignalBuy:
		return "🟢"
	case model.SignalSell:
		return "🔴"
	default:
		return "⚪"
	}
}

// FormatDashboard formats refresh results into a Telegram message, numbered from 1.
func FormatDashboard(results []model.EvaluationResult, params model.BandParameters, at time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📌 <b>Bollinger Dashboard</b> | %s\n", at.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Length %d | Multiplier %sσ\n\n", params.Window, decimal.NewFromFloat(params.Multiplier).StringFixed(1)))

	if len(results) == 0 {
		b.WriteString("No valid stocks added yet.")
		return b.String()
	}

	for i, r := range results {
		b.WriteString(fmt.Sprintf("%d. %s <b>%s</b> %s\n", i+1, signalMarker(r.Signal), html.EscapeString(r.Symbol), r.Signal))
		b.WriteString(fmt.Sprintf("   Close %s | Upper %s | Lower %s\n", Round2(r.ClosePrice), Round2(r.UpperBand), Round2(r.LowerBand)))
	}
	return b.String()
}

// FormatEntries lists the watchlist with the last known signal per symbol.
func FormatEntries(entries []model.WatchlistEntry) string {
	if len(entries) == 0 {
		return "Watchlist is empty. Use /add SYMBOL."
	}
	var b strings.Builder
	b.WriteString("👀 <b>Watchlist</b>\n\n")
	for i, e := range entries {
		status := "no data this cycle"
		if e.LastResult != nil {
			status = fmt.Sprintf("%s %s @ %s", signalMarker(e.LastResult.Signal), e.LastResult.Signal, Round2(e.LastResult.ClosePrice))
		}
		b.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, html.EscapeString(e.Symbol), status))
	}
	return b.String()
}

// RenderTable writes results as a terminal table and returns the rendering.
func RenderTable(w io.Writer, results []model.EvaluationResult) string {
	t := table.NewWriter()
	if w != nil {
		t.SetOutputMirror(w)
	}
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"S.No", "Symbol", "Close Price", "Upper Band", "Lower Band", "Signal"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for i, r := range results {
		t.AppendRow(table.Row{i + 1, r.Symbol, Round2(r.ClosePrice), Round2(r.UpperBand), Round2(r.LowerBand), string(r.Signal)})
	}
	return t.Render()
}
