package notifier

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"BandSentinel/internal/model"
)

var sample = []model.EvaluationResult{
	{Symbol: "AAPL", ClosePrice: 190.004, UpperBand: 195.5, LowerBand: 184.996, Signal: model.SignalHold},
	{Symbol: "RELIANCE.NS", ClosePrice: 2801.456, UpperBand: 2790.1, LowerBand: 2700, Signal: model.SignalSell},
	{Symbol: "X<Y", ClosePrice: 1, UpperBand: 3, LowerBand: 2, Signal: model.SignalBuy},
}

func TestRound2(t *testing.T) {
	assert.Equal(t, "190.00", Round2(190.004))
	assert.Equal(t, "2801.46", Round2(2801.456))
	assert.Equal(t, "-1.50", Round2(-1.5))
	assert.Equal(t, "10.00", Round2(10))
}

func TestFormatDashboard(t *testing.T) {
	at := time.Date(2025, 7, 1, 22, 0, 0, 0, time.UTC)
	msg := FormatDashboard(sample, model.BandParameters{Window: 20, Multiplier: 2}, at)

	assert.Contains(t, msg, "2025-07-01 22:00")
	assert.Contains(t, msg, "Length 20 | Multiplier 2.0σ")
	assert.Contains(t, msg, "1. ⚪ <b>AAPL</b> HOLD")
	assert.Contains(t, msg, "Close 190.00 | Upper 195.50 | Lower 185.00")
	assert.Contains(t, msg, "2. 🔴 <b>RELIANCE.NS</b> SELL")
	assert.Contains(t, msg, "3. 🟢 <b>X&lt;Y</b> BUY")
}

func TestFormatDashboard_Empty(t *testing.T) {
	msg := FormatDashboard(nil, model.DefaultBandParameters, time.Now())
	assert.Contains(t, msg, "No valid stocks added yet.")
}

func TestFormatEntries(t *testing.T) {
	assert.Contains(t, FormatEntries(nil), "empty")

	msg := FormatEntries([]model.WatchlistEntry{
		{Symbol: "AAPL", LastResult: &sample[0]},
		{Symbol: "MSFT"},
	})
	assert.Contains(t, msg, "1. AAPL: ⚪ HOLD @ 190.00")
	assert.Contains(t, msg, "2. MSFT: no data this cycle")
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	out := RenderTable(&buf, sample[:2])

	assert.Contains(t, strings.ToUpper(out), "CLOSE PRICE")
	assert.Contains(t, out, "RELIANCE.NS")
	assert.Contains(t, out, "2801.46")
	assert.Contains(t, out, "SELL")
	assert.Contains(t, buf.String(), "AAPL")
}

func TestNoopNotifier(t *testing.T) {
	var n Notifier = NoopNotifier{}
	assert.NoError(t, n.Send(context.Background(), "hi"))
}
