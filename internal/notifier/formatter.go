package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"MarketTimeMachine/internal/calculator"
	"MarketTimeMachine/internal/model"
)

// Status is the headline portfolio readout.
type Status struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
	Color string  `json:"color"`
}

// FormatMoney renders v rounded to whole units, e.g. "$10,000" or "-$1,250".
func FormatMoney(v float64) string {
	n := int64(math.Round(v))
	if n < 0 {
		return "-$" + humanize.Comma(-n)
	}
	return "$" + humanize.Comma(n)
}

// FormatStatus colours the value green at or above notional, red below.
func FormatStatus(value, notional float64) Status {
	color := "red"
	if value >= notional {
		color = "green"
	}
	return Status{Value: value, Text: FormatMoney(value), Color: color}
}

// FormatEvent formats a market event into a Telegram message.
func FormatEvent(scenario string, e model.MarketEvent) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📰 <b>%s</b> | %s\n\n", html.EscapeString(e.Title), html.EscapeString(e.Date)))
	if e.Description != "" {
		b.WriteString(html.EscapeString(e.Description))
		b.WriteString("\n")
	}
	if scenario != "" {
		b.WriteString(fmt.Sprintf("\nScenario: %s", html.EscapeString(scenario)))
	}
	return b.String()
}

// FormatSummary formats a finished replay.
func FormatSummary(scenario string, s calculator.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🏁 <b>Simulation complete</b> | %s\n\n", html.EscapeString(scenario)))
	b.WriteString(fmt.Sprintf("Final value: %s (%+.1f%%)\n", FormatMoney(s.Final), s.Return*100))
	b.WriteString(fmt.Sprintf("High: %s | Low: %s\n", FormatMoney(s.High), FormatMoney(s.Low)))
	b.WriteString(fmt.Sprintf("Max drawdown: %.1f%%\n", s.MaxDrawdown*100))
	b.WriteString(fmt.Sprintf("Ticks: %d", s.Ticks))
	return b.String()
}

// FormatSnapshot formats the current replay state for a status command.
func FormatSnapshot(scenario string, snap model.Snapshot, gross, notional float64) string {
	st := FormatStatus(snap.Value, notional)
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b>\n\n", html.EscapeString(scenario)))
	b.WriteString(fmt.Sprintf("State: %s\n", snap.State))
	b.WriteString(fmt.Sprintf("Tick: %d\n", snap.Index))
	b.WriteString(fmt.Sprintf("Value: %s\n", st.Text))
	if high, low, err := calculator.CurveRange(snap.Samples); err == nil {
		pos, _ := calculator.RangePosition(snap.Value, high, low)
		b.WriteString(fmt.Sprintf("Range: %s to %s (at %.0f%%)\n", FormatMoney(low), FormatMoney(high), pos*100))
	}
	b.WriteString(fmt.Sprintf("Gross exposure: %.0f%%", gross*100))
	return b.String()
}
