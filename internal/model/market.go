package model

import "time"

// MarketData holds the price series of every ticker in a scenario, all aligned
// to one shared timestamp sequence.
type MarketData struct {
	Timestamps []string             `json:"timestamps"`
	Prices     map[string][]float64 `json:"prices"`
}

// MarketEvent is a scripted news item that fires when the replay reaches Date.
type MarketEvent struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Dataset is the full replay input for one scenario.
type Dataset struct {
	Scenario   string        `json:"scenario,omitempty"`
	MarketData MarketData    `json:"market_data"`
	Events     []MarketEvent `json:"events"`
	FetchedAt  time.Time     `json:"fetched_at,omitempty"`
}

// Len returns the number of ticks in the dataset.
func (d *Dataset) Len() int {
	return len(d.MarketData.Timestamps)
}

// Tickers returns the tickers that have a price series, in no particular order.
func (d *Dataset) Tickers() []string {
	out := make([]string, 0, len(d.MarketData.Prices))
	for t := range d.MarketData.Prices {
		out = append(out, t)
	}
	return out
}

// EventAt returns the first event whose date equals timestamp.
func (d *Dataset) EventAt(timestamp string) (MarketEvent, bool) {
	for _, e := range d.Events {
		if e.Date == timestamp {
			return e, true
		}
	}
	return MarketEvent{}, false
}
