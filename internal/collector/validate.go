package collector

import (
	"errors"
	"fmt"
	"sort"

	"MarketTimeMachine/internal/model"
)

// ErrInvalidDataset wraps every validation failure.
var ErrInvalidDataset = errors.New("invalid dataset")

// Validate rejects a dataset with nothing to replay. Series of the wrong
// length are kept: the stepper reports their missing ticks as it goes.
func Validate(ds *model.Dataset) error {
	if ds.Len() == 0 {
		return fmt.Errorf("%w: no timestamps", ErrInvalidDataset)
	}
	return nil
}

// Misaligned is a price series whose length differs from the timestamps.
type Misaligned struct {
	Ticker     string
	Prices     int
	Timestamps int
}

// MisalignedSeries returns the series not aligned with the timestamps, sorted
// by ticker.
func MisalignedSeries(ds *model.Dataset) []Misaligned {
	n := ds.Len()
	var out []Misaligned
	for ticker, series := range ds.MarketData.Prices {
		if len(series) != n {
			out = append(out, Misaligned{Ticker: ticker, Prices: len(series), Timestamps: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// UnmatchedEvents returns the events whose date matches no timestamp.
func UnmatchedEvents(ds *model.Dataset) []model.MarketEvent {
	known := make(map[string]struct{}, ds.Len())
	for _, ts := range ds.MarketData.Timestamps {
		known[ts] = struct{}{}
	}
	var out []model.MarketEvent
	for _, e := range ds.Events {
		if _, ok := known[e.Date]; !ok {
			out = append(out, e)
		}
	}
	return out
}
