package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"MarketTimeMachine/internal/model"
	"MarketTimeMachine/internal/store"
)

// Collector loads datasets through the store, falling back to the fetcher on
// a miss.
type Collector struct {
	Fetcher Fetcher
	Store   store.Store
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, st store.Store) *Collector {
	return &Collector{Fetcher: fetcher, Store: st}
}

// Collect returns the stored dataset, fetching and saving it on a miss.
func (c *Collector) Collect(ctx context.Context, scenario string) (*model.Dataset, error) {
	ds, err := c.Store.Get(ctx, scenario)
	if err == nil {
		return ds, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Str("scenario", scenario).Msg("store read failed, fetching from source")
	}
	return c.Refresh(ctx, scenario)
}

// Refresh fetches scenario from the source, validates it and saves it.
func (c *Collector) Refresh(ctx context.Context, scenario string) (*model.Dataset, error) {
	ds, err := c.Fetcher.Fetch(ctx, scenario)
	if err != nil {
		return nil, fmt.Errorf("fetch %q from %s: %w", scenario, c.Fetcher.Name(), err)
	}
	if err := Validate(ds); err != nil {
		return nil, fmt.Errorf("validate %q: %w", scenario, err)
	}
	for _, m := range MisalignedSeries(ds) {
		log.Warn().Str("scenario", scenario).Str("ticker", m.Ticker).
			Int("prices", m.Prices).Int("timestamps", m.Timestamps).
			Msg("price series is misaligned, ticks without a price will be skipped")
	}
	for _, e := range UnmatchedEvents(ds) {
		log.Warn().Str("scenario", scenario).Str("date", e.Date).Str("title", e.Title).
			Msg("event date is not a timestamp and will never fire")
	}
	if err := c.Store.Save(ctx, ds); err != nil {
		log.Error().Err(err).Str("scenario", scenario).Msg("save dataset failed")
	}
	return ds, nil
}
