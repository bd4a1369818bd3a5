package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketTimeMachine/internal/model"
)

func sampleDataset(id string) *model.Dataset {
	return &model.Dataset{
		Scenario:  id,
		FetchedAt: time.Unix(1700000000, 0),
		MarketData: model.MarketData{
			Timestamps: []string{"2008-09-12", "2008-09-15", "2008-09-16"},
			Prices: map[string][]float64{
				"LEH": {3.65, 0.21, 0.13},
				"SPY": {125.0, 119.5, 121.3},
			},
		},
		Events: []model.MarketEvent{
			{Date: "2008-09-15", Title: "Lehman Brothers files for bankruptcy", Description: "Largest filing in US history."},
			{Date: "2008-09-16", Title: "AIG bailout", Description: ""},
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func TestStore_SaveGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		want := sampleDataset("crash-2008")
		require.NoError(t, s.Save(ctx, want))

		got, err := s.Get(ctx, "crash-2008")
		require.NoError(t, err)
		assert.Equal(t, want.Scenario, got.Scenario)
		assert.Equal(t, want.MarketData.Timestamps, got.MarketData.Timestamps)
		assert.Equal(t, want.MarketData.Prices, got.MarketData.Prices)
		assert.Equal(t, want.Events, got.Events)
		assert.Equal(t, want.FetchedAt.Unix(), got.FetchedAt.Unix())
	})
}

func TestStore_SaveReplaces(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Save(ctx, sampleDataset("crash-2008")))

		updated := sampleDataset("crash-2008")
		updated.MarketData.Timestamps = updated.MarketData.Timestamps[:2]
		updated.MarketData.Prices = map[string][]float64{"SPY": {125, 119.5}}
		updated.Events = updated.Events[:1]
		require.NoError(t, s.Save(ctx, updated))

		got, err := s.Get(ctx, "crash-2008")
		require.NoError(t, err)
		assert.Equal(t, updated.MarketData.Prices, got.MarketData.Prices)
		assert.Len(t, got.Events, 1)
		assert.Equal(t, 2, got.Len())
	})
}

func TestStore_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), "nope")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestStore_List(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Save(ctx, sampleDataset("dotcom-2000")))
		require.NoError(t, s.Save(ctx, sampleDataset("covid-2020")))

		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"covid-2020", "dotcom-2000"}, ids)
	})
}

func TestStore_RejectsEmptyID(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		assert.Error(t, s.Save(context.Background(), sampleDataset("")))
	})
}
