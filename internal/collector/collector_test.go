package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketTimeMachine/internal/model"
	"MarketTimeMachine/internal/store"
)

const datasetJSON = `{
  "market_data": {
    "timestamps": ["2020-02-19", "2020-03-16", "2020-04-09"],
    "prices": {"SPY": [338.3, 239.9, 278.2], "ZM": [107.1, 137.0, 117.8]}
  },
  "events": [
    {"date": "2020-03-16", "title": "Circuit breaker", "description": "Trading halted for 15 minutes."}
  ]
}`

func covidDataset() *model.Dataset {
	return &model.Dataset{
		MarketData: model.MarketData{
			Timestamps: []string{"2020-02-19", "2020-03-16"},
			Prices:     map[string][]float64{"SPY": {338.3, 239.9}},
		},
	}
}

func TestCollect_ReadThrough(t *testing.T) {
	fetcher := &StaticFetcher{Datasets: map[string]*model.Dataset{"covid": covidDataset()}}
	st := store.NewMemoryStore()
	c := NewCollector(fetcher, st)
	ctx := context.Background()

	ds, err := c.Collect(ctx, "covid")
	require.NoError(t, err)
	assert.Equal(t, "covid", ds.Scenario)
	assert.Equal(t, 1, fetcher.CallCount())

	_, err = c.Collect(ctx, "covid")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.CallCount(), "second collect should be served from the store")

	ids, err := st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"covid"}, ids)
}

func TestRefresh_AlwaysFetches(t *testing.T) {
	fetcher := &StaticFetcher{Datasets: map[string]*model.Dataset{"covid": covidDataset()}}
	c := NewCollector(fetcher, store.NewMemoryStore())
	ctx := context.Background()

	_, err := c.Collect(ctx, "covid")
	require.NoError(t, err)
	_, err = c.Refresh(ctx, "covid")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.CallCount())
}

func TestCollect_KeepsMisalignedSeries(t *testing.T) {
	partial := covidDataset()
	partial.MarketData.Prices["ZM"] = []float64{107.1}
	fetcher := &StaticFetcher{Datasets: map[string]*model.Dataset{"covid": partial}}
	st := store.NewMemoryStore()
	c := NewCollector(fetcher, st)

	ds, err := c.Collect(context.Background(), "covid")
	require.NoError(t, err)
	assert.Equal(t, []float64{107.1}, ds.MarketData.Prices["ZM"])

	stored, err := st.Get(context.Background(), "covid")
	require.NoError(t, err)
	assert.Len(t, stored.MarketData.Prices["ZM"], 1)
}

func TestCollect_RejectsEmptyTimestamps(t *testing.T) {
	empty := &model.Dataset{MarketData: model.MarketData{Prices: map[string][]float64{"SPY": {1}}}}
	fetcher := &StaticFetcher{Datasets: map[string]*model.Dataset{"empty": empty}}
	st := store.NewMemoryStore()
	c := NewCollector(fetcher, st)

	_, err := c.Collect(context.Background(), "empty")
	assert.True(t, errors.Is(err, ErrInvalidDataset))

	_, err = st.Get(context.Background(), "empty")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestMisalignedSeries(t *testing.T) {
	ds := covidDataset()
	ds.MarketData.Prices["ZM"] = []float64{107.1}
	ds.MarketData.Prices["AAPL"] = append(append([]float64{}, ds.MarketData.Prices["SPY"]...), 1, 2)

	out := MisalignedSeries(ds)
	require.Len(t, out, 2)
	assert.Equal(t, "AAPL", out[0].Ticker)
	assert.Equal(t, "ZM", out[1].Ticker)
	assert.Equal(t, 1, out[1].Prices)
	assert.Equal(t, ds.Len(), out[1].Timestamps)

	assert.Empty(t, MisalignedSeries(covidDataset()))
}

func TestCollect_FetchError(t *testing.T) {
	fetcher := &StaticFetcher{Err: errors.New("boom")}
	c := NewCollector(fetcher, store.NewMemoryStore())
	_, err := c.Collect(context.Background(), "covid")
	assert.ErrorContains(t, err, "boom")
}

func TestValidate(t *testing.T) {
	assert.Error(t, Validate(&model.Dataset{}))
	assert.NoError(t, Validate(covidDataset()))
}

func TestUnmatchedEvents(t *testing.T) {
	ds := covidDataset()
	ds.Events = []model.MarketEvent{
		{Date: "2020-03-16", Title: "hit"},
		{Date: "2020-03-17", Title: "miss"},
	}
	out := UnmatchedEvents(ds)
	require.Len(t, out, 1)
	assert.Equal(t, "miss", out[0].Title)
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "covid-2020.json"), []byte(datasetJSON), 0644))
	f := NewFileFetcher(dir)

	ds, err := f.Fetch(context.Background(), "covid-2020")
	require.NoError(t, err)
	assert.Equal(t, "covid-2020", ds.Scenario)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []float64{107.1, 137.0, 117.8}, ds.MarketData.Prices["ZM"])
	require.Len(t, ds.Events, 1)
	assert.Equal(t, "Circuit breaker", ds.Events[0].Title)

	_, err = f.Fetch(context.Background(), "../etc/passwd")
	assert.Error(t, err)
	_, err = f.Fetch(context.Background(), "missing")
	assert.Error(t, err)
}

func TestReadDatasetFile_DefaultsScenarioToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crash.json")
	require.NoError(t, os.WriteFile(path, []byte(datasetJSON), 0644))
	ds, err := ReadDatasetFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, "crash", ds.Scenario)
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/data/covid-2020", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(datasetJSON))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/", "secret", "", 0)
	ds, err := f.Fetch(context.Background(), "covid-2020")
	require.NoError(t, err)
	assert.Equal(t, "covid-2020", ds.Scenario)
	assert.Equal(t, 3, ds.Len())
}

func TestHTTPFetcher_BreakerOpensAfterFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, "", "", 0)
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), "covid")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	}

	_, err := f.Fetch(context.Background(), "covid")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}
