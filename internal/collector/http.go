package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"MarketTimeMachine/internal/model"
)

// HTTPFetcher downloads datasets from <BaseURL>/api/data/<scenario>. Calls go
// through a rate limiter and a circuit breaker; failures are not retried.
type HTTPFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPFetcher creates a fetcher with optional proxy support. ratePerMinute
// <= 0 disables rate limiting.
func NewHTTPFetcher(baseURL, apiKey, proxyURL string, ratePerMinute int) *HTTPFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if ratePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60), 1)
	}

	st := gobreaker.Settings{
		Name:     "dataset-http",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		limiter: limiter,
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

func (f *HTTPFetcher) Name() string { return "http" }

func (f *HTTPFetcher) Fetch(ctx context.Context, scenario string) (*model.Dataset, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	res, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx, scenario)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("dataset source unavailable: %w", err)
		}
		return nil, err
	}
	return res.(*model.Dataset), nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, scenario string) (*model.Dataset, error) {
	endpoint := fmt.Sprintf("%s/api/data/%s", f.BaseURL, url.PathEscape(scenario))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dataset API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var ds model.Dataset
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	ds.Scenario = scenario
	ds.FetchedAt = time.Now()
	return &ds, nil
}
