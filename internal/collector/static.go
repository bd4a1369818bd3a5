package collector

import (
	"context"
	"fmt"
	"sync"

	"MarketTimeMachine/internal/model"
)

// StaticFetcher serves fixed in-memory datasets for development and testing.
type StaticFetcher struct {
	mu       sync.Mutex
	Datasets map[string]*model.Dataset
	Err      error
	Calls    int
}

func (s *StaticFetcher) Name() string { return "static" }

func (s *StaticFetcher) Fetch(_ context.Context, scenario string) (*model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	ds, ok := s.Datasets[scenario]
	if !ok {
		return nil, fmt.Errorf("static: unknown scenario %q", scenario)
	}
	cp := *ds
	cp.Scenario = scenario
	return &cp, nil
}

// CallCount returns how many times Fetch ran.
func (s *StaticFetcher) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls
}
