package collector

import (
	"context"

	"MarketTimeMachine/internal/model"
)

// Fetcher retrieves the dataset for one scenario.
type Fetcher interface {
	Fetch(ctx context.Context, scenario string) (*model.Dataset, error)
	Name() string
}
