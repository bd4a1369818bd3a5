package store

import (
	"context"
	"errors"

	"MarketTimeMachine/internal/model"
)

// ErrNotFound is returned by Get for an unknown scenario.
var ErrNotFound = errors.New("scenario not found")

// Store persists replay datasets keyed by scenario id.
type Store interface {
	Save(ctx context.Context, ds *model.Dataset) error
	Get(ctx context.Context, scenario string) (*model.Dataset, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}
