package allocation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

// ErrExposureExceeded is wrapped by every ExposureError.
var ErrExposureExceeded = errors.New("gross exposure exceeds leverage ceiling")

// ExposureError reports a start-time leverage gate failure.
type ExposureError struct {
	Gross     float64
	Ceiling   float64
	Tolerance float64
}

func (e *ExposureError) Error() string {
	return fmt.Sprintf("gross exposure %.0f%% exceeds %.0f%% ceiling", e.Gross*100, e.Ceiling*100)
}

func (e *ExposureError) Unwrap() error { return ErrExposureExceeded }

// Model holds the signed exposure per ticker as a fraction of notional capital.
// Negative weights are shorts.
type Model struct {
	mu      sync.RWMutex
	weights map[string]float64
}

// New creates an empty allocation.
func New() *Model {
	return &Model{weights: make(map[string]float64)}
}

// SetWeight stores percent/100 for ticker. Range checks belong to the caller.
func (m *Model) SetWeight(ticker string, percent int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights[ticker] = float64(percent) / 100
}

// Weight returns the stored weight for ticker, zero if unset.
func (m *Model) Weight(ticker string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.weights[ticker]
}

// Weights returns a copy of all weights.
func (m *Model) Weights() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.weights))
	for t, w := range m.weights {
		out[t] = w
	}
	return out
}

// Tickers returns the tickers with a stored weight, sorted.
func (m *Model) Tickers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.weights))
	for t := range m.weights {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// GrossExposure returns the sum of absolute weights.
func (m *Model) GrossExposure() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Gross(m.weights)
}

// CheckExposure returns an *ExposureError iff gross exposure is above
// ceiling+tolerance.
func (m *Model) CheckExposure(ceiling, tolerance float64) error {
	gross := m.GrossExposure()
	if gross > ceiling+tolerance {
		return &ExposureError{Gross: gross, Ceiling: ceiling, Tolerance: tolerance}
	}
	return nil
}

// Gross sums absolute weights.
func Gross(weights map[string]float64) float64 {
	sum := 0.0
	for _, w := range weights {
		sum += math.Abs(w)
	}
	return sum
}
