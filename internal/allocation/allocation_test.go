package allocation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetWeight_StoresFraction(t *testing.T) {
	m := New()
	m.SetWeight("AAPL", 50)
	m.SetWeight("TSLA", -30)
	m.SetWeight("GME", 0)

	assert.InDelta(t, 0.5, m.Weight("AAPL"), 1e-12)
	assert.InDelta(t, -0.3, m.Weight("TSLA"), 1e-12)
	assert.Zero(t, m.Weight("GME"))
	assert.Zero(t, m.Weight("MISSING"))
	assert.Equal(t, []string{"AAPL", "GME", "TSLA"}, m.Tickers())
}

func TestSetWeight_NoRangeValidation(t *testing.T) {
	m := New()
	m.SetWeight("X", 350)
	assert.InDelta(t, 3.5, m.Weight("X"), 1e-12)
}

func TestGrossExposure_SumsAbsoluteWeights(t *testing.T) {
	m := New()
	m.SetWeight("A", 40)
	m.SetWeight("B", -35)
	m.SetWeight("C", 25)
	assert.InDelta(t, 1.0, m.GrossExposure(), 1e-12)

	m.SetWeight("C", -25)
	assert.InDelta(t, 1.0, m.GrossExposure(), 1e-12)
}

func TestWeights_ReturnsCopy(t *testing.T) {
	m := New()
	m.SetWeight("A", 10)
	w := m.Weights()
	w["A"] = 9
	assert.InDelta(t, 0.1, m.Weight("A"), 1e-12)
}

func TestCheckExposure_Boundaries(t *testing.T) {
	tests := []struct {
		name     string
		percents map[string]int
		ceiling  float64
		reject   bool
	}{
		{"empty", nil, 1.0, false},
		{"exactly ceiling", map[string]int{"A": 100}, 1.0, false},
		{"within buffer", map[string]int{"A": 60, "B": -44}, 1.0, false},
		{"above buffer", map[string]int{"A": 60, "B": -46}, 1.0, true},
		{"leveraged ok", map[string]int{"A": 200}, 2.0, false},
		{"leveraged buffer", map[string]int{"A": 150, "B": -54}, 2.0, false},
		{"leveraged over", map[string]int{"A": 200, "B": 10}, 2.0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			for ticker, p := range tt.percents {
				m.SetWeight(ticker, p)
			}
			err := m.CheckExposure(tt.ceiling, 0.05)
			if !tt.reject {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExposureExceeded))
			var expErr *ExposureError
			require.True(t, errors.As(err, &expErr))
			assert.InDelta(t, m.GrossExposure(), expErr.Gross, 1e-12)
			assert.Equal(t, tt.ceiling, expErr.Ceiling)
		})
	}
}
