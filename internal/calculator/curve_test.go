package calculator

import (
	"testing"

	"MarketTimeMachine/internal/model"
)

func curve(values ...float64) []model.Sample {
	out := make([]model.Sample, len(values))
	for i, v := range values {
		out[i] = model.Sample{Index: i, Value: v}
	}
	return out
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(curve(10000, 11000, 8800, 9900, 12000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.High != 12000 || s.Low != 8800 {
		t.Errorf("range: got high=%.0f low=%.0f", s.High, s.Low)
	}
	if diff := s.Return - 0.2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("return: expected 0.2, got %.6f", s.Return)
	}
	if diff := s.MaxDrawdown - 0.2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("drawdown: expected 0.2, got %.6f", s.MaxDrawdown)
	}
	if s.Ticks != 5 {
		t.Errorf("ticks: expected 5, got %d", s.Ticks)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if _, err := Summarize(nil); err == nil {
		t.Fatal("expected error for empty curve")
	}
}

func TestMaxDrawdown_MonotonicRise(t *testing.T) {
	dd, err := MaxDrawdown(curve(1, 2, 3, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dd != 0 {
		t.Errorf("expected zero drawdown, got %.3f", dd)
	}
}

func TestRangePosition(t *testing.T) {
	tests := []struct {
		current, high, low, want float64
	}{
		{50, 100, 0, 0.5},
		{150, 100, 0, 1},
		{-5, 100, 0, 0},
		{7, 7, 7, 0.5},
	}
	for _, tt := range tests {
		got, err := RangePosition(tt.current, tt.high, tt.low)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("RangePosition(%v,%v,%v) = %v, want %v", tt.current, tt.high, tt.low, got, tt.want)
		}
	}
	if _, err := RangePosition(1, 0, 10); err == nil {
		t.Error("expected error when high < low")
	}
}
