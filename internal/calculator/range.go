package calculator

import (
	"errors"
	"math"

	"MarketTimeMachine/internal/model"
)

var errNoSamples = errors.New("no samples provided")

// CurveRange returns the highest and lowest values of the equity curve.
func CurveRange(samples []model.Sample) (high, low float64, err error) {
	if len(samples) == 0 {
		return 0, 0, errNoSamples
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, s := range samples {
		if s.Value > high {
			high = s.Value
		}
		if s.Value < low {
			low = s.Value
		}
	}
	return high, low, nil
}

// RangePosition returns where current sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
