package calculator

import (
	"errors"

	"MarketTimeMachine/internal/model"
)

// Summary describes a finished (or partial) equity curve.
type Summary struct {
	Start       float64
	Final       float64
	High        float64
	Low         float64
	Return      float64 // (final-start)/start
	MaxDrawdown float64 // largest peak-to-trough fall as a fraction of the peak
	Ticks       int
}

// TotalReturn computes (last-first)/first over the curve.
func TotalReturn(samples []model.Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, errNoSamples
	}
	first := samples[0].Value
	if first == 0 {
		return 0, errors.New("starting value is zero")
	}
	return (samples[len(samples)-1].Value - first) / first, nil
}

// MaxDrawdown returns the largest peak-to-trough decline as a fraction of the
// running peak. Peaks at or below zero are skipped.
func MaxDrawdown(samples []model.Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, errNoSamples
	}
	peak := samples[0].Value
	maxDD := 0.0
	for _, s := range samples[1:] {
		if s.Value > peak {
			peak = s.Value
			continue
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - s.Value) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD, nil
}

// Summarize computes every curve statistic at once.
func Summarize(samples []model.Sample) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, errNoSamples
	}
	high, low, err := CurveRange(samples)
	if err != nil {
		return Summary{}, err
	}
	ret, err := TotalReturn(samples)
	if err != nil {
		return Summary{}, err
	}
	dd, err := MaxDrawdown(samples)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Start:       samples[0].Value,
		Final:       samples[len(samples)-1].Value,
		High:        high,
		Low:         low,
		Return:      ret,
		MaxDrawdown: dd,
		Ticks:       len(samples),
	}, nil
}
