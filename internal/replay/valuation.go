package replay

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrMissingPrice marks a ticker that has a weight but no usable price.
var ErrMissingPrice = errors.New("missing price data")

// PortfolioValue recomputes the portfolio value at index from scratch.
//
// Longs pay invested*(cur/start). Shorts pay invested*(2-cur/start), a linear
// approximation rather than start/cur. Uninvested cash is
// notional*(1-gross), which goes negative above 100% gross exposure.
// Tickers without usable prices are skipped and reported; their weight still
// counts against cash.
func PortfolioValue(index int, weights map[string]float64, prices map[string][]float64, notional float64) (float64, []error) {
	if index == 0 {
		return notional, nil
	}

	tickers := make([]string, 0, len(weights))
	for t, w := range weights {
		if w != 0 {
			tickers = append(tickers, t)
		}
	}
	sort.Strings(tickers)

	var (
		value float64
		gross float64
		errs  []error
	)
	for _, ticker := range tickers {
		w := weights[ticker]
		gross += math.Abs(w)

		series, ok := prices[ticker]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: no series for %s", ErrMissingPrice, ticker))
			continue
		}
		if index >= len(series) {
			errs = append(errs, fmt.Errorf("%w: %s has no price at index %d", ErrMissingPrice, ticker, index))
			continue
		}
		start, current := series[0], series[index]
		if start <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s start price %.4f is not positive", ErrMissingPrice, ticker, start))
			continue
		}

		invested := notional * math.Abs(w)
		ratio := current / start
		if w >= 0 {
			value += invested * ratio
		} else {
			value += invested * (2 - ratio)
		}
	}

	value += notional * (1 - gross)
	return value, errs
}
