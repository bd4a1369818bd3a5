package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeight(t *testing.T) {
	ticker, pct, err := parseWeight("spy=-50")
	require.NoError(t, err)
	assert.Equal(t, "SPY", ticker)
	assert.Equal(t, -50, pct)

	ticker, pct, err = parseWeight(" GLD = 25% ")
	require.NoError(t, err)
	assert.Equal(t, "GLD", ticker)
	assert.Equal(t, 25, pct)

	for _, bad := range []string{"SPY", "=10", "SPY=ten"} {
		_, _, err := parseWeight(bad)
		assert.Error(t, err, bad)
	}
}
