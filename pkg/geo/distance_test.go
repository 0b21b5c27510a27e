package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance_IdentityAndSymmetry(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{-23.5505, -46.6333}, // São Paulo
		{-22.9068, -43.1729}, // Rio de Janeiro
		{-15.7939, -47.8828}, // Brasília
		{89.9, 179.9},
	}

	for _, a := range points {
		d, err := Distance(a[0], a[1], a[0], a[1])
		require.NoError(t, err)
		assert.Zero(t, d)

		for _, b := range points {
			ab, err := Distance(a[0], a[1], b[0], b[1])
			require.NoError(t, err)
			ba, err := Distance(b[0], b[1], a[0], a[1])
			require.NoError(t, err)
			assert.InDelta(t, ab, ba, 1e-9)
		}
	}
}

func TestDistance_KnownValues(t *testing.T) {
	d, err := Distance(0, 0, 0, 0.09)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, d, 0.1)

	d, err = Distance(-23.5505, -46.6333, -22.9068, -43.1729)
	require.NoError(t, err)
	assert.InDelta(t, 360.7, d, 1)
}

func TestDistance_MonotonicWithSeparation(t *testing.T) {
	prev := -1.0
	for lng := 0.0; lng <= 180; lng += 15 {
		d, err := Distance(0, 0, 0, lng)
		require.NoError(t, err)
		assert.Greater(t, d, prev)
		prev = d
	}
}

func TestDistance_RejectsNaN(t *testing.T) {
	_, err := Distance(math.NaN(), 0, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = Distance(0, 0, 0, math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(0, 0))
	assert.True(t, Valid(-90, 180))
	assert.False(t, Valid(91, 0))
	assert.False(t, Valid(0, -181))
	assert.False(t, Valid(math.NaN(), 0))
}
