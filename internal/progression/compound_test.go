package progression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitsCompleted(t *testing.T) {
	testCases := []struct {
		name       string
		start      float64
		current    float64
		percent    float64
		totalUnits int
		expected   int
	}{
		{"One unit", 1000, 1000 * 1.08, 8, 10, 1},
		{"No growth", 1000, 1000, 8, 10, 0},
		{"Just below a unit", 1000, 1079.99, 8, 10, 0},
		{"Three compounded units", 1000, 1000 * math.Pow(1.08, 3), 8, 10, 3},
		{"Drawdown clamps to zero", 1000, 600, 8, 10, 0},
		{"Clamped to total", 1000, 10000, 8, 5, 5},
		{"Unbounded total", 1000, 10000, 8, 0, 29},
		{"Wiped out account", 1000, 0, 8, 10, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := UnitsCompleted(tc.start, tc.current, tc.percent, tc.totalUnits)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestUnitsCompleted_InvalidInput(t *testing.T) {
	_, err := UnitsCompleted(0, 1000, 8, 10)
	assert.ErrorIs(t, err, ErrInvalidCapital)

	_, err = UnitsCompleted(1000, -1, 8, 10)
	assert.ErrorIs(t, err, ErrInvalidCapital)

	_, err = UnitsCompleted(1000, 1100, 0, 10)
	assert.ErrorIs(t, err, ErrInvalidPercent)

	_, err = UnitsCompleted(1000, 1100, -5, 10)
	assert.ErrorIs(t, err, ErrInvalidPercent)
}

func TestUnitTargetCapital(t *testing.T) {
	got, err := UnitTargetCapital(1000, 10, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1210, got, 1e-9)

	_, err = UnitTargetCapital(1000, 0, 2)
	assert.ErrorIs(t, err, ErrInvalidPercent)
}

func TestUnitProgress(t *testing.T) {
	got, err := UnitProgress(1000, 1050, 10, 5)
	require.NoError(t, err)
	assert.InDelta(t, 50, got, 1e-9)

	got, err = UnitProgress(1000, 900, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = UnitProgress(1000, 5000, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)
}
