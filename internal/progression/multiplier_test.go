package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreakMultiplier(t *testing.T) {
	testCases := []struct {
		days     int
		expected float64
	}{
		{0, 1.0}, {2, 1.0}, {3, 1.1}, {6, 1.1}, {7, 1.25}, {13, 1.25},
		{14, 1.5}, {29, 1.5}, {30, 2.0}, {59, 2.0}, {60, 2.5}, {89, 2.5},
		{90, 3.0}, {365, 3.0},
	}

	for _, tc := range testCases {
		got, err := StreakMultiplier(tc.days)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, got, "days=%d", tc.days)
	}

	_, err := StreakMultiplier(-1)
	assert.ErrorIs(t, err, ErrNegativeInput)
}

func TestLevelBonus(t *testing.T) {
	got, err := LevelBonus(10)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, got, 1e-12)

	got, err = LevelBonus(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	_, err = LevelBonus(-2)
	assert.ErrorIs(t, err, ErrNegativeInput)
}

func TestAchievementBonus(t *testing.T) {
	got, err := AchievementBonus(nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = AchievementBonus([]float64{1.1, 1.2})
	require.NoError(t, err)
	assert.InDelta(t, 1.32, got, 1e-12)

	_, err = AchievementBonus([]float64{1.1, -0.5})
	assert.ErrorIs(t, err, ErrNegativeInput)
}

func TestTotalGrowthMultiplier(t *testing.T) {
	// 2 × 1.25 × (1 + 4×0.05) × 1.1
	got, err := TotalGrowthMultiplier(2, 7, 4, []float64{1.1})
	require.NoError(t, err)
	assert.InDelta(t, 2*1.25*1.2*1.1, got, 1e-12)

	_, err = TotalGrowthMultiplier(-1, 0, 0, nil)
	assert.ErrorIs(t, err, ErrNegativeInput)

	_, err = TotalGrowthMultiplier(1, -3, 0, nil)
	assert.ErrorIs(t, err, ErrNegativeInput)
}
