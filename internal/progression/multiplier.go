package progression

import (
	"errors"
	"fmt"
)

// ErrNegativeInput is returned when a multiplier input is below zero.
var ErrNegativeInput = errors.New("input must not be negative")

// streakTiers are upper bounds (exclusive) paired with their multiplier.
var streakTiers = []struct {
	below      int
	multiplier float64
}{
	{3, 1.0},
	{7, 1.1},
	{14, 1.25},
	{30, 1.5},
	{60, 2.0},
	{90, 2.5},
}

const maxStreakMultiplier = 3.0

// StreakMultiplier maps consecutive check-in days to an XP multiplier.
func StreakMultiplier(days int) (float64, error) {
	if days < 0 {
		return 0, fmt.Errorf("streak %d: %w", days, ErrNegativeInput)
	}
	for _, tier := range streakTiers {
		if days < tier.below {
			return tier.multiplier, nil
		}
	}
	return maxStreakMultiplier, nil
}

// LevelBonus is 1.0 + level × 0.05.
func LevelBonus(level int) (float64, error) {
	if level < 0 {
		return 0, fmt.Errorf("level %d: %w", level, ErrNegativeInput)
	}
	return 1.0 + float64(level)*0.05, nil
}

// AchievementBonus folds the bonus multipliers of unlocked achievements into
// a single product. An empty list yields 1.0.
func AchievementBonus(multipliers []float64) (float64, error) {
	bonus := 1.0
	for i, m := range multipliers {
		if m < 0 {
			return 0, fmt.Errorf("achievement bonus #%d (%v): %w", i, m, ErrNegativeInput)
		}
		bonus *= m
	}
	return bonus, nil
}

// TotalGrowthMultiplier combines a base rate with the streak, level and
// achievement bonuses.
func TotalGrowthMultiplier(base float64, streak, level int, achievements []float64) (float64, error) {
	if base < 0 {
		return 0, fmt.Errorf("base %v: %w", base, ErrNegativeInput)
	}
	sm, err := StreakMultiplier(streak)
	if err != nil {
		return 0, err
	}
	lb, err := LevelBonus(level)
	if err != nil {
		return 0, err
	}
	ab, err := AchievementBonus(achievements)
	if err != nil {
		return 0, err
	}
	return base * sm * lb * ab, nil
}
