// Package progression holds the pure formulas behind levels, multipliers and
// compounding milestones. Nothing here touches storage.
package progression

import "math"

const (
	baseLevelXP     = 100
	levelGrowthRate = 1.5
)

// LevelInfo describes where a total XP amount sits on the level curve.
type LevelInfo struct {
	Level           int     `json:"level"`
	CurrentLevelXP  int     `json:"current_level_xp"`
	NextLevelXP     int     `json:"next_level_xp"`
	ProgressPercent float64 `json:"progress_percent"`
}

// XPRequiredForLevel returns the XP needed to advance from level to level+1:
// floor(100 × 1.5^(level-1)). Levels below 1 are treated as 1 and the result
// saturates at math.MaxInt.
func XPRequiredForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	required := math.Floor(baseLevelXP * math.Pow(levelGrowthRate, float64(level-1)))
	if required >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(required)
}

// LevelFromXP maps total XP to a level. Negative XP is clamped to 0.
func LevelFromXP(xp int) LevelInfo {
	if xp < 0 {
		xp = 0
	}

	level := 1
	total := 0
	next := XPRequiredForLevel(level)
	// total never exceeds xp, so xp-total cannot overflow
	for xp-total >= next {
		total += next
		level++
		next = XPRequiredForLevel(level)
	}

	current := xp - total
	return LevelInfo{
		Level:           level,
		CurrentLevelXP:  current,
		NextLevelXP:     next,
		ProgressPercent: float64(current) / float64(next) * 100,
	}
}
