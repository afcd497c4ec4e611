package models

import "time"

// UserProgress is the single per-user aggregate of streak, XP and bonuses.
// Version is bumped on every write and guards concurrent updates.
type UserProgress struct {
	ID               uint      `gorm:"primaryKey" json:"id,omitempty"`
	UserID           string    `gorm:"uniqueIndex;not null" json:"user_id"`
	Streak           int       `json:"streak"`
	LongestStreak    int       `json:"longest_streak"`
	DisciplineScore  float64   `json:"discipline_score"`
	Level            int       `json:"level"`
	Experience       int       `json:"experience"`
	NextLevelXP      int       `json:"next_level_xp"`
	TotalCheckIns    int       `json:"total_check_ins"`
	LastCheckInDate  string    `json:"last_check_in_date,omitempty"` // YYYY-MM-DD
	StreakMultiplier float64   `json:"streak_multiplier"`
	LevelBonus       float64   `json:"level_bonus"`
	AchievementBonus float64   `json:"achievement_bonus"`
	UnitsCracked     int       `json:"units_cracked"`
	UnitsSpilled     int       `json:"units_spilled"`
	Version          int       `gorm:"not null" json:"version"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewUserProgress returns the starting progress row for a user.
func NewUserProgress(userID string) UserProgress {
	return UserProgress{
		UserID:           userID,
		Level:            1,
		NextLevelXP:      100,
		StreakMultiplier: 1.0,
		LevelBonus:       1.05,
		AchievementBonus: 1.0,
	}
}
