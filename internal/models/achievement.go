package models

import "time"

// RequirementType selects the statistic an achievement threshold is tested against.
type RequirementType string

const (
	RequirementCheckIns   RequirementType = "count"
	RequirementStreak     RequirementType = "streak"
	RequirementLevel      RequirementType = "level"
	RequirementUnits      RequirementType = "units"
	RequirementDiscipline RequirementType = "discipline"
	RequirementRules      RequirementType = "rules"
	RequirementJournal    RequirementType = "journal"
)

// Achievement is an unlockable milestone definition.
type Achievement struct {
	ID               uint            `gorm:"primaryKey" json:"id,omitempty"`
	Code             string          `gorm:"uniqueIndex;not null" json:"code"`
	Name             string          `gorm:"not null" json:"name"`
	Description      string          `json:"description"`
	RequirementType  RequirementType `gorm:"not null" json:"requirement_type"`
	RequirementValue float64         `gorm:"not null" json:"requirement_value"`
	StarReward       int             `json:"star_reward"`
	XPReward         int             `json:"xp_reward"`
	BonusMultiplier  float64         `gorm:"not null" json:"bonus_multiplier"`
}

// UserAchievement marks an achievement as unlocked for a user. Never revoked.
type UserAchievement struct {
	ID            uint      `gorm:"primaryKey" json:"id,omitempty"`
	UserID        string    `gorm:"uniqueIndex:idx_user_achievement;not null" json:"user_id"`
	AchievementID uint      `gorm:"uniqueIndex:idx_user_achievement;not null" json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}
