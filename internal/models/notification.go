package models

import "time"

// NotificationKind classifies what produced a notification.
type NotificationKind string

const (
	NotificationLevelUp     NotificationKind = "level_up"
	NotificationAchievement NotificationKind = "achievement"
	NotificationUnit        NotificationKind = "unit_cracked"
	NotificationSpill       NotificationKind = "unit_spilled"
	NotificationViolation   NotificationKind = "rule_violation"
	NotificationMaxLoss     NotificationKind = "max_loss"
)

// Notification is an entry of the user's notification feed.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id,omitempty"`
	UserID    string           `gorm:"index;not null" json:"user_id"`
	Kind      NotificationKind `gorm:"not null" json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
