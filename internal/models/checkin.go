package models

import "time"

// CheckInDateLayout is the calendar-day format of check-in dates.
const CheckInDateLayout = "2006-01-02"

// DailyCheckIn records one user's check-in for one calendar day.
type DailyCheckIn struct {
	ID               uint      `gorm:"primaryKey" json:"id,omitempty"`
	UserID           string    `gorm:"uniqueIndex:idx_user_day;not null" json:"user_id"`
	CheckInDate      string    `gorm:"uniqueIndex:idx_user_day;not null" json:"check_in_date"`
	DisciplineRating int       `json:"discipline_rating"`
	FollowedRules    bool      `json:"followed_rules"`
	XPEarned         int       `json:"xp_earned"`
	StreakAtTime     int       `json:"streak_at_time"`
	CreatedAt        time.Time `json:"created_at"`
}
