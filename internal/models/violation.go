package models

import "time"

// RuleViolation is an immutable log record of a rule broken by a trade.
type RuleViolation struct {
	ID         uint      `gorm:"primaryKey" json:"id,omitempty"`
	RuleID     uint      `gorm:"index;not null" json:"rule_id"`
	TradeID    uint      `gorm:"index;not null" json:"trade_id"`
	UserID     string    `gorm:"index;not null" json:"user_id"`
	Notes      string    `json:"notes"`
	ViolatedAt time.Time `json:"violated_at"`
}
