package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRule is returned when a trading rule fails validation.
var ErrInvalidRule = errors.New("invalid trading rule")

// TradingRule is a user-defined discipline rule written in free text.
type TradingRule struct {
	ID            uint      `gorm:"primaryKey" json:"id,omitempty"`
	UserID        string    `gorm:"index;not null" json:"user_id"`
	RuleText      string    `gorm:"not null" json:"rule_text"`
	Category      string    `json:"category,omitempty"`
	IsActive      bool      `gorm:"index" json:"is_active"`
	TimesFollowed int       `gorm:"not null" json:"times_followed"`
	TimesViolated int       `gorm:"not null" json:"times_violated"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the rule has an owner and non-blank text.
func (r *TradingRule) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRule)
	}
	if strings.TrimSpace(r.RuleText) == "" {
		return fmt.Errorf("%w: rule text is required", ErrInvalidRule)
	}
	return nil
}
