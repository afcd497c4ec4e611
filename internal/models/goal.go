package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidGoal is returned when a capital goal fails validation.
var ErrInvalidGoal = errors.New("invalid goal")

// UserGoal is a compounding capital target split into units.
// Only one goal per user is active at a time.
type UserGoal struct {
	ID                   uint      `gorm:"primaryKey" json:"id,omitempty"`
	UserID               string    `gorm:"index;not null" json:"user_id"`
	StartingCapital      float64   `gorm:"not null" json:"starting_capital"`
	CurrentCapital       float64   `gorm:"not null" json:"current_capital"`
	TargetPercentPerUnit float64   `gorm:"not null" json:"target_percent_per_unit"`
	TotalUnits           int       `gorm:"not null" json:"total_units"`
	UnitsRemaining       int       `json:"units_remaining"`
	UnitsCracked         int       `json:"units_cracked"`
	UnitsAwarded         int       `json:"units_awarded"` // high-water mark of UnitsCracked
	MaxLossPercent       float64   `json:"max_loss_percent"`
	IsActive             bool      `gorm:"index" json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
}

// Validate checks capital and percent inputs the compound calculator depends on.
func (g *UserGoal) Validate() error {
	switch {
	case g.UserID == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidGoal)
	case g.StartingCapital <= 0:
		return fmt.Errorf("%w: starting capital must be positive", ErrInvalidGoal)
	case g.CurrentCapital < 0:
		return fmt.Errorf("%w: current capital cannot be negative", ErrInvalidGoal)
	case g.TargetPercentPerUnit <= 0:
		return fmt.Errorf("%w: target percent per unit must be positive", ErrInvalidGoal)
	case g.TotalUnits <= 0:
		return fmt.Errorf("%w: total units must be positive", ErrInvalidGoal)
	case g.MaxLossPercent < 0 || g.MaxLossPercent > 100:
		return fmt.Errorf("%w: max loss percent must be within 0..100", ErrInvalidGoal)
	}
	return nil
}
