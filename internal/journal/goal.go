package journal

import (
	"context"
	"errors"
	"fmt"

	"discipline-journal-go/internal/models"
	"discipline-journal-go/internal/progression"
	"discipline-journal-go/internal/store"
	"go.uber.org/zap"
)

// GoalStatus is the active goal with the numbers for its next unit.
type GoalStatus struct {
	Goal            models.UserGoal `json:"goal"`
	NextUnitCapital float64         `json:"next_unit_capital"`
	UnitProgress    float64         `json:"unit_progress_percent"`
}

// SetGoal makes goal the user's single active goal. A zero current capital
// starts at the starting capital.
func (e *Engine) SetGoal(ctx context.Context, goal *models.UserGoal) error {
	if goal.CurrentCapital == 0 {
		goal.CurrentCapital = goal.StartingCapital
	}
	if err := goal.Validate(); err != nil {
		return err
	}
	units, err := progression.UnitsCompleted(goal.StartingCapital, goal.CurrentCapital, goal.TargetPercentPerUnit, goal.TotalUnits)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidGoal, err)
	}
	goal.UnitsCracked = units
	goal.UnitsAwarded = units
	goal.UnitsRemaining = goal.TotalUnits - units
	goal.IsActive = true
	goal.CreatedAt = e.now()

	if err := e.store.CreateGoal(ctx, goal); err != nil {
		return fmt.Errorf("failed to save goal: %w", err)
	}
	e.logger.Info("Goal set",
		zap.String("user_id", goal.UserID),
		zap.Float64("starting_capital", goal.StartingCapital),
		zap.Int("total_units", goal.TotalUnits))
	return nil
}

// Goal returns the active goal and its next-unit figures. It returns
// store.ErrNotFound when no goal is set.
func (e *Engine) Goal(ctx context.Context, userID string) (*GoalStatus, error) {
	goal, err := e.store.GetActiveGoal(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}

	status := &GoalStatus{Goal: *goal}
	next := goal.UnitsCracked + 1
	if next > goal.TotalUnits {
		next = goal.TotalUnits
	}
	if status.NextUnitCapital, err = progression.UnitTargetCapital(goal.StartingCapital, goal.TargetPercentPerUnit, next); err != nil {
		return nil, err
	}
	if status.UnitProgress, err = progression.UnitProgress(goal.StartingCapital, goal.CurrentCapital, goal.TargetPercentPerUnit, goal.TotalUnits); err != nil {
		return nil, err
	}
	return status, nil
}
