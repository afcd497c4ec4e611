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

// ProgressSummary is a user's progress together with its derived values.
type ProgressSummary struct {
	Progress         models.UserProgress   `json:"progress"`
	Level            progression.LevelInfo `json:"level"`
	GrowthMultiplier float64               `json:"growth_multiplier"`
}

// Progress returns the user's progress row, creating the starting row on first use.
func (e *Engine) Progress(ctx context.Context, userID string) (*models.UserProgress, error) {
	return e.loadProgress(ctx, userID)
}

// Summary returns the progress with its level breakdown and total growth multiplier.
func (e *Engine) Summary(ctx context.Context, userID string) (*ProgressSummary, error) {
	p, err := e.loadProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	multipliers, err := e.unlockedMultipliers(ctx, userID)
	if err != nil {
		return nil, err
	}
	growth, err := progression.TotalGrowthMultiplier(e.cfg.BaseGrowthMultiplier, p.Streak, p.Level, multipliers)
	if err != nil {
		return nil, fmt.Errorf("could not compute growth multiplier: %w", err)
	}
	return &ProgressSummary{
		Progress:         *p,
		Level:            progression.LevelFromXP(p.Experience),
		GrowthMultiplier: growth,
	}, nil
}

func (e *Engine) loadProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	p, err := e.store.GetProgress(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	fresh := models.NewUserProgress(userID)
	if err := e.store.CreateProgress(ctx, &fresh); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// created concurrently
			return e.store.GetProgress(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}
	e.logger.Info("Created progress for new user", zap.String("user_id", userID))
	return &fresh, nil
}

// mutateProgress applies mutate to a fresh snapshot and writes it back
// conditionally on its version. A lost race re-reads and re-applies, so mutate
// must derive everything from the snapshot it is given.
func (e *Engine) mutateProgress(ctx context.Context, userID string, mutate func(p *models.UserProgress) error) (*models.UserProgress, error) {
	for attempt := 1; attempt <= e.cfg.ConflictRetries; attempt++ {
		p, err := e.loadProgress(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := mutate(p); err != nil {
			return nil, err
		}

		err = e.store.UpdateProgress(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("failed to update progress: %w", err)
		}
		e.logger.Debug("Progress changed concurrently, retrying",
			zap.String("user_id", userID), zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("progress of %s: %w", userID, store.ErrConflict)
}

// applyXP adds delta (possibly negative) to the experience, floors it at zero
// and refreshes every level-derived field.
func applyXP(p *models.UserProgress, delta int) (leveledUp bool) {
	p.Experience += delta
	if p.Experience < 0 {
		p.Experience = 0
	}
	info := progression.LevelFromXP(p.Experience)
	leveledUp = info.Level > p.Level
	p.Level = info.Level
	p.NextLevelXP = info.NextLevelXP
	if bonus, err := progression.LevelBonus(info.Level); err == nil {
		p.LevelBonus = bonus
	}
	return leveledUp
}
