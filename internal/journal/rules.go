package journal

import (
	"context"
	"fmt"

	"discipline-journal-go/internal/models"
)

// AddRule stores a new active trading rule.
func (e *Engine) AddRule(ctx context.Context, rule *models.TradingRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	rule.IsActive = true
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = e.now()
	}
	if err := e.store.CreateRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// Rules lists the user's rules.
func (e *Engine) Rules(ctx context.Context, userID string, activeOnly bool) ([]models.TradingRule, error) {
	return e.store.ListRules(ctx, userID, activeOnly)
}
