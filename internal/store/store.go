// Package store is the table-style data store the engine persists through.
package store

import (
	"context"
	"errors"

	"discipline-journal-go/internal/models"
)

var (
	// ErrNotFound is returned when a single-row lookup matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a versioned update lost a race.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// RuleCounter names an incrementable counter column of trading_rules.
type RuleCounter string

const (
	CounterFollowed RuleCounter = "times_followed"
	CounterViolated RuleCounter = "times_violated"
)

func (c RuleCounter) valid() bool {
	return c == CounterFollowed || c == CounterViolated
}

// TradeFilter narrows trade listings. Closed trades are ordered by exit time,
// all others by entry time, most recent first.
type TradeFilter struct {
	Status models.TradeStatus
	Limit  int
}

// ViolationFilter narrows violation listings; zero fields are ignored.
type ViolationFilter struct {
	TradeID uint
	RuleID  uint
}

// Store exposes per-user table operations. Every read is partitioned by user id.
type Store interface {
	CreateTrade(ctx context.Context, trade *models.Trade) error
	UpdateTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, userID string, id uint) (*models.Trade, error)
	ListTrades(ctx context.Context, userID string, filter TradeFilter) ([]models.Trade, error)

	CreateRule(ctx context.Context, rule *models.TradingRule) error
	ListRules(ctx context.Context, userID string, activeOnly bool) ([]models.TradingRule, error)
	IncrementRuleCounter(ctx context.Context, ruleID uint, counter RuleCounter) error

	CreateViolation(ctx context.Context, v *models.RuleViolation) error
	ListViolations(ctx context.Context, userID string, filter ViolationFilter) ([]models.RuleViolation, error)

	GetProgress(ctx context.Context, userID string) (*models.UserProgress, error)
	CreateProgress(ctx context.Context, p *models.UserProgress) error
	// UpdateProgress writes p only if the stored version still equals
	// p.Version, then advances p.Version. Otherwise it returns ErrConflict.
	UpdateProgress(ctx context.Context, p *models.UserProgress) error

	GetActiveGoal(ctx context.Context, userID string) (*models.UserGoal, error)
	// CreateGoal deactivates the user's other goals before inserting g.
	CreateGoal(ctx context.Context, g *models.UserGoal) error
	UpdateGoal(ctx context.Context, g *models.UserGoal) error

	ListAchievements(ctx context.Context) ([]models.Achievement, error)
	ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error)
	CreateUserAchievement(ctx context.Context, ua *models.UserAchievement) error

	GetCheckIn(ctx context.Context, userID, date string) (*models.DailyCheckIn, error)
	CreateCheckIn(ctx context.Context, c *models.DailyCheckIn) error

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
}
