package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"discipline-journal-go/internal/models"
	"gorm.io/gorm"
)

// GormStore implements Store on a gorm database (sqlite by default).
type GormStore struct {
	db *gorm.DB
}

// ensure GormStore implements the interface
var _ Store = (*GormStore)(nil)

// NewGormStore wraps an opened and migrated database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

func (s *GormStore) CreateTrade(ctx context.Context, trade *models.Trade) error {
	return translate(s.db.WithContext(ctx).Create(trade).Error)
}

func (s *GormStore) UpdateTrade(ctx context.Context, trade *models.Trade) error {
	if trade.ID == 0 {
		return ErrNotFound
	}
	return updateOwned(s.db.WithContext(ctx), trade, trade.UserID)
}

// updateOwned writes every column of an existing row keyed by its primary key
// and owned by userID.
func updateOwned(db *gorm.DB, row interface{}, userID string) error {
	res := db.Model(row).
		Where("user_id = ?", userID).
		Select("*").Omit("id", "created_at").
		Updates(row)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) GetTrade(ctx context.Context, userID string, id uint) (*models.Trade, error) {
	var trade models.Trade
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&trade).Error; err != nil {
		return nil, translate(err)
	}
	return &trade, nil
}

func (s *GormStore) ListTrades(ctx context.Context, userID string, filter TradeFilter) ([]models.Trade, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Status == models.TradeStatusClosed {
		q = q.Order("exit_time desc").Order("id desc")
	} else {
		q = q.Order("entry_time desc").Order("id desc")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var trades []models.Trade
	if err := q.Find(&trades).Error; err != nil {
		return nil, translate(err)
	}
	return trades, nil
}

func (s *GormStore) CreateRule(ctx context.Context, rule *models.TradingRule) error {
	return translate(s.db.WithContext(ctx).Create(rule).Error)
}

func (s *GormStore) ListRules(ctx context.Context, userID string, activeOnly bool) ([]models.TradingRule, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rules []models.TradingRule
	if err := q.Order("id asc").Find(&rules).Error; err != nil {
		return nil, translate(err)
	}
	return rules, nil
}

// IncrementRuleCounter bumps the counter in a single UPDATE.
func (s *GormStore) IncrementRuleCounter(ctx context.Context, ruleID uint, counter RuleCounter) error {
	if !counter.valid() {
		return fmt.Errorf("unknown rule counter %q", counter)
	}
	res := s.db.WithContext(ctx).Model(&models.TradingRule{}).
		Where("id = ?", ruleID).
		UpdateColumn(string(counter), gorm.Expr(string(counter)+" + ?", 1))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateViolation(ctx context.Context, v *models.RuleViolation) error {
	return translate(s.db.WithContext(ctx).Create(v).Error)
}

func (s *GormStore) ListViolations(ctx context.Context, userID string, filter ViolationFilter) ([]models.RuleViolation, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.TradeID != 0 {
		q = q.Where("trade_id = ?", filter.TradeID)
	}
	if filter.RuleID != 0 {
		q = q.Where("rule_id = ?", filter.RuleID)
	}
	var violations []models.RuleViolation
	if err := q.Order("violated_at desc").Order("id desc").Find(&violations).Error; err != nil {
		return nil, translate(err)
	}
	return violations, nil
}

func (s *GormStore) GetProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	var p models.UserProgress
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) CreateProgress(ctx context.Context, p *models.UserProgress) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *GormStore) UpdateProgress(ctx context.Context, p *models.UserProgress) error {
	expected := p.Version
	p.UpdatedAt = time.Now()

	res := s.db.WithContext(ctx).Model(&models.UserProgress{}).
		Where("user_id = ? AND version = ?", p.UserID, expected).
		Updates(map[string]interface{}{
			"streak":             p.Streak,
			"longest_streak":     p.LongestStreak,
			"discipline_score":   p.DisciplineScore,
			"level":              p.Level,
			"experience":         p.Experience,
			"next_level_xp":      p.NextLevelXP,
			"total_check_ins":    p.TotalCheckIns,
			"last_check_in_date": p.LastCheckInDate,
			"streak_multiplier":  p.StreakMultiplier,
			"level_bonus":        p.LevelBonus,
			"achievement_bonus":  p.AchievementBonus,
			"units_cracked":      p.UnitsCracked,
			"units_spilled":      p.UnitsSpilled,
			"version":            expected + 1,
			"updated_at":         p.UpdatedAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	p.Version = expected + 1
	return nil
}

func (s *GormStore) GetActiveGoal(ctx context.Context, userID string) (*models.UserGoal, error) {
	var g models.UserGoal
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id desc").
		First(&g).Error
	if err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

func (s *GormStore) CreateGoal(ctx context.Context, g *models.UserGoal) error {
	return translate(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.UserGoal{}).
			Where("user_id = ? AND is_active = ?", g.UserID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		g.IsActive = true
		return tx.Create(g).Error
	}))
}

func (s *GormStore) UpdateGoal(ctx context.Context, g *models.UserGoal) error {
	if g.ID == 0 {
		return ErrNotFound
	}
	return updateOwned(s.db.WithContext(ctx), g, g.UserID)
}

func (s *GormStore) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	var achievements []models.Achievement
	if err := s.db.WithContext(ctx).Order("id asc").Find(&achievements).Error; err != nil {
		return nil, translate(err)
	}
	return achievements, nil
}

func (s *GormStore) ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var unlocked []models.UserAchievement
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&unlocked).Error; err != nil {
		return nil, translate(err)
	}
	return unlocked, nil
}

func (s *GormStore) CreateUserAchievement(ctx context.Context, ua *models.UserAchievement) error {
	return translate(s.db.WithContext(ctx).Create(ua).Error)
}

func (s *GormStore) GetCheckIn(ctx context.Context, userID, date string) (*models.DailyCheckIn, error) {
	var c models.DailyCheckIn
	if err := s.db.WithContext(ctx).Where("user_id = ? AND check_in_date = ?", userID, date).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *GormStore) CreateCheckIn(ctx context.Context, c *models.DailyCheckIn) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate(s.db.WithContext(ctx).Create(n).Error)
}

func (s *GormStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var notifications []models.Notification
	if err := q.Order("created_at desc").Order("id desc").Find(&notifications).Error; err != nil {
		return nil, translate(err)
	}
	return notifications, nil
}
