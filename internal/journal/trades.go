package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"discipline-journal-go/internal/models"
	"discipline-journal-go/internal/progression"
	"discipline-journal-go/internal/rules"
	"discipline-journal-go/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// recentClosedWindow is how many closed trades the detector gets to look back on.
const recentClosedWindow = 5

// SaveTradeResult reports what saving a trade triggered.
type SaveTradeResult struct {
	Trade      models.Trade           `json:"trade"`
	Violations []models.RuleViolation `json:"violations"`
	Followed   []models.TradingRule   `json:"followed"`
	Close      *CloseResult           `json:"close,omitempty"`
}

// CloseResult reports the goal side effects of a closed trade.
type CloseResult struct {
	Trade           models.Trade     `json:"trade"`
	PnL             float64          `json:"pnl"`
	Goal            *models.UserGoal `json:"goal,omitempty"`
	UnitsGained     int              `json:"units_gained"`
	UnitsSpilled    int              `json:"units_spilled"`
	MaxLossBreached bool             `json:"max_loss_breached"`
}

// SaveTrade validates and stores a new trade, then checks it against the
// user's active rules. Violations are logged, counted and penalised; rules
// the trade honours are counted as followed. A trade saved already closed
// also updates the active goal.
func (e *Engine) SaveTrade(ctx context.Context, trade *models.Trade) (*SaveTradeResult, error) {
	if trade.Status == "" {
		trade.Status = models.TradeStatusOpen
	}
	if trade.EntryTime.IsZero() {
		trade.EntryTime = e.now()
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = e.now()
	}
	if err := trade.Validate(); err != nil {
		return nil, err
	}

	l := e.logger.With(zap.String("user_id", trade.UserID), zap.String("symbol", trade.Symbol))

	activeRules, err := e.store.ListRules(ctx, trade.UserID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	detectCtx, err := e.detectionContext(ctx, trade.UserID)
	if err != nil {
		return nil, err
	}

	if err := e.store.CreateTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to save trade: %w", err)
	}
	l = l.With(zap.Uint("trade_id", trade.ID))
	l.Info("Trade saved")

	result := &SaveTradeResult{Trade: *trade}
	for _, v := range e.detector.Check(trade, activeRules, detectCtx) {
		violation := models.RuleViolation{
			RuleID:     v.Rule.ID,
			TradeID:    trade.ID,
			UserID:     trade.UserID,
			Notes:      v.Reason,
			ViolatedAt: e.now(),
		}
		if err := e.recordViolation(ctx, &violation, v); err != nil {
			l.Error("Failed to record violation", zap.Uint("rule_id", v.Rule.ID), zap.Error(err))
			continue
		}
		result.Violations = append(result.Violations, violation)
	}

	for _, rule := range e.follow.Followed(trade, activeRules) {
		if err := e.store.IncrementRuleCounter(ctx, rule.ID, store.CounterFollowed); err != nil {
			l.Error("Failed to count followed rule", zap.Uint("rule_id", rule.ID), zap.Error(err))
			continue
		}
		result.Followed = append(result.Followed, rule)
	}

	if trade.Status == models.TradeStatusClosed {
		closed, err := e.applyClose(ctx, trade)
		if err != nil {
			return result, err
		}
		result.Close = closed
	}
	return result, nil
}

func (e *Engine) detectionContext(ctx context.Context, userID string) (rules.Context, error) {
	var detectCtx rules.Context

	goal, err := e.store.GetActiveGoal(ctx, userID)
	switch {
	case err == nil:
		detectCtx.AccountCapital = goal.CurrentCapital
	case !errors.Is(err, store.ErrNotFound):
		return detectCtx, fmt.Errorf("failed to load goal: %w", err)
	}

	open, err := e.store.ListTrades(ctx, userID, store.TradeFilter{Status: models.TradeStatusOpen})
	if err != nil {
		return detectCtx, fmt.Errorf("failed to list open trades: %w", err)
	}
	detectCtx.OpenTrades = len(open)

	closed, err := e.store.ListTrades(ctx, userID, store.TradeFilter{Status: models.TradeStatusClosed, Limit: recentClosedWindow})
	if err != nil {
		return detectCtx, fmt.Errorf("failed to list closed trades: %w", err)
	}
	detectCtx.RecentClosed = closed
	return detectCtx, nil
}

func (e *Engine) recordViolation(ctx context.Context, violation *models.RuleViolation, v rules.Violation) error {
	if err := e.store.CreateViolation(ctx, violation); err != nil {
		return err
	}
	if err := e.store.IncrementRuleCounter(ctx, v.Rule.ID, store.CounterViolated); err != nil {
		return err
	}
	if err := e.penalty(ctx, violation.UserID, v); err != nil {
		e.logger.Error("Violation penalty failed", zap.String("user_id", violation.UserID), zap.Error(err))
	}
	e.notify(ctx, violation.UserID, models.NotificationViolation, "Rule violated", "%s: %s", v.Rule.RuleText, v.Reason)
	return nil
}

// CloseTrade records the exit of an open trade and applies its P&L to the
// active goal. A zero exitTime means now.
func (e *Engine) CloseTrade(ctx context.Context, userID string, tradeID uint, exitPrice float64, exitTime time.Time) (*CloseResult, error) {
	trade, err := e.store.GetTrade(ctx, userID, tradeID)
	if err != nil {
		return nil, fmt.Errorf("trade %d: %w", tradeID, err)
	}
	if trade.Status == models.TradeStatusClosed {
		return nil, ErrTradeClosed
	}

	if exitTime.IsZero() {
		exitTime = e.now()
	}
	trade.ExitPrice = &exitPrice
	trade.ExitTime = &exitTime
	trade.Status = models.TradeStatusClosed
	if err := trade.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.UpdateTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to close trade: %w", err)
	}
	return e.applyClose(ctx, trade)
}

// applyClose moves the active goal's capital by the trade's P&L and settles
// the change in completed units against progress.
func (e *Engine) applyClose(ctx context.Context, trade *models.Trade) (*CloseResult, error) {
	pnl, _ := trade.PnL()
	result := &CloseResult{Trade: *trade, PnL: pnl}
	l := e.logger.With(zap.String("user_id", trade.UserID), zap.Uint("trade_id", trade.ID))

	goal, err := e.store.GetActiveGoal(ctx, trade.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}

	before := goal.CurrentCapital
	capital, _ := decimal.NewFromFloat(before).Add(decimal.NewFromFloat(pnl)).Float64()
	if capital < 0 {
		capital = 0
	}
	units, err := progression.UnitsCompleted(goal.StartingCapital, capital, goal.TargetPercentPerUnit, goal.TotalUnits)
	if err != nil {
		return nil, fmt.Errorf("could not compute units for goal %d: %w", goal.ID, err)
	}

	previous := goal.UnitsCracked
	awarded := max(goal.UnitsAwarded, previous)
	goal.CurrentCapital = capital
	goal.UnitsCracked = units
	goal.UnitsRemaining = goal.TotalUnits - units
	if units > awarded {
		goal.UnitsAwarded = units
	}
	if err := e.store.UpdateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}
	result.Goal = goal

	if pnl < 0 && goal.MaxLossPercent > 0 && before > 0 {
		lossPercent := -pnl / before * 100
		if lossPercent > goal.MaxLossPercent {
			result.MaxLossBreached = true
			l.Warn("Single trade loss exceeded the goal's limit",
				zap.Float64("loss_percent", lossPercent), zap.Float64("max_loss_percent", goal.MaxLossPercent))
			e.notify(ctx, trade.UserID, models.NotificationMaxLoss, "Max loss exceeded",
				"%s lost %.2f%% of your capital, above your %.2f%% limit.", trade.Symbol, lossPercent, goal.MaxLossPercent)
		}
	}

	// a unit is rewarded once per goal; climbing back over a spilled one is not
	switch {
	case units > awarded:
		result.UnitsGained = units - awarded
		e.settleUnitsGained(ctx, trade.UserID, awarded, units)
	case units > previous:
		l.Debug("Recovered spilled units", zap.Int("units", units-previous))
	case units < previous:
		result.UnitsSpilled = previous - units
		e.settleUnitsSpilled(ctx, trade.UserID, result.UnitsSpilled)
	}
	return result, nil
}

func (e *Engine) settleUnitsGained(ctx context.Context, userID string, previous, units int) {
	l := e.logger.With(zap.String("user_id", userID))
	gained := units - previous

	leveledUp := false
	progress, err := e.mutateProgress(ctx, userID, func(p *models.UserProgress) error {
		p.UnitsCracked += gained
		leveledUp = applyXP(p, gained*e.cfg.UnitXPBonus)
		return nil
	})
	if err != nil {
		l.Error("Failed to award cracked units", zap.Int("units", gained), zap.Error(err))
		return
	}
	l.Info("Units cracked", zap.Int("gained", gained), zap.Int("total", progress.UnitsCracked))

	for n := previous + 1; n <= units; n++ {
		e.notify(ctx, userID, models.NotificationUnit, "Unit cracked", "Unit %d of your goal is complete. +%d XP", n, e.cfg.UnitXPBonus)
	}
	if leveledUp {
		e.notify(ctx, userID, models.NotificationLevelUp, "Level up!", "You reached level %d.", progress.Level)
	}

	stats, err := e.statsFor(ctx, progress)
	if err != nil {
		l.Error("Failed to gather achievement stats", zap.Error(err))
		return
	}
	if _, err := e.ScanAchievements(ctx, userID, stats); err != nil {
		l.Error("Achievement scan failed", zap.Error(err))
	}
}

func (e *Engine) settleUnitsSpilled(ctx context.Context, userID string, spilled int) {
	_, err := e.mutateProgress(ctx, userID, func(p *models.UserProgress) error {
		p.UnitsSpilled += spilled
		return nil
	})
	if err != nil {
		e.logger.Error("Failed to record spilled units", zap.String("user_id", userID), zap.Error(err))
		return
	}
	e.notify(ctx, userID, models.NotificationSpill, "Units spilled",
		"Your capital fell back below %d completed unit(s).", spilled)
}

// Trades lists the user's trades.
func (e *Engine) Trades(ctx context.Context, userID string, filter store.TradeFilter) ([]models.Trade, error) {
	return e.store.ListTrades(ctx, userID, filter)
}

// Violations lists the violations recorded against one of the user's trades.
func (e *Engine) Violations(ctx context.Context, userID string, tradeID uint) ([]models.RuleViolation, error) {
	if _, err := e.store.GetTrade(ctx, userID, tradeID); err != nil {
		return nil, fmt.Errorf("trade %d: %w", tradeID, err)
	}
	return e.store.ListViolations(ctx, userID, store.ViolationFilter{TradeID: tradeID})
}
