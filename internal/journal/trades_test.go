package journal

import (
	"context"
	"testing"
	"time"

	"discipline-journal-go/internal/models"
	"discipline-journal-go/internal/rules"
	"discipline-journal-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr(v float64) *float64 { return &v }

func addRule(t *testing.T, engine *Engine, userID, text string) models.TradingRule {
	t.Helper()
	rule := models.TradingRule{UserID: userID, RuleText: text}
	require.NoError(t, engine.AddRule(context.Background(), &rule))
	return rule
}

func openTrade(userID string) *models.Trade {
	return &models.Trade{
		UserID:       userID,
		Symbol:       "AAPL",
		TradeType:    models.TradeTypeStock,
		Direction:    models.DirectionLong,
		EntryPrice:   100,
		PositionSize: 1,
	}
}

func ruleByID(t *testing.T, st store.Store, userID string, id uint) models.TradingRule {
	t.Helper()
	all, err := st.ListRules(context.Background(), userID, false)
	require.NoError(t, err)
	for _, r := range all {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("rule %d not found", id)
	return models.TradingRule{}
}

func TestSaveTrade_RecordsViolation(t *testing.T) {
	st := setupStore(t)
	engine, _ := setupEngine(t, st)
	ctx := context.Background()

	p := models.NewUserProgress("alice")
	p.Experience = 100
	p.Level = 2
	seedProgress(t, st, p)
	rule := addRule(t, engine, "alice", "Always use a stop loss")

	res, err := engine.SaveTrade(ctx, openTrade("alice"))
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, rule.ID, res.Violations[0].RuleID)
	assert.Equal(t, res.Trade.ID, res.Violations[0].TradeID)
	assert.Empty(t, res.Followed)
	assert.Equal(t, models.TradeStatusOpen, res.Trade.Status)
	assert.Equal(t, testDay, res.Trade.EntryTime)
	assert.Equal(t, testDay, res.Trade.CreatedAt)

	assert.Equal(t, 1, ruleByID(t, st, "alice", rule.ID).TimesViolated)

	stored, err := engine.Violations(ctx, "alice", res.Trade.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	progress, err := st.GetProgress(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 90, progress.Experience)
	assert.Equal(t, 1, progress.Level)

	feed, err := engine.Notifications(ctx, "alice", true)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, models.NotificationViolation, feed[0].Kind)
}

func TestSaveTrade_FollowedRule(t *testing.T) {
	st := setupStore(t)
	engine, _ := setupEngine(t, st)
	rule := addRule(t, engine, "alice", "Always use a stop loss")

	trade := openTrade("alice")
	trade.StopLoss = ptr(95)
	res, err := engine.SaveTrade(context.Background(), trade)
	require.NoError(t, err)

	assert.Empty(t, res.Violations)
	require.Len(t, res.Followed, 1)
	updated := ruleByID(t, st, "alice", rule.ID)
	assert.Equal(t, 1, updated.TimesFollowed)
	assert.Equal(t, 0, updated.TimesViolated)
}

func TestSaveTrade_CustomPenalty(t *testing.T) {
	st := setupStore(t)
	var penalised []string
	engine, _ := setupEngine(t, st, WithPenalty(func(ctx context.Context, userID string, v rules.Violation) error {
		penalised = append(penalised, v.Rule.RuleText)
		return nil
	}))
	addRule(t, engine, "alice", "Always use a stop loss")

	_, err := engine.SaveTrade(context.Background(), openTrade("alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Always use a stop loss"}, penalised)
}

func TestSaveTrade_DetectorContext(t *testing.T) {
	st := setupStore(t)
	detector := new(MockDetector)
	clock := &fakeClock{now: testDay}
	engine, err := NewEngine(zap.NewNop(), testConfig(), st, detector, WithClock(clock.Now))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, engine.SetGoal(ctx, &models.UserGoal{
		UserID: "alice", StartingCapital: 1000, TargetPercentPerUnit: 8, TotalUnits: 10,
	}))
	rule := addRule(t, engine, "alice", "Never hold more than 1 open position")

	detector.On("Check", mock.Anything, mock.Anything, mock.MatchedBy(func(c rules.Context) bool {
		return c.OpenTrades == 0 && c.AccountCapital == 1000
	})).Return([]rules.Violation(nil)).Once()
	detector.On("Check", mock.Anything, mock.Anything, mock.MatchedBy(func(c rules.Context) bool {
		return c.OpenTrades == 1
	})).Return([]rules.Violation{{Rule: rule, Reason: "too many open positions"}}).Once()

	first, err := engine.SaveTrade(ctx, openTrade("alice"))
	require.NoError(t, err)
	assert.Empty(t, first.Violations)

	second, err := engine.SaveTrade(ctx, openTrade("alice"))
	require.NoError(t, err)
	require.Len(t, second.Violations, 1)
	assert.Equal(t, "too many open positions", second.Violations[0].Notes)
	detector.AssertExpectations(t)
}

func TestSaveTrade_Invalid(t *testing.T) {
	st := setupStore(t)
	engine, _ := setupEngine(t, st)

	trade := openTrade("alice")
	trade.PositionSize = 0
	_, err := engine.SaveTrade(context.Background(), trade)
	assert.ErrorIs(t, err, models.ErrInvalidTrade)
}

func TestCloseTrade_CracksAndSpillsUnits(t *testing.T) {
	st := setupStore(t)
	engine, clock := setupEngine(t, st)
	ctx := context.Background()

	require.NoError(t, engine.SetGoal(ctx, &models.UserGoal{
		UserID: "alice", StartingCapital: 1000, TargetPercentPerUnit: 8, TotalUnits: 10, MaxLossPercent: 5,
	}))

	winner, err := engine.SaveTrade(ctx, openTrade("alice"))
	require.NoError(t, err)
	clock.Advance(time.Hour)

	// +170 → 1170, past 1000 × 1.08² = 1166.4
	res, err := engine.CloseTrade(ctx, "alice", winner.Trade.ID, 270, time.Time{})
	require.NoError(t, err)
	assert.InDelta(t, 170, res.PnL, 1e-9)
	assert.Equal(t, 2, res.UnitsGained)
	assert.False(t, res.MaxLossBreached)
	require.NotNil(t, res.Goal)
	assert.InDelta(t, 1170, res.Goal.CurrentCapital, 1e-9)
	assert.Equal(t, 8, res.Goal.UnitsRemaining)
	assert.Equal(t, testDay.Add(time.Hour), *res.Trade.ExitTime)

	progress, err := st.GetProgress(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, progress.UnitsCracked)
	// 2 × 50 unit bonus + 50 for first_unit
	assert.Equal(t, 150, progress.Experience)

	feed, err := engine.Notifications(ctx, "alice", false)
	require.NoError(t, err)
	unitNotes := 0
	for _, n := range feed {
		if n.Kind == models.NotificationUnit {
			unitNotes++
		}
	}
	assert.Equal(t, 2, unitNotes)

	loser, err := engine.SaveTrade(ctx, openTrade("alice"))
	require.NoError(t, err)
	// -70 → 1100, back to one unit and 5.98% of 1170 lost
	res, err = engine.CloseTrade(ctx, "alice", loser.Trade.ID, 30, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.UnitsSpilled)
	assert.True(t, res.MaxLossBreached)

	progress, err = st.GetProgress(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.UnitsSpilled)
	assert.Equal(t, 2, progress.UnitsCracked)

	goal, err := engine.Goal(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, goal.Goal.UnitsCracked)
	assert.Equal(t, 2, goal.Goal.UnitsAwarded)
	assert.InDelta(t, 1166.4, goal.NextUnitCapital, 1e-6)

	// +70 → 1170 climbs back over unit 2 without a second reward
	recovery, err := engine.SaveTrade(ctx, openTrade("alice"))
	require.NoError(t, err)
	res, err = engine.CloseTrade(ctx, "alice", recovery.Trade.ID, 170, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, res.UnitsGained)
	assert.Zero(t, res.UnitsSpilled)
	assert.Equal(t, 2, res.Goal.UnitsCracked)

	recovered, err := st.GetProgress(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, progress.Experience, recovered.Experience)
	assert.Equal(t, 2, recovered.UnitsCracked)

	feed, err = engine.Notifications(ctx, "alice", false)
	require.NoError(t, err)
	unitNotes = 0
	for _, n := range feed {
		if n.Kind == models.NotificationUnit {
			unitNotes++
		}
	}
	assert.Equal(t, 2, unitNotes)
}

func TestCloseTrade_Errors(t *testing.T) {
	st := setupStore(t)
	engine, _ := setupEngine(t, st)
	ctx := context.Background()

	saved, err := engine.SaveTrade(ctx, openTrade("alice"))
	require.NoError(t, err)

	_, err = engine.CloseTrade(ctx, "mallory", saved.Trade.ID, 110, time.Time{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = engine.CloseTrade(ctx, "alice", saved.Trade.ID, -1, time.Time{})
	assert.ErrorIs(t, err, models.ErrInvalidTrade)

	res, err := engine.CloseTrade(ctx, "alice", saved.Trade.ID, 110, time.Time{})
	require.NoError(t, err)
	assert.Nil(t, res.Goal)
	assert.InDelta(t, 10, res.PnL, 1e-9)

	_, err = engine.CloseTrade(ctx, "alice", saved.Trade.ID, 120, time.Time{})
	assert.ErrorIs(t, err, ErrTradeClosed)
}

func TestSaveTrade_AlreadyClosedUpdatesGoal(t *testing.T) {
	st := setupStore(t)
	engine, _ := setupEngine(t, st)
	ctx := context.Background()

	require.NoError(t, engine.SetGoal(ctx, &models.UserGoal{
		UserID: "alice", StartingCapital: 1000, TargetPercentPerUnit: 8, TotalUnits: 10,
	}))

	exit := testDay.Add(-time.Hour)
	trade := openTrade("alice")
	trade.EntryTime = testDay.Add(-2 * time.Hour)
	trade.Status = models.TradeStatusClosed
	trade.ExitPrice = ptr(180)
	trade.ExitTime = &exit

	res, err := engine.SaveTrade(ctx, trade)
	require.NoError(t, err)
	require.NotNil(t, res.Close)
	assert.Equal(t, 1, res.Close.UnitsGained)
}
