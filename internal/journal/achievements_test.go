package journal

import (
	"context"
	"testing"

	"discipline-journal-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScanAchievements_Idempotent(t *testing.T) {
	st := setupStore(t)
	engine, _ := setupEngine(t, st)
	ctx := context.Background()

	unlocked, err := engine.ScanAchievements(ctx, "alice", Stats{CheckIns: 1, Level: 1})
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_check_in", unlocked[0].Code)

	again, err := engine.ScanAchievements(ctx, "alice", Stats{CheckIns: 1, Level: 1})
	require.NoError(t, err)
	assert.Empty(t, again)

	owned, err := st.ListUserAchievements(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	p, err := st.GetProgress(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Experience)
	assert.InDelta(t, 1.0, p.AchievementBonus, 1e-9)
}

func TestScanAchievements_BonusIsProductOfUnlocks(t *testing.T) {
	st := setupStore(t)
	engine, _ := setupEngine(t, st)
	ctx := context.Background()

	unlocked, err := engine.ScanAchievements(ctx, "alice", Stats{Streak: 7, Level: 5})
	require.NoError(t, err)
	assert.Len(t, unlocked, 2)

	// a later unlock folds into the existing bonus
	_, err = engine.ScanAchievements(ctx, "alice", Stats{Streak: 7, Level: 5, Units: 1})
	require.NoError(t, err)

	p, err := st.GetProgress(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 1.05*1.05*1.05, p.AchievementBonus, 1e-9)
	assert.Equal(t, 50+0+50, p.Experience)
}

func TestScanAchievements_UnknownRequirementNeverUnlocks(t *testing.T) {
	assert.False(t, func() bool {
		_, ok := Stats{CheckIns: 100}.value(models.RequirementType("mystery"))
		return ok
	}())

	for _, rt := range []models.RequirementType{
		models.RequirementCheckIns, models.RequirementStreak, models.RequirementLevel,
		models.RequirementUnits, models.RequirementDiscipline, models.RequirementRules,
		models.RequirementJournal,
	} {
		_, ok := Stats{}.value(rt)
		assert.True(t, ok, string(rt))
	}
}

func TestScanAchievements_Notifies(t *testing.T) {
	st := setupStore(t)
	notifier := new(MockNotifier)
	engine, _ := setupEngine(t, st, WithNotifier(notifier))

	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *models.Notification) bool {
		return n.Kind == models.NotificationAchievement && n.UserID == "alice"
	})).Return(nil).Once()

	_, err := engine.ScanAchievements(context.Background(), "alice", Stats{Units: 1})
	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestAchievements_Statuses(t *testing.T) {
	st := setupStore(t)
	engine, _ := setupEngine(t, st)
	ctx := context.Background()

	_, err := engine.ScanAchievements(ctx, "alice", Stats{CheckIns: 1})
	require.NoError(t, err)

	statuses, err := engine.Achievements(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, statuses)

	unlocked := 0
	for _, s := range statuses {
		if s.Unlocked {
			unlocked++
			assert.Equal(t, "first_check_in", s.Code)
			assert.NotNil(t, s.UnlockedAt)
		}
	}
	assert.Equal(t, 1, unlocked)
}

func TestSummary_GrowthMultiplier(t *testing.T) {
	st := setupStore(t)
	engine, _ := setupEngine(t, st)
	ctx := context.Background()

	p := models.NewUserProgress("alice")
	p.Streak = 7
	seedProgress(t, st, p)

	summary, err := engine.Summary(ctx, "alice")
	require.NoError(t, err)
	// streak 7 → 1.25, level 1 → 1.05, no achievements
	assert.InDelta(t, 1.25*1.05, summary.GrowthMultiplier, 1e-9)
	assert.Equal(t, 1, summary.Level.Level)
}
