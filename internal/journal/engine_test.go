package journal

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"discipline-journal-go/internal/config"
	"discipline-journal-go/internal/database"
	"discipline-journal-go/internal/models"
	"discipline-journal-go/internal/rules"
	"discipline-journal-go/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockNotifier is a mock implementation of the Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockDetector is a mock implementation of the rules.Detector interface.
type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Check(trade *models.Trade, activeRules []models.TradingRule, ctx rules.Context) []rules.Violation {
	args := m.Called(trade, activeRules, ctx)
	return args.Get(0).([]rules.Violation)
}

// fakeClock is a settable time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// testDay is noon UTC on 2 May 2024.
var testDay = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Engine: config.Engine{
			Timezone:                   "UTC",
			MarketTimezone:             "America/New_York",
			ViolationPenaltyXP:         10,
			UnitXPBonus:                50,
			ConflictRetries:            3,
			AchievementCacheTTLSeconds: 300,
			RevengeWindowMinutes:       30,
			BaseGrowthMultiplier:       1.0,
		},
	}
}

// setupStore opens a private, migrated and seeded in-memory database.
func setupStore(t *testing.T) *store.GormStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := database.NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return store.NewGormStore(db)
}

// setupEngine creates an engine on st with the heuristic detector and a fake clock at testDay.
func setupEngine(t *testing.T, st store.Store, opts ...Option) (*Engine, *fakeClock) {
	t.Helper()
	cfg := testConfig()
	detector, err := NewDetector(&cfg.Engine)
	require.NoError(t, err)

	clock := &fakeClock{now: testDay}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	engine, err := NewEngine(zap.NewNop(), cfg, st, detector, opts...)
	require.NoError(t, err)
	return engine, clock
}

func seedProgress(t *testing.T, st store.Store, p models.UserProgress) {
	t.Helper()
	require.NoError(t, st.CreateProgress(context.Background(), &p))
}

func TestNewEngine_InvalidTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.Timezone = "Mars/Olympus_Mons"
	_, err := NewEngine(zap.NewNop(), cfg, nil, nil)
	require.Error(t, err)
}
