package journal

import (
	"context"
	"testing"

	"discipline-journal-go/internal/models"
	"discipline-journal-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGoal(t *testing.T) {
	st := setupStore(t)
	engine, _ := setupEngine(t, st)
	ctx := context.Background()

	_, err := engine.Goal(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)

	first := &models.UserGoal{UserID: "alice", StartingCapital: 1000, TargetPercentPerUnit: 8, TotalUnits: 10}
	require.NoError(t, engine.SetGoal(ctx, first))
	assert.InDelta(t, 1000, first.CurrentCapital, 1e-9)
	assert.Equal(t, 10, first.UnitsRemaining)

	// a resumed goal already part-way through
	second := &models.UserGoal{UserID: "alice", StartingCapital: 1000, CurrentCapital: 1080, TargetPercentPerUnit: 8, TotalUnits: 5}
	require.NoError(t, engine.SetGoal(ctx, second))

	status, err := engine.Goal(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, second.ID, status.Goal.ID)
	assert.Equal(t, 1, status.Goal.UnitsCracked)
	assert.Equal(t, 4, status.Goal.UnitsRemaining)
	assert.InDelta(t, 1166.4, status.NextUnitCapital, 1e-6)
	assert.InDelta(t, 0, status.UnitProgress, 1e-6)
}

func TestSetGoal_Invalid(t *testing.T) {
	st := setupStore(t)
	engine, _ := setupEngine(t, st)

	testCases := []struct {
		name string
		goal models.UserGoal
	}{
		{"no capital", models.UserGoal{UserID: "alice", TargetPercentPerUnit: 8, TotalUnits: 10}},
		{"no percent", models.UserGoal{UserID: "alice", StartingCapital: 1000, TotalUnits: 10}},
		{"no units", models.UserGoal{UserID: "alice", StartingCapital: 1000, TargetPercentPerUnit: 8}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			goal := tc.goal
			assert.ErrorIs(t, engine.SetGoal(context.Background(), &goal), models.ErrInvalidGoal)
		})
	}
}
