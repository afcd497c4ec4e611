package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"discipline-journal-go/internal/models"
	"discipline-journal-go/internal/progression"
	"discipline-journal-go/internal/store"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const definitionsCacheKey = "achievement_definitions"

// Stats are the aggregate values achievement thresholds are tested against.
type Stats struct {
	CheckIns        int
	Streak          int
	Level           int
	Units           int
	DisciplineScore float64
	JournaledTrades int
}

// value returns the statistic a requirement type measures. Unknown types
// report false and never unlock.
func (s Stats) value(t models.RequirementType) (float64, bool) {
	switch t {
	case models.RequirementCheckIns:
		return float64(s.CheckIns), true
	case models.RequirementStreak:
		return float64(s.Streak), true
	case models.RequirementLevel:
		return float64(s.Level), true
	case models.RequirementUnits:
		return float64(s.Units), true
	case models.RequirementDiscipline, models.RequirementRules:
		return s.DisciplineScore, true
	case models.RequirementJournal:
		return float64(s.JournaledTrades), true
	default:
		return 0, false
	}
}

// AchievementStatus is a definition with the user's unlock state.
type AchievementStatus struct {
	models.Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// ScanAchievements unlocks every definition whose threshold stats meet and
// that the user does not have yet. Each unlock awards its XP reward and the
// achievement bonus is recomputed over all unlocks. Running it again with the
// same stats unlocks nothing.
func (e *Engine) ScanAchievements(ctx context.Context, userID string, stats Stats) ([]models.Achievement, error) {
	defs, err := e.achievementDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := e.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocked achievements: %w", err)
	}
	have := make(map[uint]bool, len(owned))
	for _, ua := range owned {
		have[ua.AchievementID] = true
	}

	var unlocked []models.Achievement
	rewardXP := 0
	for _, def := range defs {
		if have[def.ID] {
			continue
		}
		v, ok := stats.value(def.RequirementType)
		if !ok || v < def.RequirementValue {
			continue
		}

		ua := models.UserAchievement{UserID: userID, AchievementID: def.ID, UnlockedAt: e.now()}
		if err := e.store.CreateUserAchievement(ctx, &ua); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				have[def.ID] = true
				continue
			}
			return unlocked, fmt.Errorf("failed to unlock %s: %w", def.Code, err)
		}
		have[def.ID] = true
		unlocked = append(unlocked, def)
		rewardXP += def.XPReward
	}
	if len(unlocked) == 0 {
		return nil, nil
	}

	var multipliers []float64
	for _, def := range defs {
		if have[def.ID] {
			multipliers = append(multipliers, def.BonusMultiplier)
		}
	}
	bonus, err := progression.AchievementBonus(multipliers)
	if err != nil {
		return unlocked, fmt.Errorf("could not compute achievement bonus: %w", err)
	}

	leveledUp := false
	progress, err := e.mutateProgress(ctx, userID, func(p *models.UserProgress) error {
		p.AchievementBonus = bonus
		leveledUp = applyXP(p, rewardXP)
		return nil
	})
	if err != nil {
		return unlocked, err
	}

	for _, def := range unlocked {
		e.logger.Info("Achievement unlocked", zap.String("user_id", userID), zap.String("code", def.Code))
		e.notify(ctx, userID, models.NotificationAchievement, "Achievement unlocked", "%s: %s", def.Name, def.Description)
	}
	if leveledUp {
		e.notify(ctx, userID, models.NotificationLevelUp, "Level up!", "You reached level %d.", progress.Level)
	}
	return unlocked, nil
}

// Achievements lists every definition with the user's unlock state.
func (e *Engine) Achievements(ctx context.Context, userID string) ([]AchievementStatus, error) {
	defs, err := e.achievementDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := e.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocked achievements: %w", err)
	}
	unlockedAt := make(map[uint]time.Time, len(owned))
	for _, ua := range owned {
		unlockedAt[ua.AchievementID] = ua.UnlockedAt
	}

	statuses := make([]AchievementStatus, 0, len(defs))
	for _, def := range defs {
		status := AchievementStatus{Achievement: def}
		if at, ok := unlockedAt[def.ID]; ok {
			at := at
			status.Unlocked = true
			status.UnlockedAt = &at
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// achievementDefinitions serves the definition table from cache.
func (e *Engine) achievementDefinitions(ctx context.Context) ([]models.Achievement, error) {
	if cached, ok := e.definitions.Get(definitionsCacheKey); ok {
		return cached.([]models.Achievement), nil
	}
	defs, err := e.store.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement definitions: %w", err)
	}
	e.definitions.Set(definitionsCacheKey, defs, cache.DefaultExpiration)
	return defs, nil
}

func (e *Engine) unlockedMultipliers(ctx context.Context, userID string) ([]float64, error) {
	defs, err := e.achievementDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := e.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocked achievements: %w", err)
	}
	byID := make(map[uint]float64, len(defs))
	for _, def := range defs {
		byID[def.ID] = def.BonusMultiplier
	}
	multipliers := make([]float64, 0, len(owned))
	for _, ua := range owned {
		if m, ok := byID[ua.AchievementID]; ok {
			multipliers = append(multipliers, m)
		}
	}
	return multipliers, nil
}

// statsFor collects achievement stats from a progress snapshot and the
// user's trade journal.
func (e *Engine) statsFor(ctx context.Context, p *models.UserProgress) (Stats, error) {
	trades, err := e.store.ListTrades(ctx, p.UserID, store.TradeFilter{})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to list trades: %w", err)
	}
	journaled := 0
	for i := range trades {
		if trades[i].IsJournaled() {
			journaled++
		}
	}
	return Stats{
		CheckIns:        p.TotalCheckIns,
		Streak:          p.Streak,
		Level:           p.Level,
		Units:           p.UnitsCracked,
		DisciplineScore: p.DisciplineScore,
		JournaledTrades: journaled,
	}, nil
}
