package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"discipline-journal-go/internal/models"
	"discipline-journal-go/internal/progression"
	"discipline-journal-go/internal/store"
	"go.uber.org/zap"
)

const (
	checkInBaseXP       = 10
	checkInStreakXP     = 2
	checkInRatingXP     = 5
	maxDisciplineRating = 10
)

// CheckInRequest is the user's self-assessment for the day.
type CheckInRequest struct {
	DisciplineRating int  `json:"discipline_rating"`
	FollowedRules    bool `json:"followed_rules"`
}

// CheckInResult reports what a check-in changed.
type CheckInResult struct {
	CheckIn          models.DailyCheckIn  `json:"check_in"`
	Progress         models.UserProgress  `json:"progress"`
	XPEarned         int                  `json:"xp_earned"`
	StreakBefore     int                  `json:"streak_before"`
	StreakAfter      int                  `json:"streak_after"`
	MultiplierBefore float64              `json:"multiplier_before"`
	MultiplierAfter  float64              `json:"multiplier_after"`
	LeveledUp        bool                 `json:"leveled_up"`
	Unlocked         []models.Achievement `json:"unlocked"`
}

// CheckIn records the daily check-in, advancing streak, XP, level and the
// running discipline score, then scans for newly earned achievements.
func (e *Engine) CheckIn(ctx context.Context, userID string, req CheckInRequest) (*CheckInResult, error) {
	if req.DisciplineRating < 0 || req.DisciplineRating > maxDisciplineRating {
		return nil, fmt.Errorf("rating %d: %w", req.DisciplineRating, ErrInvalidRating)
	}

	l := e.logger.With(zap.String("user_id", userID))
	today := e.today()

	if _, err := e.store.GetCheckIn(ctx, userID, today); err == nil {
		return nil, ErrAlreadyCheckedIn
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up today's check-in: %w", err)
	}

	result := &CheckInResult{}
	progress, err := e.mutateProgress(ctx, userID, func(p *models.UserProgress) error {
		// re-checked here so two racing check-ins cannot both apply
		if p.LastCheckInDate == today {
			return ErrAlreadyCheckedIn
		}

		before := p.Streak
		after := nextStreak(p.LastCheckInDate, today, before)
		xp := checkInBaseXP + before*checkInStreakXP + req.DisciplineRating*checkInRatingXP

		multBefore, err := progression.StreakMultiplier(before)
		if err != nil {
			return err
		}
		multAfter, err := progression.StreakMultiplier(after)
		if err != nil {
			return err
		}

		p.DisciplineScore = (p.DisciplineScore*float64(p.TotalCheckIns) + float64(req.DisciplineRating)) /
			float64(p.TotalCheckIns+1)
		p.TotalCheckIns++
		p.Streak = after
		if after > p.LongestStreak {
			p.LongestStreak = after
		}
		p.LastCheckInDate = today
		p.StreakMultiplier = multAfter

		*result = CheckInResult{
			XPEarned:         xp,
			StreakBefore:     before,
			StreakAfter:      after,
			MultiplierBefore: multBefore,
			MultiplierAfter:  multAfter,
			LeveledUp:        applyXP(p, xp),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	checkIn := models.DailyCheckIn{
		UserID:           userID,
		CheckInDate:      today,
		DisciplineRating: req.DisciplineRating,
		FollowedRules:    req.FollowedRules,
		XPEarned:         result.XPEarned,
		StreakAtTime:     result.StreakAfter,
		CreatedAt:        e.now(),
	}
	if err := e.store.CreateCheckIn(ctx, &checkIn); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}
	result.CheckIn = checkIn
	result.Progress = *progress

	l.Info("Check-in recorded",
		zap.String("date", today),
		zap.Int("xp_earned", result.XPEarned),
		zap.Int("streak", result.StreakAfter),
		zap.Int("level", progress.Level))

	if result.LeveledUp {
		e.notify(ctx, userID, models.NotificationLevelUp, "Level up!", "You reached level %d.", progress.Level)
	}

	stats, err := e.statsFor(ctx, progress)
	if err != nil {
		l.Error("Failed to gather achievement stats", zap.Error(err))
		return result, nil
	}
	unlocked, err := e.ScanAchievements(ctx, userID, stats)
	if err != nil {
		l.Error("Achievement scan failed", zap.Error(err))
	}
	result.Unlocked = unlocked
	if len(unlocked) > 0 {
		if latest, err := e.store.GetProgress(ctx, userID); err == nil {
			result.Progress = *latest
		}
	}
	return result, nil
}

// nextStreak returns the streak after checking in on today, given the last
// check-in day. Days are YYYY-MM-DD; an unknown or unparsable last day resets.
func nextStreak(last, today string, streak int) int {
	if last == "" {
		return 1
	}
	lastDay, err := time.Parse(models.CheckInDateLayout, last)
	if err != nil {
		return 1
	}
	day, err := time.Parse(models.CheckInDateLayout, today)
	if err != nil {
		return 1
	}

	switch int(day.Sub(lastDay).Hours() / 24) {
	case 0:
		if streak < 1 {
			return 1
		}
		return streak
	case 1:
		return streak + 1
	default:
		return 1
	}
}
