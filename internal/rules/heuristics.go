package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"discipline-journal-go/internal/models"
)

const (
	maxRiskFraction    = 0.02
	minRewardRiskRatio = 3.0
)

var integerPattern = regexp.MustCompile(`\d+`)

type heuristic struct {
	name    string
	matches func(text string) bool
	check   func(text string, trade *models.Trade, ctx Context) (reason string, violated bool)
}

func containsAll(text string, words ...string) bool {
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// closedAt is when a closed trade was exited, falling back to its entry.
func closedAt(t *models.Trade) time.Time {
	if t.ExitTime != nil && !t.ExitTime.IsZero() {
		return *t.ExitTime
	}
	return t.EffectiveEntryTime()
}

func defaultHeuristics(market *MarketClock, revengeWindow time.Duration) []heuristic {
	return []heuristic{
		{
			name:    "risk_percent",
			matches: func(text string) bool { return containsAll(text, "risk", "2%") },
			check: func(_ string, trade *models.Trade, ctx Context) (string, bool) {
				risk, ok := trade.RiskAmount()
				if !ok || ctx.AccountCapital <= 0 {
					return "", false
				}
				limit := ctx.AccountCapital * maxRiskFraction
				if risk > limit {
					return fmt.Sprintf("risked %.2f, above 2%% of account capital (%.2f)", risk, limit), true
				}
				return "", false
			},
		},
		{
			name:    "stop_loss_required",
			matches: func(text string) bool { return containsAll(text, "stop loss", "always") },
			check: func(_ string, trade *models.Trade, _ Context) (string, bool) {
				if !trade.HasStopLoss() {
					return "no stop loss set", true
				}
				return "", false
			},
		},
		{
			name:    "max_open_positions",
			matches: func(text string) bool { return containsAll(text, "maximum", "open positions") },
			check: func(text string, _ *models.Trade, ctx Context) (string, bool) {
				raw := integerPattern.FindString(text)
				if raw == "" {
					return "", false
				}
				limit, err := strconv.Atoi(raw)
				if err != nil {
					return "", false
				}
				if ctx.OpenTrades >= limit {
					return fmt.Sprintf("%d positions already open, limit is %d", ctx.OpenTrades, limit), true
				}
				return "", false
			},
		},
		{
			name:    "market_hours",
			matches: func(text string) bool { return containsAny(text, "market hours", "9:30") },
			check: func(_ string, trade *models.Trade, _ Context) (string, bool) {
				at := trade.EffectiveEntryTime()
				if at.IsZero() || market.InSession(at) {
					return "", false
				}
				return fmt.Sprintf("entry at %s ET is outside market hours (09:30-16:00)", market.Local(at).Format("15:04")), true
			},
		},
		{
			name: "opening_closing_minutes",
			matches: func(text string) bool {
				return strings.Contains(text, "15 min") ||
					(strings.Contains(text, "minute") && containsAny(text, "first", "last"))
			},
			check: func(_ string, trade *models.Trade, _ Context) (string, bool) {
				at := trade.EffectiveEntryTime()
				if at.IsZero() || !market.InOpeningOrClosingWindow(at) {
					return "", false
				}
				return fmt.Sprintf("entry at %s ET falls in the first or last 15 minutes of the session", market.Local(at).Format("15:04")), true
			},
		},
		{
			name: "reward_risk_ratio",
			matches: func(text string) bool {
				return strings.Contains(text, "3:1") || containsAll(text, "reward", "risk")
			},
			check: func(_ string, trade *models.Trade, _ Context) (string, bool) {
				ratio, ok := trade.RewardRisk()
				if !ok {
					return "", false
				}
				if ratio < minRewardRiskRatio {
					return fmt.Sprintf("reward:risk of %.2f is below 3:1", ratio), true
				}
				return "", false
			},
		},
		{
			name: "revenge_trading",
			matches: func(text string) bool {
				return strings.Contains(text, "revenge") || containsAll(text, "after", "loss")
			},
			check: func(_ string, trade *models.Trade, ctx Context) (string, bool) {
				if len(ctx.RecentClosed) == 0 {
					return "", false
				}
				prev := &ctx.RecentClosed[0]
				if !prev.IsLoss() {
					return "", false
				}
				gap := trade.EffectiveEntryTime().Sub(closedAt(prev))
				if gap >= 0 && gap <= revengeWindow {
					return fmt.Sprintf("entered %s after a losing trade", gap.Round(time.Minute)), true
				}
				return "", false
			},
		},
		{
			name:    "break_after_losses",
			matches: func(text string) bool { return containsAll(text, "break", "2", "loss") },
			check: func(_ string, _ *models.Trade, ctx Context) (string, bool) {
				if len(ctx.RecentClosed) < 2 {
					return "", false
				}
				if ctx.RecentClosed[0].IsLoss() && ctx.RecentClosed[1].IsLoss() {
					return "traded again after 2 consecutive losses without a break", true
				}
				return "", false
			},
		},
	}
}
