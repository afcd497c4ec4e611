// Package onboarding walks a new user through choosing rules and a goal
// before anything is written to the store.
package onboarding

import (
	"strings"
	"time"

	"discipline-journal-go/internal/models"
)

// Step is a stage of the onboarding flow.
type Step string

const (
	StepRules    Step = "rules"
	StepGoal     Step = "goal"
	StepComplete Step = "complete"
)

// RuleTemplate is a suggested rule offered during onboarding.
type RuleTemplate struct {
	Text     string `json:"rule_text"`
	Category string `json:"category"`
}

const customCategory = "custom"

// DefaultRules are the suggested rules, each worded so exactly the intended
// detector heuristic decides it. The journaling rule is only ever followed.
var DefaultRules = []RuleTemplate{
	{Text: "Always use a stop loss", Category: "risk"},
	{Text: "Never risk more than 2% of my account on a single trade", Category: "risk"},
	{Text: "Maximum 3 open positions at a time", Category: "risk"},
	{Text: "Only trade during market hours (9:30 AM - 4:00 PM ET)", Category: "timing"},
	{Text: "Avoid the first and last 15 minutes of the session", Category: "timing"},
	{Text: "Only take trades with at least a 3:1 reward to risk ratio", Category: "strategy"},
	{Text: "No revenge trading after a loss", Category: "psychology"},
	{Text: "Take a break following 2 losses in a row", Category: "psychology"},
	{Text: "Journal every trade with notes", Category: "process"},
}

func templateFor(text string) RuleTemplate {
	for _, t := range DefaultRules {
		if strings.EqualFold(t.Text, text) {
			return t
		}
	}
	return RuleTemplate{Text: text, Category: customCategory}
}

// GoalInput is the compounding goal chosen during onboarding.
type GoalInput struct {
	StartingCapital      float64 `json:"starting_capital"`
	TargetPercentPerUnit float64 `json:"target_percent_per_unit"`
	TotalUnits           int     `json:"total_units"`
	MaxLossPercent       float64 `json:"max_loss_percent"`
}

func (g GoalInput) toGoal(userID string) models.UserGoal {
	return models.UserGoal{
		UserID:               userID,
		StartingCapital:      g.StartingCapital,
		CurrentCapital:       g.StartingCapital,
		TargetPercentPerUnit: g.TargetPercentPerUnit,
		TotalUnits:           g.TotalUnits,
		MaxLossPercent:       g.MaxLossPercent,
	}
}

// Session is one user's in-progress onboarding. It lives only in memory
// until completed or cancelled.
type Session struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Step          Step           `json:"step"`
	SelectedRules []RuleTemplate `json:"selected_rules"`
	Goal          *GoalInput     `json:"goal,omitempty"`
	StartedAt     time.Time      `json:"started_at"`

	// set while Complete is writing
	provisioning bool
	// rows already written by an earlier, failed Complete
	createdRules []models.TradingRule
	createdGoal  *models.UserGoal
}
