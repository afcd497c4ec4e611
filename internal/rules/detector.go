// Package rules inspects trades against users' free-text trading rules.
//
// Matching is keyword based: a rule whose wording none of the heuristics
// recognise never produces a violation.
package rules

import (
	"strings"
	"time"

	"discipline-journal-go/internal/models"
)

// Violation is a rule broken by a trade together with a human-readable reason.
type Violation struct {
	Rule   models.TradingRule
	Reason string
}

// Context carries the account state a trade is judged against.
type Context struct {
	// AccountCapital is the current capital of the active goal, 0 without one.
	AccountCapital float64
	// OpenTrades counts the user's other open trades.
	OpenTrades int
	// RecentClosed holds the user's latest closed trades, most recent first.
	RecentClosed []models.Trade
}

// Detector evaluates one trade against a user's active rules.
type Detector interface {
	Check(trade *models.Trade, activeRules []models.TradingRule, ctx Context) []Violation
}

// HeuristicDetector matches rule wording to a fixed, ordered list of checks.
// The first heuristic whose keywords match a rule decides that rule.
type HeuristicDetector struct {
	heuristics []heuristic
}

// ensure HeuristicDetector implements the interface
var _ Detector = (*HeuristicDetector)(nil)

// NewHeuristicDetector builds the detector. market is the exchange's time zone
// and revengeWindow the gap after a loss within which a new entry counts as
// revenge trading.
func NewHeuristicDetector(market *MarketClock, revengeWindow time.Duration) *HeuristicDetector {
	return &HeuristicDetector{heuristics: defaultHeuristics(market, revengeWindow)}
}

// Check returns at most one violation per rule.
func (d *HeuristicDetector) Check(trade *models.Trade, activeRules []models.TradingRule, ctx Context) []Violation {
	var violations []Violation
	for _, rule := range activeRules {
		if !rule.IsActive {
			continue
		}
		text := strings.ToLower(rule.RuleText)
		h := d.heuristicFor(text)
		if h == nil {
			continue
		}
		if reason, violated := h.check(text, trade, ctx); violated {
			violations = append(violations, Violation{Rule: rule, Reason: reason})
		}
	}
	return violations
}

// heuristicFor returns the heuristic deciding a lower-cased rule text, or nil.
func (d *HeuristicDetector) heuristicFor(text string) *heuristic {
	for i := range d.heuristics {
		if d.heuristics[i].matches(text) {
			return &d.heuristics[i]
		}
	}
	return nil
}
