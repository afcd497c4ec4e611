package rules

import (
	"strings"

	"discipline-journal-go/internal/models"
)

// FollowDetector finds rules a trade positively honours. It runs independently
// of violation detection, so a rule may be both followed and violated.
type FollowDetector struct{}

// Followed returns the active rules the trade satisfies, each at most once.
func (FollowDetector) Followed(trade *models.Trade, activeRules []models.TradingRule) []models.TradingRule {
	ratio, hasRatio := trade.RewardRisk()

	var followed []models.TradingRule
	for _, rule := range activeRules {
		if !rule.IsActive {
			continue
		}
		text := strings.ToLower(rule.RuleText)

		ok := false
		if strings.Contains(text, "stop loss") && trade.HasStopLoss() {
			ok = true
		}
		if containsAny(text, "journal", "note") && trade.IsJournaled() {
			ok = true
		}
		if strings.Contains(text, "2:1") && hasRatio && ratio >= 2 {
			ok = true
		}
		if (strings.Contains(text, "3:1") || containsAll(text, "reward", "risk")) && hasRatio && ratio >= 3 {
			ok = true
		}

		if ok {
			followed = append(followed, rule)
		}
	}
	return followed
}
