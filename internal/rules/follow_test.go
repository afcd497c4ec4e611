package rules

import (
	"testing"

	"discipline-journal-go/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFollowed(t *testing.T) {
	rules := []models.TradingRule{
		rule(1, "Always use stop loss orders"),
		rule(2, "Journal every trade with notes"),
		rule(3, "Minimum 2:1 setups"),
		rule(4, "Only take 3:1 reward to risk"),
		rule(5, "Only trade during market hours"),
	}

	trade := baseTrade()
	trade.StopLoss = ptr(95)
	trade.TargetPrice = ptr(110) // 2:1
	trade.Notes = "Breakout above VWAP, volume confirmed"

	followed := FollowDetector{}.Followed(&trade, rules)

	ids := make([]uint, 0, len(followed))
	for _, r := range followed {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []uint{1, 2, 3}, ids)
}

func TestFollowed_IndependentOfViolations(t *testing.T) {
	d := newTestDetector(t)
	r := []models.TradingRule{rule(1, "Always use a stop loss and a 3:1 reward to risk")}

	trade := baseTrade()
	trade.StopLoss = ptr(95)
	trade.TargetPrice = ptr(105) // 1:1

	assert.Len(t, FollowDetector{}.Followed(&trade, r), 1)
	assert.Empty(t, d.Check(&trade, r, Context{}), "stop-loss heuristic decides this rule")
}

func TestFollowed_ShortNotes(t *testing.T) {
	trade := baseTrade()
	trade.Notes = "  meh   "
	assert.Empty(t, FollowDetector{}.Followed(&trade, []models.TradingRule{rule(1, "Write journal notes")}))
}
