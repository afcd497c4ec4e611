package journal

import (
	"context"
	"fmt"
	"time"

	"discipline-journal-go/internal/models"
	"discipline-journal-go/internal/store"
	"github.com/shopspring/decimal"
)

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	TotalTrades      int64   `json:"total_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
}

// Statistics summarises closed trades over the last 24 hours and all time.
type Statistics struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

type statsAccumulator struct {
	total, wins int64
	profit      decimal.Decimal
}

func (a *statsAccumulator) add(pnl float64) {
	a.total++
	if pnl > 0 {
		a.wins++
	}
	a.profit = a.profit.Add(decimal.NewFromFloat(pnl))
}

func (a *statsAccumulator) detail() StatsDetail {
	d := StatsDetail{TotalTrades: a.total, ProfitableTrades: a.wins}
	d.TotalProfit, _ = a.profit.Float64()
	if a.total > 0 {
		d.WinRate = float64(a.wins) / float64(a.total)
	}
	return d
}

// Statistics calculates win rate and realised P&L over the user's closed trades.
func (e *Engine) Statistics(ctx context.Context, userID string) (*Statistics, error) {
	trades, err := e.store.ListTrades(ctx, userID, store.TradeFilter{Status: models.TradeStatusClosed})
	if err != nil {
		return nil, fmt.Errorf("failed to get trades for statistics: %w", err)
	}

	since24h := e.now().Add(-24 * time.Hour)
	var day, all statsAccumulator
	for i := range trades {
		pnl, ok := trades[i].PnL()
		if !ok {
			continue
		}
		all.add(pnl)
		if exit := trades[i].ExitTime; exit != nil && exit.After(since24h) {
			day.add(pnl)
		}
	}

	return &Statistics{Since24h: day.detail(), AllTime: all.detail()}, nil
}
