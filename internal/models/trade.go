package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidTrade is returned when a trade fails boundary validation.
var ErrInvalidTrade = errors.New("invalid trade")

// TradeType is the instrument class of a trade.
type TradeType string

const (
	TradeTypeStock TradeType = "stock"
	TradeTypeCall  TradeType = "call"
	TradeTypePut   TradeType = "put"
)

// Direction is the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

const (
	// OptionContractSize is the number of shares one option contract controls.
	OptionContractSize = 100
	// MinJournalNoteLength is the shortest note that counts as a journal entry.
	MinJournalNoteLength = 10
)

// Trade represents a journaled trade.
type Trade struct {
	ID           uint        `gorm:"primaryKey" json:"id,omitempty"`
	UserID       string      `gorm:"index;not null" json:"user_id"`
	Symbol       string      `gorm:"not null" json:"symbol"`
	TradeType    TradeType   `gorm:"not null" json:"trade_type"`
	Direction    Direction   `gorm:"not null" json:"direction"`
	EntryPrice   float64     `gorm:"not null" json:"entry_price"`
	ExitPrice    *float64    `json:"exit_price,omitempty"`
	StopLoss     *float64    `json:"stop_loss,omitempty"`
	TargetPrice  *float64    `json:"target_price,omitempty"`
	PositionSize float64     `gorm:"not null" json:"position_size"`
	Status       TradeStatus `gorm:"index;not null" json:"status"`
	Notes        string      `json:"notes,omitempty"`
	Emotions     []string    `gorm:"serializer:json" json:"emotions"`
	EntryTime    time.Time   `json:"entry_time"`
	ExitTime     *time.Time  `json:"exit_time,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Validate checks field domains and the exit-price/status invariant.
func (t *Trade) Validate() error {
	switch {
	case t.UserID == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidTrade)
	case strings.TrimSpace(t.Symbol) == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidTrade)
	case t.EntryPrice <= 0:
		return fmt.Errorf("%w: entry price must be positive", ErrInvalidTrade)
	case t.PositionSize <= 0:
		return fmt.Errorf("%w: position size must be positive", ErrInvalidTrade)
	}

	switch t.TradeType {
	case TradeTypeStock, TradeTypeCall, TradeTypePut:
	default:
		return fmt.Errorf("%w: unknown trade type %q", ErrInvalidTrade, t.TradeType)
	}
	switch t.Direction {
	case DirectionLong, DirectionShort:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidTrade, t.Direction)
	}

	switch t.Status {
	case TradeStatusOpen:
		if t.ExitPrice != nil {
			return fmt.Errorf("%w: open trade cannot have an exit price", ErrInvalidTrade)
		}
	case TradeStatusClosed:
		if t.ExitPrice == nil {
			return fmt.Errorf("%w: closed trade requires an exit price", ErrInvalidTrade)
		}
		if *t.ExitPrice <= 0 {
			return fmt.Errorf("%w: exit price must be positive", ErrInvalidTrade)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTrade, t.Status)
	}

	if t.StopLoss != nil && *t.StopLoss < 0 {
		return fmt.Errorf("%w: stop loss cannot be negative", ErrInvalidTrade)
	}
	if t.TargetPrice != nil && *t.TargetPrice < 0 {
		return fmt.Errorf("%w: target price cannot be negative", ErrInvalidTrade)
	}
	return nil
}

// ContractMultiplier is 100 for options and 1 for stock.
func (t *Trade) ContractMultiplier() int64 {
	if t.TradeType == TradeTypeCall || t.TradeType == TradeTypePut {
		return OptionContractSize
	}
	return 1
}

// PnL returns the realized profit or loss. ok is false while the trade has no exit price.
func (t *Trade) PnL() (pnl float64, ok bool) {
	if t.ExitPrice == nil {
		return 0, false
	}
	diff := decimal.NewFromFloat(*t.ExitPrice).Sub(decimal.NewFromFloat(t.EntryPrice))
	d := diff.Mul(decimal.NewFromFloat(t.PositionSize)).Mul(decimal.NewFromInt(t.ContractMultiplier()))
	if t.Direction == DirectionShort {
		d = d.Neg()
	}
	pnl, _ = d.Float64()
	return pnl, true
}

// IsLoss reports whether the trade closed with a negative P&L.
func (t *Trade) IsLoss() bool {
	pnl, ok := t.PnL()
	return ok && pnl < 0
}

// HasStopLoss reports whether a non-zero stop loss is set.
func (t *Trade) HasStopLoss() bool {
	return t.StopLoss != nil && *t.StopLoss != 0
}

// HasTarget reports whether a non-zero target price is set.
func (t *Trade) HasTarget() bool {
	return t.TargetPrice != nil && *t.TargetPrice != 0
}

// RiskAmount is |entry - stop| × size. ok is false without a stop loss.
func (t *Trade) RiskAmount() (risk float64, ok bool) {
	if !t.HasStopLoss() {
		return 0, false
	}
	d := decimal.NewFromFloat(t.EntryPrice).Sub(decimal.NewFromFloat(*t.StopLoss)).Abs()
	risk, _ = d.Mul(decimal.NewFromFloat(t.PositionSize)).Float64()
	return risk, true
}

// RewardRisk is |target - entry| / |entry - stop|. ok is false when either
// level is missing or the stop sits on the entry price.
func (t *Trade) RewardRisk() (ratio float64, ok bool) {
	if !t.HasStopLoss() || !t.HasTarget() {
		return 0, false
	}
	entry := decimal.NewFromFloat(t.EntryPrice)
	risk := entry.Sub(decimal.NewFromFloat(*t.StopLoss)).Abs()
	if risk.IsZero() {
		return 0, false
	}
	reward := decimal.NewFromFloat(*t.TargetPrice).Sub(entry).Abs()
	ratio, _ = reward.Div(risk).Float64()
	return ratio, true
}

// EffectiveEntryTime is the explicit entry time, falling back to the creation time.
func (t *Trade) EffectiveEntryTime() time.Time {
	if !t.EntryTime.IsZero() {
		return t.EntryTime
	}
	return t.CreatedAt
}

// IsJournaled reports whether the trade carries a meaningful note.
func (t *Trade) IsJournaled() bool {
	return len(strings.TrimSpace(t.Notes)) >= MinJournalNoteLength
}
