package model

import (
	"time"
)

type TradeSide string

const (
	TradeBuy  TradeSide = "BUY"
	TradeSell TradeSide = "SELL"
)

type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// Trade is a single all-or-nothing margin reservation against one account.
// MarginAmount is the capital reserved, not a lot size. A trade transitions
// OPEN -> CLOSED exactly once and is immutable afterwards.
type Trade struct {
	ID        string `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`

	Symbol       string    `json:"symbol" db:"symbol"`
	Side         TradeSide `json:"side" db:"side"`
	EntryPrice   float64   `json:"entry_price" db:"entry_price"`
	ExitPrice    *float64  `json:"exit_price,omitempty" db:"exit_price"`
	MarginAmount float64   `json:"margin_amount" db:"margin_amount"`
	Leverage     float64   `json:"leverage" db:"leverage"`

	// Advisory levels only, the engine does not auto-trigger them.
	StopLoss   *float64 `json:"stop_loss,omitempty" db:"stop_loss"`
	TakeProfit *float64 `json:"take_profit,omitempty" db:"take_profit"`

	Status   TradeStatus `json:"status" db:"status"`
	PnL      *float64    `json:"pnl,omitempty" db:"pnl"`
	OpenedAt time.Time   `json:"opened_at" db:"opened_at"`
	ClosedAt *time.Time  `json:"closed_at,omitempty" db:"closed_at"`
}

// Volume is the tradable unit count backing the position:
// margin * leverage / entry price. The same figure is used for PnL at close.
func (t Trade) Volume() float64 {
	return t.MarginAmount * t.Leverage / t.EntryPrice
}

// UnrealizedPnL marks the open position at the given price.
func (t Trade) UnrealizedPnL(mark float64) float64 {
	if t.Side == TradeSell {
		return (t.EntryPrice - mark) * t.Volume()
	}
	return (mark - t.EntryPrice) * t.Volume()
}
