package model

import (
	"time"
)

type AccountStatus string

const (
	AccountPending  AccountStatus = "pending"
	AccountActive   AccountStatus = "active"
	AccountFailed   AccountStatus = "failed"
	AccountPassed   AccountStatus = "passed"
	AccountDisabled AccountStatus = "disabled"
)

// Terminal reports whether the status absorbs all further transitions.
// The engine never moves an account out of a terminal status.
func (s AccountStatus) Terminal() bool {
	return s == AccountFailed || s == AccountPassed || s == AccountDisabled
}

// Account is one funded challenge instance. Balance tracks realized capital,
// Equity is balance plus unrealized PnL of the account's open trades.
// StartingBalance is fixed at creation, LastDayBalance is the daily-loss baseline.
type Account struct {
	ID        string `json:"id" db:"id"`
	OwnerID   string `json:"owner_id" db:"owner_id"`
	PlanLabel string `json:"plan_label" db:"plan_label"`

	// Display credentials are cosmetic, they are not an auth mechanism.
	Login    string `json:"login" db:"login"`
	Password string `json:"password" db:"password"`
	Server   string `json:"server" db:"server"`

	Balance         float64   `json:"balance" db:"balance"`
	Equity          float64   `json:"equity" db:"equity"`
	StartingBalance float64   `json:"starting_balance" db:"starting_balance"`
	LastDayBalance  float64   `json:"last_day_balance" db:"last_day_balance"`
	LastDailyReset  time.Time `json:"last_daily_reset" db:"last_daily_reset"`

	DailyLossLimit float64 `json:"daily_loss_limit" db:"daily_loss_limit"`
	MaxLossLimit   float64 `json:"max_loss_limit" db:"max_loss_limit"`
	ProfitTarget   float64 `json:"profit_target" db:"profit_target"`

	CurrentDailyLoss float64 `json:"current_daily_loss" db:"current_daily_loss"`
	CurrentMaxLoss   float64 `json:"current_max_loss" db:"current_max_loss"`

	Status          AccountStatus `json:"status" db:"status"`
	PayoutEligible  bool          `json:"payout_eligible" db:"payout_eligible"`
	PayoutRequested bool          `json:"payout_requested" db:"payout_requested"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
