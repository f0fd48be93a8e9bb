package engine

import (
	"github.com/Echohint/dev-prop-firm/internal/model"
)

type FailReason string

const (
	FailNone      FailReason = ""
	FailMaxLoss   FailReason = "MaxLossBreached"
	FailDailyLoss FailReason = "DailyLossBreached"
)

// Evaluate applies the risk rules to the account in place and reports why it
// failed, if it did. Pure state transform, no I/O; the caller persists the
// result.
//
// Precedence is fixed: the drawdown-from-inception check outranks the daily
// check when both trigger, and terminal statuses absorb everything. The
// profit target only flips payout eligibility, the account stays active.
func Evaluate(a *model.Account) FailReason {
	a.CurrentMaxLoss = clampLoss(a.StartingBalance - a.Equity)
	a.CurrentDailyLoss = clampLoss(a.LastDayBalance - a.Equity)

	if a.Status.Terminal() {
		return FailNone
	}

	switch {
	case a.CurrentMaxLoss >= a.MaxLossLimit:
		a.Status = model.AccountFailed
		return FailMaxLoss
	case a.CurrentDailyLoss >= a.DailyLossLimit:
		a.Status = model.AccountFailed
		return FailDailyLoss
	case a.Equity >= a.StartingBalance+a.ProfitTarget:
		a.PayoutEligible = true
	}

	return FailNone
}

func clampLoss(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}
