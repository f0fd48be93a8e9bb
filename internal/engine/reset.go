package engine

import (
	"time"

	"github.com/Echohint/dev-prop-firm/internal/model"
)

const _dailyResetInterval = 24 * time.Hour

// MaybeReset rebases the daily-loss baseline once a full day has elapsed
// since the last reset. The baseline is the realized balance: floating PnL on
// positions held across the boundary does not count toward the new day.
// Idempotent within a window; reports whether the account changed. It must
// run before Evaluate on the same account state, never after.
func MaybeReset(a *model.Account, now time.Time) bool {
	if now.Sub(a.LastDailyReset) < _dailyResetInterval {
		return false
	}

	a.LastDayBalance = a.Balance
	a.CurrentDailyLoss = 0
	a.LastDailyReset = now
	return true
}
