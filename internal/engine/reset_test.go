package engine

import (
	"testing"
	"time"

	"github.com/Echohint/dev-prop-firm/internal/model"
)

func TestMaybeReset(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("rebases after a full day", func(t *testing.T) {
		a := model.Account{
			Balance:          9500,
			Equity:           9500,
			LastDayBalance:   10000,
			CurrentDailyLoss: 300,
			LastDailyReset:   now.Add(-25 * time.Hour),
		}

		if !MaybeReset(&a, now) {
			t.Fatal("expected reset to fire")
		}
		if a.LastDayBalance != 9500 {
			t.Errorf("lastDayBalance = %f, want 9500", a.LastDayBalance)
		}
		if a.CurrentDailyLoss != 0 {
			t.Errorf("currentDailyLoss = %f, want 0", a.CurrentDailyLoss)
		}
		if !a.LastDailyReset.Equal(now) {
			t.Errorf("lastDailyReset = %v, want %v", a.LastDailyReset, now)
		}
	})

	t.Run("no-op within the window", func(t *testing.T) {
		a := model.Account{
			Balance:          9500,
			LastDayBalance:   10000,
			CurrentDailyLoss: 300,
			LastDailyReset:   now.Add(-23 * time.Hour),
		}

		if MaybeReset(&a, now) {
			t.Fatal("reset must not fire within 24h")
		}
		if a.LastDayBalance != 10000 || a.CurrentDailyLoss != 300 {
			t.Error("account must be untouched within the window")
		}
	})

	t.Run("idempotent within the new window", func(t *testing.T) {
		a := model.Account{
			Balance:        9500,
			LastDayBalance: 10000,
			LastDailyReset: now.Add(-25 * time.Hour),
		}

		MaybeReset(&a, now)
		a.Balance = 9400 // realized change after the reset
		if MaybeReset(&a, now.Add(time.Minute)) {
			t.Fatal("second reset in the same window must be a no-op")
		}
		if a.LastDayBalance != 9500 {
			t.Errorf("lastDayBalance = %f, want 9500", a.LastDayBalance)
		}
	})

	t.Run("baseline excludes floating pnl", func(t *testing.T) {
		// Balance and equity diverge while trades are open; the new baseline
		// is the realized balance.
		a := model.Account{
			Balance:        10000,
			Equity:         10250,
			LastDayBalance: 10100,
			LastDailyReset: now.Add(-48 * time.Hour),
		}

		MaybeReset(&a, now)
		if a.LastDayBalance != 10000 {
			t.Errorf("lastDayBalance = %f, want realized balance 10000", a.LastDayBalance)
		}
	})
}
