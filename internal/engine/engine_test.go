package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Echohint/dev-prop-firm/internal/config"
	"github.com/Echohint/dev-prop-firm/internal/logger"
	"github.com/Echohint/dev-prop-firm/internal/model"
	"github.com/Echohint/dev-prop-firm/internal/quote"
	"github.com/Echohint/dev-prop-firm/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const _owner = "user-1"

func newTestEngine(t *testing.T) (*Engine, *repository.MemoryStore, *quote.StaticSource) {
	t.Helper()

	l, _, err := logger.NewZapLogger(logger.Error)
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	quotes := quote.NewStaticSource()

	cfg := config.ChallengeConfig{
		DailyLossPercent:    0.05,
		MaxLossPercent:      0.10,
		ProfitTargetPercent: 0.10,
		CredentialsServer:   "Test-Demo",
	}

	return NewEngine(cfg, store, quotes, l), store, quotes
}

func TestCreateAccountDerivesLimits(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := e.CreateAccount(ctx, _owner, 10000, "10k-challenge")
	require.NoError(t, err)

	assert.Equal(t, model.AccountActive, a.Status)
	assert.Equal(t, 10000.0, a.Balance)
	assert.Equal(t, 10000.0, a.Equity)
	assert.Equal(t, 10000.0, a.StartingBalance)
	assert.Equal(t, 10000.0, a.LastDayBalance)
	assert.Equal(t, 500.0, a.DailyLossLimit)
	assert.Equal(t, 1000.0, a.MaxLossLimit)
	assert.Equal(t, 1000.0, a.ProfitTarget)
	assert.Len(t, a.Login, 6)
	assert.Len(t, a.Password, 8)
	assert.Equal(t, "Test-Demo", a.Server)
	assert.False(t, a.PayoutEligible)

	_, err = e.CreateAccount(ctx, _owner, 0, "broken")
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = e.CreateAccount(ctx, "", 10000, "broken")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestOpenTradeValidation(t *testing.T) {
	e, _, quotes := newTestEngine(t)
	ctx := context.Background()

	a, err := e.CreateAccount(ctx, _owner, 10000, "10k")
	require.NoError(t, err)

	_, err = e.OpenTrade(ctx, _owner, a.ID, OpenRequest{Symbol: "NASDAQ:AAPL", MarginAmount: 0, Price: 100})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = e.OpenTrade(ctx, _owner, a.ID, OpenRequest{Symbol: "NASDAQ:AAPL", MarginAmount: 100, Leverage: 0.5, Price: 100})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = e.OpenTrade(ctx, _owner, a.ID, OpenRequest{Symbol: "", MarginAmount: 100, Price: 100})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = e.OpenTrade(ctx, _owner, a.ID, OpenRequest{Symbol: "NASDAQ:AAPL", Side: "HOLD", MarginAmount: 100, Price: 100})
	assert.ErrorIs(t, err, model.ErrValidation)

	// No explicit price and no quote for the symbol: the engine must refuse,
	// never invent a price.
	_, err = e.OpenTrade(ctx, _owner, a.ID, OpenRequest{Symbol: "NASDAQ:AAPL", MarginAmount: 100})
	assert.ErrorIs(t, err, model.ErrValidation)

	// With a quote available the trade opens at the quoted price.
	quotes.Set("NASDAQ:AAPL", 187.5)
	tr, err := e.OpenTrade(ctx, _owner, a.ID, OpenRequest{Symbol: "NASDAQ:AAPL", MarginAmount: 100})
	require.NoError(t, err)
	assert.Equal(t, 187.5, tr.EntryPrice)
	assert.Equal(t, 1.0, tr.Leverage)
	assert.Equal(t, model.TradeBuy, tr.Side)

	_, err = e.OpenTrade(ctx, "someone-else", a.ID, OpenRequest{Symbol: "NASDAQ:AAPL", MarginAmount: 100, Price: 100})
	assert.ErrorIs(t, err, model.ErrNotOwner)

	_, err = e.OpenTrade(ctx, _owner, "no-such-account", OpenRequest{Symbol: "NASDAQ:AAPL", MarginAmount: 100, Price: 100})
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestMaxLossBreach(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := e.CreateAccount(ctx, _owner, 10000, "10k")
	require.NoError(t, err)

	tr, err := e.OpenTrade(ctx, _owner, a.ID, OpenRequest{
		Symbol:       "NASDAQ:AAPL",
		Side:         model.TradeBuy,
		MarginAmount: 1000,
		Leverage:     10,
		Price:        100,
	})
	require.NoError(t, err)

	closed, err := e.CloseTrade(ctx, _owner, tr.ID, 90)
	require.NoError(t, err)

	require.NotNil(t, closed.PnL)
	assert.Equal(t, -1000.0, *closed.PnL)
	require.NotNil(t, closed.ExitPrice)
	assert.Equal(t, 90.0, *closed.ExitPrice)
	assert.Equal(t, model.TradeClosed, closed.Status)

	got, err := store.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, got.Equity)
	assert.Equal(t, 9000.0, got.Balance)
	assert.Equal(t, 1000.0, got.CurrentMaxLoss)
	assert.Equal(t, model.AccountFailed, got.Status)

	// Breached account is a hard stop for opens.
	_, err = e.OpenTrade(ctx, _owner, a.ID, OpenRequest{Symbol: "NASDAQ:AAPL", MarginAmount: 100, Price: 100})
	assert.ErrorIs(t, err, model.ErrAccountBreached)
}

func TestProfitTargetUnlocksPayout(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := e.CreateAccount(ctx, _owner, 10000, "10k")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		tr, err := e.OpenTrade(ctx, _owner, a.ID, OpenRequest{
			Symbol:       "NASDAQ:AAPL",
			Side:         model.TradeBuy,
			MarginAmount: 1000,
			Leverage:     10,
			Price:        100,
		})
		require.NoError(t, err)

		closed, err := e.CloseTrade(ctx, _owner, tr.ID, 105)
		require.NoError(t, err)
		require.NotNil(t, closed.PnL)
		assert.Equal(t, 500.0, *closed.PnL)
	}

	got, err := store.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 11000.0, got.Equity)
	assert.True(t, got.PayoutEligible)
	assert.Equal(t, model.AccountActive, got.Status, "profit target must not change status")
}

func TestInsufficientMargin(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := e.CreateAccount(ctx, _owner, 1000, "1k")
	require.NoError(t, err)

	_, err = e.OpenTrade(ctx, _owner, a.ID, OpenRequest{
		Symbol:       "NASDAQ:AAPL",
		MarginAmount: 1500,
		Price:        100,
	})
	assert.ErrorIs(t, err, model.ErrInsufficientMargin)

	trades, err := store.ListTrades(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, trades, "no trade may be created on a rejected open")

	snap, err := e.AccountSnapshot(ctx, _owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, snap.FreeMargin)
	assert.Equal(t, 0.0, snap.UsedMargin)
}

func TestMarginReservationReducesFreeMargin(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := e.CreateAccount(ctx, _owner, 10000, "10k")
	require.NoError(t, err)

	_, err = e.OpenTrade(ctx, _owner, a.ID, OpenRequest{Symbol: "NASDAQ:AAPL", MarginAmount: 4000, Price: 100})
	require.NoError(t, err)

	snap, err := e.AccountSnapshot(ctx, _owner, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, snap.Account.Balance, "open must not touch balance")
	assert.Equal(t, 4000.0, snap.UsedMargin)
	assert.Equal(t, 6000.0, snap.FreeMargin)
	assert.Equal(t, 1, snap.OpenTrades)

	// A second reservation above the remaining free margin is rejected.
	_, err = e.OpenTrade(ctx, _owner, a.ID, OpenRequest{Symbol: "NASDAQ:AAPL", MarginAmount: 6500, Price: 100})
	assert.ErrorIs(t, err, model.ErrInsufficientMargin)
}

func TestCloseIsIdempotent(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := e.CreateAccount(ctx, _owner, 10000, "10k")
	require.NoError(t, err)

	tr, err := e.OpenTrade(ctx, _owner, a.ID, OpenRequest{
		Symbol:       "NASDAQ:AAPL",
		MarginAmount: 1000,
		Leverage:     2,
		Price:        100,
	})
	require.NoError(t, err)

	_, err = e.CloseTrade(ctx, _owner, tr.ID, 101)
	require.NoError(t, err)

	before, err := store.GetAccount(ctx, a.ID)
	require.NoError(t, err)

	_, err = e.CloseTrade(ctx, _owner, tr.ID, 150)
	assert.ErrorIs(t, err, model.ErrTradeAlreadyClosed)

	after, err := store.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Equity, after.Equity, "second close must not re-apply pnl")
	assert.Equal(t, before.Balance, after.Balance)

	_, err = e.CloseTrade(ctx, _owner, "no-such-trade", 100)
	assert.ErrorIs(t, err, model.ErrTradeNotFound)
}

func TestDailyResetPrecedesEvaluation(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	t0 := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return t0 }

	a, err := e.CreateAccount(ctx, _owner, 10000, "10k")
	require.NoError(t, err)

	e.now = func() time.Time { return t0.Add(time.Hour) }
	tr, err := e.OpenTrade(ctx, _owner, a.ID, OpenRequest{
		Symbol:       "NASDAQ:AAPL",
		MarginAmount: 1000,
		Leverage:     10,
		Price:        100,
	})
	require.NoError(t, err)

	// A 600 loss would breach the 500 daily limit against yesterday's
	// baseline, but the close happens after the reset boundary: the baseline
	// is rebased to the post-pnl balance first and the account survives.
	e.now = func() time.Time { return t0.Add(26 * time.Hour) }
	closed, err := e.CloseTrade(ctx, _owner, tr.ID, 94)
	require.NoError(t, err)
	require.NotNil(t, closed.PnL)
	assert.Equal(t, -600.0, *closed.PnL)

	got, err := store.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountActive, got.Status)
	assert.Equal(t, 9400.0, got.LastDayBalance)
	assert.Equal(t, 0.0, got.CurrentDailyLoss)
	assert.Equal(t, 600.0, got.CurrentMaxLoss)
	assert.True(t, got.LastDailyReset.Equal(t0.Add(26*time.Hour)))
}

func TestDailyLossBreachWithinWindow(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := e.CreateAccount(ctx, _owner, 10000, "10k")
	require.NoError(t, err)

	tr, err := e.OpenTrade(ctx, _owner, a.ID, OpenRequest{
		Symbol:       "NASDAQ:AAPL",
		MarginAmount: 1000,
		Leverage:     10,
		Price:        100,
	})
	require.NoError(t, err)

	// -600 within the same day: daily limit 500 breached, max limit 1000 not.
	_, err = e.CloseTrade(ctx, _owner, tr.ID, 94)
	require.NoError(t, err)

	got, err := store.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountFailed, got.Status)
	assert.Equal(t, 600.0, got.CurrentDailyLoss)
}

func TestJournalAccumulatesAcrossCloses(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	t0 := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return t0 }

	a, err := e.CreateAccount(ctx, _owner, 10000, "10k")
	require.NoError(t, err)

	for _, exit := range []float64{102, 99} {
		tr, err := e.OpenTrade(ctx, _owner, a.ID, OpenRequest{
			Symbol:       "NASDAQ:AAPL",
			MarginAmount: 1000,
			Leverage:     1,
			Price:        100,
		})
		require.NoError(t, err)
		_, err = e.CloseTrade(ctx, _owner, tr.ID, exit)
		require.NoError(t, err)
	}

	entry, err := store.GetJournalEntry(ctx, _owner, t0.Format(model.JournalDayLayout))
	require.NoError(t, err)
	assert.InDelta(t, 10.0, entry.TotalPnL, 1e-9) // +20 then -10
}

func TestConcurrentOpensCannotOversubscribeMargin(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := e.CreateAccount(ctx, _owner, 1000, "1k")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.OpenTrade(ctx, _owner, a.ID, OpenRequest{
				Symbol:       "NASDAQ:AAPL",
				MarginAmount: 600,
				Price:        100,
			})
		}(i)
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, model.ErrInsufficientMargin)
			failed++
		}
	}
	assert.Equal(t, 1, failed, "exactly one of two 600 reservations fits into 1000")

	open, err := store.ListOpenTrades(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}
