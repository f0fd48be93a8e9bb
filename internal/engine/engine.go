package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Echohint/dev-prop-firm/internal/config"
	"github.com/Echohint/dev-prop-firm/internal/logger"
	"github.com/Echohint/dev-prop-firm/internal/model"
	"github.com/Echohint/dev-prop-firm/internal/quote"
	"github.com/Echohint/dev-prop-firm/internal/repository"
	"github.com/google/uuid"
)

// Engine owns the monetary state of every challenge account: it opens and
// closes simulated positions, applies realized PnL, runs the daily reset and
// the risk rules, and persists the outcome atomically. All operations are
// synchronous; a storage error means the caller must resubmit the whole call.
type Engine struct {
	cfg    config.ChallengeConfig
	store  repository.Store
	quotes quote.Source
	logger logger.Logger

	locks *accountLocks
	marks *markStore

	now func() time.Time
}

func NewEngine(cfg config.ChallengeConfig, store repository.Store, quotes quote.Source, logger logger.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		store:  store,
		quotes: quotes,
		logger: logger,
		locks:  newAccountLocks(),
		marks:  newMarkStore(),
		now:    time.Now,
	}
}

// CreateAccount provisions a challenge account for a confirmed purchase. The
// limits are fixed absolute amounts derived from the starting balance; the
// display credentials are cosmetic.
func (e *Engine) CreateAccount(ctx context.Context, ownerID string, startingBalance float64, planLabel string) (model.Account, error) {
	if ownerID == "" {
		return model.Account{}, fmt.Errorf("%w: empty owner id", model.ErrValidation)
	}
	if startingBalance <= 0 {
		return model.Account{}, fmt.Errorf("%w: starting balance must be positive", model.ErrValidation)
	}

	now := e.now().UTC()
	a := model.Account{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		PlanLabel: planLabel,

		Login:    model.NewLogin(),
		Password: model.NewPassword(),
		Server:   e.cfg.CredentialsServer,

		Balance:         startingBalance,
		Equity:          startingBalance,
		StartingBalance: startingBalance,
		LastDayBalance:  startingBalance,
		LastDailyReset:  now,

		DailyLossLimit: e.cfg.DailyLossPercent * startingBalance,
		MaxLossLimit:   e.cfg.MaxLossPercent * startingBalance,
		ProfitTarget:   e.cfg.ProfitTargetPercent * startingBalance,

		Status:    model.AccountActive,
		CreatedAt: now,
	}

	if err := e.store.CreateAccount(ctx, a); err != nil {
		return model.Account{}, fmt.Errorf("%w: can't create account", err)
	}

	e.logger.Infof("created account %s for owner %s: start=%.2f plan=%s", a.ID, ownerID, startingBalance, planLabel)
	return a, nil
}

// OpenRequest carries the parameters of a new position. Price may be zero, in
// which case the quote source must supply one; the engine never invents a
// price.
type OpenRequest struct {
	Symbol       string
	Side         model.TradeSide
	MarginAmount float64
	Leverage     float64
	Price        float64
	StopLoss     *float64
	TakeProfit   *float64
}

// OpenTrade reserves margin against the account and records an OPEN trade.
// Balance and equity are untouched: the reservation shows up only through
// free margin.
func (e *Engine) OpenTrade(ctx context.Context, ownerID, accountID string, req OpenRequest) (model.Trade, error) {
	unlock := e.locks.lock(accountID)
	defer unlock()

	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return model.Trade{}, err
	}
	if a.OwnerID != ownerID {
		return model.Trade{}, model.ErrNotOwner
	}

	now := e.now()
	if MaybeReset(&a, now) {
		if err := e.store.UpdateAccount(ctx, a); err != nil {
			return model.Trade{}, fmt.Errorf("%w: can't persist daily reset", err)
		}
	}

	if a.Status != model.AccountActive {
		return model.Trade{}, model.ErrAccountBreached
	}

	if req.MarginAmount <= 0 {
		return model.Trade{}, fmt.Errorf("%w: margin must be positive", model.ErrValidation)
	}
	if req.Leverage == 0 {
		req.Leverage = 1
	}
	if req.Leverage < 1 {
		return model.Trade{}, fmt.Errorf("%w: leverage must be at least 1", model.ErrValidation)
	}
	if req.Symbol == "" {
		return model.Trade{}, fmt.Errorf("%w: empty symbol", model.ErrValidation)
	}
	if req.Side == "" {
		req.Side = model.TradeBuy
	}
	if req.Side != model.TradeBuy && req.Side != model.TradeSell {
		return model.Trade{}, fmt.Errorf("%w: unknown side %q", model.ErrValidation, req.Side)
	}

	price, err := e.resolvePrice(ctx, req.Symbol, req.Price)
	if err != nil {
		return model.Trade{}, err
	}

	open, err := e.store.ListOpenTrades(ctx, accountID)
	if err != nil {
		return model.Trade{}, fmt.Errorf("%w: can't list open trades", err)
	}
	if req.MarginAmount > FreeMargin(a, open) {
		return model.Trade{}, model.ErrInsufficientMargin
	}

	t := model.Trade{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Symbol:       req.Symbol,
		Side:         req.Side,
		EntryPrice:   price,
		MarginAmount: req.MarginAmount,
		Leverage:     req.Leverage,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		Status:       model.TradeOpen,
		OpenedAt:     now,
	}

	if err := e.store.CreateTrade(ctx, t); err != nil {
		return model.Trade{}, fmt.Errorf("%w: can't create trade", err)
	}
	e.marks.set(t.Symbol, price)

	e.logger.Infof("opened trade %s on account %s: %s %s margin=%.2f leverage=%.0f entry=%.4f",
		t.ID, accountID, t.Side, t.Symbol, t.MarginAmount, t.Leverage, t.EntryPrice)
	return t, nil
}

// CloseTrade realizes the position's PnL at the exit price, runs the daily
// reset and the risk rules against the updated account, and commits trade,
// account and journal delta as one atomic unit.
func (e *Engine) CloseTrade(ctx context.Context, ownerID, tradeID string, exitPrice float64) (model.Trade, error) {
	t, err := e.store.GetTrade(ctx, tradeID)
	if err != nil {
		return model.Trade{}, err
	}

	unlock := e.locks.lock(t.AccountID)
	defer unlock()

	// Reload under the account lock, a concurrent close may have won.
	t, err = e.store.GetTrade(ctx, tradeID)
	if err != nil {
		return model.Trade{}, err
	}
	if t.Status != model.TradeOpen {
		return model.Trade{}, model.ErrTradeAlreadyClosed
	}

	a, err := e.store.GetAccount(ctx, t.AccountID)
	if err != nil {
		return model.Trade{}, err
	}
	if a.OwnerID != ownerID {
		return model.Trade{}, model.ErrNotOwner
	}
	if a.Status != model.AccountActive {
		return model.Trade{}, model.ErrAccountBreached
	}

	price, err := e.resolvePrice(ctx, t.Symbol, exitPrice)
	if err != nil {
		return model.Trade{}, err
	}

	now := e.now()
	pnl := t.UnrealizedPnL(price)

	t.Status = model.TradeClosed
	t.ExitPrice = &price
	t.PnL = &pnl
	t.ClosedAt = &now
	e.marks.set(t.Symbol, price)

	open, err := e.store.ListOpenTrades(ctx, t.AccountID)
	if err != nil {
		return model.Trade{}, fmt.Errorf("%w: can't list open trades", err)
	}
	remaining := make([]model.Trade, 0, len(open))
	for _, o := range open {
		if o.ID != t.ID {
			remaining = append(remaining, o)
		}
	}

	ApplyRealizedPnL(&a, pnl, remaining, e.marks.snapshot())
	MaybeReset(&a, now)
	reason := Evaluate(&a)

	delta := repository.JournalDelta{
		OwnerID: a.OwnerID,
		Day:     now.UTC().Format(model.JournalDayLayout),
		PnL:     pnl,
	}

	if err := e.store.CommitClose(ctx, a, t, delta); err != nil {
		return model.Trade{}, err
	}

	if reason != FailNone {
		e.logger.Warnf("account %s failed: %s (equity=%.2f)", a.ID, reason, a.Equity)
	}
	e.logger.Infof("closed trade %s on account %s: exit=%.4f pnl=%.2f equity=%.2f",
		t.ID, a.ID, price, pnl, a.Equity)
	return t, nil
}

// Snapshot is the engine's read model of one account.
type Snapshot struct {
	Account    model.Account `json:"account"`
	UsedMargin float64       `json:"used_margin"`
	FreeMargin float64       `json:"free_margin"`
	OpenTrades int           `json:"open_trades"`
}

func (e *Engine) AccountSnapshot(ctx context.Context, ownerID, accountID string) (Snapshot, error) {
	unlock := e.locks.lock(accountID)
	defer unlock()

	a, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return Snapshot{}, err
	}
	if a.OwnerID != ownerID {
		return Snapshot{}, model.ErrNotOwner
	}

	if MaybeReset(&a, e.now()) {
		Evaluate(&a)
		if err := e.store.UpdateAccount(ctx, a); err != nil {
			return Snapshot{}, fmt.Errorf("%w: can't persist daily reset", err)
		}
	}

	open, err := e.store.ListOpenTrades(ctx, accountID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: can't list open trades", err)
	}

	used := UsedMargin(open)
	return Snapshot{
		Account:    a,
		UsedMargin: used,
		FreeMargin: a.Equity - used,
		OpenTrades: len(open),
	}, nil
}

func (e *Engine) resolvePrice(ctx context.Context, symbol string, supplied float64) (float64, error) {
	if supplied > 0 {
		return supplied, nil
	}
	if e.quotes == nil {
		return 0, fmt.Errorf("%w: price is required", model.ErrValidation)
	}
	price, err := e.quotes.Price(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: no price for %s: %s", model.ErrValidation, symbol, err)
	}
	return price, nil
}
