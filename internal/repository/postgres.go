package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Echohint/dev-prop-firm/internal/logger"
	"github.com/Echohint/dev-prop-firm/internal/model"
	"github.com/jmoiron/sqlx"
)

type PostgresStore struct {
	db     *sqlx.DB
	logger logger.Logger
}

func NewPostgresStore(db *sqlx.DB, logger logger.Logger) (*PostgresStore, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("%w: can't apply schema", err)
	}

	return &PostgresStore{
		db:     db,
		logger: logger,
	}, nil
}

func storageErr(err error, msg string) error {
	return fmt.Errorf("%w: can't %s: %s", model.ErrStorage, msg, err)
}

const (
	_insertAccount = `INSERT INTO accounts (
							id, owner_id, plan_label, login, password, server,
							balance, equity, starting_balance, last_day_balance, last_daily_reset,
							daily_loss_limit, max_loss_limit, profit_target,
							current_daily_loss, current_max_loss,
							status, payout_eligible, payout_requested, created_at
						) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`
	_queryAccount         = "SELECT * FROM accounts WHERE id = $1"
	_queryAccountsByOwner = "SELECT * FROM accounts WHERE owner_id = $1 ORDER BY created_at DESC"
	_queryTopAccounts     = "SELECT * FROM accounts WHERE status IN ('active', 'passed') ORDER BY balance DESC LIMIT $1"
	_updateAccount        = `UPDATE accounts SET
							balance = $1, equity = $2, last_day_balance = $3, last_daily_reset = $4,
							current_daily_loss = $5, current_max_loss = $6,
							status = $7, payout_eligible = $8, payout_requested = $9
						WHERE id = $10`
)

func (s *PostgresStore) CreateAccount(ctx context.Context, a model.Account) error {
	if _, err := s.db.ExecContext(ctx, _insertAccount,
		a.ID, a.OwnerID, a.PlanLabel, a.Login, a.Password, a.Server,
		a.Balance, a.Equity, a.StartingBalance, a.LastDayBalance, a.LastDailyReset,
		a.DailyLossLimit, a.MaxLossLimit, a.ProfitTarget,
		a.CurrentDailyLoss, a.CurrentMaxLoss,
		a.Status, a.PayoutEligible, a.PayoutRequested, a.CreatedAt,
	); err != nil {
		return storageErr(err, "insert account")
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (model.Account, error) {
	var a model.Account
	if err := s.db.GetContext(ctx, &a, _queryAccount, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, model.ErrAccountNotFound
		}
		return model.Account{}, storageErr(err, "query account")
	}
	return a, nil
}

func (s *PostgresStore) ListAccountsByOwner(ctx context.Context, ownerID string) ([]model.Account, error) {
	var accounts []model.Account
	if err := s.db.SelectContext(ctx, &accounts, _queryAccountsByOwner, ownerID); err != nil {
		return nil, storageErr(err, "query accounts by owner")
	}
	return accounts, nil
}

func (s *PostgresStore) UpdateAccount(ctx context.Context, a model.Account) error {
	res, err := s.db.ExecContext(ctx, _updateAccount,
		a.Balance, a.Equity, a.LastDayBalance, a.LastDailyReset,
		a.CurrentDailyLoss, a.CurrentMaxLoss,
		a.Status, a.PayoutEligible, a.PayoutRequested, a.ID,
	)
	if err != nil {
		return storageErr(err, "update account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

func (s *PostgresStore) TopAccounts(ctx context.Context, limit int) ([]model.Account, error) {
	var accounts []model.Account
	if err := s.db.SelectContext(ctx, &accounts, _queryTopAccounts, limit); err != nil {
		return nil, storageErr(err, "query top accounts")
	}
	return accounts, nil
}

const (
	_insertTrade = `INSERT INTO trades (
							id, account_id, symbol, side, entry_price, exit_price,
							margin_amount, leverage, stop_loss, take_profit,
							status, pnl, opened_at, closed_at
						) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_queryTrade           = "SELECT * FROM trades WHERE id = $1"
	_queryTradesByAccount = "SELECT * FROM trades WHERE account_id = $1 ORDER BY opened_at DESC"
	_queryOpenTrades      = "SELECT * FROM trades WHERE account_id = $1 AND status = 'OPEN' ORDER BY opened_at"
	_closeTrade           = `UPDATE trades SET status = $1, exit_price = $2, pnl = $3, closed_at = $4
						WHERE id = $5 AND status = 'OPEN'`
)

func (s *PostgresStore) CreateTrade(ctx context.Context, t model.Trade) error {
	if _, err := s.db.ExecContext(ctx, _insertTrade,
		t.ID, t.AccountID, t.Symbol, t.Side, t.EntryPrice, t.ExitPrice,
		t.MarginAmount, t.Leverage, t.StopLoss, t.TakeProfit,
		t.Status, t.PnL, t.OpenedAt, t.ClosedAt,
	); err != nil {
		return storageErr(err, "insert trade")
	}
	return nil
}

func (s *PostgresStore) GetTrade(ctx context.Context, id string) (model.Trade, error) {
	var t model.Trade
	if err := s.db.GetContext(ctx, &t, _queryTrade, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Trade{}, model.ErrTradeNotFound
		}
		return model.Trade{}, storageErr(err, "query trade")
	}
	return t, nil
}

func (s *PostgresStore) ListTrades(ctx context.Context, accountID string) ([]model.Trade, error) {
	var trades []model.Trade
	if err := s.db.SelectContext(ctx, &trades, _queryTradesByAccount, accountID); err != nil {
		return nil, storageErr(err, "query trades")
	}
	return trades, nil
}

func (s *PostgresStore) ListOpenTrades(ctx context.Context, accountID string) ([]model.Trade, error) {
	var trades []model.Trade
	if err := s.db.SelectContext(ctx, &trades, _queryOpenTrades, accountID); err != nil {
		return nil, storageErr(err, "query open trades")
	}
	return trades, nil
}

const (
	_upsertJournalPnL = `INSERT INTO journal_entries (owner_id, day, notes, total_pnl, updated_at)
						VALUES ($1, $2, 'Auto-generated from trading activity', $3, $4)
						ON CONFLICT (owner_id, day)
						DO UPDATE SET
							total_pnl = journal_entries.total_pnl + EXCLUDED.total_pnl,
							updated_at = EXCLUDED.updated_at`
	_upsertJournalNotes = `INSERT INTO journal_entries (owner_id, day, notes, mood, updated_at)
						VALUES ($1, $2, $3, $4, $5)
						ON CONFLICT (owner_id, day)
						DO UPDATE SET
							notes = EXCLUDED.notes,
							mood = EXCLUDED.mood,
							updated_at = EXCLUDED.updated_at`
	_queryJournalEntry   = "SELECT * FROM journal_entries WHERE owner_id = $1 AND day = $2"
	_queryJournalEntries = "SELECT * FROM journal_entries WHERE owner_id = $1 ORDER BY day DESC"
)

func (s *PostgresStore) UpsertJournalNotes(ctx context.Context, ownerID, day, notes string, mood model.Mood) (model.JournalEntry, error) {
	if _, err := s.db.ExecContext(ctx, _upsertJournalNotes, ownerID, day, notes, mood, time.Now().UTC()); err != nil {
		return model.JournalEntry{}, storageErr(err, "upsert journal notes")
	}
	return s.GetJournalEntry(ctx, ownerID, day)
}

func (s *PostgresStore) GetJournalEntry(ctx context.Context, ownerID, day string) (model.JournalEntry, error) {
	var e model.JournalEntry
	if err := s.db.GetContext(ctx, &e, _queryJournalEntry, ownerID, day); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// An absent day reads as an empty entry, mirroring the upsert model.
			return model.JournalEntry{OwnerID: ownerID, Day: day}, nil
		}
		return model.JournalEntry{}, storageErr(err, "query journal entry")
	}
	return e, nil
}

func (s *PostgresStore) ListJournalEntries(ctx context.Context, ownerID string) ([]model.JournalEntry, error) {
	var entries []model.JournalEntry
	if err := s.db.SelectContext(ctx, &entries, _queryJournalEntries, ownerID); err != nil {
		return nil, storageErr(err, "query journal entries")
	}
	return entries, nil
}

// CommitClose applies the closed trade, the account update and the journal
// delta in one transaction. The WHERE status = 'OPEN' guard on the trade update
// makes a second close of the same trade fail instead of re-applying PnL.
func (s *PostgresStore) CommitClose(ctx context.Context, a model.Account, t model.Trade, delta JournalDelta) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin close tx")
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Errorf("%s: can't rollback close tx", err)
		}
	}()

	res, err := tx.ExecContext(ctx, _closeTrade, t.Status, t.ExitPrice, t.PnL, t.ClosedAt, t.ID)
	if err != nil {
		return storageErr(err, "close trade")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrTradeAlreadyClosed
	}

	if _, err := tx.ExecContext(ctx, _updateAccount,
		a.Balance, a.Equity, a.LastDayBalance, a.LastDailyReset,
		a.CurrentDailyLoss, a.CurrentMaxLoss,
		a.Status, a.PayoutEligible, a.PayoutRequested, a.ID,
	); err != nil {
		return storageErr(err, "update account on close")
	}

	if _, err := tx.ExecContext(ctx, _upsertJournalPnL,
		delta.OwnerID, delta.Day, delta.PnL, time.Now().UTC(),
	); err != nil {
		return storageErr(err, "accumulate journal pnl")
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err, "commit close tx")
	}
	return nil
}
