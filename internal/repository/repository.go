package repository

import (
	"context"

	"github.com/Echohint/dev-prop-firm/internal/model"
)

type AccountRepository interface {
	CreateAccount(ctx context.Context, a model.Account) error
	GetAccount(ctx context.Context, id string) (model.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]model.Account, error)
	UpdateAccount(ctx context.Context, a model.Account) error
	// TopAccounts lists active/passed accounts ordered by balance, best first.
	TopAccounts(ctx context.Context, limit int) ([]model.Account, error)
}

type TradeRepository interface {
	CreateTrade(ctx context.Context, t model.Trade) error
	GetTrade(ctx context.Context, id string) (model.Trade, error)
	ListTrades(ctx context.Context, accountID string) ([]model.Trade, error)
	ListOpenTrades(ctx context.Context, accountID string) ([]model.Trade, error)
}

type JournalRepository interface {
	// UpsertJournalNotes creates or overwrites the user-authored part of a
	// day's entry; the accumulated PnL is untouched.
	UpsertJournalNotes(ctx context.Context, ownerID, day, notes string, mood model.Mood) (model.JournalEntry, error)
	GetJournalEntry(ctx context.Context, ownerID, day string) (model.JournalEntry, error)
	ListJournalEntries(ctx context.Context, ownerID string) ([]model.JournalEntry, error)
}

// JournalDelta is the realized-PnL event emitted by a trade close. It
// accumulates into the (owner, day) journal aggregate.
type JournalDelta struct {
	OwnerID string
	Day     string
	PnL     float64
}

// Store is the persistence surface the engine works against. CommitClose
// applies the closed trade, the updated account and the journal delta as one
// atomic unit: either all three land or none do.
type Store interface {
	AccountRepository
	TradeRepository
	JournalRepository

	CommitClose(ctx context.Context, a model.Account, t model.Trade, delta JournalDelta) error
}
