package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Echohint/dev-prop-firm/internal/model"
)

const _autoNotes = "Auto-generated from trading activity"

// MemoryStore is a map-backed Store for tests and offline runs. It honors the
// same atomicity contract as the Postgres store: CommitClose applies all three
// writes under one lock.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]model.Account
	trades   map[string]model.Trade
	journal  map[string]map[string]model.JournalEntry // ownerID -> day -> entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]model.Account),
		trades:   make(map[string]model.Trade),
		journal:  make(map[string]map[string]model.JournalEntry),
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, a model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return a, nil
}

func (s *MemoryStore) ListAccountsByOwner(_ context.Context, ownerID string) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var accounts []model.Account
	for _, a := range s.accounts {
		if a.OwnerID == ownerID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, a model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return model.ErrAccountNotFound
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *MemoryStore) TopAccounts(_ context.Context, limit int) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var accounts []model.Account
	for _, a := range s.accounts {
		if a.Status == model.AccountActive || a.Status == model.AccountPassed {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Balance > accounts[j].Balance
	})
	if len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

func (s *MemoryStore) CreateTrade(_ context.Context, t model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades[t.ID] = t
	return nil
}

func (s *MemoryStore) GetTrade(_ context.Context, id string) (model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trades[id]
	if !ok {
		return model.Trade{}, model.ErrTradeNotFound
	}
	return t, nil
}

func (s *MemoryStore) ListTrades(_ context.Context, accountID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var trades []model.Trade
	for _, t := range s.trades {
		if t.AccountID == accountID {
			trades = append(trades, t)
		}
	}
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].OpenedAt.After(trades[j].OpenedAt)
	})
	return trades, nil
}

func (s *MemoryStore) ListOpenTrades(_ context.Context, accountID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var trades []model.Trade
	for _, t := range s.trades {
		if t.AccountID == accountID && t.Status == model.TradeOpen {
			trades = append(trades, t)
		}
	}
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].OpenedAt.Before(trades[j].OpenedAt)
	})
	return trades, nil
}

func (s *MemoryStore) UpsertJournalNotes(_ context.Context, ownerID, day, notes string, mood model.Mood) (model.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.journalEntryLocked(ownerID, day)
	e.Notes = notes
	e.Mood = mood
	e.UpdatedAt = time.Now().UTC()
	s.journal[ownerID][day] = e
	return e, nil
}

func (s *MemoryStore) GetJournalEntry(_ context.Context, ownerID, day string) (model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if days, ok := s.journal[ownerID]; ok {
		if e, ok := days[day]; ok {
			return e, nil
		}
	}
	return model.JournalEntry{OwnerID: ownerID, Day: day}, nil
}

func (s *MemoryStore) ListJournalEntries(_ context.Context, ownerID string) ([]model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []model.JournalEntry
	for _, e := range s.journal[ownerID] {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Day > entries[j].Day
	})
	return entries, nil
}

func (s *MemoryStore) CommitClose(_ context.Context, a model.Account, t model.Trade, delta JournalDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.trades[t.ID]
	if !ok {
		return model.ErrTradeNotFound
	}
	if prev.Status != model.TradeOpen {
		return model.ErrTradeAlreadyClosed
	}
	if _, ok := s.accounts[a.ID]; !ok {
		return model.ErrAccountNotFound
	}

	s.trades[t.ID] = t
	s.accounts[a.ID] = a

	e := s.journalEntryLocked(delta.OwnerID, delta.Day)
	e.TotalPnL += delta.PnL
	e.UpdatedAt = time.Now().UTC()
	s.journal[delta.OwnerID][delta.Day] = e

	return nil
}

func (s *MemoryStore) journalEntryLocked(ownerID, day string) model.JournalEntry {
	if _, ok := s.journal[ownerID]; !ok {
		s.journal[ownerID] = make(map[string]model.JournalEntry)
	}
	if e, ok := s.journal[ownerID][day]; ok {
		return e
	}
	return model.JournalEntry{
		OwnerID: ownerID,
		Day:     day,
		Notes:   _autoNotes,
	}
}
