package engine

import (
	"sync"

	"github.com/Echohint/dev-prop-firm/internal/model"
)

// Ledger math over an account and its open trades. Every mutation of the
// monetary fields flows through these helpers; the Engine serializes callers
// per account so two realized-PnL applications can never interleave.

// UsedMargin sums the capital reserved by the open trades.
func UsedMargin(open []model.Trade) float64 {
	var used float64
	for _, t := range open {
		used += t.MarginAmount
	}
	return used
}

// FreeMargin is equity minus reserved margin: the capacity left for new
// positions. Open-time checks keep it from ever going negative.
func FreeMargin(a model.Account, open []model.Trade) float64 {
	return a.Equity - UsedMargin(open)
}

// Revalue recomputes equity as balance plus unrealized PnL of the open
// trades, marked at marks[symbol]. A symbol without a mark is valued at its
// entry price, which contributes zero unrealized PnL.
func Revalue(a *model.Account, open []model.Trade, marks map[string]float64) {
	equity := a.Balance
	for _, t := range open {
		mark, ok := marks[t.Symbol]
		if !ok {
			mark = t.EntryPrice
		}
		equity += t.UnrealizedPnL(mark)
	}
	a.Equity = equity
}

// ApplyRealizedPnL folds a realized delta into the balance and revalues
// equity against the remaining open trades. Returns the new equity.
func ApplyRealizedPnL(a *model.Account, delta float64, open []model.Trade, marks map[string]float64) float64 {
	a.Balance += delta
	Revalue(a, open, marks)
	return a.Equity
}

// markStore keeps the last price the engine has seen per symbol. Opens and
// closes feed it; revaluation reads it.
type markStore struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func newMarkStore() *markStore {
	return &markStore{prices: make(map[string]float64)}
}

func (m *markStore) set(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

func (m *markStore) snapshot() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.prices))
	for s, p := range m.prices {
		out[s] = p
	}
	return out
}
