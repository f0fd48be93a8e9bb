package quote

import (
	"context"
	"errors"
	"sync"
)

// ErrNoQuote is returned when a source has no current price for a symbol.
// The engine maps it to a validation failure, it never fabricates a price.
var ErrNoQuote = errors.New("no quote for symbol")

type Source interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// StaticSource is an in-memory price table. It backs tests and offline runs
// and doubles as the engine's last-seen mark store.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func NewStaticSource() *StaticSource {
	return &StaticSource{
		prices: make(map[string]float64),
	}
}

func (s *StaticSource) Set(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

func (s *StaticSource) Price(_ context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.prices[symbol]; ok {
		return p, nil
	}
	return 0, ErrNoQuote
}
