package oracle

import (
	"context"
	"math/big"
	"sync"
	"time"
)

var _ PriceOracle = (*Mock)(nil)

// Mock is a static price feed configured at construction, mirroring the
// MockV3Aggregator deployed on development chains.
type Mock struct {
	mu        sync.RWMutex
	decimals  uint8
	answer    *big.Int
	round     *big.Int
	updatedAt time.Time
}

// NewMock returns a Mock answering (answer, decimals).
func NewMock(decimals uint8, answer int64) *Mock {
	return &Mock{
		decimals:  decimals,
		answer:    big.NewInt(answer),
		round:     big.NewInt(1),
		updatedAt: time.Now().UTC(),
	}
}

// NewDefaultMock returns the development fixture (8 decimals, 3000 USD).
func NewDefaultMock() *Mock {
	return NewMock(DefaultDecimals, DefaultInitialAnswer)
}

// Quote implements PriceOracle. It never fails.
func (m *Mock) Quote(_ context.Context) (Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Quote{
		Answer:    new(big.Int).Set(m.answer),
		Decimals:  m.decimals,
		RoundID:   new(big.Int).Set(m.round),
		UpdatedAt: m.updatedAt,
	}, nil
}

// UpdateAnswer replaces the answer and starts a new round.
func (m *Mock) UpdateAnswer(answer int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.answer = big.NewInt(answer)
	m.round = new(big.Int).Add(m.round, big.NewInt(1))
	m.updatedAt = time.Now().UTC()
}
