// Package catalog serves random samples of card records. It holds no game
// rules; sessions ask it for cards once, when a game is dealt.
package catalog

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/cardclash/cardclash-server/internal/engine"
)

var ErrUnsupportedDriver = errors.New("unsupported catalog driver")

// Catalog is the read side used by sessions and the HTTP layer. Sample may
// return fewer than n cards when the catalog is small; callers decide
// whether that is enough.
type Catalog interface {
	Sample(ctx context.Context, n int) ([]engine.Card, error)
	Count(ctx context.Context) (int64, error)
}

// Memory is a Catalog over a fixed slice, used by tests and the "memory"
// driver.
type Memory struct {
	mu    sync.RWMutex
	cards []engine.Card
}

func NewMemory(cards []engine.Card) *Memory {
	return &Memory{cards: append([]engine.Card(nil), cards...)}
}

func (m *Memory) Sample(ctx context.Context, n int) ([]engine.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n > len(m.cards) {
		n = len(m.cards)
	}
	out := make([]engine.Card, 0, n)
	for _, i := range rand.Perm(len(m.cards))[:n] {
		out = append(out, m.cards[i])
	}
	return out, nil
}

func (m *Memory) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.cards)), nil
}

// Replace swaps the whole card set.
func (m *Memory) Replace(ctx context.Context, cards []engine.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = append([]engine.Card(nil), cards...)
	return nil
}
