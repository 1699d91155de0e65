package lobby

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/cardclash/cardclash-server/internal/engine"
)

// Sampler supplies the cards for a deal.
type Sampler interface {
	Sample(ctx context.Context, n int) ([]engine.Card, error)
}

// StartGame draws capacity x hand size cards and deals them to the seats
// currently reserved. The draw happens off the session goroutine; a short
// catalog leaves the session untouched so the caller may retry.
func (l *Lobby) StartGame(ctx context.Context, src Sampler) error {
	v, err := l.State(ctx)
	if err != nil {
		return err
	}
	switch {
	case v.Status == StatusEnded:
		return ErrSessionClosed
	case v.Dealt:
		return ErrGameAlreadyStarted
	case v.Occupancy < MinSeats:
		return ErrTooFewPlayers
	}

	need := l.capacity * l.settings.HandSize
	cards, err := src.Sample(ctx, need)
	if err != nil {
		return fmt.Errorf("sample cards: %w", err)
	}
	if len(cards) < need {
		return fmt.Errorf("%w: need %d, catalog returned %d", ErrInsufficientCards, need, len(cards))
	}
	rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })

	reply := make(chan error, 1)
	derr, err := request(ctx, l, Deal{Cards: cards, Reply: reply}, reply)
	if err != nil {
		return err
	}
	return derr
}
