package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"github.com/cardclash/cardclash-server/internal/engine"
)

// LoadJSON reads a JSON array of cards in the client's field naming.
func LoadJSON(r io.Reader) ([]engine.Card, error) {
	var cards []engine.Card
	if err := json.NewDecoder(r).Decode(&cards); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}
	for i, c := range cards {
		if c.PlayerName == "" {
			return nil, fmt.Errorf("card %d: missing playerName", i)
		}
	}
	return cards, nil
}

var formats = []string{"ODI", "Test", "T20"}

// Random builds n cards with plausible career numbers, one per name (names
// repeat when n exceeds the list).
func Random(n int, names []string, rng *rand.Rand) []engine.Card {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	round2 := func(f float64) float64 { return math.Round(f*100) / 100 }

	cards := make([]engine.Card, n)
	for i := range cards {
		name := fmt.Sprintf("Player %d", i+1)
		if len(names) > 0 {
			name = names[i%len(names)]
		}
		cards[i] = engine.Card{
			PlayerName:      name,
			Runs:            float64(rng.IntN(10000)),
			Wickets:         float64(rng.IntN(500)),
			BattingAverage:  round2(rng.Float64() * 100),
			StrikeRate:      round2(rng.Float64() * 200),
			MatchesPlayed:   float64(rng.IntN(300)),
			Centuries:       float64(rng.IntN(50)),
			FiveWicketHauls: float64(rng.IntN(10)),
			Economy:         round2(3 + rng.Float64()*4),
			Format:          formats[rng.IntN(len(formats))],
		}
	}
	return cards
}
