package engine

func CloneSeats(seats []Seat) []Seat {
	out := make([]Seat, len(seats))
	for i, s := range seats {
		out[i] = Seat{ID: s.ID, Score: s.Score, Hand: append([]Card(nil), s.Hand...)}
	}
	return out
}

func CountCards(seats []Seat) int {
	n := 0
	for _, s := range seats {
		n += len(s.Hand)
	}
	return n
}

// Finished reports whether the game is over after round has been played,
// and who won. With one seat left that seat wins; with none there is no
// winner; at the round cap the best score wins and earlier seats take ties.
func Finished(seats []Seat, round, maxRounds int) (bool, string) {
	switch {
	case len(seats) == 0:
		return true, ""
	case len(seats) == 1:
		return true, seats[0].ID
	case maxRounds > 0 && round >= maxRounds:
		return true, Leader(seats)
	default:
		return false, ""
	}
}

func Leader(seats []Seat) string {
	if len(seats) == 0 {
		return ""
	}
	best := seats[0]
	for _, s := range seats[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best.ID
}

// Deal hands out size cards per seat in seating order. It reports false when
// the pile is too small.
func Deal(seats []Seat, pile []Card, size int) ([]Seat, bool) {
	if len(pile) < len(seats)*size {
		return seats, false
	}
	out := CloneSeats(seats)
	for i := range out {
		out[i].Hand = append([]Card(nil), pile[i*size:(i+1)*size]...)
		out[i].Score = 0
	}
	return out, true
}
