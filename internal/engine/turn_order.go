package engine

func IndexOf(seats []Seat, id string) int {
	for i, s := range seats {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// NextSeat returns the id of the seat after id in turn order, wrapping.
func NextSeat(seats []Seat, id string) string {
	i := IndexOf(seats, id)
	if i < 0 || len(seats) < 2 {
		return ""
	}
	return seats[(i+1)%len(seats)].ID
}

// NextSeatExcept is NextSeat skipping the seats in skip. It returns "" when
// no other seat qualifies.
func NextSeatExcept(seats []Seat, id string, skip map[string]bool) string {
	i := IndexOf(seats, id)
	if i < 0 {
		return ""
	}
	for step := 1; step < len(seats); step++ {
		next := seats[(i+step)%len(seats)].ID
		if !skip[next] {
			return next
		}
	}
	return ""
}

// NextClaimant picks who claims next from the seats left after Settle. The
// round winner keeps the turn while still seated; otherwise the turn passes
// to the first surviving seat after the old claimant in the old order.
func NextClaimant(prev, next []Seat, claimantID, winnerID string) int {
	if len(next) == 0 {
		return -1
	}
	if i := IndexOf(next, winnerID); i >= 0 && winnerID != "" {
		return i
	}
	start := IndexOf(prev, claimantID)
	if start < 0 {
		return 0
	}
	for step := 1; step <= len(prev); step++ {
		id := prev[(start+step)%len(prev)].ID
		if i := IndexOf(next, id); i >= 0 {
			return i
		}
	}
	return 0
}
