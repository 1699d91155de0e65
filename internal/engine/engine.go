package engine

import (
	"errors"
)

var ErrNotYourTurn = errors.New("not your turn")
var ErrInvalidCardIndex = errors.New("invalid card index")
var ErrUnknownAttribute = errors.New("unknown attribute")
var ErrClaimAlreadyActive = errors.New("a claim is already active")
var ErrAttributeMismatch = errors.New("response attribute must match the claim")
var ErrNoActiveClaim = errors.New("no active claim")
var ErrNotAnOpponent = errors.New("claimant cannot respond to their own claim")
var ErrDuplicateResponse = errors.New("response already recorded")
var ErrUnknownSeat = errors.New("seat not in session")

// Score deltas per outcome category.
const (
	ClaimantWinBonus    = 1.5
	ClaimantLossPenalty = -4.0
	ContestWinBonus     = 1.0
	ContestLossPenalty  = 0.0
	ForfeitPenalty      = -1.0
)

// Seat is one participant as the engine sees it. Slice order is turn order.
type Seat struct {
	ID    string
	Hand  []Card
	Score float64
}

type Claim struct {
	ClaimantID string    `json:"claimantId"`
	CardIndex  int       `json:"cardIndex"`
	Attribute  Attribute `json:"attribute"`
	Value      float64   `json:"value"`
}

type ResponseKind string

const (
	ResponseContest  ResponseKind = "contest"
	ResponseConcede  ResponseKind = "concede"
	ResponseTimedOut ResponseKind = "timedOut"
)

// Response is an opponent's answer to a claim. CardIndex, Attribute and Value
// are only meaningful for contests.
type Response struct {
	SeatID    string
	Kind      ResponseKind
	CardIndex int
	Attribute Attribute
	Value     float64
}

func Contest(seatID string, cardIndex int, attr Attribute, value float64) Response {
	return Response{SeatID: seatID, Kind: ResponseContest, CardIndex: cardIndex, Attribute: attr, Value: value}
}

func Concede(seatID string) Response {
	return Response{SeatID: seatID, Kind: ResponseConcede}
}

// TimedOut is synthesized when the response window closes; clients never send it.
func TimedOut(seatID string) Response {
	return Response{SeatID: seatID, Kind: ResponseTimedOut}
}

func (r Response) Forfeit() bool {
	return r.Kind == ResponseConcede || r.Kind == ResponseTimedOut
}

type Transfer struct {
	From      string
	To        string
	CardIndex int
	Card      Card
}

type Outcome struct {
	WinnerID     string
	WinningValue float64
	ClaimantWon  bool
	ScoreDeltas  map[string]float64
	Transfers    []Transfer
	Eliminated   []string

	leaving map[string]bool
}

// ValidateClaim checks a claim against the seat list and the current turn.
// Attribute recognition is checked before the hand so that a bad stat is
// reported even from a seat with no cards left.
func ValidateClaim(seats []Seat, turn int, c Claim) error {
	if turn < 0 || turn >= len(seats) || seats[turn].ID != c.ClaimantID {
		return ErrNotYourTurn
	}
	if _, ok := Weights[c.Attribute]; !ok {
		return ErrUnknownAttribute
	}
	if c.CardIndex < 0 || c.CardIndex >= len(seats[turn].Hand) {
		return ErrInvalidCardIndex
	}
	return nil
}

// ValidateResponse checks a single response against the open claim. Whether
// the seat already answered is the coordinator's concern.
func ValidateResponse(seats []Seat, c Claim, r Response) error {
	i := IndexOf(seats, r.SeatID)
	if i < 0 {
		return ErrUnknownSeat
	}
	if r.SeatID == c.ClaimantID {
		return ErrNotAnOpponent
	}
	if r.Kind != ResponseContest {
		return nil
	}
	if r.Attribute != c.Attribute {
		return ErrAttributeMismatch
	}
	if r.CardIndex < 0 || r.CardIndex >= len(seats[i].Hand) {
		return ErrInvalidCardIndex
	}
	return nil
}

// Resolve decides a round. Responses must be in arrival order: a contest only
// takes the lead when its weighted value is strictly greater than the current
// leader's, so ties stay with whoever led first, the claimant by default.
func Resolve(seats []Seat, c Claim, responses []Response) Outcome {
	return ResolveExcept(seats, c, responses, nil)
}

// ResolveExcept is Resolve for a table where the seats in leaving will not
// survive the round. No card is moved to a leaving seat, and a forfeited card
// goes to the next seat that stays.
func ResolveExcept(seats []Seat, c Claim, responses []Response, leaving map[string]bool) Outcome {
	claimed := Weighted(c.Value, c.Attribute)
	out := Outcome{
		WinnerID:     c.ClaimantID,
		WinningValue: claimed,
		ScoreDeltas:  map[string]float64{},
		leaving:      leaving,
	}

	var contests, forfeits []Response
	for _, r := range responses {
		if r.Kind == ResponseContest {
			contests = append(contests, r)
		} else if r.Forfeit() {
			forfeits = append(forfeits, r)
		}
	}

	leader := -1
	for i, r := range contests {
		if w := Weighted(r.Value, r.Attribute); w > out.WinningValue {
			out.WinningValue = w
			out.WinnerID = r.SeatID
			leader = i
		}
	}

	if leader < 0 {
		out.ClaimantWon = true
		out.ScoreDeltas[c.ClaimantID] += ClaimantWinBonus
		for _, r := range contests {
			out.ScoreDeltas[r.SeatID] += ContestLossPenalty
			out.transfer(seats, r.SeatID, c.ClaimantID, r.CardIndex)
		}
	} else {
		out.ScoreDeltas[c.ClaimantID] += ClaimantLossPenalty
		out.transfer(seats, c.ClaimantID, out.WinnerID, c.CardIndex)
		out.ScoreDeltas[out.WinnerID] += ContestWinBonus
		for i, r := range contests {
			if i == leader {
				continue
			}
			if Weighted(r.Value, r.Attribute) > claimed {
				out.ScoreDeltas[r.SeatID] += ContestWinBonus
				continue
			}
			out.ScoreDeltas[r.SeatID] += ContestLossPenalty
			out.transfer(seats, r.SeatID, c.ClaimantID, r.CardIndex)
		}
	}

	for _, r := range forfeits {
		out.ScoreDeltas[r.SeatID] += ForfeitPenalty
		out.transfer(seats, r.SeatID, NextSeatExcept(seats, r.SeatID, leaving), 0)
	}
	return out
}

// transfer records a card movement, skipping seats that are gone or leaving
// and indices that no longer exist.
func (o *Outcome) transfer(seats []Seat, from, to string, idx int) {
	fi := IndexOf(seats, from)
	if fi < 0 || IndexOf(seats, to) < 0 || from == to || o.leaving[to] {
		return
	}
	hand := seats[fi].Hand
	if idx < 0 || idx >= len(hand) {
		return
	}
	o.Transfers = append(o.Transfers, Transfer{From: from, To: to, CardIndex: idx, Card: hand[idx]})
}

// Settle applies an outcome and returns the new seat list plus the ids of
// seats pruned for having no cards. The input is not modified. Cards leave
// by their index in the pre-round hand and arrive at the back of the
// receiver's hand in transfer order.
func Settle(seats []Seat, out Outcome) ([]Seat, []string) {
	next := CloneSeats(seats)

	type key struct {
		seat string
		idx  int
	}
	taken := map[key]bool{}
	var moves []Transfer
	for _, t := range out.Transfers {
		fi, ti := IndexOf(next, t.From), IndexOf(next, t.To)
		if fi < 0 || ti < 0 || t.CardIndex < 0 || t.CardIndex >= len(next[fi].Hand) {
			continue
		}
		k := key{t.From, t.CardIndex}
		if taken[k] {
			continue
		}
		taken[k] = true
		t.Card = next[fi].Hand[t.CardIndex]
		moves = append(moves, t)
	}

	for i := range next {
		hand := next[i].Hand[:0:0]
		for j, c := range next[i].Hand {
			if !taken[key{next[i].ID, j}] {
				hand = append(hand, c)
			}
		}
		next[i].Hand = hand
	}
	for _, t := range moves {
		ti := IndexOf(next, t.To)
		next[ti].Hand = append(next[ti].Hand, t.Card)
	}

	for id, d := range out.ScoreDeltas {
		if i := IndexOf(next, id); i >= 0 {
			next[i].Score += d
		}
	}

	var eliminated []string
	kept := next[:0]
	for _, s := range next {
		if len(s.Hand) == 0 {
			eliminated = append(eliminated, s.ID)
			continue
		}
		kept = append(kept, s)
	}
	return kept, eliminated
}
