package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(id string) Card {
	return Card{ID: id, PlayerName: "player " + id}
}

// newSeats builds n seats named s0..s(n-1), each holding size cards s<i>c<j>.
func newSeats(n, size int) []Seat {
	seats := make([]Seat, n)
	for i := range seats {
		seats[i].ID = fmt.Sprintf("s%d", i)
		for j := 0; j < size; j++ {
			seats[i].Hand = append(seats[i].Hand, card(fmt.Sprintf("s%dc%d", i, j)))
		}
	}
	return seats
}

func handIDs(s Seat) []string {
	ids := make([]string, len(s.Hand))
	for i, c := range s.Hand {
		ids[i] = c.ID
	}
	return ids
}

func TestWeighted_MultipliesByTableWeight(t *testing.T) {
	for attr, w := range Weights {
		for _, v := range []float64{0, 1, 37.5, 9000} {
			assert.Equal(t, v*w, Weighted(v, attr), "attr %s value %v", attr, v)
		}
	}
	assert.Equal(t, 0.0, Weighted(100, Attribute("format")))
}

func TestParseAttribute(t *testing.T) {
	a, err := ParseAttribute("centuries")
	require.NoError(t, err)
	assert.Equal(t, AttrCenturies, a)

	_, err = ParseAttribute("format")
	assert.ErrorIs(t, err, ErrUnknownAttribute)
}

func TestValidateClaim(t *testing.T) {
	seats := newSeats(2, 5)
	cases := []struct {
		name    string
		turn    int
		claim   Claim
		wantErr error
	}{
		{
			name:  "legal claim",
			turn:  0,
			claim: Claim{ClaimantID: "s0", CardIndex: 4, Attribute: AttrRuns, Value: 10},
		},
		{
			name:    "out of turn",
			turn:    0,
			claim:   Claim{ClaimantID: "s1", CardIndex: 0, Attribute: AttrRuns, Value: 10},
			wantErr: ErrNotYourTurn,
		},
		{
			name:    "index past hand",
			turn:    0,
			claim:   Claim{ClaimantID: "s0", CardIndex: 5, Attribute: AttrRuns, Value: 10},
			wantErr: ErrInvalidCardIndex,
		},
		{
			name:    "negative index",
			turn:    0,
			claim:   Claim{ClaimantID: "s0", CardIndex: -1, Attribute: AttrRuns, Value: 10},
			wantErr: ErrInvalidCardIndex,
		},
		{
			name:    "textual attribute",
			turn:    0,
			claim:   Claim{ClaimantID: "s0", CardIndex: 0, Attribute: "format", Value: 10},
			wantErr: ErrUnknownAttribute,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateClaim(seats, tc.turn, tc.claim)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, tc.wantErr), "want %v, got %v", tc.wantErr, err)
		})
	}
}

func TestValidateResponse(t *testing.T) {
	seats := newSeats(3, 2)
	claim := Claim{ClaimantID: "s0", CardIndex: 0, Attribute: AttrWickets, Value: 50}

	assert.NoError(t, ValidateResponse(seats, claim, Contest("s1", 1, AttrWickets, 60)))
	assert.NoError(t, ValidateResponse(seats, claim, Concede("s2")))
	assert.ErrorIs(t, ValidateResponse(seats, claim, Contest("s1", 0, AttrRuns, 60)), ErrAttributeMismatch)
	assert.ErrorIs(t, ValidateResponse(seats, claim, Contest("s1", 2, AttrWickets, 60)), ErrInvalidCardIndex)
	assert.ErrorIs(t, ValidateResponse(seats, claim, Concede("s0")), ErrNotAnOpponent)
	assert.ErrorIs(t, ValidateResponse(seats, claim, Concede("ghost")), ErrUnknownSeat)
}

func TestScenarioA_ContesterWins(t *testing.T) {
	seats := newSeats(2, 5)
	claim := Claim{ClaimantID: "s0", CardIndex: 0, Attribute: AttrRuns, Value: 9000}

	out := Resolve(seats, claim, []Response{Contest("s1", 0, AttrRuns, 9500)})
	require.Equal(t, "s1", out.WinnerID)
	assert.False(t, out.ClaimantWon)
	assert.Equal(t, 9500.0, out.WinningValue)
	assert.Equal(t, map[string]float64{"s0": -4, "s1": 1}, out.ScoreDeltas)
	require.Len(t, out.Transfers, 1)
	assert.Equal(t, Transfer{From: "s0", To: "s1", CardIndex: 0, Card: card("s0c0")}, out.Transfers[0])

	next, eliminated := Settle(seats, out)
	assert.Empty(t, eliminated)
	assert.Equal(t, []string{"s0c1", "s0c2", "s0c3", "s0c4"}, handIDs(next[0]))
	assert.Equal(t, []string{"s1c0", "s1c1", "s1c2", "s1c3", "s1c4", "s0c0"}, handIDs(next[1]))
	assert.Equal(t, -4.0, next[0].Score)
	assert.Equal(t, 1.0, next[1].Score)
	assert.Equal(t, 1, NextClaimant(seats, next, "s0", out.WinnerID))
}

func TestScenarioB_ConcedeForfeitsTopCard(t *testing.T) {
	seats := newSeats(2, 5)
	claim := Claim{ClaimantID: "s0", CardIndex: 2, Attribute: AttrWickets, Value: 50}

	out := Resolve(seats, claim, []Response{Concede("s1")})
	require.Equal(t, "s0", out.WinnerID)
	assert.True(t, out.ClaimantWon)
	assert.Equal(t, map[string]float64{"s0": 1.5, "s1": -1}, out.ScoreDeltas)
	require.Len(t, out.Transfers, 1)
	assert.Equal(t, "s1", out.Transfers[0].From)
	assert.Equal(t, "s0", out.Transfers[0].To)
	assert.Equal(t, 0, out.Transfers[0].CardIndex)

	next, _ := Settle(seats, out)
	assert.Equal(t, "s1c0", next[0].Hand[5].ID)
	assert.Len(t, next[1].Hand, 4)
	assert.Equal(t, 0, NextClaimant(seats, next, "s0", out.WinnerID))
}

func TestScenarioC_TieFavorsClaimant(t *testing.T) {
	seats := newSeats(4, 5)
	// centuries weigh 2.0, so a claim of 20 weighs 40.
	claim := Claim{ClaimantID: "s0", CardIndex: 0, Attribute: AttrCenturies, Value: 20}
	responses := []Response{
		Contest("s1", 1, AttrCenturies, 10),
		Contest("s2", 2, AttrCenturies, 20),
		Contest("s3", 3, AttrCenturies, 5),
	}

	out := Resolve(seats, claim, responses)
	require.True(t, out.ClaimantWon)
	assert.Equal(t, "s0", out.WinnerID)
	assert.Equal(t, map[string]float64{"s0": 1.5, "s1": 0, "s2": 0, "s3": 0}, out.ScoreDeltas)
	require.Len(t, out.Transfers, 3)

	next, _ := Settle(seats, out)
	assert.Equal(t, []string{"s0c0", "s0c1", "s0c2", "s0c3", "s0c4", "s1c1", "s2c2", "s3c3"}, handIDs(next[0]))
	for i := 1; i < 4; i++ {
		assert.Len(t, next[i].Hand, 4)
	}
}

func TestScenarioD_EmptiedSeatIsPruned(t *testing.T) {
	seats := newSeats(3, 5)
	seats[2].Hand = seats[2].Hand[:1]
	claim := Claim{ClaimantID: "s0", CardIndex: 0, Attribute: AttrRuns, Value: 100}

	out := Resolve(seats, claim, []Response{Contest("s1", 3, AttrRuns, 60), Contest("s2", 0, AttrRuns, 50)})
	next, eliminated := Settle(seats, out)

	assert.Equal(t, []string{"s2"}, eliminated)
	require.Len(t, next, 2)
	assert.Equal(t, "s0", next[0].ID)
	assert.Equal(t, "s1", next[1].ID)
	assert.Equal(t, 0, NextClaimant(seats, next, "s0", out.WinnerID))
	assert.Equal(t, 11, CountCards(next))
}

func TestSettle_LostLastCardWhileOthersForfeit(t *testing.T) {
	seats := newSeats(3, 5)
	seats[1].Hand = seats[1].Hand[:1]
	claim := Claim{ClaimantID: "s0", CardIndex: 0, Attribute: AttrRuns, Value: 100}

	// s1 loses its only card to the claimant while s2's top card moves to s0.
	out := Resolve(seats, claim, []Response{Contest("s1", 0, AttrRuns, 10), Concede("s2")})
	next, eliminated := Settle(seats, out)

	assert.Equal(t, []string{"s1"}, eliminated)
	require.Len(t, next, 2)
	assert.Equal(t, []string{"s0c0", "s0c1", "s0c2", "s0c3", "s0c4", "s1c0", "s2c0"}, handIDs(next[0]))
}

func TestResolve_ContesterWinCategories(t *testing.T) {
	seats := newSeats(5, 3)
	claim := Claim{ClaimantID: "s0", CardIndex: 1, Attribute: AttrStrikeRate, Value: 100}
	responses := []Response{
		Contest("s1", 0, AttrStrikeRate, 110), // above claim, not the best
		Contest("s2", 2, AttrStrikeRate, 150), // best
		Contest("s3", 1, AttrStrikeRate, 90),  // below claim
		TimedOut("s4"),
	}

	out := Resolve(seats, claim, responses)
	require.Equal(t, "s2", out.WinnerID)
	assert.InDelta(t, 180.0, out.WinningValue, 1e-9)
	assert.Equal(t, map[string]float64{"s0": -4, "s1": 1, "s2": 1, "s3": 0, "s4": -1}, out.ScoreDeltas)
	assert.Equal(t, []Transfer{
		{From: "s0", To: "s2", CardIndex: 1, Card: card("s0c1")},
		{From: "s3", To: "s0", CardIndex: 1, Card: card("s3c1")},
		{From: "s4", To: "s0", CardIndex: 0, Card: card("s4c0")},
	}, out.Transfers)
}

func TestResolve_EqualContestsKeepEarlierLeader(t *testing.T) {
	seats := newSeats(3, 2)
	claim := Claim{ClaimantID: "s0", CardIndex: 0, Attribute: AttrRuns, Value: 10}

	out := Resolve(seats, claim, []Response{
		Contest("s2", 0, AttrRuns, 30),
		Contest("s1", 0, AttrRuns, 30),
	})
	assert.Equal(t, "s2", out.WinnerID)
	// s1 beat the claim but not the leader.
	assert.Equal(t, 1.0, out.ScoreDeltas["s1"])
}

func TestResolve_SkipsPrunedSeats(t *testing.T) {
	seats := newSeats(3, 2)
	claim := Claim{ClaimantID: "s0", CardIndex: 0, Attribute: AttrRuns, Value: 10}
	gone := []Seat{seats[0], seats[1]}

	out := Resolve(gone, claim, []Response{Contest("s2", 0, AttrRuns, 5), Concede("s1")})
	require.Len(t, out.Transfers, 1)
	assert.Equal(t, "s1", out.Transfers[0].From)

	// A transfer naming a seat that has since disappeared is ignored by Settle.
	out.Transfers = append(out.Transfers, Transfer{From: "s2", To: "s0", CardIndex: 0})
	next, _ := Settle(gone, out)
	assert.Equal(t, CountCards(gone), CountCards(next))
}

func TestResolveExcept_ForfeitSkipsLeavingSeat(t *testing.T) {
	seats := newSeats(4, 2)
	claim := Claim{ClaimantID: "s0", CardIndex: 0, Attribute: AttrRuns, Value: 10}
	leaving := map[string]bool{"s2": true}

	out := ResolveExcept(seats, claim, []Response{
		Concede("s1"),
		Contest("s2", 0, AttrRuns, 50),
		Concede("s3"),
	}, leaving)
	assert.Equal(t, "s2", out.WinnerID)
	for _, tr := range out.Transfers {
		assert.NotEqual(t, "s2", tr.To, "card %s moved to a leaving seat", tr.Card.ID)
	}
	assert.Contains(t, out.Transfers, Transfer{From: "s1", To: "s3", CardIndex: 0, Card: card("s1c0")})
	assert.Contains(t, out.Transfers, Transfer{From: "s3", To: "s0", CardIndex: 0, Card: card("s3c0")})
}

func TestNextSeatExcept(t *testing.T) {
	seats := newSeats(3, 1)
	assert.Equal(t, "s2", NextSeatExcept(seats, "s0", map[string]bool{"s1": true}))
	assert.Equal(t, "s1", NextSeatExcept(seats, "s0", nil))
	assert.Equal(t, "", NextSeatExcept(seats, "s0", map[string]bool{"s1": true, "s2": true}))
	assert.Equal(t, "", NextSeatExcept(seats, "nobody", nil))
}

func TestSettle_ConservesCards(t *testing.T) {
	attrs := []Attribute{AttrRuns, AttrCenturies, AttrEconomy}
	for n := 2; n <= 6; n++ {
		for _, attr := range attrs {
			for claimValue := 0.0; claimValue <= 40; claimValue += 10 {
				seats := newSeats(n, 5)
				claim := Claim{ClaimantID: "s0", CardIndex: 4, Attribute: attr, Value: claimValue}
				var responses []Response
				for i := 1; i < n; i++ {
					id := fmt.Sprintf("s%d", i)
					if i%3 == 0 {
						responses = append(responses, Concede(id))
						continue
					}
					responses = append(responses, Contest(id, i%5, attr, float64(i*10)))
				}
				out := Resolve(seats, claim, responses)
				next, eliminated := Settle(seats, out)
				assert.Empty(t, eliminated)
				assert.Equal(t, n*5, CountCards(next), "n=%d attr=%s claim=%v", n, attr, claimValue)
			}
		}
	}
}

func TestSettle_DoesNotMutateInput(t *testing.T) {
	seats := newSeats(2, 2)
	claim := Claim{ClaimantID: "s0", CardIndex: 0, Attribute: AttrRuns, Value: 1}
	out := Resolve(seats, claim, []Response{Contest("s1", 1, AttrRuns, 2)})
	_, _ = Settle(seats, out)
	assert.Equal(t, []string{"s0c0", "s0c1"}, handIDs(seats[0]))
	assert.Equal(t, 0.0, seats[0].Score)
}

func TestNextClaimant_WinnerGoneFallsToFollowingSeat(t *testing.T) {
	prev := newSeats(4, 1)
	next := []Seat{prev[0], prev[3]}
	assert.Equal(t, 1, NextClaimant(prev, next, "s1", "s2"))
	assert.Equal(t, 0, NextClaimant(prev, next, "s3", ""))
	assert.Equal(t, -1, NextClaimant(prev, nil, "s0", "s0"))
}

func TestFinished(t *testing.T) {
	seats := newSeats(3, 1)
	seats[1].Score = 2
	seats[2].Score = 2

	cases := []struct {
		name       string
		seats      []Seat
		round      int
		wantDone   bool
		wantWinner string
	}{
		{name: "no seats", seats: nil, round: 1, wantDone: true},
		{name: "sole survivor", seats: seats[:1], round: 1, wantDone: true, wantWinner: "s0"},
		{name: "still playing", seats: seats, round: 3, wantDone: false},
		{name: "round cap picks best score, earliest on ties", seats: seats, round: 10, wantDone: true, wantWinner: "s1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			done, winner := Finished(tc.seats, tc.round, 10)
			assert.Equal(t, tc.wantDone, done)
			assert.Equal(t, tc.wantWinner, winner)
		})
	}
}

func TestDeal(t *testing.T) {
	seats := []Seat{{ID: "a", Score: 3}, {ID: "b"}}
	pile := newSeats(1, 10)[0].Hand

	dealt, ok := Deal(seats, pile, 5)
	require.True(t, ok)
	assert.Equal(t, []string{"s0c0", "s0c1", "s0c2", "s0c3", "s0c4"}, handIDs(dealt[0]))
	assert.Equal(t, []string{"s0c5", "s0c6", "s0c7", "s0c8", "s0c9"}, handIDs(dealt[1]))
	assert.Equal(t, 0.0, dealt[0].Score)

	_, ok = Deal(seats, pile[:9], 5)
	assert.False(t, ok)
}
