package lobby

import (
	"slices"

	"go.uber.org/zap"

	"github.com/cardclash/cardclash-server/internal/engine"
	"github.com/cardclash/cardclash-server/internal/types"
)

// round tracks one open claim until it resolves. Opponents are fixed when
// the claim opens.
type round struct {
	claim     engine.Claim
	opponents []string
	responses []engine.Response
	answered  map[string]bool
	remaining int
	resolved  bool
}

func newRound(c engine.Claim, seats []engine.Seat, ticks int) *round {
	r := &round{claim: c, answered: make(map[string]bool), remaining: ticks}
	for _, s := range seats {
		if s.ID != c.ClaimantID {
			r.opponents = append(r.opponents, s.ID)
		}
	}
	return r
}

func (r *round) isOpponent(id string) bool {
	return slices.Contains(r.opponents, id)
}

func (r *round) record(resp engine.Response) error {
	if r.resolved {
		return engine.ErrNoActiveClaim
	}
	if r.answered[resp.SeatID] {
		return engine.ErrDuplicateResponse
	}
	r.answered[resp.SeatID] = true
	r.responses = append(r.responses, resp)
	return nil
}

func (r *round) complete() bool {
	for _, id := range r.opponents {
		if !r.answered[id] {
			return false
		}
	}
	return true
}

// expire answers for every opponent still silent.
func (r *round) expire() {
	for _, id := range r.opponents {
		if !r.answered[id] {
			_ = r.record(engine.TimedOut(id))
		}
	}
}

func (r *round) rename(from, to string) {
	if r.claim.ClaimantID == from {
		r.claim.ClaimantID = to
	}
	for i, id := range r.opponents {
		if id == from {
			r.opponents[i] = to
		}
	}
	for i := range r.responses {
		if r.responses[i].SeatID == from {
			r.responses[i].SeatID = to
		}
	}
	if r.answered[from] {
		delete(r.answered, from)
		r.answered[to] = true
	}
}

func (l *Lobby) openRound(c engine.Claim) {
	r := newRound(c, l.seats, l.settings.ResponseTicks)
	l.current = r
	l.phase = PhaseAwaitingResponses

	stat := string(c.Attribute)
	l.sendTo(c.ClaimantID, types.ChallengeInitiated{ActivePlayer: c.ClaimantID, Stat: stat, TimeRemaining: r.remaining, IsConfirmation: true})
	l.sendTo(c.ClaimantID, types.StatQuoted{ActivePlayer: c.ClaimantID, Stat: stat, TimeRemaining: r.remaining, IsConfirmation: true})
	for _, id := range r.opponents {
		l.sendTo(id, types.ChallengeInitiated{ActivePlayer: c.ClaimantID, Stat: stat, TimeRemaining: r.remaining})
		l.sendTo(id, types.StatQuoted{ActivePlayer: c.ClaimantID, Stat: stat, TimeRemaining: r.remaining})
	}
	l.log.Info("claim opened",
		zap.Int("round", l.round),
		zap.String("claimant", c.ClaimantID),
		zap.String("stat", stat),
		zap.Float64("value", c.Value),
	)

	if r.remaining <= 0 {
		r.expire()
		l.resolve()
		return
	}
	l.armTick()
}

func (l *Lobby) roundTick() {
	r := l.current
	if r == nil || r.resolved {
		return
	}
	r.remaining--
	if r.remaining <= 0 {
		r.expire()
		l.resolve()
		return
	}
	for _, id := range r.opponents {
		l.sendTo(id, types.StatQuoted{ActivePlayer: r.claim.ClaimantID, Stat: string(r.claim.Attribute), TimeRemaining: r.remaining})
	}
	l.armTick()
}

func (l *Lobby) respond(resp engine.Response) error {
	if l.status == StatusEnded {
		return ErrSessionClosed
	}
	r := l.current
	if r == nil || r.resolved {
		return engine.ErrNoActiveClaim
	}
	if err := engine.ValidateResponse(l.seats, r.claim, resp); err != nil {
		return err
	}
	if !r.isOpponent(resp.SeatID) {
		return engine.ErrNotAnOpponent
	}
	if err := r.record(resp); err != nil {
		return err
	}
	if r.complete() {
		l.resolve()
	}
	return nil
}

// resolve settles the open round exactly once, whichever of the last
// response or the deadline gets here first.
func (l *Lobby) resolve() {
	r := l.current
	if r == nil || r.resolved {
		return
	}
	r.resolved = true
	l.timer.stop()
	l.phase = PhaseResolving

	out := engine.ResolveExcept(l.seats, r.claim, r.responses, l.departedSeats())
	prev := l.seats
	next, eliminated := engine.Settle(prev, out)
	for _, id := range eliminated {
		l.retired[id] = prev[engine.IndexOf(prev, id)].Score + out.ScoreDeltas[id]
		if m := l.members[id]; m != nil && m.departed {
			delete(l.members, id)
		}
	}
	next, gone := l.pruneDeparted(next)
	eliminated = append(eliminated, gone...)
	out.Eliminated = eliminated

	l.seats = next
	l.current = nil
	done, winner := engine.Finished(next, l.round, l.settings.MaxRounds)
	if !done {
		l.turn = l.boundFrom(engine.NextClaimant(prev, next, r.claim.ClaimantID, out.WinnerID))
		l.phase = PhaseAwaitingClaim
	}

	l.log.Info("round resolved",
		zap.Int("round", l.round),
		zap.String("winner", out.WinnerID),
		zap.Bool("claimantWon", out.ClaimantWon),
		zap.Strings("eliminated", eliminated),
	)
	l.broadcastResult(r, out.WinnerID, eliminated, false)
	if done {
		l.finish(winner)
		return
	}
	l.round++
}

// voidRound ends a round whose claimant disconnected: nothing is scored and
// the claimant's seat is dropped.
func (l *Lobby) voidRound() {
	r := l.current
	if r == nil || r.resolved {
		return
	}
	r.resolved = true
	l.timer.stop()

	prev := l.seats
	claimant := r.claim.ClaimantID
	i := engine.IndexOf(prev, claimant)
	next := append(engine.CloneSeats(prev[:i]), engine.CloneSeats(prev[i+1:])...)
	l.retire(prev[i])
	delete(l.members, claimant)
	next, gone := l.pruneDeparted(next)
	eliminated := append([]string{claimant}, gone...)

	l.seats = next
	l.current = nil
	done, winner := engine.Finished(next, l.round, l.settings.MaxRounds)
	if !done {
		l.turn = l.boundFrom(engine.NextClaimant(prev, next, claimant, ""))
		l.phase = PhaseAwaitingClaim
	}

	l.log.Info("round voided", zap.Int("round", l.round), zap.String("claimant", claimant))
	l.broadcastResult(r, "", eliminated, true)
	if done {
		l.finish(winner)
		return
	}
	l.round++
}

func (l *Lobby) departedSeats() map[string]bool {
	gone := make(map[string]bool)
	for _, s := range l.seats {
		if m := l.members[s.ID]; m != nil && m.departed {
			gone[s.ID] = true
		}
	}
	return gone
}

// pruneDeparted drops seats whose connection went away during the round.
func (l *Lobby) pruneDeparted(seats []engine.Seat) ([]engine.Seat, []string) {
	var gone []string
	kept := seats[:0]
	for _, s := range seats {
		if m := l.members[s.ID]; m != nil && m.departed {
			gone = append(gone, s.ID)
			l.retire(s)
			delete(l.members, s.ID)
			continue
		}
		kept = append(kept, s)
	}
	return kept, gone
}

func (l *Lobby) broadcastResult(r *round, winner string, eliminated []string, voided bool) {
	stat := string(r.claim.Attribute)
	subs := make(map[string]types.Submission, len(r.responses)+1)
	subs[r.claim.ClaimantID] = types.Submission{Stat: stat, Value: r.claim.Value}
	for _, resp := range r.responses {
		switch resp.Kind {
		case engine.ResponseContest:
			subs[resp.SeatID] = types.Submission{Stat: string(resp.Attribute), Value: resp.Value}
		case engine.ResponseConcede:
			subs[resp.SeatID] = types.Submission{Stat: "gaveUp"}
		case engine.ResponseTimedOut:
			subs[resp.SeatID] = types.Submission{Stat: "timedOut"}
		}
	}

	scores := l.scores()
	for id := range l.members {
		l.sendTo(id, types.RoundResult{
			Winner:      winner,
			Stat:        stat,
			Submissions: subs,
			Scores:      scores,
			Eliminated:  eliminated,
			Voided:      voided,
			GameState:   l.gameData(id),
		})
	}
}
