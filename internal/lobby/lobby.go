package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardclash/cardclash-server/internal/engine"
	"github.com/cardclash/cardclash-server/internal/types"
)

var ErrInvalidCapacity = errors.New("capacity must be between 2 and 6")
var ErrSessionFull = errors.New("room is full")
var ErrInsufficientCards = errors.New("insufficient cards")
var ErrTooFewPlayers = errors.New("not enough players to start")
var ErrGameNotStarted = errors.New("game not started")
var ErrGameAlreadyStarted = errors.New("game already started")
var ErrSessionClosed = errors.New("session closed")

const (
	MinSeats = 2
	MaxSeats = 6
)

type Status string

const (
	StatusFilling   Status = "filling"
	StatusCountdown Status = "countdown"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
)

type Phase string

const (
	PhaseLobby             Phase = "lobby"
	PhaseAwaitingClaim     Phase = "awaitingClaim"
	PhaseAwaitingResponses Phase = "awaitingResponses"
	PhaseResolving         Phase = "resolving"
)

// Settings are the per-game timing and size rules.
type Settings struct {
	HandSize       int
	ResponseTicks  int
	CountdownTicks int
	MaxRounds      int
	Tick           time.Duration
}

func DefaultSettings() Settings {
	return Settings{HandSize: 5, ResponseTicks: 15, CountdownTicks: 3, MaxRounds: 50, Tick: time.Second}
}

type Options struct {
	Code     string
	Capacity int
	Settings Settings
	Logger   *zap.Logger
	// OnEnd runs on the session goroutine once the game has ended.
	OnEnd func(code string)
}

type Msg interface{ isLobbyMsg() }

// Reserve holds a seat for a player who joined over HTTP and has not
// connected yet.
type Reserve struct {
	Reply chan Seating
}

// Attach binds a live connection to a seat.
type Attach struct {
	ConnID string
	Outbox chan<- types.ServerEvent
	Reply  chan Seating
}

type Leave struct{ ConnID string }

type Deal struct {
	Cards []engine.Card
	Reply chan error
}

type SubmitClaim struct {
	Claim engine.Claim
	Reply chan error
}

type Respond struct {
	Response engine.Response
	Reply    chan error
}

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

type tick struct{ gen uint64 }

// exec runs fn on the session goroutine.
type exec struct {
	fn   func(l *Lobby)
	done chan struct{}
}

func (Reserve) isLobbyMsg()     {}
func (Attach) isLobbyMsg()      {}
func (Leave) isLobbyMsg()       {}
func (Deal) isLobbyMsg()        {}
func (SubmitClaim) isLobbyMsg() {}
func (Respond) isLobbyMsg()     {}
func (GetState) isLobbyMsg()    {}
func (Shutdown) isLobbyMsg()    {}
func (tick) isLobbyMsg()        {}
func (exec) isLobbyMsg()        {}

type Seating struct {
	PlayerID  string
	SeatIndex int
	Occupancy int
	Capacity  int
	Err       error
}

type SeatView struct {
	ID    string
	Bound bool
	Hand  []engine.Card
	Score float64
}

type View struct {
	Code          string
	Capacity      int
	Occupancy     int
	Status        Status
	Phase         Phase
	Dealt         bool
	Round         int
	CurrentTurn   string
	Seats         []SeatView
	ActiveClaim   *engine.Claim
	Responses     int
	TimeRemaining int
	Scores        map[string]float64
}

type member struct {
	out      chan<- types.ServerEvent
	bound    bool
	departed bool
}

// Lobby is one game session. Every field below inbox is owned by the loop
// goroutine.
type Lobby struct {
	code     string
	capacity int
	settings Settings
	log      *zap.Logger
	onEnd    func(code string)

	inbox  chan Msg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	status    Status
	phase     Phase
	dealt     bool
	seats     []engine.Seat
	members   map[string]*member
	retired   map[string]float64
	turn      int
	round     int
	countdown int
	current   *round
	timer     timer
}

// NewLobby starts a session with one reserved seat for its creator.
func NewLobby(parent context.Context, opts Options) (*Lobby, error) {
	if opts.Capacity < MinSeats || opts.Capacity > MaxSeats {
		return nil, ErrInvalidCapacity
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		code:     opts.Code,
		capacity: opts.Capacity,
		settings: opts.Settings,
		log:      opts.Logger.With(zap.String("room", opts.Code)),
		onEnd:    opts.OnEnd,
		inbox:    make(chan Msg, 64),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		status:   StatusFilling,
		phase:    PhaseLobby,
		members:  make(map[string]*member),
		retired:  make(map[string]float64),
	}
	l.reserve()

	go l.loop()
	return l, nil
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			if stop := l.handle(m); stop || l.status == StatusEnded {
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handle(m Msg) bool {
	switch msg := m.(type) {
	case Reserve:
		msg.Reply <- l.reserve()
		l.fillCheck()

	case Attach:
		msg.Reply <- l.attach(msg.ConnID, msg.Outbox)
		l.fillCheck()

	case Leave:
		l.leave(msg.ConnID)

	case Deal:
		msg.Reply <- l.deal(msg.Cards)

	case SubmitClaim:
		msg.Reply <- l.submitClaim(msg.Claim)

	case Respond:
		msg.Reply <- l.respond(msg.Response)

	case GetState:
		msg.Reply <- l.view()

	case tick:
		l.onTick(msg.gen)

	case exec:
		msg.fn(l)
		close(msg.done)

	case Shutdown:
		return true
	}
	return false
}

func (l *Lobby) shutdown() {
	l.timer.stop()
	for _, m := range l.members {
		m.out = nil
	}
	l.cancel()
}

func (l *Lobby) Code() string          { return l.code }
func (l *Lobby) Capacity() int         { return l.capacity }
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Shutdown stops the session without announcing a result.
func (l *Lobby) Shutdown() { l.post(Shutdown{}) }

// Leave reports that a connection went away. It does not wait.
func (l *Lobby) Leave(connID string) { l.post(Leave{ConnID: connID}) }

func (l *Lobby) post(m Msg) {
	select {
	case l.inbox <- m:
	case <-l.done:
	}
}

// request delivers m and waits for its reply. A reply already sent by a
// session that then ended is still returned.
func request[T any](ctx context.Context, l *Lobby, m Msg, reply chan T) (T, error) {
	var zero T
	select {
	case l.inbox <- m:
	case <-l.done:
		return zero, ErrSessionClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrSessionClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (l *Lobby) Reserve(ctx context.Context) (Seating, error) {
	reply := make(chan Seating, 1)
	s, err := request(ctx, l, Reserve{Reply: reply}, reply)
	if err != nil {
		return Seating{}, err
	}
	return s, s.Err
}

func (l *Lobby) Attach(ctx context.Context, connID string, out chan<- types.ServerEvent) (Seating, error) {
	reply := make(chan Seating, 1)
	s, err := request(ctx, l, Attach{ConnID: connID, Outbox: out, Reply: reply}, reply)
	if err != nil {
		return Seating{}, err
	}
	return s, s.Err
}

func (l *Lobby) SubmitClaim(ctx context.Context, seatID string, cardIndex int, attr engine.Attribute, value float64) error {
	reply := make(chan error, 1)
	claim := engine.Claim{ClaimantID: seatID, CardIndex: cardIndex, Attribute: attr, Value: value}
	err, rerr := request(ctx, l, SubmitClaim{Claim: claim, Reply: reply}, reply)
	if rerr != nil {
		return rerr
	}
	return err
}

func (l *Lobby) Respond(ctx context.Context, r engine.Response) error {
	reply := make(chan error, 1)
	err, rerr := request(ctx, l, Respond{Response: r, Reply: reply}, reply)
	if rerr != nil {
		return rerr
	}
	return err
}

func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	return request(ctx, l, GetState{Reply: reply}, reply)
}

func (l *Lobby) reserve() Seating {
	if l.status != StatusFilling || len(l.seats) >= l.capacity {
		return Seating{Err: ErrSessionFull}
	}
	id := "seat-" + uuid.NewString()
	l.seats = append(l.seats, engine.Seat{ID: id})
	l.members[id] = &member{}

	s := Seating{PlayerID: id, SeatIndex: len(l.seats) - 1, Occupancy: len(l.seats), Capacity: l.capacity}
	l.log.Info("seat reserved", zap.Int("occupancy", s.Occupancy), zap.Int("capacity", l.capacity))
	return s
}

// fillCheck starts the countdown once every seat is reserved.
func (l *Lobby) fillCheck() {
	if l.status == StatusFilling && len(l.seats) == l.capacity {
		l.startCountdown()
	}
}

func (l *Lobby) attach(connID string, out chan<- types.ServerEvent) Seating {
	if m := l.members[connID]; m != nil && !m.departed {
		m.out, m.bound = out, true
		return l.seated(connID)
	}

	i := -1
	for j, s := range l.seats {
		if m := l.members[s.ID]; m != nil && !m.bound && !m.departed {
			i = j
			break
		}
	}
	if i < 0 {
		s := l.reserve()
		if s.Err != nil {
			return s
		}
		i = s.SeatIndex
	}

	l.rename(l.seats[i].ID, connID)
	m := l.members[connID]
	m.out, m.bound = out, true
	l.log.Info("player attached", zap.String("player", connID), zap.Int("seat", i))
	return l.seated(connID)
}

func (l *Lobby) seated(id string) Seating {
	i := engine.IndexOf(l.seats, id)
	s := Seating{PlayerID: id, SeatIndex: i, Occupancy: len(l.seats), Capacity: l.capacity}
	l.sendTo(id, types.Joined{RoomCode: l.code, PlayerID: id, SeatIndex: i})
	if l.dealt {
		l.sendTo(id, l.gameData(id))
	}
	return s
}

// rename moves a reserved seat onto the identity of the connection that
// claimed it.
func (l *Lobby) rename(from, to string) {
	if from == to {
		return
	}
	if i := engine.IndexOf(l.seats, from); i >= 0 {
		l.seats[i].ID = to
	}
	l.members[to] = l.members[from]
	delete(l.members, from)
	if l.current != nil {
		l.current.rename(from, to)
	}
}

func (l *Lobby) leave(id string) {
	m := l.members[id]
	if m == nil || !m.bound {
		return
	}
	m.out, m.bound = nil, false
	if !l.dealt {
		l.log.Info("player left before deal; seat kept", zap.String("player", id))
		return
	}

	i := engine.IndexOf(l.seats, id)
	if i < 0 {
		delete(l.members, id)
		return
	}
	m.departed = true
	l.log.Info("player disconnected", zap.String("player", id))
	if l.status != StatusActive {
		return
	}

	if r := l.current; r != nil && !r.resolved {
		if r.claim.ClaimantID == id {
			l.voidRound()
			return
		}
		if r.isOpponent(id) && !r.answered[id] {
			_ = r.record(engine.Concede(id))
			if r.complete() {
				l.resolve()
			}
		}
		return
	}
	l.dropSeat(i)
}

// dropSeat removes a departed seat between rounds.
func (l *Lobby) dropSeat(i int) {
	prev := l.seats
	id := prev[i].ID
	next := append(engine.CloneSeats(prev[:i]), engine.CloneSeats(prev[i+1:])...)

	l.retire(prev[i])
	delete(l.members, id)
	l.seats = next

	if done, winner := engine.Finished(next, 0, 0); done {
		l.finish(winner)
		return
	}
	claimant := prev[l.turn].ID
	l.turn = l.boundFrom(engine.NextClaimant(prev, next, claimant, claimant))
	l.broadcastGameData()
}

func (l *Lobby) retire(s engine.Seat) {
	l.retired[s.ID] = s.Score
}

func (l *Lobby) deal(cards []engine.Card) error {
	switch {
	case l.status == StatusEnded:
		return ErrSessionClosed
	case l.dealt:
		return ErrGameAlreadyStarted
	case len(l.seats) < MinSeats:
		return ErrTooFewPlayers
	}
	seats, ok := engine.Deal(l.seats, cards, l.settings.HandSize)
	if !ok {
		return ErrInsufficientCards
	}

	l.seats = seats
	l.dealt = true
	l.round = 1
	l.phase = PhaseAwaitingClaim
	l.turn = l.boundFrom(0)
	if l.status != StatusActive {
		l.activate()
	}
	l.log.Info("cards dealt", zap.Int("seats", len(seats)), zap.Int("hand", l.settings.HandSize))
	l.broadcastGameData()
	return nil
}

func (l *Lobby) submitClaim(c engine.Claim) error {
	switch {
	case l.status == StatusEnded:
		return ErrSessionClosed
	case !l.dealt || l.status != StatusActive:
		return ErrGameNotStarted
	case l.current != nil:
		return engine.ErrClaimAlreadyActive
	}
	if err := engine.ValidateClaim(l.seats, l.turn, c); err != nil {
		return err
	}
	l.openRound(c)
	return nil
}

func (l *Lobby) startCountdown() {
	l.status = StatusCountdown
	l.countdown = l.settings.CountdownTicks
	if l.countdown <= 0 {
		l.activate()
		return
	}
	l.broadcast(types.Countdown{Value: l.countdown})
	l.armTick()
}

func (l *Lobby) countdownTick() {
	l.countdown--
	if l.countdown <= 0 {
		l.activate()
		return
	}
	l.broadcast(types.Countdown{Value: l.countdown})
	l.armTick()
}

func (l *Lobby) activate() {
	l.timer.stop()
	l.status = StatusActive
	l.log.Info("game start")
	l.broadcast(types.GameStart{})
}

func (l *Lobby) finish(winner string) {
	l.timer.stop()
	l.current = nil
	l.status = StatusEnded
	l.phase = ""

	var w *string
	if winner != "" {
		w = &winner
	}
	l.broadcast(types.GameEnd{Winner: w, Scores: l.scores()})
	l.log.Info("game ended", zap.String("winner", winner), zap.Int("round", l.round))
	if l.onEnd != nil {
		l.onEnd(l.code)
	}
}

// boundFrom returns the first seat at or after i that has a live
// connection, or i when none does.
func (l *Lobby) boundFrom(i int) int {
	n := len(l.seats)
	if n == 0 || i < 0 {
		return 0
	}
	for k := 0; k < n; k++ {
		j := (i + k) % n
		if m := l.members[l.seats[j].ID]; m != nil && m.bound {
			return j
		}
	}
	return i % n
}

func (l *Lobby) currentTurn() string {
	if !l.dealt || l.status != StatusActive || l.turn >= len(l.seats) {
		return ""
	}
	return l.seats[l.turn].ID
}

func (l *Lobby) scores() map[string]float64 {
	out := make(map[string]float64, len(l.seats)+len(l.retired))
	for id, s := range l.retired {
		out[id] = s
	}
	for _, s := range l.seats {
		out[s.ID] = s.Score
	}
	return out
}

func (l *Lobby) view() View {
	v := View{
		Code:        l.code,
		Capacity:    l.capacity,
		Occupancy:   len(l.seats),
		Status:      l.status,
		Phase:       l.phase,
		Dealt:       l.dealt,
		Round:       l.round,
		CurrentTurn: l.currentTurn(),
		Scores:      l.scores(),
	}
	for _, s := range l.seats {
		m := l.members[s.ID]
		v.Seats = append(v.Seats, SeatView{
			ID:    s.ID,
			Bound: m != nil && m.bound,
			Hand:  append([]engine.Card(nil), s.Hand...),
			Score: s.Score,
		})
	}
	if r := l.current; r != nil {
		c := r.claim
		v.ActiveClaim = &c
		v.Responses = len(r.responses)
		v.TimeRemaining = r.remaining
	}
	return v
}

func (l *Lobby) gameData(id string) types.GameData {
	d := types.GameData{
		CurrentTurn: l.currentTurn(),
		Round:       l.round,
		Players:     []types.PlayerSummary{},
		Cards:       []engine.Card{},
		Scores:      l.scores(),
	}
	for _, s := range l.seats {
		d.Players = append(d.Players, types.PlayerSummary{ID: s.ID, CardCount: len(s.Hand)})
		if s.ID == id {
			d.Cards = append(d.Cards, s.Hand...)
		}
	}
	return d
}

func (l *Lobby) broadcastGameData() {
	for id := range l.members {
		l.sendTo(id, l.gameData(id))
	}
}

func (l *Lobby) broadcast(ev types.ServerEvent) {
	for id := range l.members {
		l.sendTo(id, ev)
	}
}

// sendTo never blocks the session. A recipient whose outbox is full stops
// receiving events.
func (l *Lobby) sendTo(id string, ev types.ServerEvent) {
	m := l.members[id]
	if m == nil || m.out == nil {
		return
	}
	select {
	case m.out <- ev:
	default:
		l.log.Warn("dropping slow client", zap.String("player", id), zap.String("event", string(ev.Kind())))
		m.out = nil
	}
}
