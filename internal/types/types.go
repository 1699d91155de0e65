package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cardclash/cardclash-server/internal/engine"
)

var ErrUnknownEvent = errors.New("unknown event type")

type Kind string

// Server -> client.
const (
	KindCountdown          Kind = "countdown"
	KindGameStart          Kind = "gameStart"
	KindGameData           Kind = "gameData"
	KindJoined             Kind = "joined"
	KindChallengeInitiated Kind = "challengeInitiated"
	KindStatQuoted         Kind = "statQuoted"
	KindRoundResult        Kind = "roundResult"
	KindGameEnd            Kind = "gameEnd"
	KindError              Kind = "error"
)

// Client -> server.
const (
	KindJoinRoom   Kind = "joinRoom"
	KindSubmitStat Kind = "submitStat"
	KindChallenge  Kind = "challenge"
	KindGaveUp     Kind = "gaveUp"
)

// ServerEvent is implemented by every outbound payload.
type ServerEvent interface{ Kind() Kind }

type Countdown struct {
	Value int `json:"value"`
}

type GameStart struct{}

type PlayerSummary struct {
	ID        string `json:"socketId"`
	CardCount int    `json:"cardCount"`
}

// GameData is built per recipient: Cards holds only that recipient's hand.
type GameData struct {
	Players     []PlayerSummary    `json:"players"`
	CurrentTurn string             `json:"currentTurn"`
	Round       int                `json:"round"`
	Cards       []engine.Card      `json:"cards"`
	Scores      map[string]float64 `json:"scores"`
}

type Joined struct {
	RoomCode  string `json:"roomCode"`
	PlayerID  string `json:"playerId"`
	SeatIndex int    `json:"seatIndex"`
}

type ChallengeInitiated struct {
	ActivePlayer   string `json:"activePlayer"`
	Stat           string `json:"stat"`
	TimeRemaining  int    `json:"timeRemaining"`
	IsConfirmation bool   `json:"isConfirmation"`
}

type StatQuoted struct {
	ActivePlayer   string `json:"activePlayer"`
	Stat           string `json:"stat"`
	TimeRemaining  int    `json:"timeRemaining"`
	IsConfirmation bool   `json:"isConfirmation"`
}

type Submission struct {
	Stat  string  `json:"stat"`
	Value float64 `json:"value"`
}

type RoundResult struct {
	Winner      string                `json:"winner"`
	Stat        string                `json:"stat"`
	Submissions map[string]Submission `json:"submissions"`
	Scores      map[string]float64    `json:"scores"`
	Eliminated  []string              `json:"eliminated,omitempty"`
	Voided      bool                  `json:"voided,omitempty"`
	GameState   GameData              `json:"gameState"`
}

// GameEnd.Winner is nil only when no seat is left.
type GameEnd struct {
	Winner *string            `json:"winner"`
	Scores map[string]float64 `json:"scores"`
}

type Error struct {
	Message string `json:"message"`
}

func (Countdown) Kind() Kind          { return KindCountdown }
func (GameStart) Kind() Kind          { return KindGameStart }
func (GameData) Kind() Kind           { return KindGameData }
func (Joined) Kind() Kind             { return KindJoined }
func (ChallengeInitiated) Kind() Kind { return KindChallengeInitiated }
func (StatQuoted) Kind() Kind         { return KindStatQuoted }
func (RoundResult) Kind() Kind        { return KindRoundResult }
func (GameEnd) Kind() Kind            { return KindGameEnd }
func (Error) Kind() Kind              { return KindError }

type ServerMessage struct {
	Type Kind        `json:"type"`
	Data ServerEvent `json:"data,omitempty"`
}

func Encode(ev ServerEvent) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: ev.Kind(), Data: ev})
}

// ClientEvent is implemented by every inbound payload. Room is the session
// code the event targets.
type ClientEvent interface {
	Kind() Kind
	Room() string
}

type JoinRoom struct {
	RoomCode string `json:"roomCode"`
}

type SubmitStat struct {
	RoomCode  string  `json:"roomCode"`
	CardIndex int     `json:"cardIndex"`
	Stat      string  `json:"stat"`
	Value     float64 `json:"value"`
}

type Challenge struct {
	RoomCode  string  `json:"roomCode"`
	CardIndex int     `json:"cardIndex"`
	Stat      string  `json:"stat"`
	Value     float64 `json:"value"`
}

type GaveUp struct {
	RoomCode string `json:"roomCode"`
}

func (JoinRoom) Kind() Kind   { return KindJoinRoom }
func (SubmitStat) Kind() Kind { return KindSubmitStat }
func (Challenge) Kind() Kind  { return KindChallenge }
func (GaveUp) Kind() Kind     { return KindGaveUp }

func (e JoinRoom) Room() string   { return e.RoomCode }
func (e SubmitStat) Room() string { return e.RoomCode }
func (e Challenge) Room() string  { return e.RoomCode }
func (e GaveUp) Room() string     { return e.RoomCode }

type ClientMessage struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode parses one inbound frame into its typed event.
func Decode(raw []byte) (ClientEvent, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	var ev ClientEvent
	switch msg.Type {
	case KindJoinRoom:
		ev = &JoinRoom{}
	case KindSubmitStat:
		ev = &SubmitStat{}
	case KindChallenge:
		ev = &Challenge{}
	case KindGaveUp:
		ev = &GaveUp{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msg.Type, err)
		}
	}

	switch e := ev.(type) {
	case *JoinRoom:
		return *e, nil
	case *SubmitStat:
		return *e, nil
	case *Challenge:
		return *e, nil
	default:
		return *ev.(*GaveUp), nil
	}
}
