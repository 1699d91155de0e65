// Package hub owns the registry of live game sessions, keyed by room code.
package hub

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardclash/cardclash-server/internal/lobby"
)

var ErrSessionNotFound = errors.New("room not found")
var ErrHubClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Capacity int
	Reply    chan created
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

type created struct {
	lobby *lobby.Lobby
	err   error
}

type Hub struct {
	inbox    chan HubMsg
	lobbies  map[string]*lobby.Lobby
	settings lobby.Settings
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, settings lobby.Settings, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		lobbies:  make(map[string]*lobby.Lobby),
		settings: settings,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				lb, err := h.create(msg.Capacity)
				msg.Reply <- created{lobby: lb, err: err}

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				delete(h.lobbies, msg.Code)
				h.log.Info("room removed", zap.String("room", msg.Code), zap.Int("rooms", len(h.lobbies)))

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(capacity int) (*lobby.Lobby, error) {
	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		if h.lobbies[c] == nil {
			code = c
			break
		}
		h.log.Debug("collision on code, regenerating", zap.String("room", c))
	}

	lb, err := lobby.NewLobby(h.ctx, lobby.Options{
		Code:     code,
		Capacity: capacity,
		Settings: h.settings,
		Logger:   h.log,
		OnEnd:    func(code string) { h.post(RemoveLobby{Code: code}) },
	})
	if err != nil {
		return nil, err
	}
	h.lobbies[code] = lb
	h.log.Info("room created", zap.String("room", code), zap.Int("capacity", capacity))
	return lb, nil
}

// shutdown stops every session and waits for them to exit.
func (h *Hub) shutdown() {
	h.cancel()
	for _, lb := range h.lobbies {
		<-lb.Done()
	}
	clear(h.lobbies)
}

func (h *Hub) post(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

func (h *Hub) ask(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Create opens a new room with the creator's seat reserved.
func (h *Hub) Create(ctx context.Context, capacity int) (*lobby.Lobby, error) {
	reply := make(chan created, 1)
	if err := h.ask(ctx, CreateLobby{Capacity: capacity, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case c := <-reply:
		return c.lobby, c.err
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lookup finds a live room. Codes are matched case-insensitively.
func (h *Hub) Lookup(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.ask(ctx, GetLobby{Code: NormalizeCode(code), Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case lb := <-reply:
		if lb == nil {
			return nil, ErrSessionNotFound
		}
		return lb, nil
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Join reserves a seat in an existing room.
func (h *Hub) Join(ctx context.Context, code string) (*lobby.Lobby, lobby.Seating, error) {
	lb, err := h.Lookup(ctx, code)
	if err != nil {
		return nil, lobby.Seating{}, err
	}
	s, err := lb.Reserve(ctx)
	if errors.Is(err, lobby.ErrSessionClosed) {
		return nil, lobby.Seating{}, ErrSessionNotFound
	}
	return lb, s, err
}

func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.ask(ctx, CountLobbies{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-h.done:
		return 0, ErrHubClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Shutdown stops the hub and all of its sessions, waiting until they are
// gone or ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.post(ShutdownHub{})
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
