package ws

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/cardclash/cardclash-server/internal/engine"
	"github.com/cardclash/cardclash-server/internal/hub"
	"github.com/cardclash/cardclash-server/internal/lobby"
	"github.com/cardclash/cardclash-server/internal/types"
)

const (
	outboxSize   = 32
	writeTimeout = 3 * time.Second
)

var errNotInRoom = errors.New("join a room first")
var errWrongRoom = errors.New("not a member of that room")

type client struct {
	id   string
	conn *websocket.Conn
	hub  *hub.Hub
	log  *zap.Logger
	out  chan types.ServerEvent
	room *lobby.Lobby
}

func newClient(id string, conn *websocket.Conn, h *hub.Hub, log *zap.Logger) *client {
	return &client{
		id:   id,
		conn: conn,
		hub:  h,
		log:  log.With(zap.String("conn", id)),
		out:  make(chan types.ServerEvent, outboxSize),
	}
}

// serve runs the reader loop on the calling goroutine and the writer on
// another. The session is told about the departure on the way out.
func (c *client) serve(ctx context.Context, code string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.writeLoop(ctx, cancel)
	defer func() {
		if c.room != nil {
			c.room.Leave(c.id)
		}
	}()

	if code != "" {
		if err := c.join(ctx, code); err != nil {
			c.reply(types.Error{Message: err.Error()})
		}
	}

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if !closedNormally(err) {
				c.log.Debug("websocket read", zap.Error(err))
			}
			return
		}

		ev, err := types.Decode(data)
		if err != nil {
			c.reply(types.Error{Message: err.Error()})
			continue
		}
		if err := c.dispatch(ctx, ev); err != nil {
			c.reply(types.Error{Message: err.Error()})
		}
	}
}

func (c *client) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.out:
			payload, err := types.Encode(ev)
			if err != nil {
				c.log.Error("encode event", zap.String("event", string(ev.Kind())), zap.Error(err))
				continue
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err = c.conn.Write(wctx, websocket.MessageText, payload)
			wcancel()
			if err != nil {
				c.log.Debug("websocket write", zap.Error(err))
				cancel()
				return
			}
		}
	}
}

// reply queues an event for this connection only.
func (c *client) reply(ev types.ServerEvent) {
	select {
	case c.out <- ev:
	default:
		c.log.Warn("outbox full, dropping reply", zap.String("event", string(ev.Kind())))
	}
}

func (c *client) dispatch(ctx context.Context, ev types.ClientEvent) error {
	if e, ok := ev.(types.JoinRoom); ok {
		return c.join(ctx, e.RoomCode)
	}

	lb, err := c.current(ev.Room())
	if err != nil {
		return err
	}
	switch e := ev.(type) {
	case types.SubmitStat:
		attr, err := engine.ParseAttribute(e.Stat)
		if err != nil {
			return err
		}
		return lb.SubmitClaim(ctx, c.id, e.CardIndex, attr, e.Value)

	case types.Challenge:
		attr, err := engine.ParseAttribute(e.Stat)
		if err != nil {
			return err
		}
		return lb.Respond(ctx, engine.Contest(c.id, e.CardIndex, attr, e.Value))

	case types.GaveUp:
		return lb.Respond(ctx, engine.Concede(c.id))
	}
	return types.ErrUnknownEvent
}

func (c *client) join(ctx context.Context, code string) error {
	lb, err := c.hub.Lookup(ctx, code)
	if err != nil {
		return err
	}
	if c.room != nil && c.room != lb {
		c.room.Leave(c.id)
		c.room = nil
	}
	if _, err := lb.Attach(ctx, c.id, c.out); err != nil {
		return err
	}
	c.room = lb
	return nil
}

// current returns the joined session, checking that an event naming a room
// names this one.
func (c *client) current(code string) (*lobby.Lobby, error) {
	if c.room == nil {
		return nil, errNotInRoom
	}
	if code != "" && hub.NormalizeCode(code) != c.room.Code() {
		return nil, errWrongRoom
	}
	return c.room, nil
}
