package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardclash/cardclash-server/internal/hub"
)

type Options struct {
	// OriginPatterns are host patterns accepted on the upgrade; empty allows
	// any origin.
	OriginPatterns []string
}

// Handler upgrades the request and serves one player connection. A room can
// be joined straight away with ?code=, or later with a joinRoom event.
func Handler(h *hub.Hub, log *zap.Logger, opts Options) http.HandlerFunc {
	origins := opts.OriginPatterns
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code != "" {
			if _, err := h.Lookup(r.Context(), code); errors.Is(err, hub.ErrSessionNotFound) {
				http.Error(w, "room not found", http.StatusNotFound)
				return
			}
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: origins})
		if err != nil {
			log.Warn("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := newClient(uuid.NewString(), conn, h, log)
		c.serve(r.Context(), code)
	}
}

func closedNormally(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
