package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/cardclash/cardclash-server/internal/catalog"
	"github.com/cardclash/cardclash-server/internal/engine"
	"github.com/cardclash/cardclash-server/internal/hub"
	"github.com/cardclash/cardclash-server/internal/lobby"
)

const (
	defaultCardLimit = 5
	maxCardLimit     = 50
)

type roomRequest struct {
	MaxPlayers int    `json:"maxPlayers"`
	RoomCode   string `json:"roomCode"`
}

type roomResponse struct {
	RoomCode    string `json:"roomCode"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
}

type cardsResponse struct {
	Cards []engine.Card `json:"cards"`
	Count int           `json:"count"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusOf maps domain errors onto HTTP statuses. Anything unknown is a
// server fault.
func statusOf(err error) int {
	switch {
	case errors.Is(err, hub.ErrSessionNotFound), errors.Is(err, lobby.ErrSessionClosed):
		return http.StatusNotFound
	case errors.Is(err, lobby.ErrInvalidCapacity),
		errors.Is(err, lobby.ErrSessionFull),
		errors.Is(err, lobby.ErrTooFewPlayers):
		return http.StatusBadRequest
	case errors.Is(err, lobby.ErrGameAlreadyStarted):
		return http.StatusConflict
	case errors.Is(err, hub.ErrHubClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request) (roomRequest, bool) {
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func CreateRoom(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decode(w, r)
		if !ok {
			return
		}
		lb, err := h.Create(r.Context(), req.MaxPlayers)
		if err != nil {
			if statusOf(err) == http.StatusInternalServerError {
				log.Error("create room", zap.Error(err))
			}
			writeError(w, statusOf(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, roomResponse{RoomCode: lb.Code(), PlayerCount: 1, MaxPlayers: lb.Capacity()})
	}
}

func JoinRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decode(w, r)
		if !ok {
			return
		}
		lb, s, err := h.Join(r.Context(), req.RoomCode)
		if err != nil {
			writeError(w, statusOf(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, roomResponse{RoomCode: lb.Code(), PlayerCount: s.Occupancy, MaxPlayers: s.Capacity})
	}
}

func StartGame(h *hub.Hub, cards catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decode(w, r)
		if !ok {
			return
		}
		lb, err := h.Lookup(r.Context(), req.RoomCode)
		if err != nil {
			writeError(w, statusOf(err), err.Error())
			return
		}
		if err := lb.StartGame(r.Context(), cards); err != nil {
			status := statusOf(err)
			msg := err.Error()
			if status == http.StatusInternalServerError {
				log.Error("start game", zap.String("room", lb.Code()), zap.Error(err))
				msg = "failed to start game"
				if errors.Is(err, lobby.ErrInsufficientCards) {
					msg = "insufficient cards"
				}
			}
			writeError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Game started"})
	}
}

func Cards(cards catalog.Catalog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultCardLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxCardLimit)
		}
		sample, err := cards.Sample(r.Context(), limit)
		if err != nil {
			log.Error("sample cards", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to retrieve cards")
			return
		}
		writeJSON(w, http.StatusOK, cardsResponse{Cards: sample, Count: len(sample)})
	}
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Server is running"})
}
