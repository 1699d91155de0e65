package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cardclash/cardclash-server/internal/catalog"
	"github.com/cardclash/cardclash-server/internal/hub"
	"github.com/cardclash/cardclash-server/internal/ws"
)

type Options struct {
	// CORSOrigins are full origins ("https://app.example.com", wildcards like
	// "https://*.example.com" allowed). Empty allows any origin.
	CORSOrigins []string
	// WSOriginPatterns are host patterns ("app.example.com", "localhost:*")
	// checked on the websocket upgrade. Empty allows any origin.
	WSOriginPatterns []string
	RequestTimeout   time.Duration
}

func SetupRoutes(h *hub.Hub, cards catalog.Catalog, log *zap.Logger, opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(accessLog(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(opts.RequestTimeout))
		r.Post("/create-room", CreateRoom(h, log))
		r.Post("/join-room", JoinRoom(h))
		r.Post("/start-game", StartGame(h, cards, log))
		r.Get("/cards", Cards(cards, log))
		r.Get("/health", Health)
	})

	// The socket outlives any request timeout.
	r.Get("/ws", ws.Handler(h, log, ws.Options{OriginPatterns: opts.WSOriginPatterns}))
	return r
}
