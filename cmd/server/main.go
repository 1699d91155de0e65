package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cardclash/cardclash-server/internal/catalog"
	"github.com/cardclash/cardclash-server/internal/config"
	"github.com/cardclash/cardclash-server/internal/httpapi"
	"github.com/cardclash/cardclash-server/internal/hub"
	"github.com/cardclash/cardclash-server/internal/lobby"
	"github.com/cardclash/cardclash-server/internal/logging"
)

// memoryCatalogSize is how many generated cards back the memory driver.
const memoryCatalogSize = 200

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cards, closeCatalog, err := openCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeCatalog()) }()

	h := hub.NewHub(ctx, lobby.Settings{
		HandSize:       cfg.HandSize,
		ResponseTicks:  cfg.ResponseTicks,
		CountdownTicks: cfg.CountdownTicks,
		MaxRounds:      cfg.MaxRounds,
		Tick:           cfg.Tick,
	}, log)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpapi.SetupRoutes(h, cards, log, httpapi.Options{
			CORSOrigins:      cfg.CORSOrigins,
			WSOriginPatterns: cfg.WSOriginPatterns,
			RequestTimeout:   cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		// Sockets are hijacked and outlive Shutdown; tie them to the signal.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("catalog", cfg.CatalogDriver))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(srv.Shutdown(sctx), h.Shutdown(sctx))
	})
	return g.Wait()
}

func openCatalog(ctx context.Context, cfg config.Config, log *zap.Logger) (catalog.Catalog, func() error, error) {
	if cfg.CatalogDriver == "memory" {
		log.Info("using generated in-memory catalog", zap.Int("cards", memoryCatalogSize))
		return catalog.NewMemory(catalog.Random(memoryCatalogSize, nil, nil)), func() error { return nil }, nil
	}

	store, err := catalog.Open(cfg.CatalogDriver, cfg.CatalogDSN, log)
	if err != nil {
		return nil, nil, err
	}
	n, err := store.Count(ctx)
	if err != nil {
		return nil, nil, multierr.Append(err, store.Close())
	}
	if n == 0 {
		log.Warn("catalog is empty; games cannot start until it is seeded (go run ./cmd/seed)")
	}
	return store, store.Close, nil
}
