// Command seed fills the card catalog, either from a JSON file of cards or
// with generated ones. Existing cards are replaced.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/cardclash/cardclash-server/internal/catalog"
	"github.com/cardclash/cardclash-server/internal/config"
	"github.com/cardclash/cardclash-server/internal/engine"
	"github.com/cardclash/cardclash-server/internal/logging"
)

// Names used for generated cards.
var defaultNames = []string{
	"Virat Kohli", "Rohit Sharma", "Jasprit Bumrah", "Kane Williamson",
	"Steve Smith", "Joe Root", "Babar Azam", "Pat Cummins",
	"Shakib Al Hasan", "Rashid Khan", "Ben Stokes", "Trent Boult",
	"Mitchell Starc", "Kagiso Rabada", "Quinton de Kock", "David Warner",
}

func main() {
	var (
		file     string
		generate int
		seedVal  uint64
	)
	flag.StringVar(&file, "file", "", "JSON file with an array of cards")
	flag.IntVar(&generate, "generate", 0, "number of random cards to generate when no file is given")
	flag.Uint64Var(&seedVal, "seed", 0, "random seed for reproducible generation (0 = random)")
	flag.Parse()

	if err := run(file, generate, seedVal); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(file string, generate int, seedVal uint64) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.CatalogDriver == "memory" {
		return fmt.Errorf("the memory catalog is generated at startup and cannot be seeded")
	}
	log, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cards, err := load(file, generate, seedVal)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := catalog.Open(cfg.CatalogDriver, cfg.CatalogDSN, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	if err := store.Replace(ctx, cards); err != nil {
		return err
	}
	log.Info("catalog seeded", zap.Int("cards", len(cards)), zap.String("driver", cfg.CatalogDriver))
	return nil
}

func load(file string, generate int, seedVal uint64) ([]engine.Card, error) {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return catalog.LoadJSON(f)
	}
	if generate <= 0 {
		return nil, fmt.Errorf("pass -file or -generate N")
	}
	if seedVal == 0 {
		seedVal = rand.Uint64()
	}
	return catalog.Random(generate, defaultNames, rand.New(rand.NewPCG(seedVal, seedVal))), nil
}
