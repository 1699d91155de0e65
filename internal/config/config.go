package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Port      string `env:"PORT" envDefault:"3000"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// CatalogDriver is postgres, sqlite or memory.
	CatalogDriver string `env:"CATALOG_DRIVER" envDefault:"sqlite"`
	CatalogDSN    string `env:"CATALOG_DSN" envDefault:"data/cards.db"`

	Tick           time.Duration `env:"GAME_TICK" envDefault:"1s"`
	ResponseTicks  int           `env:"GAME_RESPONSE_TICKS" envDefault:"15"`
	CountdownTicks int           `env:"GAME_COUNTDOWN_TICKS" envDefault:"3"`
	MaxRounds      int           `env:"GAME_MAX_ROUNDS" envDefault:"50"`
	HandSize       int           `env:"GAME_HAND_SIZE" envDefault:"5"`

	// CORSOrigins are full origins such as https://app.example.com. Empty
	// allows any origin.
	CORSOrigins      []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	// WSOriginPatterns are host patterns such as localhost:* checked on the
	// websocket upgrade. Empty allows any origin.
	WSOriginPatterns []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
	RequestTimeout   time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file, then the process environment.
func Load(files ...string) (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load(files...)

	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.Tick <= 0:
		return fmt.Errorf("%w: GAME_TICK must be positive", ErrInvalidConfig)
	case c.ResponseTicks < 1:
		return fmt.Errorf("%w: GAME_RESPONSE_TICKS must be at least 1", ErrInvalidConfig)
	case c.CountdownTicks < 0:
		return fmt.Errorf("%w: GAME_COUNTDOWN_TICKS must not be negative", ErrInvalidConfig)
	case c.MaxRounds < 1:
		return fmt.Errorf("%w: GAME_MAX_ROUNDS must be at least 1", ErrInvalidConfig)
	case c.HandSize < 1:
		return fmt.Errorf("%w: GAME_HAND_SIZE must be at least 1", ErrInvalidConfig)
	}
	switch c.CatalogDriver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("%w: CATALOG_DRIVER %q", ErrInvalidConfig, c.CatalogDriver)
	}
	return nil
}

func (c Config) Addr() string { return ":" + c.Port }
