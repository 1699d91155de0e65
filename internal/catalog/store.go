package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cardclash/cardclash-server/internal/engine"
)

// CardRecord is the persisted shape of a card.
type CardRecord struct {
	ID              string `gorm:"primaryKey;size:36"`
	PlayerName      string `gorm:"index"`
	Runs            float64
	Wickets         float64
	BattingAverage  float64
	StrikeRate      float64
	MatchesPlayed   float64
	Centuries       float64
	FiveWicketHauls float64
	Economy         float64
	Format          string
}

func (CardRecord) TableName() string { return "cards" }

func (r CardRecord) Card() engine.Card {
	return engine.Card{
		ID:              r.ID,
		PlayerName:      r.PlayerName,
		Runs:            r.Runs,
		Wickets:         r.Wickets,
		BattingAverage:  r.BattingAverage,
		StrikeRate:      r.StrikeRate,
		MatchesPlayed:   r.MatchesPlayed,
		Centuries:       r.Centuries,
		FiveWicketHauls: r.FiveWicketHauls,
		Economy:         r.Economy,
		Format:          r.Format,
	}
}

func recordOf(c engine.Card) CardRecord {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return CardRecord{
		ID:              c.ID,
		PlayerName:      c.PlayerName,
		Runs:            c.Runs,
		Wickets:         c.Wickets,
		BattingAverage:  c.BattingAverage,
		StrikeRate:      c.StrikeRate,
		MatchesPlayed:   c.MatchesPlayed,
		Centuries:       c.Centuries,
		FiveWicketHauls: c.FiveWicketHauls,
		Economy:         c.Economy,
		Format:          c.Format,
	}
}

// Store is the gorm-backed Catalog.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to the catalog database. driver is "postgres" or "sqlite";
// the schema is migrated on open.
func Open(driver, dsn string, log *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create catalog dir: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s catalog: %w", driver, err)
	}
	if err := db.AutoMigrate(&CardRecord{}); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	log.Info("catalog ready", zap.String("driver", driver))
	return &Store{db: db, log: log}, nil
}

// Sample draws up to n random cards. RANDOM() is understood by both postgres
// and sqlite.
func (s *Store) Sample(ctx context.Context, n int) ([]engine.Card, error) {
	var rows []CardRecord
	if err := s.db.WithContext(ctx).Order("RANDOM()").Limit(n).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sample %d cards: %w", n, err)
	}
	out := make([]engine.Card, len(rows))
	for i, r := range rows {
		out[i] = r.Card()
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&CardRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}

// Replace deletes every card and inserts the given set in one transaction.
func (s *Store) Replace(ctx context.Context, cards []engine.Card) error {
	records := make([]CardRecord, len(cards))
	for i, c := range cards {
		records[i] = recordOf(c)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&CardRecord{}).Error; err != nil {
			return fmt.Errorf("clear cards: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, 100).Error; err != nil {
			return fmt.Errorf("insert %d cards: %w", len(records), err)
		}
		return nil
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
