package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/eventrake/eventrake/pkg/models"
)

// Config holds database connection configuration.
type Config struct {
	DSN string
}

// DB is the GORM-backed Store implementation.
type DB struct {
	db *gorm.DB
}

var _ Admin = (*DB)(nil)

// Open connects to Postgres and migrates the schema.
func Open(config Config) (*DB, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	db, err := gorm.Open(postgres.Open(config.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&models.Source{}, &models.Event{}, &models.UsageRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &DB{db: db}, nil
}

// NewWithDB wraps an already-open GORM handle. Used by tests.
func NewWithDB(db *gorm.DB) *DB {
	return &DB{db: db}
}

func (s *DB) GetEnabledSources(ctx context.Context) ([]models.Source, error) {
	var sources []models.Source
	if err := s.db.WithContext(ctx).Where(&models.Source{Enabled: true}).Order("created_at").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to list enabled sources: %w", err)
	}
	return sources, nil
}

func (s *DB) GetSourceByID(ctx context.Context, id uuid.UUID) (*models.Source, error) {
	var source models.Source
	err := s.db.WithContext(ctx).First(&source, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load source %s: %w", id, err)
	}
	return &source, nil
}

func (s *DB) UpdateSource(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&models.Source{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update source %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertEvent inserts the event or updates the existing row keyed on
// (source_id, title, start_date). The id, created_at, and raw payload of the
// first extraction survive; mutable fields and updated_at are refreshed.
func (s *DB) UpsertEvent(ctx context.Context, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now().UTC()
	if event.ScrapedAt.IsZero() {
		event.ScrapedAt = now
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_id"}, {Name: "title"}, {Name: "start_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"end_date", "location", "description", "url", "image_url",
			"raw_data", "updated_at", "scraped_at",
		}),
	}).Create(event).Error
	if err != nil {
		return fmt.Errorf("failed to upsert event %q: %w", event.Title, err)
	}
	return nil
}

func (s *DB) RecordLLMUsage(ctx context.Context, record *models.UsageRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

func (s *DB) CreateSource(ctx context.Context, source *models.Source) error {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(source).Error; err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	return nil
}

func (s *DB) ListSources(ctx context.Context) ([]models.Source, error) {
	var sources []models.Source
	if err := s.db.WithContext(ctx).Order("created_at").Find(&sources).Error; err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

// DeleteSource removes a source and its events. The FK cascade already
// covers the events; the explicit delete keeps the behavior independent of
// how the schema was created.
func (s *DB) DeleteSource(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_id = ?", id).Delete(&models.Event{}).Error; err != nil {
			return fmt.Errorf("failed to delete events for source %s: %w", id, err)
		}
		res := tx.Delete(&models.Source{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete source %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *DB) EventsBySource(ctx context.Context, sourceID uuid.UUID) ([]models.Event, error) {
	var events []models.Event
	if err := s.db.WithContext(ctx).Where("source_id = ?", sourceID).Order("start_date").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events for source %s: %w", sourceID, err)
	}
	return events, nil
}
