// Package store persists sources, events, and model-usage records.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/eventrake/eventrake/pkg/models"
)

// ErrNotFound is returned when a source or event does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence surface the pipeline depends on. The orchestrator
// never touches the database directly; everything goes through here so tests
// can substitute an in-memory fake.
type Store interface {
	GetEnabledSources(ctx context.Context) ([]models.Source, error)
	GetSourceByID(ctx context.Context, id uuid.UUID) (*models.Source, error)
	// UpdateSource applies a partial update. Keys are column names; nil
	// values clear the column.
	UpdateSource(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// UpsertEvent inserts or, when (source_id, title, start_date) already
	// exists, updates the row in place.
	UpsertEvent(ctx context.Context, event *models.Event) error
	RecordLLMUsage(ctx context.Context, record *models.UsageRecord) error
}

// Admin extends Store with the operations the CLI needs for managing
// sources and inspecting results.
type Admin interface {
	Store
	CreateSource(ctx context.Context, source *models.Source) error
	ListSources(ctx context.Context) ([]models.Source, error)
	DeleteSource(ctx context.Context, id uuid.UUID) error
	EventsBySource(ctx context.Context, sourceID uuid.UUID) ([]models.Event, error)
}
