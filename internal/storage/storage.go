// Package storage persists readings and the medication catalog behind
// a driver-selectable repository. The in-memory reading log remains
// the source of truth for the running session; repositories only make
// it durable.
package storage

import (
	"context"

	"github.com/healthvoice/healthlog/internal/domain"
)

// Repository is the persistence port. Implementations: Postgres via
// gorm, SQLite via database/sql.
type Repository interface {
	SaveReading(ctx context.Context, reading domain.Reading) error
	// ListReadings returns readings sorted strictly descending by
	// timestamp with insertion order as the stable tie-break.
	ListReadings(ctx context.Context, limit int) ([]domain.Reading, error)

	SaveCatalogEntry(ctx context.Context, entry domain.CatalogEntry) error
	DeleteCatalogEntry(ctx context.Context, id string) error
	ListCatalog(ctx context.Context) ([]domain.CatalogEntry, error)

	Close() error
}
