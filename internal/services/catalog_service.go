package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/healthvoice/healthlog/internal/domain"
	"github.com/healthvoice/healthlog/internal/logger"
	"github.com/healthvoice/healthlog/internal/readinglog"
	"github.com/healthvoice/healthlog/internal/storage"
)

// CatalogService manages the user's medication reference list.
type CatalogService struct {
	catalog *readinglog.Catalog
	repo    storage.Repository
}

func NewCatalogService(catalog *readinglog.Catalog, repo storage.Repository) *CatalogService {
	return &CatalogService{catalog: catalog, repo: repo}
}

// Restore preloads the catalog from the repository at startup.
func (s *CatalogService) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	entries, err := s.repo.ListCatalog(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.catalog.Upsert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Add creates a new catalog entry with a generated identifier.
func (s *CatalogService) Add(ctx context.Context, name string, dosage float64, unit string) (domain.CatalogEntry, error) {
	entry := domain.CatalogEntry{
		ID:     uuid.NewString(),
		Name:   name,
		Dosage: dosage,
		Unit:   unit,
	}
	return entry, s.upsert(ctx, entry)
}

// Update replaces the entry with the same identifier.
func (s *CatalogService) Update(ctx context.Context, entry domain.CatalogEntry) error {
	return s.upsert(ctx, entry)
}

func (s *CatalogService) upsert(ctx context.Context, entry domain.CatalogEntry) error {
	if err := s.catalog.Upsert(ctx, entry); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.SaveCatalogEntry(ctx, entry); err != nil {
			logger.Error("Failed to persist catalog entry", "entry_id", entry.ID, "error", err.Error())
		}
	}
	return nil
}

// Remove deletes the entry with the given identifier.
func (s *CatalogService) Remove(ctx context.Context, id string) error {
	if err := s.catalog.Remove(ctx, id); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.DeleteCatalogEntry(ctx, id); err != nil {
			logger.Error("Failed to delete persisted catalog entry", "entry_id", id, "error", err.Error())
		}
	}
	return nil
}

// List returns a read-only snapshot of the catalog.
func (s *CatalogService) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	return s.catalog.List(ctx)
}
