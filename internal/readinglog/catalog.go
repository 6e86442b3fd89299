package readinglog

import (
	"context"
	"sync"

	"github.com/healthvoice/healthlog/internal/domain"
	apperrors "github.com/healthvoice/healthlog/internal/errors"
)

// Catalog is the user-maintained medication reference list. Unlike
// readings, catalog entries may be replaced or removed by identifier.
type Catalog struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]domain.CatalogEntry
}

// NewCatalog returns an empty medication catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]domain.CatalogEntry)}
}

// Upsert inserts a new entry or replaces the entry with the same ID.
func (c *Catalog) Upsert(_ context.Context, e domain.CatalogEntry) error {
	if e.ID == "" || e.Name == "" {
		return apperrors.NewValidationError("catalog entry requires id and name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[e.ID]; !ok {
		c.order = append(c.order, e.ID)
	}
	c.entries[e.ID] = e
	return nil
}

// Remove deletes the entry with the given ID. Removing an unknown ID
// is a no-op.
func (c *Catalog) Remove(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return nil
	}
	delete(c.entries, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns a snapshot of the catalog in insertion order. The
// snapshot is safe to hand to extraction matching while the catalog
// keeps changing.
func (c *Catalog) List(_ context.Context) ([]domain.CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.CatalogEntry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out, nil
}
