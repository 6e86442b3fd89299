package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/healthvoice/healthlog/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS readings (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	reading_id  TEXT NOT NULL UNIQUE,
	kind        TEXT NOT NULL,
	source      TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL,
	payload     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_recorded_at ON readings(recorded_at);

CREATE TABLE IF NOT EXISTS catalog_entries (
	id     TEXT PRIMARY KEY,
	name   TEXT NOT NULL,
	dosage REAL NOT NULL,
	unit   TEXT NOT NULL,
	seq    INTEGER
);
`

// SQLiteRepository stores readings and the catalog in a local SQLite
// file, the zero-setup option for single-user installs.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database file.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) SaveReading(ctx context.Context, reading domain.Reading) error {
	payload, err := encodeReading(reading)
	if err != nil {
		return err
	}

	meta := reading.Meta()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO readings (reading_id, kind, source, recorded_at, payload) VALUES (?, ?, ?, ?, ?)`,
		meta.ID, string(meta.Kind), string(meta.Source), meta.RecordedAt, payload)
	if err != nil {
		return fmt.Errorf("failed to save reading: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListReadings(ctx context.Context, limit int) ([]domain.Reading, error) {
	query := `SELECT kind, payload FROM readings ORDER BY recorded_at DESC, seq ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	var readings []domain.Reading
	for rows.Next() {
		var kind string
		var payload []byte
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		reading, err := decodeReading(domain.ReadingKind(kind), payload)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

func (r *SQLiteRepository) SaveCatalogEntry(ctx context.Context, entry domain.CatalogEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO catalog_entries (id, name, dosage, unit, seq)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM catalog_entries))
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, dosage = excluded.dosage, unit = excluded.unit`,
		entry.ID, entry.Name, entry.Dosage, entry.Unit)
	if err != nil {
		return fmt.Errorf("failed to save catalog entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCatalogEntry(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM catalog_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete catalog entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, dosage, unit FROM catalog_entries ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		var e domain.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Dosage, &e.Unit); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
