package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/healthvoice/healthlog/internal/config"
	"github.com/healthvoice/healthlog/internal/domain"
)

type readingRecord struct {
	Seq        int64  `gorm:"primaryKey;autoIncrement"`
	ReadingID  string `gorm:"uniqueIndex"`
	Kind       string `gorm:"index"`
	Source     string
	RecordedAt time.Time `gorm:"index"`
	Payload    []byte
}

type catalogRecord struct {
	ID     string `gorm:"primaryKey"`
	Name   string
	Dosage float64
	Unit   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostgresRepository stores readings and the catalog in PostgreSQL.
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository connects and migrates the schema.
func NewPostgresRepository(cfg config.DBConfig) (*PostgresRepository, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&readingRecord{}, &catalogRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) SaveReading(ctx context.Context, reading domain.Reading) error {
	payload, err := encodeReading(reading)
	if err != nil {
		return err
	}

	meta := reading.Meta()
	record := readingRecord{
		ReadingID:  meta.ID,
		Kind:       string(meta.Kind),
		Source:     string(meta.Source),
		RecordedAt: meta.RecordedAt,
		Payload:    payload,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to save reading: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListReadings(ctx context.Context, limit int) ([]domain.Reading, error) {
	q := r.db.WithContext(ctx).Order("recorded_at DESC, seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var records []readingRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}

	readings := make([]domain.Reading, 0, len(records))
	for _, record := range records {
		reading, err := decodeReading(domain.ReadingKind(record.Kind), record.Payload)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

func (r *PostgresRepository) SaveCatalogEntry(ctx context.Context, entry domain.CatalogEntry) error {
	record := catalogRecord{ID: entry.ID, Name: entry.Name, Dosage: entry.Dosage, Unit: entry.Unit}
	if err := r.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("failed to save catalog entry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteCatalogEntry(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&catalogRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete catalog entry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListCatalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	var records []catalogRecord
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	entries := make([]domain.CatalogEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, domain.CatalogEntry{
			ID: record.ID, Name: record.Name, Dosage: record.Dosage, Unit: record.Unit,
		})
	}
	return entries, nil
}

func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
