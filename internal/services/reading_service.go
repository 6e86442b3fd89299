package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/healthvoice/healthlog/internal/domain"
	"github.com/healthvoice/healthlog/internal/logger"
	"github.com/healthvoice/healthlog/internal/readinglog"
	"github.com/healthvoice/healthlog/internal/storage"
)

// ReadingPublisher fans out appended readings; implementations must
// never block the logging path.
type ReadingPublisher interface {
	PublishReading(reading domain.Reading)
}

// ReadingService owns the session reading log and mirrors appended
// readings into the repository and the event publisher when they are
// configured. Identifiers are UUIDs, not clock-derived, so two
// readings created in the same instant never collide.
type ReadingService struct {
	log       *readinglog.Log
	repo      storage.Repository
	publisher ReadingPublisher
	newID     func() string
	now       func() time.Time
}

func NewReadingService(log *readinglog.Log, repo storage.Repository, publisher ReadingPublisher) *ReadingService {
	return &ReadingService{
		log:       log,
		repo:      repo,
		publisher: publisher,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Restore preloads the session log from the repository at startup.
func (s *ReadingService) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	readings, err := s.repo.ListReadings(ctx, 0)
	if err != nil {
		return err
	}
	// The repository returns newest-first with equal timestamps in
	// insertion order. A stable ascending sort keeps those tie groups
	// intact while restoring the original creation order, so a plain
	// reversal would flip them.
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Meta().RecordedAt.Before(readings[j].Meta().RecordedAt)
	})
	for _, reading := range readings {
		if err := s.log.Append(ctx, reading); err != nil {
			return err
		}
	}
	logger.Info("Restored readings from repository", "count", len(readings))
	return nil
}

func (s *ReadingService) newMeta(kind domain.ReadingKind, source domain.Source) domain.ReadingMeta {
	return domain.ReadingMeta{
		ID:         s.newID(),
		Kind:       kind,
		Source:     source,
		RecordedAt: s.now(),
	}
}

// append stamps the meta, adds the reading to the session log and
// mirrors it to the repository and publisher.
func (s *ReadingService) append(ctx context.Context, reading domain.Reading) error {
	if err := s.log.Append(ctx, reading); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.SaveReading(ctx, reading); err != nil {
			// The session log already holds the reading; persistence
			// failure degrades durability, not the user flow.
			logger.Error("Failed to persist reading", "reading_id", reading.Meta().ID, "error", err.Error())
		}
	}
	if s.publisher != nil {
		s.publisher.PublishReading(reading)
	}
	return nil
}

func (s *ReadingService) LogGlucose(ctx context.Context, r domain.GlucoseReading, source domain.Source) (domain.GlucoseReading, error) {
	r.ReadingMeta = s.newMeta(domain.KindGlucose, source)
	return r, s.append(ctx, r)
}

func (s *ReadingService) LogWeight(ctx context.Context, r domain.WeightReading, source domain.Source) (domain.WeightReading, error) {
	r.ReadingMeta = s.newMeta(domain.KindWeight, source)
	return r, s.append(ctx, r)
}

func (s *ReadingService) LogBloodPressure(ctx context.Context, r domain.BloodPressureReading, source domain.Source) (domain.BloodPressureReading, error) {
	r.ReadingMeta = s.newMeta(domain.KindBloodPressure, source)
	return r, s.append(ctx, r)
}

func (s *ReadingService) LogMedication(ctx context.Context, r domain.MedicationEntry, source domain.Source) (domain.MedicationEntry, error) {
	r.ReadingMeta = s.newMeta(domain.KindMedication, source)
	return r, s.append(ctx, r)
}

func (s *ReadingService) LogMeal(ctx context.Context, r domain.MealEntry, source domain.Source) (domain.MealEntry, error) {
	r.ReadingMeta = s.newMeta(domain.KindMeal, source)
	return r, s.append(ctx, r)
}

// List returns the combined log, newest first.
func (s *ReadingService) List(ctx context.Context, limit int) ([]domain.Reading, error) {
	return s.log.List(ctx, limit)
}
