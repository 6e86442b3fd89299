package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/healthvoice/healthlog/internal/domain"
	"github.com/healthvoice/healthlog/internal/readinglog"
)

type fakeRepository struct {
	saved     []domain.Reading
	listed    []domain.Reading
	saveErr   error
	catalog   []domain.CatalogEntry
	deleted   []string
	listErr   error
	closeCall int
}

func (f *fakeRepository) SaveReading(_ context.Context, r domain.Reading) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeRepository) ListReadings(_ context.Context, _ int) ([]domain.Reading, error) {
	return f.listed, f.listErr
}

func (f *fakeRepository) SaveCatalogEntry(_ context.Context, e domain.CatalogEntry) error {
	f.catalog = append(f.catalog, e)
	return nil
}

func (f *fakeRepository) DeleteCatalogEntry(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepository) ListCatalog(_ context.Context) ([]domain.CatalogEntry, error) {
	return f.catalog, nil
}

func (f *fakeRepository) Close() error {
	f.closeCall++
	return nil
}

type fakePublisher struct {
	published []domain.Reading
}

func (f *fakePublisher) PublishReading(r domain.Reading) {
	f.published = append(f.published, r)
}

func newTestReadingService(repo *fakeRepository, pub ReadingPublisher) *ReadingService {
	svc := NewReadingService(readinglog.NewLog(), repo, pub)
	seq := 0
	svc.newID = func() string {
		seq++
		return string(rune('a' + seq - 1))
	}
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		return base.Add(time.Duration(seq) * time.Minute)
	}
	return svc
}

func TestLogGlucose_StampsMetaAndMirrors(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepository{}
	pub := &fakePublisher{}
	svc := newTestReadingService(repo, pub)

	logged, err := svc.LogGlucose(ctx, domain.GlucoseReading{
		Value: 5.8, Unit: domain.UnitMmolL, Context: domain.ContextFasting,
	}, domain.SourceVoice)
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}

	if logged.ID == "" {
		t.Fatal("expected generated id")
	}
	if logged.Kind != domain.KindGlucose {
		t.Fatalf("expected glucose kind, got %s", logged.Kind)
	}
	if logged.Source != domain.SourceVoice {
		t.Fatalf("expected voice source, got %s", logged.Source)
	}
	if logged.RecordedAt.IsZero() {
		t.Fatal("expected RecordedAt to be stamped")
	}

	if len(repo.saved) != 1 || repo.saved[0].Meta().ID != logged.ID {
		t.Fatalf("reading not mirrored to repository: %+v", repo.saved)
	}
	if len(pub.published) != 1 || pub.published[0].Meta().ID != logged.ID {
		t.Fatalf("reading not handed to publisher: %+v", pub.published)
	}
}

func TestLog_PersistenceFailureDoesNotBlockLogging(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepository{saveErr: errors.New("db down")}
	svc := newTestReadingService(repo, nil)

	_, err := svc.LogWeight(ctx, domain.WeightReading{Value: 71.2, Unit: domain.UnitKg}, domain.SourceManual)
	if err != nil {
		t.Fatalf("logging must succeed despite persistence failure, got %v", err)
	}

	readings, _ := svc.List(ctx, 0)
	if len(readings) != 1 {
		t.Fatalf("expected reading in session log, got %d", len(readings))
	}
}

func TestList_CombinedLogNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc := newTestReadingService(&fakeRepository{}, nil)

	_, _ = svc.LogGlucose(ctx, domain.GlucoseReading{Value: 100, Unit: domain.UnitMgDL, Context: domain.ContextRandom}, domain.SourceManual)
	_, _ = svc.LogMedication(ctx, domain.MedicationEntry{Name: "Metformin", Dosage: 500, Unit: "mg", Quantity: 1}, domain.SourceManual)
	_, _ = svc.LogBloodPressure(ctx, domain.BloodPressureReading{Systolic: 120, Diastolic: 80, Pulse: 65}, domain.SourcePhoto)

	readings, err := svc.List(ctx, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}

	wantKinds := []domain.ReadingKind{domain.KindBloodPressure, domain.KindMedication, domain.KindGlucose}
	for i, want := range wantKinds {
		if got := readings[i].Meta().Kind; got != want {
			t.Fatalf("position %d: got %s, want %s", i, got, want)
		}
	}
}

func TestRestore_RebuildsLogInCreationOrder(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	repo := &fakeRepository{listed: []domain.Reading{
		domain.WeightReading{
			ReadingMeta: domain.ReadingMeta{ID: "newer", Kind: domain.KindWeight, Source: domain.SourceManual, RecordedAt: base.Add(time.Hour)},
			Value:       70, Unit: domain.UnitKg,
		},
		domain.GlucoseReading{
			ReadingMeta: domain.ReadingMeta{ID: "older", Kind: domain.KindGlucose, Source: domain.SourceManual, RecordedAt: base},
			Value:       100, Unit: domain.UnitMgDL, Context: domain.ContextRandom,
		},
	}}
	svc := NewReadingService(readinglog.NewLog(), repo, nil)

	if err := svc.Restore(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	readings, _ := svc.List(ctx, 0)
	if len(readings) != 2 {
		t.Fatalf("expected 2 restored readings, got %d", len(readings))
	}
	if readings[0].Meta().ID != "newer" || readings[1].Meta().ID != "older" {
		t.Fatalf("unexpected restored order: %s, %s", readings[0].Meta().ID, readings[1].Meta().ID)
	}
}

func TestRestore_EqualTimestampsKeepStoredOrder(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	glucose := func(id string, recordedAt time.Time) domain.GlucoseReading {
		return domain.GlucoseReading{
			ReadingMeta: domain.ReadingMeta{ID: id, Kind: domain.KindGlucose, Source: domain.SourceManual, RecordedAt: recordedAt},
			Value:       100, Unit: domain.UnitMgDL, Context: domain.ContextRandom,
		}
	}
	// Repository order: newest first, ties in insertion order.
	repo := &fakeRepository{listed: []domain.Reading{
		glucose("late", at.Add(time.Hour)),
		glucose("tie-a", at),
		glucose("tie-b", at),
		glucose("tie-c", at),
	}}
	svc := NewReadingService(readinglog.NewLog(), repo, nil)

	if err := svc.Restore(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	readings, _ := svc.List(ctx, 0)
	wantOrder := []string{"late", "tie-a", "tie-b", "tie-c"}
	if len(readings) != len(wantOrder) {
		t.Fatalf("expected %d readings, got %d", len(wantOrder), len(readings))
	}
	for i, want := range wantOrder {
		if got := readings[i].Meta().ID; got != want {
			t.Fatalf("position %d: got %s, want %s", i, got, want)
		}
	}
}

func TestCatalogService_AddUpdateRemove(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepository{}
	svc := NewCatalogService(readinglog.NewCatalog(), repo)

	entry, err := svc.Add(ctx, "Metformin", 500, "mg")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected generated id")
	}

	entry.Dosage = 850
	if err := svc.Update(ctx, entry); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	entries, _ := svc.List(ctx)
	if len(entries) != 1 || entries[0].Dosage != 850 {
		t.Fatalf("unexpected entries after update: %+v", entries)
	}

	if err := svc.Remove(ctx, entry.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != entry.ID {
		t.Fatalf("delete not mirrored to repository: %+v", repo.deleted)
	}
}
