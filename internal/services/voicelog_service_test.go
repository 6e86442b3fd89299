package services

import (
	"context"
	"testing"

	"github.com/healthvoice/healthlog/internal/domain"
	"github.com/healthvoice/healthlog/internal/readinglog"
)

// fakeExtractor returns canned results and records which extraction
// was invoked.
type fakeExtractor struct {
	glucose  *domain.GlucoseReading
	weight   *domain.WeightReading
	pressure *domain.BloodPressureReading
	meal     *domain.MealEntry
	match    *domain.MedicationMatch

	calls       []string
	seenCatalog []domain.CatalogEntry
}

func (f *fakeExtractor) ExtractGlucoseFromText(_ context.Context, _ string) (*domain.GlucoseReading, error) {
	f.calls = append(f.calls, "glucose")
	return f.glucose, nil
}

func (f *fakeExtractor) ExtractWeightFromText(_ context.Context, _ string) (*domain.WeightReading, error) {
	f.calls = append(f.calls, "weight")
	return f.weight, nil
}

func (f *fakeExtractor) ExtractBloodPressureFromText(_ context.Context, _ string) (*domain.BloodPressureReading, error) {
	f.calls = append(f.calls, "blood_pressure")
	return f.pressure, nil
}

func (f *fakeExtractor) ExtractMealFromText(_ context.Context, _ string) (*domain.MealEntry, error) {
	f.calls = append(f.calls, "meal")
	return f.meal, nil
}

func (f *fakeExtractor) ExtractGlucoseFromImage(_ context.Context, _ []byte, _ string) (*domain.GlucoseReading, error) {
	return f.glucose, nil
}

func (f *fakeExtractor) ExtractWeightFromImage(_ context.Context, _ []byte, _ string) (*domain.WeightReading, error) {
	return f.weight, nil
}

func (f *fakeExtractor) ExtractBloodPressureFromImage(_ context.Context, _ []byte, _ string) (*domain.BloodPressureReading, error) {
	return f.pressure, nil
}

func (f *fakeExtractor) ExtractMealFromImage(_ context.Context, _ []byte, _ string) (*domain.MealEntry, error) {
	return f.meal, nil
}

func (f *fakeExtractor) MatchMedication(_ context.Context, _ string, catalog []domain.CatalogEntry) (*domain.MedicationMatch, error) {
	f.calls = append(f.calls, "medication")
	f.seenCatalog = catalog
	return f.match, nil
}

func newVoiceHarness(extractor *fakeExtractor) (*VoiceLogService, *ReadingService, *CatalogService) {
	readings := newTestReadingService(&fakeRepository{}, nil)
	catalog := NewCatalogService(readinglog.NewCatalog(), nil)
	return NewVoiceLogService(extractor, readings, catalog), readings, catalog
}

func TestResolve_GlucoseTranscriptBecomesReading(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{glucose: &domain.GlucoseReading{
		Value: 5.8, Unit: domain.UnitMmolL, Context: domain.ContextFasting,
	}}
	svc, readings, _ := newVoiceHarness(extractor)

	reading, err := svc.Resolve(ctx, CaptureGlucose, "five point eight fasting")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	glucose, ok := reading.(domain.GlucoseReading)
	if !ok {
		t.Fatalf("expected glucose reading, got %T", reading)
	}
	if glucose.Source != domain.SourceVoice {
		t.Fatalf("expected voice source, got %s", glucose.Source)
	}
	if glucose.Value != 5.8 || glucose.Context != domain.ContextFasting {
		t.Fatalf("extracted values lost: %+v", glucose)
	}

	logged, _ := readings.List(ctx, 0)
	if len(logged) != 1 {
		t.Fatalf("expected reading appended to log, got %d", len(logged))
	}
}

func TestResolve_EmptyTranscriptSkipsExtraction(t *testing.T) {
	extractor := &fakeExtractor{}
	svc, _, _ := newVoiceHarness(extractor)

	reading, err := svc.Resolve(context.Background(), CaptureGlucose, "")
	if err != nil || reading != nil {
		t.Fatalf("expected (nil, nil) for empty transcript, got (%v, %v)", reading, err)
	}
	if len(extractor.calls) != 0 {
		t.Fatalf("extractor must not be called for empty transcript: %v", extractor.calls)
	}
}

func TestResolve_UninterpretableTranscriptLogsNothing(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{} // all extractions return nil
	svc, readings, _ := newVoiceHarness(extractor)

	reading, err := svc.Resolve(ctx, CaptureWeight, "mumbled nonsense")
	if err != nil || reading != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", reading, err)
	}

	logged, _ := readings.List(ctx, 0)
	if len(logged) != 0 {
		t.Fatalf("nothing should be logged, got %d readings", len(logged))
	}
}

func TestResolve_MedicationUsesCatalogSnapshot(t *testing.T) {
	ctx := context.Background()
	entry := domain.CatalogEntry{ID: "1", Name: "Metformin", Dosage: 500, Unit: "mg"}
	extractor := &fakeExtractor{match: &domain.MedicationMatch{Entry: entry, Quantity: 2}}
	svc, readings, catalog := newVoiceHarness(extractor)

	if err := catalog.Update(ctx, entry); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	reading, err := svc.Resolve(ctx, CaptureMedication, "took two metformin")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	med, ok := reading.(domain.MedicationEntry)
	if !ok {
		t.Fatalf("expected medication entry, got %T", reading)
	}
	if med.Name != "Metformin" || med.Dosage != 500 || med.Quantity != 2 {
		t.Fatalf("catalog fields not carried over: %+v", med)
	}
	if med.Source != domain.SourceVoice {
		t.Fatalf("expected voice source, got %s", med.Source)
	}

	if len(extractor.seenCatalog) != 1 || extractor.seenCatalog[0].ID != "1" {
		t.Fatalf("matcher did not receive the catalog snapshot: %+v", extractor.seenCatalog)
	}

	logged, _ := readings.List(ctx, 0)
	if len(logged) != 1 {
		t.Fatalf("expected one logged reading, got %d", len(logged))
	}
}

func TestResolve_RejectsUnknownKind(t *testing.T) {
	svc, _, _ := newVoiceHarness(&fakeExtractor{})

	if _, err := svc.Resolve(context.Background(), CaptureKind("steps"), "ten thousand"); err == nil {
		t.Fatal("expected error for unknown capture kind")
	}
}

func TestParseCaptureKind(t *testing.T) {
	for _, valid := range []string{"glucose", "weight", "blood_pressure", "meal", "medication"} {
		if _, err := ParseCaptureKind(valid); err != nil {
			t.Fatalf("%s must parse: %v", valid, err)
		}
	}
	if _, err := ParseCaptureKind("steps"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
