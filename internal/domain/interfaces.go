package domain

import (
	"context"
)

// Extractor converts unstructured transcripts and images into typed
// partial readings. A nil reading with a nil error means the backend
// response failed validation and the caller should treat it as "no
// result".
type Extractor interface {
	ExtractGlucoseFromText(ctx context.Context, transcript string) (*GlucoseReading, error)
	ExtractWeightFromText(ctx context.Context, transcript string) (*WeightReading, error)
	ExtractBloodPressureFromText(ctx context.Context, transcript string) (*BloodPressureReading, error)
	ExtractMealFromText(ctx context.Context, transcript string) (*MealEntry, error)

	ExtractGlucoseFromImage(ctx context.Context, image []byte, mimeType string) (*GlucoseReading, error)
	ExtractWeightFromImage(ctx context.Context, image []byte, mimeType string) (*WeightReading, error)
	ExtractBloodPressureFromImage(ctx context.Context, image []byte, mimeType string) (*BloodPressureReading, error)
	ExtractMealFromImage(ctx context.Context, image []byte, mimeType string) (*MealEntry, error)

	MatchMedication(ctx context.Context, transcript string, catalog []CatalogEntry) (*MedicationMatch, error)
}
