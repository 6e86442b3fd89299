package domain

import (
	"time"
)

// Source tags how a reading entered the log.
type Source string

const (
	SourceManual Source = "manual"
	SourceVoice  Source = "voice"
	SourcePhoto  Source = "photo"
)

// ReadingKind discriminates the reading variants in the combined log.
type ReadingKind string

const (
	KindGlucose       ReadingKind = "glucose"
	KindWeight        ReadingKind = "weight"
	KindBloodPressure ReadingKind = "blood_pressure"
	KindMedication    ReadingKind = "medication"
	KindMeal          ReadingKind = "meal"
)

// GlucoseUnit is the measurement unit for glucose values.
type GlucoseUnit string

const (
	UnitMgDL  GlucoseUnit = "mg/dL"
	UnitMmolL GlucoseUnit = "mmol/L"
)

// GlucoseContext describes when a glucose measurement was taken.
type GlucoseContext string

const (
	ContextFasting    GlucoseContext = "fasting"
	ContextBeforeMeal GlucoseContext = "before_meal"
	ContextAfterMeal  GlucoseContext = "after_meal"
	ContextBedtime    GlucoseContext = "bedtime"
	ContextRandom     GlucoseContext = "random"
)

// WeightUnit is the measurement unit for body weight.
type WeightUnit string

const (
	UnitKg WeightUnit = "kg"
	UnitLb WeightUnit = "lb"
)

// ReadingMeta carries the fields shared by every reading variant.
// ID and RecordedAt are assigned once at creation; readings are
// immutable after they are appended to the log.
type ReadingMeta struct {
	ID         string      `json:"id"`
	Kind       ReadingKind `json:"kind"`
	Source     Source      `json:"source"`
	RecordedAt time.Time   `json:"recordedAt"`
}

// Reading is one immutable logged health measurement or event.
type Reading interface {
	Meta() ReadingMeta
}

// GlucoseReading is a single blood glucose measurement.
type GlucoseReading struct {
	ReadingMeta
	Value   float64        `json:"value"`
	Unit    GlucoseUnit    `json:"unit"`
	Context GlucoseContext `json:"context"`
}

func (r GlucoseReading) Meta() ReadingMeta { return r.ReadingMeta }

// WeightReading is a single body weight measurement.
type WeightReading struct {
	ReadingMeta
	Value float64    `json:"value"`
	Unit  WeightUnit `json:"unit"`
}

func (r WeightReading) Meta() ReadingMeta { return r.ReadingMeta }

// BloodPressureReading is a single blood pressure measurement.
type BloodPressureReading struct {
	ReadingMeta
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
	Pulse     int `json:"pulse"`
}

func (r BloodPressureReading) Meta() ReadingMeta { return r.ReadingMeta }

// MedicationEntry is a logged medication intake event, distinct from
// the catalog record it may have been matched against.
type MedicationEntry struct {
	ReadingMeta
	Name     string  `json:"name"`
	Dosage   float64 `json:"dosage"`
	Unit     string  `json:"unit"`
	Quantity float64 `json:"quantity"`
}

func (r MedicationEntry) Meta() ReadingMeta { return r.ReadingMeta }

// Nutrition aggregates macronutrients for a food item or a whole meal.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
}

// FoodItem is one identified component of a meal.
type FoodItem struct {
	Name      string    `json:"name"`
	Nutrition Nutrition `json:"nutrition"`
}

// MealEntry is a logged meal with per-item and aggregated nutrition.
type MealEntry struct {
	ReadingMeta
	Description string     `json:"description"`
	Items       []FoodItem `json:"items"`
	Totals      Nutrition  `json:"totals"`
}

func (r MealEntry) Meta() ReadingMeta { return r.ReadingMeta }

// CatalogEntry is a user-maintained medication reference record,
// keyed by ID and referenced read-only during extraction matching.
type CatalogEntry struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Dosage float64 `json:"dosage"`
	Unit   string  `json:"unit"`
}

// MedicationMatch is the result of matching a transcript against the
// medication catalog.
type MedicationMatch struct {
	Entry    CatalogEntry `json:"entry"`
	Quantity float64      `json:"quantity"`
}
