// Package extraction sends transcripts and images to a generative-AI
// backend together with a strict output schema and validates the JSON
// result into typed readings. Backend failures are degraded to nil
// results with a logged diagnostic; the only error surfaced to callers
// is the "wrong kind of photo" condition from classification.
package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/healthvoice/healthlog/internal/domain"
	apperrors "github.com/healthvoice/healthlog/internal/errors"
	"github.com/healthvoice/healthlog/internal/logger"
)

// Subject is the expected image content for classification.
type Subject string

const (
	SubjectGlucoseMeter         Subject = "a blood glucose meter showing a measurement"
	SubjectScale                Subject = "a weight scale showing a measurement"
	SubjectBloodPressureMonitor Subject = "a blood pressure monitor showing a measurement"
	SubjectFood                 Subject = "food, a meal or a drink"
)

// Service is the structured extraction service. Calls are stateless
// and independent; the only shared input is the read-only medication
// catalog snapshot passed into MatchMedication.
type Service struct {
	primary  generator
	fallback generator
}

// NewService creates the extraction service with Gemini as the primary
// backend and, when an OpenAI key is configured, OpenAI as fallback.
func NewService(ctx context.Context, geminiAPIKey, openaiAPIKey, model string) (*Service, error) {
	gemini, err := newGeminiProvider(ctx, geminiAPIKey, model)
	if err != nil {
		return nil, err
	}

	svc := &Service{primary: gemini}
	if openaiAPIKey != "" {
		svc.fallback = newOpenAIProvider(openaiAPIKey)
	}
	return svc, nil
}

// newServiceWithGenerators is the test seam.
func newServiceWithGenerators(primary, fallback generator) *Service {
	return &Service{primary: primary, fallback: fallback}
}

func (s *Service) generate(ctx context.Context, req generateRequest) (string, error) {
	text, err := s.primary.generate(ctx, req)
	if err == nil {
		return text, nil
	}
	if s.fallback == nil {
		return "", err
	}
	logger.Warn("Primary extraction backend failed, switching to fallback",
		"provider", s.primary.name(), "error", err.Error())
	return s.fallback.generate(ctx, req)
}

// Classify asks whether the image depicts the expected subject. The
// fail-safe-to-false policy is deliberate: transport and parsing
// failures yield false, never an error, so callers treat any failure
// as "not applicable".
func (s *Service) Classify(ctx context.Context, image []byte, mimeType string, subject Subject) bool {
	prompt := fmt.Sprintf(`Look at the image and decide whether it primarily shows %s.

Respond with a JSON object with a single boolean field "match".`, subject)

	text, err := s.generate(ctx, generateRequest{
		prompt: prompt,
		schema: classifySchema,
		format: classifyFormat,
		image:  image,
		mime:   mimeType,
	})
	if err != nil {
		logger.Warn("Image classification failed", "subject", string(subject), "error", err.Error())
		return false
	}

	m := decodeObject(text)
	if m == nil {
		logger.Warn("Image classification returned no valid JSON", "subject", string(subject))
		return false
	}
	match, ok := boolean(m, "match")
	return ok && match
}

// ExtractGlucoseFromText parses a spoken transcript into a glucose
// reading. Returns (nil, nil) when the backend fails or the response
// does not validate.
func (s *Service) ExtractGlucoseFromText(ctx context.Context, transcript string) (*domain.GlucoseReading, error) {
	prompt := fmt.Sprintf(`You are a diabetes logging assistant. Extract the blood glucose
measurement from the user's spoken words.

REQUIREMENTS:
- "value" is the numeric glucose value as spoken
- "unit" is "mg/dL" or "mmol/L"; infer from magnitude when not spoken (values above 30 are mg/dL)
- "context" is one of: fasting, before_meal, after_meal, bedtime, random; use "random" when not mentioned

Transcript: %q`, transcript)

	m := s.extract(ctx, prompt, glucoseSchema, glucoseFormat, nil, "")
	if m == nil {
		return nil, nil
	}
	return parseGlucose(m), nil
}

// ExtractGlucoseFromImage reads a glucose meter photo. Returns
// ErrWrongSubject when the image does not show a glucose meter so
// callers can tell "wrong kind of photo" apart from "unreadable".
func (s *Service) ExtractGlucoseFromImage(ctx context.Context, image []byte, mimeType string) (*domain.GlucoseReading, error) {
	if !s.Classify(ctx, image, mimeType, SubjectGlucoseMeter) {
		return nil, apperrors.ErrWrongSubject
	}

	prompt := `Read the blood glucose measurement shown on the meter display in the image.
"unit" is "mg/dL" or "mmol/L"; infer from the display or magnitude. "context" is "random" unless the display indicates otherwise.`

	m := s.extract(ctx, prompt, glucoseSchema, glucoseFormat, image, mimeType)
	if m == nil {
		return nil, nil
	}
	return parseGlucose(m), nil
}

// ExtractWeightFromText parses a spoken transcript into a weight reading.
func (s *Service) ExtractWeightFromText(ctx context.Context, transcript string) (*domain.WeightReading, error) {
	prompt := fmt.Sprintf(`Extract the body weight measurement from the user's spoken words.
"unit" is "kg" or "lb"; default to "kg" when not spoken.

Transcript: %q`, transcript)

	m := s.extract(ctx, prompt, weightSchema, weightFormat, nil, "")
	if m == nil {
		return nil, nil
	}
	return parseWeight(m), nil
}

// ExtractWeightFromImage reads a weight scale photo.
func (s *Service) ExtractWeightFromImage(ctx context.Context, image []byte, mimeType string) (*domain.WeightReading, error) {
	if !s.Classify(ctx, image, mimeType, SubjectScale) {
		return nil, apperrors.ErrWrongSubject
	}

	prompt := `Read the weight measurement shown on the scale display in the image.
"unit" is "kg" or "lb"; infer from the display.`

	m := s.extract(ctx, prompt, weightSchema, weightFormat, image, mimeType)
	if m == nil {
		return nil, nil
	}
	return parseWeight(m), nil
}

// ExtractBloodPressureFromText parses a spoken transcript into a blood
// pressure reading.
func (s *Service) ExtractBloodPressureFromText(ctx context.Context, transcript string) (*domain.BloodPressureReading, error) {
	prompt := fmt.Sprintf(`Extract the blood pressure measurement from the user's spoken words.
"systolic" and "diastolic" are in mmHg. "pulse" is beats per minute; use 0 when not mentioned.

Transcript: %q`, transcript)

	m := s.extract(ctx, prompt, bloodPressureSchema, bpFormat, nil, "")
	if m == nil {
		return nil, nil
	}
	return parseBloodPressure(m), nil
}

// ExtractBloodPressureFromImage reads a blood pressure monitor photo.
func (s *Service) ExtractBloodPressureFromImage(ctx context.Context, image []byte, mimeType string) (*domain.BloodPressureReading, error) {
	if !s.Classify(ctx, image, mimeType, SubjectBloodPressureMonitor) {
		return nil, apperrors.ErrWrongSubject
	}

	prompt := `Read the measurement shown on the blood pressure monitor display in the image.
"systolic" and "diastolic" are in mmHg. "pulse" is beats per minute; use 0 when the display does not show it.`

	m := s.extract(ctx, prompt, bloodPressureSchema, bpFormat, image, mimeType)
	if m == nil {
		return nil, nil
	}
	return parseBloodPressure(m), nil
}

// ExtractMealFromText parses a spoken meal description into food items
// with estimated nutrition.
func (s *Service) ExtractMealFromText(ctx context.Context, transcript string) (*domain.MealEntry, error) {
	prompt := fmt.Sprintf(`You are a nutrition analysis assistant. The user describes what they ate.
Identify the food items, estimate per-item nutrition based on standard
nutritional databases and typical portion sizes, and sum the totals.

Transcript: %q`, transcript)

	m := s.extract(ctx, prompt, mealSchema, mealFormat, nil, "")
	if m == nil {
		return nil, nil
	}
	return parseMeal(m), nil
}

// ExtractMealFromImage analyzes a food photo into food items with
// estimated nutrition.
func (s *Service) ExtractMealFromImage(ctx context.Context, image []byte, mimeType string) (*domain.MealEntry, error) {
	if !s.Classify(ctx, image, mimeType, SubjectFood) {
		return nil, apperrors.ErrWrongSubject
	}

	prompt := `You are a nutrition analysis assistant. Identify the food items in the
image, estimate per-item nutrition based on standard nutritional
databases and visible portion sizes, and sum the totals. Consider the
plate or bowl size when estimating portions. If the image contains
nutritional information or packaging, prioritize that data.`

	m := s.extract(ctx, prompt, mealSchema, mealFormat, image, mimeType)
	if m == nil {
		return nil, nil
	}
	return parseMeal(m), nil
}

// MatchMedication resolves a spoken medication intake against the
// user's catalog. The returned name must match a catalog entry exactly
// (case-insensitive) and the quantity must be positive; otherwise the
// result is discarded. No upper bound is enforced on quantity.
func (s *Service) MatchMedication(ctx context.Context, transcript string, catalog []domain.CatalogEntry) (*domain.MedicationMatch, error) {
	if len(catalog) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(catalog))
	for _, e := range catalog {
		names = append(names, e.Name)
	}

	prompt := fmt.Sprintf(`The user reports taking a medication. Their medication list is:
%s

Pick the medication name from the list that best matches what was said,
and the quantity taken. Quantities may be spoken as words ("two pills")
or digits ("2"). Return the name exactly as it appears in the list.

Transcript: %q`, strings.Join(names, "\n"), transcript)

	m := s.extract(ctx, prompt, medicationMatchSchema, medFormat, nil, "")
	if m == nil {
		return nil, nil
	}

	name, okName := str(m, "name")
	quantity, okQty := number(m, "quantity")
	if !okName || !okQty || quantity <= 0 {
		return nil, nil
	}

	for _, e := range catalog {
		if strings.EqualFold(e.Name, name) {
			return &domain.MedicationMatch{Entry: e, Quantity: quantity}, nil
		}
	}
	return nil, nil
}

// extract runs one schema-constrained call and returns the decoded
// object, or nil after logging when the backend fails or the response
// is not valid JSON.
func (s *Service) extract(ctx context.Context, prompt string, schema *genai.Schema, format string, image []byte, mime string) map[string]any {
	text, err := s.generate(ctx, generateRequest{
		prompt: prompt,
		schema: schema,
		format: format,
		image:  image,
		mime:   mime,
	})
	if err != nil {
		logger.Warn("Extraction backend call failed", "error", err.Error())
		return nil
	}

	m := decodeObject(text)
	if m == nil {
		logger.Warn("Extraction response contained no valid JSON")
		return nil
	}
	return m
}

func parseGlucose(m map[string]any) *domain.GlucoseReading {
	value, okValue := number(m, "value")
	unit, okUnit := enum(m, "unit", string(domain.UnitMgDL), string(domain.UnitMmolL))
	context, okContext := enum(m, "context",
		string(domain.ContextFasting), string(domain.ContextBeforeMeal),
		string(domain.ContextAfterMeal), string(domain.ContextBedtime),
		string(domain.ContextRandom))
	if !okValue || !okUnit || !okContext {
		logger.Debug("Glucose extraction failed validation")
		return nil
	}
	return &domain.GlucoseReading{
		Value:   value,
		Unit:    domain.GlucoseUnit(unit),
		Context: domain.GlucoseContext(context),
	}
}

func parseWeight(m map[string]any) *domain.WeightReading {
	value, okValue := number(m, "value")
	unit, okUnit := enum(m, "unit", string(domain.UnitKg), string(domain.UnitLb))
	if !okValue || !okUnit {
		logger.Debug("Weight extraction failed validation")
		return nil
	}
	return &domain.WeightReading{Value: value, Unit: domain.WeightUnit(unit)}
}

func parseBloodPressure(m map[string]any) *domain.BloodPressureReading {
	systolic, okSys := integer(m, "systolic")
	diastolic, okDia := integer(m, "diastolic")
	pulse, okPulse := integer(m, "pulse")
	if !okSys || !okDia || !okPulse {
		logger.Debug("Blood pressure extraction failed validation")
		return nil
	}
	return &domain.BloodPressureReading{Systolic: systolic, Diastolic: diastolic, Pulse: pulse}
}

func parseMeal(m map[string]any) *domain.MealEntry {
	description, okDesc := str(m, "description")
	rawItems, okItems := array(m, "items")
	rawTotals, okTotals := object(m, "totals")
	if !okDesc || !okItems || !okTotals {
		logger.Debug("Meal extraction failed validation")
		return nil
	}

	totals, ok := parseNutrition(rawTotals)
	if !ok {
		logger.Debug("Meal extraction failed validation on totals")
		return nil
	}

	items := make([]domain.FoodItem, 0, len(rawItems))
	for _, raw := range rawItems {
		obj, ok := raw.(map[string]any)
		if !ok {
			logger.Debug("Meal extraction failed validation on item")
			return nil
		}
		name, okName := str(obj, "name")
		rawNutrition, okNutrition := object(obj, "nutrition")
		if !okName || !okNutrition {
			logger.Debug("Meal extraction failed validation on item fields")
			return nil
		}
		nutrition, ok := parseNutrition(rawNutrition)
		if !ok {
			logger.Debug("Meal extraction failed validation on item nutrition")
			return nil
		}
		items = append(items, domain.FoodItem{Name: name, Nutrition: nutrition})
	}

	return &domain.MealEntry{Description: description, Items: items, Totals: totals}
}

func parseNutrition(m map[string]any) (domain.Nutrition, bool) {
	calories, okCal := number(m, "calories")
	carbs, okCarbs := number(m, "carbs")
	protein, okProtein := number(m, "protein")
	fat, okFat := number(m, "fat")
	if !okCal || !okCarbs || !okProtein || !okFat {
		return domain.Nutrition{}, false
	}
	return domain.Nutrition{Calories: calories, Carbs: carbs, Protein: protein, Fat: fat}, true
}
