package services

import (
	"context"

	"github.com/healthvoice/healthlog/internal/domain"
	apperrors "github.com/healthvoice/healthlog/internal/errors"
	"github.com/healthvoice/healthlog/internal/logger"
)

// CaptureKind selects which extraction a finished voice capture feeds.
type CaptureKind string

const (
	CaptureGlucose       CaptureKind = "glucose"
	CaptureWeight        CaptureKind = "weight"
	CaptureBloodPressure CaptureKind = "blood_pressure"
	CaptureMeal          CaptureKind = "meal"
	CaptureMedication    CaptureKind = "medication"
)

// ParseCaptureKind validates a capture kind from the wire.
func ParseCaptureKind(s string) (CaptureKind, error) {
	switch CaptureKind(s) {
	case CaptureGlucose, CaptureWeight, CaptureBloodPressure, CaptureMeal, CaptureMedication:
		return CaptureKind(s), nil
	}
	return "", apperrors.NewValidationError("unknown capture kind " + s)
}

// VoiceLogService resolves a finished voice transcript into one logged
// reading: capture until stopped, then interpret once.
type VoiceLogService struct {
	extractor domain.Extractor
	readings  *ReadingService
	catalog   *CatalogService
}

func NewVoiceLogService(extractor domain.Extractor, readings *ReadingService, catalog *CatalogService) *VoiceLogService {
	return &VoiceLogService{extractor: extractor, readings: readings, catalog: catalog}
}

// Resolve interprets the transcript for the given capture kind and
// appends the resulting reading. Returns (nil, nil) when the
// transcript is empty or could not be interpreted.
func (s *VoiceLogService) Resolve(ctx context.Context, kind CaptureKind, transcript string) (domain.Reading, error) {
	if transcript == "" {
		return nil, nil
	}
	logger.Info("Resolving voice transcript", "kind", string(kind), "transcript_len", len(transcript))

	switch kind {
	case CaptureGlucose:
		parsed, err := s.extractor.ExtractGlucoseFromText(ctx, transcript)
		if err != nil || parsed == nil {
			return nil, err
		}
		reading, err := s.readings.LogGlucose(ctx, *parsed, domain.SourceVoice)
		if err != nil {
			return nil, err
		}
		return reading, nil

	case CaptureWeight:
		parsed, err := s.extractor.ExtractWeightFromText(ctx, transcript)
		if err != nil || parsed == nil {
			return nil, err
		}
		reading, err := s.readings.LogWeight(ctx, *parsed, domain.SourceVoice)
		if err != nil {
			return nil, err
		}
		return reading, nil

	case CaptureBloodPressure:
		parsed, err := s.extractor.ExtractBloodPressureFromText(ctx, transcript)
		if err != nil || parsed == nil {
			return nil, err
		}
		reading, err := s.readings.LogBloodPressure(ctx, *parsed, domain.SourceVoice)
		if err != nil {
			return nil, err
		}
		return reading, nil

	case CaptureMeal:
		parsed, err := s.extractor.ExtractMealFromText(ctx, transcript)
		if err != nil || parsed == nil {
			return nil, err
		}
		reading, err := s.readings.LogMeal(ctx, *parsed, domain.SourceVoice)
		if err != nil {
			return nil, err
		}
		return reading, nil

	case CaptureMedication:
		snapshot, err := s.catalog.List(ctx)
		if err != nil {
			return nil, err
		}
		match, err := s.extractor.MatchMedication(ctx, transcript, snapshot)
		if err != nil || match == nil {
			return nil, err
		}
		entry := domain.MedicationEntry{
			Name:     match.Entry.Name,
			Dosage:   match.Entry.Dosage,
			Unit:     match.Entry.Unit,
			Quantity: match.Quantity,
		}
		reading, err := s.readings.LogMedication(ctx, entry, domain.SourceVoice)
		if err != nil {
			return nil, err
		}
		return reading, nil
	}

	return nil, apperrors.NewValidationError("unknown capture kind " + string(kind))
}
