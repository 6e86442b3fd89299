package storage

import (
	"encoding/json"
	"fmt"

	"github.com/healthvoice/healthlog/internal/domain"
)

// encodeReading serializes a reading to its JSON payload. The kind is
// stored alongside the payload so decoding can pick the right variant.
func encodeReading(reading domain.Reading) ([]byte, error) {
	payload, err := json.Marshal(reading)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reading: %w", err)
	}
	return payload, nil
}

// decodeReading reconstructs the typed variant from a stored payload.
func decodeReading(kind domain.ReadingKind, payload []byte) (domain.Reading, error) {
	switch kind {
	case domain.KindGlucose:
		var r domain.GlucoseReading
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("failed to decode glucose reading: %w", err)
		}
		return r, nil
	case domain.KindWeight:
		var r domain.WeightReading
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("failed to decode weight reading: %w", err)
		}
		return r, nil
	case domain.KindBloodPressure:
		var r domain.BloodPressureReading
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("failed to decode blood pressure reading: %w", err)
		}
		return r, nil
	case domain.KindMedication:
		var r domain.MedicationEntry
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("failed to decode medication entry: %w", err)
		}
		return r, nil
	case domain.KindMeal:
		var r domain.MealEntry
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("failed to decode meal entry: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown reading kind %q", kind)
	}
}
