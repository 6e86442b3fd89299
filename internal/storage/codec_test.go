package storage

import (
	"testing"
	"time"

	"github.com/healthvoice/healthlog/internal/domain"
)

func TestDecodeReading_RestoresVariant(t *testing.T) {
	original := domain.GlucoseReading{
		ReadingMeta: domain.ReadingMeta{
			ID:         "r-1",
			Kind:       domain.KindGlucose,
			Source:     domain.SourceVoice,
			RecordedAt: time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
		},
		Value:   5.6,
		Unit:    domain.UnitMmolL,
		Context: domain.ContextFasting,
	}

	payload, err := encodeReading(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := decodeReading(domain.KindGlucose, payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	got, ok := decoded.(domain.GlucoseReading)
	if !ok {
		t.Fatalf("decoded wrong type %T", decoded)
	}
	if got != original {
		t.Fatalf("round trip mismatch: %+v != %+v", got, original)
	}
}

func TestDecodeReading_UnknownKind(t *testing.T) {
	if _, err := decodeReading("pulse_ox", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
