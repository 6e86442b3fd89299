package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/healthvoice/healthlog/internal/domain"
	apperrors "github.com/healthvoice/healthlog/internal/errors"
	"github.com/healthvoice/healthlog/internal/readinglog"
	"github.com/healthvoice/healthlog/internal/services"
	"github.com/healthvoice/healthlog/internal/voice"
)

type fakeExtractor struct {
	glucose    *domain.GlucoseReading
	meal       *domain.MealEntry
	subjectErr error
}

func (f *fakeExtractor) ExtractGlucoseFromText(_ context.Context, _ string) (*domain.GlucoseReading, error) {
	return f.glucose, nil
}

func (f *fakeExtractor) ExtractWeightFromText(_ context.Context, _ string) (*domain.WeightReading, error) {
	return nil, nil
}

func (f *fakeExtractor) ExtractBloodPressureFromText(_ context.Context, _ string) (*domain.BloodPressureReading, error) {
	return nil, nil
}

func (f *fakeExtractor) ExtractMealFromText(_ context.Context, _ string) (*domain.MealEntry, error) {
	return f.meal, nil
}

func (f *fakeExtractor) ExtractGlucoseFromImage(_ context.Context, _ []byte, _ string) (*domain.GlucoseReading, error) {
	return f.glucose, f.subjectErr
}

func (f *fakeExtractor) ExtractWeightFromImage(_ context.Context, _ []byte, _ string) (*domain.WeightReading, error) {
	return nil, f.subjectErr
}

func (f *fakeExtractor) ExtractBloodPressureFromImage(_ context.Context, _ []byte, _ string) (*domain.BloodPressureReading, error) {
	return nil, f.subjectErr
}

func (f *fakeExtractor) ExtractMealFromImage(_ context.Context, _ []byte, _ string) (*domain.MealEntry, error) {
	return f.meal, f.subjectErr
}

func (f *fakeExtractor) MatchMedication(_ context.Context, _ string, _ []domain.CatalogEntry) (*domain.MedicationMatch, error) {
	return nil, nil
}

func newTestServer(extractor domain.Extractor) *Server {
	readings := services.NewReadingService(readinglog.NewLog(), nil, nil)
	catalog := services.NewCatalogService(readinglog.NewCatalog(), nil)
	voicelog := services.NewVoiceLogService(extractor, readings, catalog)
	dialer := &voice.StubDialer{Stream: voice.NewStubStream()}
	return NewServer(readings, catalog, voicelog, extractor, dialer, voice.DefaultConfig())
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeExtractor{})
	resp := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestLogGlucose_CreatedWithManualSource(t *testing.T) {
	srv := newTestServer(&fakeExtractor{})

	resp := doJSON(t, srv, http.MethodPost, "/api/v1/readings/glucose", map[string]any{
		"value": 5.8, "unit": "mmol/L", "context": "fasting",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var reading domain.GlucoseReading
	decodeBody(t, resp, &reading)
	if reading.ID == "" || reading.Source != domain.SourceManual || reading.Value != 5.8 {
		t.Fatalf("unexpected reading: %+v", reading)
	}
}

func TestLogGlucose_Validation(t *testing.T) {
	srv := newTestServer(&fakeExtractor{})

	cases := []map[string]any{
		{"value": 0, "unit": "mmol/L", "context": "fasting"},
		{"value": 5.8, "unit": "stones", "context": "fasting"},
		{"value": 5.8, "unit": "mmol/L", "context": "midnight_snack"},
	}
	for _, body := range cases {
		resp := doJSON(t, srv, http.MethodPost, "/api/v1/readings/glucose", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %v: expected 400, got %d", body, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestLogBloodPressure_RejectsInvertedValues(t *testing.T) {
	srv := newTestServer(&fakeExtractor{})

	resp := doJSON(t, srv, http.MethodPost, "/api/v1/readings/blood-pressure", map[string]any{
		"systolic": 80, "diastolic": 120, "pulse": 60,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListReadings_NewestFirst(t *testing.T) {
	srv := newTestServer(&fakeExtractor{})

	doJSON(t, srv, http.MethodPost, "/api/v1/readings/weight", map[string]any{"value": 70.0, "unit": "kg"})
	doJSON(t, srv, http.MethodPost, "/api/v1/readings/medications", map[string]any{
		"name": "Metformin", "dosage": 500, "unit": "mg", "quantity": 1,
	})

	resp := doJSON(t, srv, http.MethodGet, "/api/v1/readings", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Count    int `json:"count"`
		Readings []struct {
			Kind string `json:"kind"`
		} `json:"readings"`
	}
	decodeBody(t, resp, &body)
	if body.Count != 2 {
		t.Fatalf("expected 2 readings, got %d", body.Count)
	}
	if body.Readings[0].Kind != "medication" || body.Readings[1].Kind != "weight" {
		t.Fatalf("unexpected order: %+v", body.Readings)
	}
}

func TestCatalog_CRUD(t *testing.T) {
	srv := newTestServer(&fakeExtractor{})

	resp := doJSON(t, srv, http.MethodPost, "/api/v1/catalog", map[string]any{
		"name": "Metformin", "dosage": 500, "unit": "mg",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var entry domain.CatalogEntry
	decodeBody(t, resp, &entry)
	if entry.ID == "" {
		t.Fatal("expected generated id")
	}

	resp = doJSON(t, srv, http.MethodPut, "/api/v1/catalog/"+entry.ID, map[string]any{
		"name": "Metformin", "dosage": 850, "unit": "mg",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodDelete, "/api/v1/catalog/"+entry.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodGet, "/api/v1/catalog", nil)
	var list struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &list)
	if list.Count != 0 {
		t.Fatalf("expected empty catalog, got %d entries", list.Count)
	}
}

func doPhoto(t *testing.T, srv *Server, path string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("photo", "reading.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(part, "not really a jpeg"); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := srv.app.Test(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func TestExtractFromPhoto_LogsReading(t *testing.T) {
	srv := newTestServer(&fakeExtractor{glucose: &domain.GlucoseReading{
		Value: 102, Unit: domain.UnitMgDL, Context: domain.ContextRandom,
	}})

	resp := doPhoto(t, srv, "/api/v1/extract/glucose/photo")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var reading domain.GlucoseReading
	decodeBody(t, resp, &reading)
	if reading.Source != domain.SourcePhoto || reading.Value != 102 {
		t.Fatalf("unexpected reading: %+v", reading)
	}
}

func TestExtractFromPhoto_WrongSubjectIsDistinct(t *testing.T) {
	srv := newTestServer(&fakeExtractor{subjectErr: apperrors.ErrWrongSubject})

	resp := doPhoto(t, srv, "/api/v1/extract/glucose/photo")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	if body.Code != "WRONG_SUBJECT" {
		t.Fatalf("expected WRONG_SUBJECT code, got %q", body.Code)
	}
}

func TestExtractFromPhoto_UnreadablePhoto(t *testing.T) {
	srv := newTestServer(&fakeExtractor{}) // extraction yields nil

	resp := doPhoto(t, srv, "/api/v1/extract/glucose/photo")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	if body.Code != "UNREADABLE" {
		t.Fatalf("expected UNREADABLE code, got %q", body.Code)
	}
}

func TestExtractFromPhoto_MedicationRejected(t *testing.T) {
	srv := newTestServer(&fakeExtractor{})

	resp := doPhoto(t, srv, "/api/v1/extract/medication/photo")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDecodePCM(t *testing.T) {
	// 0x0102 and 0xFFFE little-endian.
	samples, err := decodePCM("AgH+/w==")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(samples) != 2 || samples[0] != 258 || samples[1] != -2 {
		t.Fatalf("unexpected samples: %v", samples)
	}

	if _, err := decodePCM("not base64!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}

	// Three bytes cannot form whole 16-bit samples; a silent
	// truncation would corrupt the stream.
	if _, err := decodePCM("AgH+"); err == nil {
		t.Fatal("expected error for odd payload length")
	}
}
