// Package api exposes the logging surface over HTTP: manual reading
// entry, the combined reading list, the medication catalog, photo
// extraction uploads and the websocket voice capture endpoint.
package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"github.com/healthvoice/healthlog/internal/domain"
	apperrors "github.com/healthvoice/healthlog/internal/errors"
	"github.com/healthvoice/healthlog/internal/logger"
	"github.com/healthvoice/healthlog/internal/services"
	"github.com/healthvoice/healthlog/internal/voice"
)

// Server hosts the REST and websocket endpoints.
type Server struct {
	app       *fiber.App
	readings  *services.ReadingService
	catalog   *services.CatalogService
	voicelog  *services.VoiceLogService
	extractor domain.Extractor
	dialer    voice.StreamDialer
	voiceCfg  voice.Config
}

func NewServer(readings *services.ReadingService, catalog *services.CatalogService,
	voicelog *services.VoiceLogService, extractor domain.Extractor,
	dialer voice.StreamDialer, voiceCfg voice.Config) *Server {

	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:      "healthlog",
			ErrorHandler: errorHandler,
		}),
		readings:  readings,
		catalog:   catalog,
		voicelog:  voicelog,
		extractor: extractor,
		dialer:    dialer,
		voiceCfg:  voiceCfg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.app.Group("/api/v1")

	v1.Get("/readings", s.listReadings)
	v1.Post("/readings/glucose", s.logGlucose)
	v1.Post("/readings/weight", s.logWeight)
	v1.Post("/readings/blood-pressure", s.logBloodPressure)
	v1.Post("/readings/medications", s.logMedication)
	v1.Post("/readings/meals", s.logMeal)

	v1.Get("/catalog", s.listCatalog)
	v1.Post("/catalog", s.addCatalogEntry)
	v1.Put("/catalog/:id", s.updateCatalogEntry)
	v1.Delete("/catalog/:id", s.removeCatalogEntry)

	v1.Post("/extract/:kind/photo", s.extractFromPhoto)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/voice", fiberws.New(s.handleVoice))
}

// Listen blocks serving HTTP until Shutdown.
func (s *Server) Listen(addr string) error {
	logger.Info("HTTP server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func (s *Server) listReadings(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	readings, err := s.readings.List(c.Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"readings": readings, "count": len(readings)})
}

type glucoseRequest struct {
	Value   float64 `json:"value"`
	Unit    string  `json:"unit"`
	Context string  `json:"context"`
}

func (s *Server) logGlucose(c *fiber.Ctx) error {
	var req glucoseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Value <= 0 {
		return badRequest(c, "value must be positive")
	}
	unit := domain.GlucoseUnit(req.Unit)
	if unit != domain.UnitMgDL && unit != domain.UnitMmolL {
		return badRequest(c, "unit must be mg/dL or mmol/L")
	}
	mealCtx := domain.GlucoseContext(req.Context)
	switch mealCtx {
	case domain.ContextFasting, domain.ContextBeforeMeal, domain.ContextAfterMeal, domain.ContextBedtime, domain.ContextRandom:
	case "":
		mealCtx = domain.ContextRandom
	default:
		return badRequest(c, "unknown glucose context")
	}

	reading, err := s.readings.LogGlucose(c.Context(), domain.GlucoseReading{
		Value: req.Value, Unit: unit, Context: mealCtx,
	}, domain.SourceManual)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(reading)
}

type weightRequest struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

func (s *Server) logWeight(c *fiber.Ctx) error {
	var req weightRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Value <= 0 {
		return badRequest(c, "value must be positive")
	}
	unit := domain.WeightUnit(req.Unit)
	if unit != domain.UnitKg && unit != domain.UnitLb {
		return badRequest(c, "unit must be kg or lb")
	}

	reading, err := s.readings.LogWeight(c.Context(), domain.WeightReading{
		Value: req.Value, Unit: unit,
	}, domain.SourceManual)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(reading)
}

type bloodPressureRequest struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
	Pulse     int `json:"pulse"`
}

func (s *Server) logBloodPressure(c *fiber.Ctx) error {
	var req bloodPressureRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Systolic <= 0 || req.Diastolic <= 0 || req.Pulse <= 0 {
		return badRequest(c, "systolic, diastolic and pulse must be positive")
	}
	if req.Diastolic >= req.Systolic {
		return badRequest(c, "diastolic must be below systolic")
	}

	reading, err := s.readings.LogBloodPressure(c.Context(), domain.BloodPressureReading{
		Systolic: req.Systolic, Diastolic: req.Diastolic, Pulse: req.Pulse,
	}, domain.SourceManual)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(reading)
}

type medicationRequest struct {
	Name     string  `json:"name"`
	Dosage   float64 `json:"dosage"`
	Unit     string  `json:"unit"`
	Quantity float64 `json:"quantity"`
}

func (s *Server) logMedication(c *fiber.Ctx) error {
	var req medicationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}
	if req.Quantity <= 0 {
		return badRequest(c, "quantity must be positive")
	}

	reading, err := s.readings.LogMedication(c.Context(), domain.MedicationEntry{
		Name: req.Name, Dosage: req.Dosage, Unit: req.Unit, Quantity: req.Quantity,
	}, domain.SourceManual)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(reading)
}

type mealRequest struct {
	Description string            `json:"description"`
	Items       []domain.FoodItem `json:"items"`
	Totals      domain.Nutrition  `json:"totals"`
}

func (s *Server) logMeal(c *fiber.Ctx) error {
	var req mealRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Description == "" {
		return badRequest(c, "description is required")
	}

	reading, err := s.readings.LogMeal(c.Context(), domain.MealEntry{
		Description: req.Description, Items: req.Items, Totals: req.Totals,
	}, domain.SourceManual)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(reading)
}

func (s *Server) listCatalog(c *fiber.Ctx) error {
	entries, err := s.catalog.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"entries": entries, "count": len(entries)})
}

type catalogRequest struct {
	Name   string  `json:"name"`
	Dosage float64 `json:"dosage"`
	Unit   string  `json:"unit"`
}

func (s *Server) addCatalogEntry(c *fiber.Ctx) error {
	var req catalogRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}
	entry, err := s.catalog.Add(c.Context(), req.Name, req.Dosage, req.Unit)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (s *Server) updateCatalogEntry(c *fiber.Ctx) error {
	var req catalogRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}
	entry := domain.CatalogEntry{
		ID: c.Params("id"), Name: req.Name, Dosage: req.Dosage, Unit: req.Unit,
	}
	if err := s.catalog.Update(c.Context(), entry); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeValidation {
			return badRequest(c, appErr.Message)
		}
		return err
	}
	return c.JSON(entry)
}

func (s *Server) removeCatalogEntry(c *fiber.Ctx) error {
	if err := s.catalog.Remove(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// extractFromPhoto runs schema-constrained extraction on an uploaded
// photo and logs the result. A photo of the wrong subject is reported
// distinctly from a photo that could not be read.
func (s *Server) extractFromPhoto(c *fiber.Ctx) error {
	kind, err := services.ParseCaptureKind(c.Params("kind"))
	if err != nil {
		return badRequest(c, "unknown extraction kind")
	}
	if kind == services.CaptureMedication {
		return badRequest(c, "medication logging has no photo extraction")
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return badRequest(c, "photo file is required")
	}
	image, mime, err := readUpload(file)
	if err != nil {
		return badRequest(c, "could not read uploaded photo")
	}

	reading, err := s.extractReading(c.Context(), kind, image, mime)
	if err != nil {
		if errors.Is(err, apperrors.ErrWrongSubject) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "the photo does not show the expected subject",
				"code":  "WRONG_SUBJECT",
			})
		}
		return err
	}
	if reading == nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "could not read a measurement from the photo",
			"code":  "UNREADABLE",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(reading)
}

func (s *Server) extractReading(ctx context.Context, kind services.CaptureKind, image []byte, mime string) (domain.Reading, error) {
	switch kind {
	case services.CaptureGlucose:
		parsed, err := s.extractor.ExtractGlucoseFromImage(ctx, image, mime)
		if err != nil || parsed == nil {
			return nil, err
		}
		reading, err := s.readings.LogGlucose(ctx, *parsed, domain.SourcePhoto)
		if err != nil {
			return nil, err
		}
		return reading, nil
	case services.CaptureWeight:
		parsed, err := s.extractor.ExtractWeightFromImage(ctx, image, mime)
		if err != nil || parsed == nil {
			return nil, err
		}
		reading, err := s.readings.LogWeight(ctx, *parsed, domain.SourcePhoto)
		if err != nil {
			return nil, err
		}
		return reading, nil
	case services.CaptureBloodPressure:
		parsed, err := s.extractor.ExtractBloodPressureFromImage(ctx, image, mime)
		if err != nil || parsed == nil {
			return nil, err
		}
		reading, err := s.readings.LogBloodPressure(ctx, *parsed, domain.SourcePhoto)
		if err != nil {
			return nil, err
		}
		return reading, nil
	case services.CaptureMeal:
		parsed, err := s.extractor.ExtractMealFromImage(ctx, image, mime)
		if err != nil || parsed == nil {
			return nil, err
		}
		reading, err := s.readings.LogMeal(ctx, *parsed, domain.SourcePhoto)
		if err != nil {
			return nil, err
		}
		return reading, nil
	}
	return nil, apperrors.NewValidationError("unknown extraction kind")
}

func readUpload(file *multipart.FileHeader) ([]byte, string, error) {
	f, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	mime := file.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return data, mime, nil
}
