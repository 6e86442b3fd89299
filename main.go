package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/healthvoice/healthlog/internal/api"
	"github.com/healthvoice/healthlog/internal/bot"
	"github.com/healthvoice/healthlog/internal/bot/state"
	"github.com/healthvoice/healthlog/internal/config"
	"github.com/healthvoice/healthlog/internal/logger"
	"github.com/healthvoice/healthlog/internal/publisher"
	"github.com/healthvoice/healthlog/internal/readinglog"
	"github.com/healthvoice/healthlog/internal/services"
	"github.com/healthvoice/healthlog/internal/services/extraction"
	"github.com/healthvoice/healthlog/internal/storage"
	"github.com/healthvoice/healthlog/internal/voice"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Starting healthlog")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := openRepository(cfg)
	if repo != nil {
		defer repo.Close()
	}

	var pub services.ReadingPublisher
	if cfg.AMQP.URL != "" {
		amqpPub, err := publisher.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			logger.Error("Failed to connect AMQP publisher, continuing without it", "error", err.Error())
		} else {
			defer amqpPub.Close()
			pub = amqpPub
		}
	}

	readings := services.NewReadingService(readinglog.NewLog(), repo, pub)
	catalog := services.NewCatalogService(readinglog.NewCatalog(), repo)
	if err := readings.Restore(ctx); err != nil {
		logger.Error("Failed to restore readings", "error", err.Error())
	}
	if err := catalog.Restore(ctx); err != nil {
		logger.Error("Failed to restore catalog", "error", err.Error())
	}

	extractor, err := extraction.NewService(ctx, cfg.GeminiAPIKey, cfg.OpenAIAPIKey, cfg.Voice.Model)
	if err != nil {
		logger.Fatalf("Failed to initialize extraction service: %v", err)
	}

	voicelog := services.NewVoiceLogService(extractor, readings, catalog)
	dialer := &voice.GeminiLiveDialer{APIKey: cfg.GeminiAPIKey, Model: cfg.Voice.Model}
	voiceCfg := voice.Config{
		SampleRate: cfg.Voice.SampleRate,
		FrameSize:  cfg.Voice.FrameSize,
		QueueDepth: voice.DefaultConfig().QueueDepth,
	}

	server := api.NewServer(readings, catalog, voicelog, extractor, dialer, voiceCfg)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("HTTP server stopped", "error", err.Error())
			stop()
		}
	}()

	if cfg.TelegramToken != "" {
		states := newStateStore(cfg)
		telegramBot, err := bot.NewBot(cfg.TelegramToken, readings, catalog, extractor, states)
		if err != nil {
			logger.Fatalf("Failed to create bot: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := telegramBot.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("Bot stopped", "error", err.Error())
			}
		}()
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, Telegram surface disabled")
	}

	<-ctx.Done()
	logger.Info("Shutting down")
	if err := server.Shutdown(); err != nil {
		logger.Error("HTTP shutdown failed", "error", err.Error())
	}
	wg.Wait()
}

// openRepository selects the persistence backend. The memory driver
// keeps readings for the process lifetime only.
func openRepository(cfg *config.Config) storage.Repository {
	switch cfg.Storage.Driver {
	case "postgres":
		repo, err := storage.NewPostgresRepository(cfg.Storage.DB)
		if err != nil {
			logger.Fatalf("Failed to connect to Postgres: %v", err)
		}
		logger.Info("Using Postgres storage", "host", cfg.Storage.DB.Host)
		return repo
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.Storage.SQLite.Path)
		if err != nil {
			logger.Fatalf("Failed to open SQLite database: %v", err)
		}
		logger.Info("Using SQLite storage", "path", cfg.Storage.SQLite.Path)
		return repo
	case "memory", "":
		logger.Info("Using in-memory storage, readings will not survive restarts")
		return nil
	default:
		logger.Fatalf("Unknown storage driver %q", cfg.Storage.Driver)
		return nil
	}
}

func newStateStore(cfg *config.Config) state.Store {
	if cfg.Redis.Host == "" {
		return state.NewManager()
	}
	store, err := state.NewRedisManager(cfg.Redis.Host, cfg.Redis.Port)
	if err != nil {
		logger.Error("Failed to connect to Redis, falling back to in-memory state", "error", err.Error())
		return state.NewManager()
	}
	logger.Info("Using Redis conversation state", "host", cfg.Redis.Host)
	return store
}
