package config

import (
	"os"
	"strings"

	"github.com/healthvoice/healthlog/internal/logger"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	HTTPAddr      string
	Storage       StorageConfig
	Redis         RedisConfig
	AMQP          AMQPConfig
	Voice         VoiceConfig
	Logger        LoggerConfig
}

type StorageConfig struct {
	// Driver selects the persistence backend: "postgres", "sqlite" or
	// "memory". Memory keeps readings for the process lifetime only.
	Driver string
	SQLite SQLiteConfig
	DB     DBConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host string
	Port string
}

type AMQPConfig struct {
	URL   string
	Queue string
}

type VoiceConfig struct {
	Model      string
	SampleRate int
	FrameSize  int
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

func Load() (*Config, error) {
	return &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		HTTPAddr:      getEnvOrDefault("HTTP_ADDR", ":8080"),
		Storage: StorageConfig{
			Driver: getEnvOrDefault("STORAGE_DRIVER", "memory"),
			SQLite: SQLiteConfig{
				Path: getEnvOrDefault("SQLITE_PATH", "healthlog.db"),
			},
			DB: DBConfig{
				Host:     getEnvOrDefault("DB_HOST", "localhost"),
				Port:     getEnvOrDefault("DB_PORT", "5432"),
				User:     getEnvOrDefault("DB_USER", "postgres"),
				Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
				DBName:   getEnvOrDefault("DB_NAME", "healthlog"),
			},
		},
		Redis: RedisConfig{
			Host: os.Getenv("REDIS_HOST"),
			Port: getEnvOrDefault("REDIS_PORT", "6379"),
		},
		AMQP: AMQPConfig{
			URL:   os.Getenv("AMQP_URL"),
			Queue: getEnvOrDefault("AMQP_QUEUE", "healthlog.readings"),
		},
		Voice: VoiceConfig{
			Model:      getEnvOrDefault("VOICE_MODEL", "models/gemini-2.0-flash-exp"),
			SampleRate: 16000,
			FrameSize:  4096,
		},
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}, nil
}
