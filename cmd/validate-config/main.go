package main

import (
	"fmt"
	"os"

	"github.com/healthvoice/healthlog/internal/config"
	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🔍 Checking configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  .env file not found: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Configuration validation failed:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Configuration is valid!")
	fmt.Printf("📋 Configuration details:\n")
	fmt.Printf("  - Telegram Token: %s\n", maskToken(cfg.TelegramToken))
	fmt.Printf("  - Gemini API Key: %s\n", maskToken(cfg.GeminiAPIKey))
	fmt.Printf("  - OpenAI API Key: %s\n", maskToken(cfg.OpenAIAPIKey))
	fmt.Printf("  - HTTP Addr: %s\n", cfg.HTTPAddr)
	fmt.Printf("  - Storage Driver: %s\n", cfg.Storage.Driver)
	switch cfg.Storage.Driver {
	case "postgres":
		fmt.Printf("  - DB Host: %s\n", cfg.Storage.DB.Host)
		fmt.Printf("  - DB Port: %s\n", cfg.Storage.DB.Port)
		fmt.Printf("  - DB User: %s\n", cfg.Storage.DB.User)
		fmt.Printf("  - DB Name: %s\n", cfg.Storage.DB.DBName)
	case "sqlite":
		fmt.Printf("  - SQLite Path: %s\n", cfg.Storage.SQLite.Path)
	}
	if cfg.AMQP.URL != "" {
		fmt.Printf("  - AMQP Queue: %s\n", cfg.AMQP.Queue)
	}
	fmt.Printf("  - Voice Model: %s\n", cfg.Voice.Model)
	fmt.Printf("  - Log Level: %v\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output: %s\n", cfg.Logger.OutputPath)
	fmt.Printf("  - Log Format: %s\n", cfg.Logger.Format)
}

func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
