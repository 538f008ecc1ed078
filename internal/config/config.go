package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken   string
	OwnerChatID     int64
	Storage         StorageConfig
	AI              AIConfig
	Location        *time.Location
	RefreshInterval time.Duration
	DigestTime      string
	Logger          LoggerConfig
}

type StorageConfig struct {
	Driver      string
	DatabaseURL string
	BoltPath    string
}

type AIConfig struct {
	APIKey      string
	RecipeModel string
	ImageModel  string
	Timeout     time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env) with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		OwnerChatID:   getInt64("OWNER_CHAT_ID", 0),
		Storage: StorageConfig{
			Driver:      strings.ToLower(getString("STORAGE_DRIVER", DriverSQLite)),
			DatabaseURL: getString("DATABASE_URL", "data/lifestyle.db"),
			BoltPath:    getString("BOLT_PATH", "data/lifestyle.bolt"),
		},
		AI: AIConfig{
			APIKey:      getString("GEMINI_API_KEY", strings.TrimSpace(os.Getenv("API_KEY"))),
			RecipeModel: getString("RECIPE_MODEL", "gemini-3-flash-preview"),
			ImageModel:  getString("IMAGE_MODEL", "gemini-2.5-flash-image"),
			Timeout:     getDuration("AI_TIMEOUT", 90*time.Second),
		},
		RefreshInterval: getDuration("REFRESH_INTERVAL", time.Minute),
		DigestTime:      getString("DIGEST_TIME", "08:00"),
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "console"),
		},
	}

	loc, err := loadLocation(getString("TIMEZONE", ""))
	if err != nil {
		return cfg, err
	}
	cfg.Location = loc

	// Buckets and overdue flags go stale after a minute.
	if cfg.RefreshInterval <= 0 || cfg.RefreshInterval > time.Minute {
		cfg.RefreshInterval = time.Minute
	}

	switch cfg.Storage.Driver {
	case DriverSQLite, DriverBolt:
	default:
		return cfg, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
