package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Email    EmailConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port    string
	BaseURL string
}

type DatabaseConfig struct {
	Path string
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type EmailConfig struct {
	ServerToken string
	FromEmail   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment, optionally seeded from a
// .env file in the working directory.
func Load() (*Config, error) {
	godotenv.Load()

	jwtExp, err := time.ParseDuration(getEnv("VITALTRACK_JWT_EXPIRATION", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid VITALTRACK_JWT_EXPIRATION: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnv("VITALTRACK_PORT", "8080"),
			BaseURL: getEnv("VITALTRACK_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Path: getEnv("VITALTRACK_DB_PATH", "vitaltrack.db"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("VITALTRACK_JWT_SECRET", "dev-secret-change-in-production"),
			Expiration: jwtExp,
		},
		Email: EmailConfig{
			ServerToken: getEnv("VITALTRACK_POSTMARK_TOKEN", ""),
			FromEmail:   getEnv("VITALTRACK_FROM_EMAIL", "noreply@vitaltrack.app"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("VITALTRACK_LOG_LEVEL", "info"),
			Format: getEnv("VITALTRACK_LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
