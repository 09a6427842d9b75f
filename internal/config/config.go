package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultMaxUploadBytes = 50 * 1024 * 1024

type Config struct {
	// HTTP Server
	Port        string
	Environment string

	// Database
	DBConnectionString string

	// Auth
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Files
	StorageDir         string
	MaxUploadBytes     int64
	FilesSweepSchedule string
	FilesSweepGrace    time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads .env (when present) and builds the configuration from the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),

		DBConnectionString: getEnv("DB_CONNECTION_STRING", ""),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 720*time.Hour),

		StorageDir:         getEnv("STORAGE_DIR", "./storage"),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		FilesSweepSchedule: getEnv("FILES_SWEEP_SCHEDULE", "@every 1h"),
		FilesSweepGrace:    getEnvDuration("FILES_SWEEP_GRACE", time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBConnectionString == "" {
		errors = append(errors, "missing DB_CONNECTION_STRING in environment variables")
	}
	if c.JWTSecret == "" {
		errors = append(errors, "no JWT_SECRET provided")
	}

	if c.AccessTokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid access token ttl %v: must be at least 1 minute", c.AccessTokenTTL))
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errors = append(errors, fmt.Sprintf("invalid refresh token ttl %v: must not be shorter than the access token ttl", c.RefreshTokenTTL))
	}

	if c.StorageDir == "" {
		errors = append(errors, "storage directory cannot be empty")
	}
	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}
	if c.FilesSweepSchedule == "" {
		errors = append(errors, "files sweep schedule cannot be empty")
	}
	if c.FilesSweepGrace < 0 {
		errors = append(errors, fmt.Sprintf("invalid files sweep grace %v: must not be negative", c.FilesSweepGrace))
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'json' or 'console'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
