package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	Version     string
	LogLevel    string

	// Gong credentials (Basic auth key/secret pair)
	GongAccessKey    string
	GongAccessSecret string
	GongBaseURL      string

	// Fireflies API key (bearer token)
	FirefliesAPIKey  string
	FirefliesBaseURL string

	// Zoom server-to-server OAuth credentials
	ZoomAccountID    string
	ZoomClientID     string
	ZoomClientSecret string
	ZoomBaseURL      string

	// Domains belonging to the seller's own organization. Attendees from
	// these domains never drive account association.
	InternalDomains []string

	OpenAIKey       string // Optional: fallback transcript summaries
	OpenAITimeout   int    // OpenAI API timeout in seconds
	EnableAISummary bool   // Generate summaries when the vendor has none

	SendGridAPIKey string // Optional: sync failure digest emails
	AlertEmail     string // Recipient for sync failure digests

	AdminUsername        string
	AdminPassword        string
	AdminSessionTTLHours int

	BackfillImage string // Container image for backfill sync jobs
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		Version:     getEnv("VERSION", "1.0.0"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		GongAccessKey:    os.Getenv("GONG_ACCESS_KEY"),
		GongAccessSecret: os.Getenv("GONG_ACCESS_SECRET"),
		GongBaseURL:      getEnv("GONG_BASE_URL", "https://api.gong.io"),

		FirefliesAPIKey:  os.Getenv("FIREFLIES_API_KEY"),
		FirefliesBaseURL: getEnv("FIREFLIES_BASE_URL", "https://api.fireflies.ai/graphql"),

		ZoomAccountID:    os.Getenv("ZOOM_ACCOUNT_ID"),
		ZoomClientID:     os.Getenv("ZOOM_CLIENT_ID"),
		ZoomClientSecret: os.Getenv("ZOOM_CLIENT_SECRET"),
		ZoomBaseURL:      getEnv("ZOOM_BASE_URL", "https://api.zoom.us"),

		InternalDomains: getEnvList("INTERNAL_DOMAINS"),

		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAITimeout:   getEnvInt("OPENAI_TIMEOUT", 60),
		EnableAISummary: getEnvBool("ENABLE_AI_SUMMARY", false),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		AlertEmail:     os.Getenv("ALERT_EMAIL"),

		AdminUsername:        getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:        os.Getenv("ADMIN_PASSWORD"),
		AdminSessionTTLHours: getEnvInt("ADMIN_SESSION_TTL_HOURS", 24),

		BackfillImage: getEnv("BACKFILL_IMAGE", "callsync:latest"),
	}

	return config
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean with a default fallback
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList gets a comma-separated environment variable as a slice,
// trimming whitespace and dropping empty entries
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "callsync").
		Str("version", c.Version).
		Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
