package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service. It is resolved once at
// process start and passed into constructors; core logic never reads the
// environment.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	OpenAI   OpenAIConfig
	Search   SearchConfig
	Tour     TourConfig
	CRM      CRMConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string
	Port           int
	GinMode        string
	AllowedOrigins string
	APIKey         string // static key for X-API-Key
}

// PostgresConfig holds listing-store database configuration. An empty DSN
// switches the service to the in-memory store.
type PostgresConfig struct {
	DSN                string
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// OpenAIConfig holds the OpenAI-compatible API configuration.
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatMaxTokens       int
	EmbeddingModel      string
	EmbeddingDimensions int
	Timeout             int // seconds, bounds every upstream call
	Enabled             bool
}

// SearchConfig holds search-related configuration.
type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// TourConfig holds the tour slot grid configuration.
type TourConfig struct {
	SlotTimes  []string // daily times, HH:MM
	WindowDays int
}

// CRMConfig holds lead-sync configuration. Empty URL disables publishing.
type CRMConfig struct {
	AMQPURL  string
	Exchange string
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			APIKey:         getEnv("LAYLA_API_KEY", ""),
		},
		Postgres: PostgresConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "layla"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1024),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1536),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
		Search: SearchConfig{
			DefaultLimit: getEnvAsInt("SEARCH_DEFAULT_LIMIT", 5),
			MaxLimit:     getEnvAsInt("SEARCH_MAX_LIMIT", 20),
		},
		Tour: TourConfig{
			SlotTimes:  getEnvAsList("TOUR_SLOT_TIMES", []string{"10:00", "14:00", "16:00"}),
			WindowDays: getEnvAsInt("TOUR_WINDOW_DAYS", 7),
		},
		CRM: CRMConfig{
			AMQPURL:  getEnv("CRM_AMQP_URL", ""),
			Exchange: getEnv("CRM_EXCHANGE", "layla.leads"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", false),
		},
	}

	if cfg.Server.APIKey == "" {
		return nil, fmt.Errorf("LAYLA_API_KEY is required")
	}

	return cfg, nil
}

// GetPostgresDSN returns the PostgreSQL connection string, assembling one
// from the individual fields when no full DSN was provided.
func (c *Config) GetPostgresDSN() string {
	if c.Postgres.DSN != "" {
		return c.Postgres.DSN
	}
	if c.Postgres.Password == "" && c.Postgres.Host == "localhost" && os.Getenv("PG_HOST") == "" {
		// No database configured at all; run on the in-memory store.
		return ""
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Database,
		c.Postgres.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %v", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
