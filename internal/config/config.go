package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Config holds all configuration for the questionnaire service
type Config struct {
	Env     string
	Server  ServerConfig
	Log     LogConfig
	Store   StoreConfig
	Redis   RedisConfig
	Mongo   MongoConfig
	Catalog CatalogConfig
	Auth    AuthConfig
	SMTP    SMTPConfig
	Notify  NotifyConfig
	CORS    CORSConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Backend string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URI      string
	Password string
	DB       int
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI      string
	Database string
}

// CatalogConfig points at an alternate catalog file
type CatalogConfig struct {
	Path string
}

// AuthConfig holds identity and admin settings
type AuthConfig struct {
	JWTSecret    string
	TrustHeaders bool
	AdminDomains []string
}

// SMTPConfig holds outbound mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// NotifyConfig holds completion notification settings
type NotifyConfig struct {
	Recipients []string
	Timeout    time.Duration
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from the environment. In development a .env file
// in the working directory is read first; existing variables win.
func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	if env == "development" {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Env: env,
		Server: ServerConfig{
			Port: getEnvAsInt("PORT", 8080),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
		},
		Redis: RedisConfig{
			URI:      getEnv("REDIS_URI", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "discovery"),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TrustHeaders: getEnvAsBool("AUTH_TRUSTED_HEADERS", false),
			AdminDomains: getEnvAsList("ADMIN_EMAIL_DOMAINS"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		Notify: NotifyConfig{
			Recipients: getEnvAsList("NOTIFY_RECIPIENTS"),
			Timeout:    getEnvAsDuration("NOTIFY_TIMEOUT", 15*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("invalid smtp port: %d", c.SMTP.Port)
	}

	switch c.Store.Backend {
	case BackendRedis:
		if c.Redis.URI == "" {
			return fmt.Errorf("REDIS_URI is required for the redis backend")
		}
	case BackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("MONGO_URI and MONGO_DATABASE are required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if c.Auth.JWTSecret == "" && !c.Auth.TrustHeaders {
		return fmt.Errorf("JWT_SECRET is required unless AUTH_TRUSTED_HEADERS is enabled")
	}

	return nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks
func getEnvAsList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
