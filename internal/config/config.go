// Package config provides configuration management for the chat backend.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	LLM       LLMConfig
	Chain     ChainConfig
	Auth      AuthConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	SSLMode        string
	MaxConnections int
}

// URL returns the connection URL used by golang-migrate
func (c *PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis configuration. An empty Host disables caching.
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// Enabled reports whether Redis is configured
func (c *RedisConfig) Enabled() bool { return c.Host != "" }

// ClickHouseConfig holds ClickHouse configuration. An empty Host disables intent analytics.
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// Enabled reports whether ClickHouse is configured
func (c *ClickHouseConfig) Enabled() bool { return c.Host != "" }

// LLMConfig holds the hosted model configuration. An empty APIKey disables
// the model and every message goes through the fallback parser.
type LLMConfig struct {
	Provider           string // openai or gemini
	APIKey             string
	BaseURL            string
	Model              string
	Timeout            time.Duration
	BreakerMaxFailures int
	BreakerTimeout     time.Duration
}

// ChainConfig holds the RPC endpoint used for balance and receipt lookups
type ChainConfig struct {
	Name   string
	RPCURL string
}

// AuthConfig holds wallet session configuration
type AuthConfig struct {
	JWTSecret    string
	Required     bool // reject wallet-scoped requests without a session token
	TokenTTL     time.Duration
	MaxClockSkew time.Duration
	MaxMsgAge    time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	BalanceTTL time.Duration
	UserTTL    time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnv("ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "lucra"),
				User:           getEnv("POSTGRES_USER", "lucra"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				SSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", ""),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", ""),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "lucra"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
		},
		LLM: LLMConfig{
			Provider:           strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			APIKey:             getEnv("LLM_API_KEY", ""),
			BaseURL:            getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			Model:              getEnv("LLM_MODEL", "gpt-4o-mini"),
			Timeout:            getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
			BreakerMaxFailures: getEnvAsInt("LLM_BREAKER_MAX_FAILURES", 5),
			BreakerTimeout:     getEnvAsDuration("LLM_BREAKER_TIMEOUT", 30*time.Second),
		},
		Chain: ChainConfig{
			Name:   getEnv("CHAIN_NAME", "base"),
			RPCURL: getEnv("CHAIN_RPC_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			Required:     getEnvAsBool("REQUIRE_WALLET_AUTH", false),
			TokenTTL:     getEnvAsDuration("JWT_TTL", 48*time.Hour),
			MaxClockSkew: getEnvAsDuration("WALLET_MAX_CLOCK_SKEW", 5*time.Minute),
			MaxMsgAge:    getEnvAsDuration("WALLET_MAX_MESSAGE_AGE", time.Hour),
		},
		Cache: CacheConfig{
			BalanceTTL: getEnvAsDuration("CACHE_BALANCE_TTL", 20*time.Second),
			UserTTL:    getEnvAsDuration("CACHE_USER_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 5),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would otherwise fail at first use
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q (must be 'openai' or 'gemini')", c.LLM.Provider)
	}
	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return fmt.Errorf("REQUIRE_WALLET_AUTH needs JWT_SECRET")
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
