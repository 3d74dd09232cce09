// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	App    AppConfig
	Server ServerConfig
	AWS    AWSConfig
	Dynamo DynamoConfig
	Export ExportConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Log    LogConfig
	Search SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name string
	Env  string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

// AWSConfig holds shared AWS client configuration.
type AWSConfig struct {
	Region string

	// EndpointURL overrides the service endpoint, for local development
	// against dynamodb-local / minio style emulators.
	EndpointURL string
}

// DynamoConfig holds table and index names.
type DynamoConfig struct {
	FindingsTable    string
	RemediationTable string
	GrantsTable      string

	AccountIndex  string
	ResourceIndex string
	SeverityIndex string
	StatusIndex   string
	FindingIndex  string
	AllIndex      string
}

// ExportConfig holds export sink configuration.
type ExportConfig struct {
	Bucket     string
	Prefix     string
	MaxRecords int
	URLTTL     time.Duration
}

// RedisConfig holds the task queue broker configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds identity token configuration.
type AuthConfig struct {
	JWTSecret      string
	GroupsClaim    string
	PrincipalClaim string
	EmailClaim     string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// SearchConfig holds query execution tuning.
type SearchConfig struct {
	// InMemorySortLimit bounds how many records a non-native sort may drain
	// from the store before sorting in memory.
	InMemorySortLimit int
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "findings-api"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodySize:     getEnvInt64("SERVER_MAX_BODY_SIZE", 1<<20),
		},
		AWS: AWSConfig{
			Region:      getEnv("AWS_REGION", "us-east-1"),
			EndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		},
		Dynamo: DynamoConfig{
			FindingsTable:    getEnv("DYNAMO_FINDINGS_TABLE", "findings"),
			RemediationTable: getEnv("DYNAMO_REMEDIATION_TABLE", "remediation-history"),
			GrantsTable:      getEnv("DYNAMO_GRANTS_TABLE", "account-grants"),
			AccountIndex:     getEnv("DYNAMO_ACCOUNT_INDEX", "gsi-account"),
			ResourceIndex:    getEnv("DYNAMO_RESOURCE_INDEX", "gsi-resource"),
			SeverityIndex:    getEnv("DYNAMO_SEVERITY_INDEX", "gsi-severity"),
			StatusIndex:      getEnv("DYNAMO_STATUS_INDEX", "gsi-status"),
			FindingIndex:     getEnv("DYNAMO_FINDING_INDEX", "gsi-finding"),
			AllIndex:         getEnv("DYNAMO_ALL_INDEX", "gsi-all"),
		},
		Export: ExportConfig{
			Bucket:     getEnv("EXPORT_BUCKET", ""),
			Prefix:     getEnv("EXPORT_PREFIX", "exports/"),
			MaxRecords: getEnvInt("EXPORT_MAX_RECORDS", 50000),
			URLTTL:     getEnvDuration("EXPORT_URL_TTL", 15*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
			GroupsClaim:    getEnv("AUTH_GROUPS_CLAIM", "custom:groups"),
			PrincipalClaim: getEnv("AUTH_PRINCIPAL_CLAIM", "username"),
			EmailClaim:     getEnv("AUTH_EMAIL_CLAIM", "email"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Search: SearchConfig{
			InMemorySortLimit: getEnvInt("SEARCH_IN_MEMORY_SORT_LIMIT", 1000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Dynamo.FindingsTable == "" || c.Dynamo.RemediationTable == "" || c.Dynamo.GrantsTable == "" {
		return fmt.Errorf("dynamo table names are required")
	}
	if c.App.Env == "production" {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required in production")
		}
		if c.Export.Bucket == "" {
			return fmt.Errorf("EXPORT_BUCKET is required in production")
		}
	}
	if c.Export.MaxRecords < 1 {
		return fmt.Errorf("invalid export record cap: %d", c.Export.MaxRecords)
	}
	if c.Search.InMemorySortLimit < 1 {
		return fmt.Errorf("invalid in-memory sort limit: %d", c.Search.InMemorySortLimit)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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
