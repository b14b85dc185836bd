package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	DriverPostgres = "pgx"
	DriverDuckDB   = "duckdb"

	SchemaSourceDir = "dir"
	SchemaSourceS3  = "s3"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Schema        SchemaConfig
	ObjectStore   ObjectStoreConfig
	AI            AIConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  string
}

type DatabaseConfig struct {
	Driver           string
	Host             string
	Port             int
	Name             string
	User             string
	Password         string
	SSLMode          string
	Path             string
	MinConns         int
	MaxConns         int
	AcquireTimeout   time.Duration
	StatementTimeout time.Duration
	ConnMaxIdleTime  time.Duration
	ConnMaxLifetime  time.Duration
}

type SchemaConfig struct {
	Source  string
	Dir     string
	Pattern string
	Prefix  string
}

type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

type AIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("ASKDB_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid ASKDB_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "ASKDB_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_HTTP_CORS_ORIGINS", &cfg.HTTP.CORSOrigins); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_DRIVER", &cfg.Database.Driver); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_HOST", &cfg.Database.Host); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_DB_PORT", &cfg.Database.Port); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_NAME", &cfg.Database.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_USER", &cfg.Database.User); err != nil {
		return Config{}, err
	}
	if err := applyRaw(lookup, "ASKDB_DB_PASSWORD", &cfg.Database.Password); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_SSLMODE", &cfg.Database.SSLMode); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_PATH", &cfg.Database.Path); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_DB_MIN_CONNS", &cfg.Database.MinConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_DB_MAX_CONNS", &cfg.Database.MaxConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_DB_ACQUIRE_TIMEOUT", &cfg.Database.AcquireTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_DB_STATEMENT_TIMEOUT", &cfg.Database.StatementTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_DB_CONN_MAX_IDLE_TIME", &cfg.Database.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_SCHEMA_SOURCE", &cfg.Schema.Source); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_SCHEMA_DIR", &cfg.Schema.Dir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_SCHEMA_PATTERN", &cfg.Schema.Pattern); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_SCHEMA_PREFIX", &cfg.Schema.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ASKDB_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_AI_MAX_TOKENS", &cfg.AI.MaxTokens); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ASKDB_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "ASKDB_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverDuckDB:
	default:
		return fmt.Errorf("invalid ASKDB_DB_DRIVER: %q", c.Database.Driver)
	}
	if c.Database.MinConns < 1 {
		return fmt.Errorf("ASKDB_DB_MIN_CONNS must be at least 1, got %d", c.Database.MinConns)
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("ASKDB_DB_MAX_CONNS (%d) must be >= ASKDB_DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
	}
	if c.Database.AcquireTimeout < 0 {
		return fmt.Errorf("ASKDB_DB_ACQUIRE_TIMEOUT must not be negative")
	}
	switch c.Schema.Source {
	case SchemaSourceDir, SchemaSourceS3:
	default:
		return fmt.Errorf("invalid ASKDB_SCHEMA_SOURCE: %q", c.Schema.Source)
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("ASKDB_AI_MAX_TOKENS must be positive, got %d", c.AI.MaxTokens)
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "askdb-api"},
		HTTP: HTTPConfig{
			Address:      ":8000",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORSOrigins:  "*",
		},
		Database: DatabaseConfig{
			Driver:           DriverPostgres,
			Host:             "localhost",
			Port:             5432,
			Name:             "postgres",
			User:             "postgres",
			Password:         "postgres",
			SSLMode:          "disable",
			MinConns:         1,
			MaxConns:         10,
			AcquireTimeout:   30 * time.Second,
			StatementTimeout: 0,
			ConnMaxIdleTime:  0,
			ConnMaxLifetime:  30 * time.Minute,
		},
		Schema: SchemaConfig{
			Source:  SchemaSourceDir,
			Dir:     "schemas",
			Pattern: "*.txt",
			Prefix:  "schemas/",
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:        "localhost:9000",
			Region:          "us-east-1",
			Bucket:          "askdb",
			AccessKeyID:     "minio",
			SecretAccessKey: "miniostorage",
			UseSSL:          false,
		},
		AI: AIConfig{
			BaseURL:   "https://api.openai.com",
			Model:     "gpt-4",
			MaxTokens: 500,
			Timeout:   30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18000"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Database.Driver = DriverDuckDB
		cfg.Database.AcquireTimeout = 2 * time.Second
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Database.SSLMode = "require"
		cfg.ObjectStore.UseSSL = true
		cfg.HTTP.CORSOrigins = ""
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

// applyRaw keeps surrounding whitespace, which is significant in secrets.
func applyRaw(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = raw
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
