package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("askdb-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8000" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.MinConns != 1 || cfg.Database.MaxConns != 10 {
		t.Fatalf("Database pool bounds = %d/%d, want 1/10", cfg.Database.MinConns, cfg.Database.MaxConns)
	}
	if cfg.Database.AcquireTimeout != 30*time.Second {
		t.Fatalf("Database.AcquireTimeout = %s", cfg.Database.AcquireTimeout)
	}
	if cfg.Schema.Source != SchemaSourceDir || cfg.Schema.Pattern != "*.txt" {
		t.Fatalf("Schema = %#v", cfg.Schema)
	}
	if cfg.AI.MaxTokens != 500 {
		t.Fatalf("AI.MaxTokens = %d", cfg.AI.MaxTokens)
	}
	if cfg.AI.Model != "gpt-4" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("askdb-api", mapLookup(map[string]string{"ASKDB_PROFILE": "prod"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.SSLMode != "require" {
		t.Fatalf("Database.SSLMode = %q", cfg.Database.SSLMode)
	}
	if cfg.HTTP.CORSOrigins != "" {
		t.Fatalf("HTTP.CORSOrigins = %q, want empty in prod", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadTestProfileUsesDuckDB(t *testing.T) {
	cfg, err := Load("askdb-api", mapLookup(map[string]string{"ASKDB_PROFILE": "test"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != DriverDuckDB {
		t.Fatalf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.AcquireTimeout != 2*time.Second {
		t.Fatalf("Database.AcquireTimeout = %s", cfg.Database.AcquireTimeout)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	cfg, err := Load("askdb-api", mapLookup(map[string]string{
		"ASKDB_SERVICE_NAME":         "askdb-custom",
		"ASKDB_HTTP_ADDR":            ":9999",
		"ASKDB_HTTP_READ_TIMEOUT":    "2s",
		"ASKDB_HTTP_CORS_ORIGINS":    "http://localhost:8050",
		"ASKDB_DB_HOST":              "db.internal",
		"ASKDB_DB_PORT":              "6543",
		"ASKDB_DB_NAME":              "sales",
		"ASKDB_DB_USER":              "reader",
		"ASKDB_DB_PASSWORD":          " p@ss ",
		"ASKDB_DB_MIN_CONNS":         "2",
		"ASKDB_DB_MAX_CONNS":         "4",
		"ASKDB_DB_ACQUIRE_TIMEOUT":   "0s",
		"ASKDB_DB_STATEMENT_TIMEOUT": "15s",
		"ASKDB_SCHEMA_SOURCE":        "s3",
		"ASKDB_SCHEMA_PREFIX":        "fragments/",
		"ASKDB_OBJECTSTORE_BUCKET":   "schemas-prod",
		"ASKDB_OBJECTSTORE_USE_SSL":  "true",
		"ASKDB_AI_BASE_URL":          "https://llm.example.com",
		"ASKDB_AI_API_KEY":           "secret-key",
		"ASKDB_AI_MODEL":             "gpt-4o",
		"ASKDB_AI_MAX_TOKENS":        "800",
		"ASKDB_AI_TIMEOUT":           "21s",
		"ASKDB_LOG_LEVEL":            "error",
		"ASKDB_LOG_JSON":             "false",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "askdb-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" || cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP = %#v", cfg.HTTP)
	}
	if cfg.HTTP.CORSOrigins != "http://localhost:8050" {
		t.Fatalf("HTTP.CORSOrigins = %q", cfg.HTTP.CORSOrigins)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 6543 || cfg.Database.Name != "sales" || cfg.Database.User != "reader" {
		t.Fatalf("Database = %#v", cfg.Database)
	}
	if cfg.Database.Password != " p@ss " {
		t.Fatalf("Database.Password = %q, want untrimmed", cfg.Database.Password)
	}
	if cfg.Database.MinConns != 2 || cfg.Database.MaxConns != 4 {
		t.Fatalf("Database pool bounds = %d/%d", cfg.Database.MinConns, cfg.Database.MaxConns)
	}
	if cfg.Database.AcquireTimeout != 0 {
		t.Fatalf("Database.AcquireTimeout = %s", cfg.Database.AcquireTimeout)
	}
	if cfg.Database.StatementTimeout != 15*time.Second {
		t.Fatalf("Database.StatementTimeout = %s", cfg.Database.StatementTimeout)
	}
	if cfg.Schema.Source != SchemaSourceS3 || cfg.Schema.Prefix != "fragments/" {
		t.Fatalf("Schema = %#v", cfg.Schema)
	}
	if cfg.ObjectStore.Bucket != "schemas-prod" || !cfg.ObjectStore.UseSSL {
		t.Fatalf("ObjectStore = %#v", cfg.ObjectStore)
	}
	if cfg.AI.BaseURL != "https://llm.example.com" || cfg.AI.APIKey != "secret-key" || cfg.AI.Model != "gpt-4o" {
		t.Fatalf("AI = %#v", cfg.AI)
	}
	if cfg.AI.MaxTokens != 800 || cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI limits = %d/%s", cfg.AI.MaxTokens, cfg.AI.Timeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError || cfg.Observability.LogJSON {
		t.Fatalf("Observability = %#v", cfg.Observability)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"ASKDB_PROFILE": "oops"},
		{"ASKDB_HTTP_READ_TIMEOUT": "NaN"},
		{"ASKDB_DB_PORT": "oops"},
		{"ASKDB_DB_DRIVER": "mysql"},
		{"ASKDB_DB_MIN_CONNS": "0"},
		{"ASKDB_DB_MIN_CONNS": "5", "ASKDB_DB_MAX_CONNS": "4"},
		{"ASKDB_DB_ACQUIRE_TIMEOUT": "-1s"},
		{"ASKDB_SCHEMA_SOURCE": "ftp"},
		{"ASKDB_AI_MAX_TOKENS": "0"},
		{"ASKDB_OBJECTSTORE_USE_SSL": "not-bool"},
		{"ASKDB_LOG_LEVEL": "verbose"},
		{"ASKDB_HTTP_ADDR": " "},
	}
	for _, env := range tests {
		_, err := Load("askdb-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
