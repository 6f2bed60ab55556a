// Package config loads runtime settings from an optional TOML file and the
// environment, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"

	"finanzas/internal/core"
)

// FileEnv names the environment variable pointing at the TOML file.
const FileEnv = "FINANZAS_CONFIG"

var validBackends = []string{"memory", "sqlite", "postgres", "mongo", "firestore"}

type Config struct {
	// HTTP Server
	Port               string `toml:"port"`
	JWTSecret          string `toml:"jwt_secret"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`

	// Storage
	DataBackend         string `toml:"data_backend"`
	MirrorBackend       string `toml:"mirror_backend"`
	DataDirectory       string `toml:"data_directory"`
	SQLiteDBPath        string `toml:"sqlite_db_path"`
	DatabaseURL         string `toml:"database_url"`
	MongoURI            string `toml:"mongo_uri"`
	MongoDatabase       string `toml:"mongo_database"`
	FirestoreProject    string `toml:"firestore_project"`
	FirestoreCollection string `toml:"firestore_collection"`
	FirestoreEndpoint   string `toml:"firestore_endpoint"`
	// Service account key, inline or as a file path. Both empty means
	// application default credentials.
	GoogleCredentialsJSON string `toml:"-"`
	GoogleCredentialsFile string `toml:"google_credentials_file"`

	// AMQP
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Engine
	SnapshotFieldsPerMonth bool          `toml:"snapshot_fields_per_month"`
	DefaultTemplate        string        `toml:"default_template"`
	CacheMaxDocuments      int           `toml:"cache_max_documents"`
	CacheTTL               time.Duration `toml:"cache_ttl"`
	// Open sessions are dropped after SessionIdleTimeout without use and
	// reread from the store once older than SessionRefresh. Zero disables.
	SessionIdleTimeout time.Duration `toml:"session_idle_timeout"`
	SessionRefresh     time.Duration `toml:"session_refresh"`

	// Workers
	RolloverSchedule string `toml:"rollover_schedule"`
	SyncConcurrency  int    `toml:"sync_concurrency"`

	// Observability
	SentryDSN         string `toml:"sentry_dsn"`
	SentryEnvironment string `toml:"sentry_environment"`
	LogLevel          string `toml:"log_level"`
	LogFormat         string `toml:"log_format"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:               "8081",
		RateLimitPerMinute: 120,

		DataBackend:         "memory",
		DataDirectory:       "data",
		SQLiteDBPath:        "./data/finanzas.db",
		MongoDatabase:       "finanzas",
		FirestoreCollection: "ledger_documents",

		AMQPExchange: "finanzas",
		AMQPQueue:    "sync_documents",

		DefaultTemplate:   string(core.TemplateClassic),
		CacheMaxDocuments: 1000,
		CacheTTL:          5 * time.Minute,

		SessionIdleTimeout: 30 * time.Minute,
		SessionRefresh:     time.Minute,

		RolloverSchedule: "0 6 1 * *",
		SyncConcurrency:  4,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load applies defaults, then the TOML file named by FINANZAS_CONFIG, then
// environment variables.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.MirrorBackend = getEnv("MIRROR_BACKEND", c.MirrorBackend)
	c.DataDirectory = getEnv("DATA_DIRECTORY", c.DataDirectory)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.FirestoreProject = getEnv("FIRESTORE_PROJECT", c.FirestoreProject)
	c.FirestoreCollection = getEnv("FIRESTORE_COLLECTION", c.FirestoreCollection)
	if host := os.Getenv("FIRESTORE_EMULATOR_HOST"); host != "" {
		c.FirestoreEndpoint = "http://" + host
	}
	c.GoogleCredentialsJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleCredentialsJSON)
	c.GoogleCredentialsFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleCredentialsFile)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.SnapshotFieldsPerMonth = getEnvBool("SNAPSHOT_FIELDS_PER_MONTH", c.SnapshotFieldsPerMonth)
	c.DefaultTemplate = getEnv("DEFAULT_TEMPLATE", c.DefaultTemplate)
	c.CacheMaxDocuments = getEnvInt("CACHE_MAX_DOCUMENTS", c.CacheMaxDocuments)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)
	c.SessionIdleTimeout = getEnvDuration("SESSION_IDLE_TIMEOUT", c.SessionIdleTimeout)
	c.SessionRefresh = getEnvDuration("SESSION_REFRESH", c.SessionRefresh)

	c.RolloverSchedule = getEnv("ROLLOVER_SCHEDULE", c.RolloverSchedule)
	c.SyncConcurrency = getEnvInt("SYNC_CONCURRENCY", c.SyncConcurrency)

	c.SentryDSN = getEnv("SENTRY_DSN", c.SentryDSN)
	c.SentryEnvironment = getEnv("SENTRY_ENVIRONMENT", c.SentryEnvironment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Template returns the configured starter template.
func (c *Config) Template() core.Template {
	t, err := core.ParseTemplate(c.DefaultTemplate)
	if err != nil {
		return core.TemplateClassic
	}
	return t
}

// GoogleCredentials returns the service account key, reading the file when
// only a path is configured. Nil means application default credentials.
func (c *Config) GoogleCredentials() ([]byte, error) {
	if c.GoogleCredentialsJSON != "" {
		return []byte(c.GoogleCredentialsJSON), nil
	}
	if c.GoogleCredentialsFile == "" {
		return nil, nil
	}
	b, err := os.ReadFile(c.GoogleCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	} else {
		errs = append(errs, c.backendErrors("data", c.DataBackend)...)
	}

	if c.MirrorBackend != "" {
		switch {
		case !slices.Contains(validBackends, c.MirrorBackend):
			errs = append(errs, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validBackends))
		case c.MirrorBackend == c.DataBackend:
			errs = append(errs, "mirror backend must differ from data backend")
		default:
			errs = append(errs, c.backendErrors("mirror", c.MirrorBackend)...)
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := core.ParseTemplate(c.DefaultTemplate); err != nil {
		errs = append(errs, fmt.Sprintf("invalid default template '%s'", c.DefaultTemplate))
	}
	if c.CacheMaxDocuments < 0 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d: must not be negative", c.CacheMaxDocuments))
	}
	if c.CacheMaxDocuments > 0 && c.CacheTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.SessionIdleTimeout < 0 || c.SessionRefresh < 0 {
		errs = append(errs, fmt.Sprintf("invalid session timeouts %v/%v: must not be negative", c.SessionIdleTimeout, c.SessionRefresh))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}
	if c.SyncConcurrency < 1 || c.SyncConcurrency > 64 {
		errs = append(errs, fmt.Sprintf("invalid sync concurrency %d: must be between 1 and 64", c.SyncConcurrency))
	}
	if _, err := cron.ParseStandard(c.RolloverSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("invalid rollover schedule '%s': %v", c.RolloverSchedule, err))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) backendErrors(role, backend string) []string {
	var errs []string
	switch backend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, fmt.Sprintf("SQLite database path cannot be empty when using sqlite as %s backend", role))
		} else if err := ensureDir(filepath.Dir(c.SQLiteDBPath)); err != nil {
			errs = append(errs, err.Error())
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Sprintf("DATABASE_URL is required when using postgres as %s backend", role))
		}
	case "mongo":
		if c.MongoURI == "" {
			errs = append(errs, fmt.Sprintf("MONGO_URI is required when using mongo as %s backend", role))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, fmt.Sprintf("MONGO_DATABASE is required when using mongo as %s backend", role))
		}
	case "firestore":
		if c.FirestoreProject == "" {
			errs = append(errs, fmt.Sprintf("FIRESTORE_PROJECT is required when using firestore as %s backend", role))
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Sprintf("service account file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}
	return errs
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create SQLite database directory '%s': %v", dir, err)
		}
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
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
