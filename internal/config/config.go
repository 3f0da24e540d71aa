// Package config reads the hub settings from the environment, optionally seeded by
// the nearest .env file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/joho/godotenv"
)

// Config is the complete runtime configuration. Durations read from the environment
// use the unit named by the variable suffix (_SECONDS, _HOURS, _DAYS).
type Config struct {
	// Admin API listener.
	ServerHost string
	ServerPort int

	// DBDriver is one of postgres, mysql, sqlite or memory.
	DBDriver             string
	DBConnectionString   string
	DBMaxOpenConnections int
	DBMaxIdleConnections int
	DBConnMaxLifetime    time.Duration

	LogLevel string

	// Per client IP limits on /v1 routes.
	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int

	CORSEnabled      bool
	CORSAllowOrigins string

	// AdminAPIToken guards /v1. When empty, grant mutation routes are not registered.
	AdminAPIToken string

	MetricsEnabled   bool
	MetricsNamespace string
	MetricsPort      int

	// HubIdentity is the sender identity stamped on every event envelope.
	HubIdentity string

	NATSURL               string
	NATSSubjectPrefix     string
	NATSPropagationStream string
	NATSPropagationMaxAge time.Duration

	// Outbound delivery: bounded queue, worker pool, then propagation fallback
	// once OutboundMaxAttempts direct sends fail.
	OutboundQueueCapacity int
	OutboundWorkers       int
	OutboundSendTimeout   time.Duration
	OutboundMaxAttempts   int
	OutboundBackoff       time.Duration
	OutboundStopTimeout   time.Duration

	// DomainEventRetention of zero keeps history forever.
	DomainEventRetention time.Duration
	EventLogCapacity     int

	// CapabilityMapFile is an optional YAML override of command capabilities.
	CapabilityMapFile string
}

// Load builds a Config from the environment.
func Load() *Config {
	loadDotEnv()

	return &Config{
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("SERVER_PORT", 8080),

		DBDriver: env.GetString("DB_DRIVER", "sqlite"),
		DBConnectionString: env.GetString(
			"DB_CONNECTION_STRING",
			"file:missionhub.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		),
		DBMaxOpenConnections: env.GetInt("DB_MAX_OPEN_CONNECTIONS", 25),
		DBMaxIdleConnections: env.GetInt("DB_MAX_IDLE_CONNECTIONS", 5),
		DBConnMaxLifetime:    env.GetDuration("DB_CONN_MAX_LIFETIME", 5, time.Minute),

		LogLevel: env.GetString("LOG_LEVEL", "info"),

		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 10.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 20),

		CORSEnabled:      env.GetBool("CORS_ENABLED", false),
		CORSAllowOrigins: env.GetString("CORS_ALLOW_ORIGINS", ""),

		AdminAPIToken: env.GetString("ADMIN_API_TOKEN", ""),

		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "missionhub"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),

		HubIdentity: env.GetString("HUB_IDENTITY", "missionhub"),

		NATSURL:               env.GetString("NATS_URL", "nats://127.0.0.1:4222"),
		NATSSubjectPrefix:     env.GetString("NATS_SUBJECT_PREFIX", "mesh"),
		NATSPropagationStream: env.GetString("NATS_PROPAGATION_STREAM", "MESH_PROPAGATION"),
		NATSPropagationMaxAge: env.GetDuration("NATS_PROPAGATION_MAX_AGE_HOURS", 72, time.Hour),

		OutboundQueueCapacity: env.GetInt("OUTBOUND_QUEUE_CAPACITY", 256),
		OutboundWorkers:       env.GetInt("OUTBOUND_WORKERS", 4),
		OutboundSendTimeout:   env.GetDuration("OUTBOUND_SEND_TIMEOUT_SECONDS", 10, time.Second),
		OutboundMaxAttempts:   env.GetInt("OUTBOUND_MAX_ATTEMPTS", 3),
		OutboundBackoff:       env.GetDuration("OUTBOUND_BACKOFF_SECONDS", 5, time.Second),
		OutboundStopTimeout:   env.GetDuration("OUTBOUND_STOP_TIMEOUT_SECONDS", 5, time.Second),

		DomainEventRetention: env.GetDuration("DOMAIN_EVENT_RETENTION_DAYS", 90, 24*time.Hour),
		EventLogCapacity:     env.GetInt("EVENT_LOG_CAPACITY", 1000),

		CapabilityMapFile: env.GetString("CAPABILITY_MAP_FILE", ""),
	}
}

// Validate rejects settings the hub cannot start with.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DBDriver, validation.Required, validation.In("postgres", "mysql", "sqlite", "memory")),
		validation.Field(&c.DBConnectionString, validation.When(c.DBDriver != "memory", validation.Required)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.ServerPort, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.MetricsPort, validation.When(c.MetricsEnabled, validation.Min(1), validation.Max(65535))),
		validation.Field(&c.HubIdentity, validation.Required),
		validation.Field(&c.NATSURL, validation.Required),
		validation.Field(&c.OutboundQueueCapacity, validation.Min(1)),
		validation.Field(&c.OutboundWorkers, validation.Min(1)),
		validation.Field(&c.OutboundMaxAttempts, validation.Min(1)),
		validation.Field(&c.DomainEventRetention, validation.Min(time.Duration(0))),
		validation.Field(&c.EventLogCapacity, validation.Min(1)),
	)
}

// GetGinMode keeps gin in release mode unless debug logging is on.
func (c *Config) GetGinMode() string {
	if c.LogLevel == "debug" {
		return "debug"
	}
	return "release"
}

// loadDotEnv loads the first .env found walking up from the working directory.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}

	for {
		path := filepath.Join(dir, ".env")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			_ = godotenv.Load(path)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
