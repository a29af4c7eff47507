package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"basegraph.app/nudge/core/db"
)

type Config struct {
	OTel        OTelConfig
	Scheduler   SchedulerConfig
	Store       StoreConfig
	Inbound     InboundConfig
	Delivery    DeliveryConfig
	TextLLM     LLMConfig
	Env         string
	Port        string
	AdminAPIKey string
	RedisURL    string
	NodeID      int64
	DB          db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	Environment    string
	// SampleRatio is the fraction of root traces kept, 0 to 1.
	SampleRatio float64
}

type SchedulerConfig struct {
	Timezone      string
	GraceInterval time.Duration
}

type StoreConfig struct {
	Backend  string // "file", "redis" or "postgres"
	Path     string
	RedisKey string
}

type InboundConfig struct {
	Enabled         bool
	Stream          string
	Group           string
	Consumer        string
	DLQStream       string
	ReclaimInterval time.Duration
	ReclaimMinIdle  time.Duration
}

type DeliveryConfig struct {
	Mode       string // "log", "webhook", "stream" or "websocket"
	WebhookURL string
	Stream     string
	Timeout    time.Duration
}

type LLMConfig struct {
	Provider  string // "openai" or "anthropic"; empty uses fixed templates
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeCLI    ServiceType = "cli"
)

const (
	StoreBackendFile     = "file"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"

	DeliveryModeLog       = "log"
	DeliveryModeWebhook   = "webhook"
	DeliveryModeStream    = "stream"
	DeliveryModeWebsocket = "websocket"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the long-running service
//   - .env.cli for nudgectl
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("NUDGE_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:         getEnv("NUDGE_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		NodeID:      int64(getEnvInt("NODE_ID", 1)),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 4),
			MinConns: getEnvInt32("DB_MIN_CONNS", 1),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "nudge"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    getEnv("NUDGE_ENV", "development"),
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),
		},
		Scheduler: SchedulerConfig{
			Timezone:      getEnv("TIMEZONE", "America/Sao_Paulo"),
			GraceInterval: getEnvDuration("GRACE_INTERVAL", time.Minute),
		},
		Store: StoreConfig{
			Backend:  getEnv("STORE_BACKEND", StoreBackendFile),
			Path:     getEnv("STORE_PATH", "data/reminders.json"),
			RedisKey: getEnv("REDIS_COLLECTION_KEY", "nudge:reminders"),
		},
		Inbound: InboundConfig{
			Enabled:         getEnvBool("INBOUND_ENABLED", false),
			Stream:          getEnv("INBOUND_STREAM", "nudge:inbound"),
			Group:           getEnv("INBOUND_GROUP", "nudge_group"),
			Consumer:        getEnv("INBOUND_CONSUMER", "nudge-server"),
			DLQStream:       getEnv("INBOUND_DLQ_STREAM", "nudge:inbound:dlq"),
			ReclaimInterval: getEnvDuration("INBOUND_RECLAIM_INTERVAL", 30*time.Second),
			ReclaimMinIdle:  getEnvDuration("INBOUND_RECLAIM_MIN_IDLE", 2*time.Minute),
		},
		Delivery: DeliveryConfig{
			Mode:       getEnv("DELIVERY_MODE", DeliveryModeLog),
			WebhookURL: getEnv("DELIVERY_WEBHOOK_URL", ""),
			Stream:     getEnv("DELIVERY_STREAM", "nudge:outbound"),
			Timeout:    getEnvDuration("DELIVERY_TIMEOUT", 10*time.Second),
		},
		TextLLM: LLMConfig{
			Provider:  getEnv("TEXT_LLM_PROVIDER", ""),
			APIKey:    getEnv("TEXT_LLM_API_KEY", ""),
			BaseURL:   getEnv("TEXT_LLM_BASE_URL", ""),
			Model:     getEnv("TEXT_LLM_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvInt("TEXT_LLM_MAX_TOKENS", 256),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendFile:
		if c.Store.Path == "" {
			return fmt.Errorf("STORE_PATH is required for the file store")
		}
	case StoreBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	case StoreBackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	switch c.Delivery.Mode {
	case DeliveryModeLog, DeliveryModeWebsocket:
	case DeliveryModeWebhook:
		if c.Delivery.WebhookURL == "" {
			return fmt.Errorf("DELIVERY_WEBHOOK_URL is required for webhook delivery")
		}
	case DeliveryModeStream:
		if c.RedisURL == "" || c.Delivery.Stream == "" {
			return fmt.Errorf("REDIS_URL and DELIVERY_STREAM are required for stream delivery")
		}
	default:
		return fmt.Errorf("unknown DELIVERY_MODE %q", c.Delivery.Mode)
	}

	if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLE_RATIO must be between 0 and 1")
	}

	if c.Scheduler.GraceInterval <= 0 {
		return fmt.Errorf("GRACE_INTERVAL must be positive")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Scheduler.Timezone, err)
	}

	return nil
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c Config) NeedsRedis() bool {
	return c.Store.Backend == StoreBackendRedis ||
		c.Delivery.Mode == DeliveryModeStream ||
		c.Inbound.Enabled
}

// Location returns the configured scheduler timezone. Validate has already
// checked that it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
