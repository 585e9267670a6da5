package config

import (
	"fmt"
	"path/filepath"

	pkgconfig "github.com/baignoire/fitmatch/pkg/config"
)

// Feed artifacts live under FeedDataDir with fixed names the vendor
// tooling and the override spreadsheets expect.
const (
	feedFileName      = "Product Data.xlsx"
	queueFileName     = "webhook_queue.json"
	whitelistFileName = "compatibility_whitelist.xlsx"
	blacklistFileName = "compatibility_blacklist.xlsx"
)

const defaultWebhookSecret = "change-this-webhook-secret"

// Config holds all configuration for the fitmatch service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	ServerHost string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"8086"`

	// PostgreSQL. DATABASE_URL, when set, wins over the discrete fields.
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      int    `env:"DB_PORT" envDefault:"5432"`
	DBUser      string `env:"DB_USER" envDefault:"fitmatch"`
	DBPassword  string `env:"DB_PASSWORD" envDefault:"fitmatch_secret"`
	DBName      string `env:"DB_NAME" envDefault:"fitmatch_db"`
	DBSSLMode   string `env:"DB_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Webhook authentication
	WebhookSecret string `env:"WEBHOOK_SECRET" envDefault:"change-this-webhook-secret"`

	// Feed intake
	FeedDataDir         string `env:"FEED_DATA_DIR" envDefault:"data"`
	FeedDownloadTimeout string `env:"FEED_DOWNLOAD_TIMEOUT" envDefault:"300s"`
	FeedMaxBytes        int64  `env:"FEED_MAX_BYTES" envDefault:"104857600"`

	// Sync worker
	WorkerStartupDelay   string `env:"WORKER_STARTUP_DELAY" envDefault:"30s"`
	WorkerInterval       string `env:"WORKER_INTERVAL" envDefault:"120s"`
	BackfillBatchSize    int    `env:"BACKFILL_BATCH_SIZE" envDefault:"50"`
	DeferCompatibilities bool   `env:"DEFER_COMPAT" envDefault:"false"`

	// Redis lookup cache; an empty REDIS_ADDR disables caching.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      string `env:"CACHE_TTL" envDefault:"1h"`

	// Kafka; empty KAFKA_BROKERS disables event publication.
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicSync string   `env:"KAFKA_TOPIC_SYNC" envDefault:"catalog-sync-events"`

	// Scheduled poll trigger; both values must be set to enable it.
	PollSchedule string `env:"POLL_SCHEDULE"`
	PollFeedURL  string `env:"POLL_FEED_URL"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load fitmatch config: %w", err)
	}
	if err := pkgconfig.ValidatePort("server port", cfg.ServerPort); err != nil {
		return nil, err
	}
	if err := pkgconfig.ValidatePositive("FEED_MAX_BYTES", cfg.FeedMaxBytes); err != nil {
		return nil, err
	}
	if err := pkgconfig.ValidatePositive("BACKFILL_BATCH_SIZE", int64(cfg.BackfillBatchSize)); err != nil {
		return nil, err
	}
	if cfg.OTELSampleRate < 0 || cfg.OTELSampleRate > 1.0 {
		return nil, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", cfg.OTELSampleRate)
	}
	if cfg.PollSchedule != "" && cfg.PollFeedURL == "" {
		return nil, fmt.Errorf("POLL_FEED_URL is required when POLL_SCHEDULE is set")
	}

	// In non-development environments, require an explicitly set webhook secret.
	if cfg.Environment != "development" {
		if err := pkgconfig.ValidateSecret("WEBHOOK_SECRET", cfg.WebhookSecret, defaultWebhookSecret, 16); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// FeedPath returns the on-disk location of the downloaded vendor feed.
func (c *Config) FeedPath() string {
	return filepath.Join(c.FeedDataDir, feedFileName)
}

// QueuePath returns the on-disk location of the webhook job file.
func (c *Config) QueuePath() string {
	return filepath.Join(c.FeedDataDir, queueFileName)
}

// WhitelistPath returns the on-disk location of the whitelist spreadsheet.
func (c *Config) WhitelistPath() string {
	return filepath.Join(c.FeedDataDir, whitelistFileName)
}

// BlacklistPath returns the on-disk location of the blacklist spreadsheet.
func (c *Config) BlacklistPath() string {
	return filepath.Join(c.FeedDataDir, blacklistFileName)
}

// KafkaEnabled reports whether event publication is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// CacheEnabled reports whether the Redis lookup cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// PollEnabled reports whether the scheduled poll trigger is configured.
func (c *Config) PollEnabled() bool {
	return c.PollSchedule != "" && c.PollFeedURL != ""
}
