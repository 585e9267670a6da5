package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    Port        int      `env:"SERVER_PORT" envDefault:"8086"`
//	    FeedDataDir string   `env:"FEED_DATA_DIR" envDefault:"data"`
//	    Brokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ValidatePort returns an error unless port is a usable TCP port number.
func ValidatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid %s: %d (must be between 1 and 65535)", name, port)
	}
	return nil
}

// ValidatePositive returns an error unless v is strictly positive.
func ValidatePositive(name string, v int64) error {
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, v)
	}
	return nil
}

// ValidateSecret rejects a secret still set to a known insecure default and
// enforces a minimum length.
func ValidateSecret(name, value, insecureDefault string, minLen int) error {
	if value == insecureDefault {
		return fmt.Errorf("%s must be explicitly set via environment variable", name)
	}
	if len(value) < minLen {
		return fmt.Errorf("%s must be at least %d characters long, got %d", name, minLen, len(value))
	}
	return nil
}
