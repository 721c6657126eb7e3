// Package app assembles the bot: configuration, storage, services, and
// the Telegram surface.
package app

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "driverbot/core/config"
	coredatabase "driverbot/core/database"
)

// PaymentsConfig holds the out-of-band payment settings and tier prices
// in tenge.
type PaymentsConfig struct {
	KaspiPhone    string `yaml:"kaspi_phone" envconfig:"KASPI_PHONE"`
	BasicPrice    int    `yaml:"basic_price" envconfig:"PRICE_BASIC"`
	PremiumPrice  int    `yaml:"premium_price" envconfig:"PRICE_PREMIUM"`
	BusinessPrice int    `yaml:"business_price" envconfig:"PRICE_BUSINESS"`
}

// LimitsConfig bounds free-tier usage.
type LimitsConfig struct {
	FreeSearchesPerDay int `yaml:"free_searches_per_day" envconfig:"FREE_SEARCHES_PER_DAY"`
	MaxReviewsPerDay   int `yaml:"max_reviews_per_day" envconfig:"MAX_REVIEWS_PER_DAY"`
	// BroadcastPerSecond throttles moderator broadcasts.
	BroadcastPerSecond float64 `yaml:"broadcast_per_second" envconfig:"BROADCAST_PER_SECOND"`
}

// Config is the full application configuration.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Payments PaymentsConfig      `yaml:"payments"`
	Limits   LimitsConfig        `yaml:"limits"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Core
}

// Load reads the YAML file, applies environment overrides, and validates.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Payments.BasicPrice <= 0 {
		cfg.Payments.BasicPrice = 500
	}
	if cfg.Payments.PremiumPrice <= 0 {
		cfg.Payments.PremiumPrice = 1000
	}
	if cfg.Payments.BusinessPrice <= 0 {
		cfg.Payments.BusinessPrice = 2500
	}
	if cfg.Limits.FreeSearchesPerDay <= 0 {
		cfg.Limits.FreeSearchesPerDay = 3
	}
	if cfg.Limits.MaxReviewsPerDay <= 0 {
		cfg.Limits.MaxReviewsPerDay = 10
	}
	if cfg.Limits.BroadcastPerSecond <= 0 {
		cfg.Limits.BroadcastPerSecond = 20
	}
}
