// Package config loads process configuration from the environment into a
// single struct at startup, following the ambient convention that static
// configuration loading is an external concern the core merely consumes.
package config

import (
	"time"

	"github.com/caarlos0/env/v7"
)

// Config is the full set of environment-driven settings for the service.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	DomainAnalysisQuotaPerDay int           `env:"DOMAIN_ANALYSIS_QUOTA_PER_DAY" envDefault:"20"`
	RequestTimeout            time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	ExternalSourceTimeout     time.Duration `env:"EXTERNAL_SOURCE_TIMEOUT" envDefault:"10s"`

	AggregatorInterval     time.Duration `env:"AGGREGATOR_INTERVAL" envDefault:"5m"`
	DomainRefreshInterval  time.Duration `env:"DOMAIN_REFRESH_INTERVAL" envDefault:"24h"`
	RuleLearnerInterval    time.Duration `env:"RULE_LEARNER_INTERVAL" envDefault:"24h"`
	JanitorInterval        time.Duration `env:"JANITOR_INTERVAL" envDefault:"24h"`

	RatingRetentionDays    int `env:"RATING_RETENTION_DAYS" envDefault:"7"`
	DomainCacheGraceDays   int `env:"DOMAIN_CACHE_GRACE_DAYS" envDefault:"1"`
	StaleURLStatsIdleDays  int `env:"STALE_URL_STATS_IDLE_DAYS" envDefault:"30"`
	DomainRefreshBatchSize int `env:"DOMAIN_REFRESH_BATCH_SIZE" envDefault:"20"`
}

// Load parses environment variables into a Config, applying defaults for
// any variable the process environment does not set.
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
