package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID,required=true"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN,required=true"`
	TwilioFromNumber string `env:"TWILIO_FROM_NUMBER,required=true"`
	TwilioBaseURL    string `env:"TWILIO_BASE_URL"`

	// DefaultTimezone governs bulk time-range parsing and message rendering.
	DefaultTimezone string `env:"DEFAULT_TIMEZONE,default=America/New_York"`
	// PhoneRegions is a comma-separated list of accepted phone profiles.
	PhoneRegions string `env:"PHONE_REGIONS,default=us"`

	MaxRetries           int           `env:"MAX_RETRIES,default=3"`
	StalenessWindow      time.Duration `env:"STALENESS_WINDOW,default=5m"`
	TickInterval         time.Duration `env:"TICK_INTERVAL,default=30s"`
	TickBatchLimit       int           `env:"TICK_BATCH_LIMIT,default=100"`
	SendTimeout          time.Duration `env:"SEND_TIMEOUT,default=10s"`
	WorkerConcurrency    int           `env:"WORKER_CONCURRENCY,default=4"`
	SMSRatePerSec        int           `env:"SMS_RATE_PER_SEC,default=10"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Location resolves the configured governing timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(c.DefaultTimezone))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", c.DefaultTimezone, err)
	}
	return loc, nil
}

// PhoneRegionList splits the configured comma-separated phone regions.
func (c *Config) PhoneRegionList() []string {
	parts := strings.Split(c.PhoneRegions, ",")
	regions := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			regions = append(regions, trimmed)
		}
	}
	return regions
}
