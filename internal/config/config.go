package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string `env:"DATABASE_DSN,required=true"`
	RedisURL            string `env:"REDIS_URL,required=true"`
	APIPort             int    `env:"API_PORT,default=8080"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
	QueuePollIntervalMS int    `env:"QUEUE_POLL_INTERVAL_MS,default=1000"`
	SendTimeoutSec      int    `env:"SEND_TIMEOUT_SEC,default=15"`
	RateLimitPerSec     int    `env:"RATE_LIMIT_PER_SEC,default=100"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// PollInterval returns the dispatch queue poll interval, defaulting to one
// second for non-positive values.
func (c *Config) PollInterval() time.Duration {
	if c.QueuePollIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.QueuePollIntervalMS) * time.Millisecond
}

// SendTimeout returns the per-send provider timeout.
func (c *Config) SendTimeout() time.Duration {
	if c.SendTimeoutSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.SendTimeoutSec) * time.Second
}
