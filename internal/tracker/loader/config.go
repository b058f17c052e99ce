package loader

import (
	"fmt"
	"net/url"
	"time"

	"application-tracker/internal/common/config"
)

type Config struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	MaxBytes   int64
	CacheTTL   time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		URL:        "http://127.0.0.1:8080/applications.csv",
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		MaxBytes:   5 << 20,
		CacheTTL:   time.Minute,
	}
}

// FromAppConfig builds the loader settings from the application config.
func FromAppConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg.Data.URL != "" {
		c.URL = cfg.Data.URL
	}
	if cfg.Data.Timeout > 0 {
		c.Timeout = config.GetDuration(cfg.Data.Timeout)
	}
	if cfg.Data.MaxRetries >= 0 {
		c.MaxRetries = cfg.Data.MaxRetries
	}
	if cfg.Data.MaxBytes > 0 {
		c.MaxBytes = cfg.Data.MaxBytes
	}
	if cfg.Cache.TTL > 0 {
		c.CacheTTL = config.GetDuration(cfg.Cache.TTL)
	}
	return c
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("data url must be an absolute http(s) url, got %q", c.URL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.MaxBytes <= 0 {
		return fmt.Errorf("max_bytes must be positive")
	}
	return nil
}
