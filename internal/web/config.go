package web

import (
	"fmt"
	"time"

	"application-tracker/internal/common/config"
)

type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// RateLimit is searches per second per client address; zero disables it.
	RateLimit  float64
	RateBurst  int
	CookieName string
	// DataFile, when set, is served at /applications.csv.
	DataFile string
}

func DefaultConfig() *Config {
	return &Config{
		Address:         ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		RateLimit:       5,
		RateBurst:       10,
		CookieName:      "tracker_session",
	}
}

func FromAppConfig(cfg *config.Config) *Config {
	c := DefaultConfig()
	if cfg.Server.Address != "" {
		c.Address = cfg.Server.Address
	}
	if cfg.Server.ReadTimeout > 0 {
		c.ReadTimeout = config.GetDuration(cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout > 0 {
		c.WriteTimeout = config.GetDuration(cfg.Server.WriteTimeout)
	}
	if cfg.Server.ShutdownTimeout > 0 {
		c.ShutdownTimeout = config.GetDuration(cfg.Server.ShutdownTimeout)
	}
	c.RateLimit = cfg.Server.RateLimit
	c.RateBurst = cfg.Server.RateBurst
	if cfg.Session.CookieName != "" {
		c.CookieName = cfg.Session.CookieName
	}
	c.DataFile = cfg.Data.File
	return c
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if c.CookieName == "" {
		return fmt.Errorf("cookie_name is required")
	}
	return nil
}
