package server

import (
	"errors"
	"fmt"
	"time"
)

// Config carries the tunables for one server instance. Zero values are not
// usable; start from DefaultConfig and override.
type Config struct {
	Bind            string
	Port            int
	OriginPatterns  []string
	GraceWindow     time.Duration // empty unfinished games survive this long
	CleanupInterval time.Duration
	IdleTimeout     time.Duration // connections silent this long get reaped
	RateLimit       int           // messages per second per connection
}

func DefaultConfig() Config {
	return Config{
		Bind:            "0.0.0.0",
		Port:            8080,
		OriginPatterns:  []string{"*"},
		GraceWindow:     5 * time.Minute,
		CleanupInterval: time.Minute,
		IdleTimeout:     10 * time.Minute,
		RateLimit:       30,
	}
}

func (c Config) Validate() error {
	if c.Bind == "" {
		return errors.New("bind address must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if len(c.OriginPatterns) == 0 {
		return errors.New("at least one origin pattern is required")
	}
	if c.GraceWindow <= 0 {
		return errors.New("grace window must be positive")
	}
	if c.CleanupInterval <= 0 {
		return errors.New("cleanup interval must be positive")
	}
	if c.IdleTimeout <= 0 {
		return errors.New("idle timeout must be positive")
	}
	if c.RateLimit < 1 {
		return errors.New("rate limit must allow at least one message per second")
	}
	return nil
}
