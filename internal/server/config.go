package server

import (
	"errors"
	"fmt"
	"time"
)

// Config holds HTTP gateway settings.
type Config struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodySize caps upload bodies in bytes.
	MaxBodySize int64 `yaml:"max_body_size"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = 64 << 20
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var problems []error
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		problems = append(problems, errors.New("timeouts must be non-negative"))
	}
	if c.ShutdownTimeout < 0 {
		problems = append(problems, errors.New("shutdown_timeout must be non-negative"))
	}
	if c.MaxBodySize < 0 {
		problems = append(problems, fmt.Errorf("max_body_size must be non-negative (got: %d)", c.MaxBodySize))
	}
	if len(problems) > 0 {
		return fmt.Errorf("http: invalid config: %w", errors.Join(problems...))
	}
	return nil
}
