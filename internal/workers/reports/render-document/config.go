// internal/workers/reports/render-document/config.go
package renderdocument

import (
	"fmt"
	"time"
)

type Config struct {
	TemplateID   string
	PollInterval time.Duration
	MaxAttempts  int
}

// DefaultConfig polls every 2s for at most 30 checks, a 60s ceiling.
func DefaultConfig() *Config {
	return &Config{
		PollInterval: 2 * time.Second,
		MaxAttempts:  30,
	}
}

func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("poll_max_attempts must be positive")
	}
	return nil
}

// Ceiling is the longest Await can wait.
func (c *Config) Ceiling() time.Duration {
	return c.PollInterval * time.Duration(c.MaxAttempts)
}
