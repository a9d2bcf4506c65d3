// internal/workers/reports/upload-photos/config.go
package uploadphotos

import (
	"fmt"
	"time"
)

type Config struct {
	Concurrency    int
	CacheTTL       time.Duration
	CacheKeyPrefix string
}

func DefaultConfig() *Config {
	return &Config{
		Concurrency:    1,
		CacheTTL:       24 * time.Hour,
		CacheKeyPrefix: "report:photo:",
	}
}

func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	return nil
}
