// internal/workers/reports/generate-report/config.go
package generatereport

import (
	"fmt"
	"time"
)

type Config struct {
	// Timeout bounds a whole pipeline run. It must exceed the render poll ceiling.
	Timeout time.Duration

	ReportIDAttempts int
	ReportIDTTL      time.Duration
	ReportIDPrefix   string
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:          90 * time.Second,
		ReportIDAttempts: 5,
		ReportIDTTL:      365 * 24 * time.Hour,
		ReportIDPrefix:   "report:id:",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ReportIDAttempts <= 0 {
		return fmt.Errorf("report_id_attempts must be positive")
	}
	return nil
}
