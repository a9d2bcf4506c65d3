// internal/workers/reports/notify-homeowner/config.go
package notifyhomeowner

import "fmt"

const (
	ProviderGHL = "ghl"
	ProviderSNS = "sns"
)

type Config struct {
	Provider   string
	IssuerCopy bool
	FromEmail  string
}

func DefaultConfig() *Config {
	return &Config{Provider: ProviderGHL}
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGHL, ProviderSNS:
	default:
		return fmt.Errorf("unknown notification provider %q", c.Provider)
	}
	if c.IssuerCopy && c.FromEmail == "" {
		return fmt.Errorf("from_email is required when issuer copy is enabled")
	}
	return nil
}
