package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Pipeline      PipelineConfig          `mapstructure:"pipeline"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	MaxBodyBytes    int64  `mapstructure:"max_body_bytes"`
	AllowedOrigin   string `mapstructure:"allowed_origin"`
}

// PipelineConfig bounds one report-generation run.
type PipelineConfig struct {
	Timeout                int `mapstructure:"timeout"` // milliseconds, whole run
	PhotoUploadConcurrency int `mapstructure:"photo_upload_concurrency"`
	ReportIDAttempts       int `mapstructure:"report_id_attempts"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Address       string `mapstructure:"address"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	PoolSize      int    `mapstructure:"pool_size"`
	PhotoCacheTTL int    `mapstructure:"photo_cache_ttl"` // milliseconds
	ReportIDTTL   int    `mapstructure:"report_id_ttl"`   // milliseconds
}

// WorkerConfig holds the settings applicable to every process-engine job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// IntegrationConfig holds settings for the image host, render service, relationship system and AWS.
type IntegrationConfig struct {
	Cloudinary struct {
		CloudName    string `mapstructure:"cloud_name"`
		UploadPreset string `mapstructure:"upload_preset"`
		BaseURL      string `mapstructure:"base_url"`
		Timeout      int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"cloudinary"`

	PDFMonkey struct {
		APIKey          string `mapstructure:"api_key"`
		TemplateID      string `mapstructure:"template_id"`
		BaseURL         string `mapstructure:"base_url"`
		Timeout         int    `mapstructure:"timeout"`       // milliseconds
		PollInterval    int    `mapstructure:"poll_interval"` // milliseconds
		PollMaxAttempts int    `mapstructure:"poll_max_attempts"`
	} `mapstructure:"pdfmonkey"`

	GHL struct {
		APIKey     string `mapstructure:"api_key"`
		LocationID string `mapstructure:"location_id"`
		BaseURL    string `mapstructure:"base_url"`
		APIVersion string `mapstructure:"api_version"`
		Timeout    int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"ghl"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// NotificationConfig selects the homeowner SMS channel and the optional issuer copy.
type NotificationConfig struct {
	Provider   string `mapstructure:"provider"` // "ghl" or "sns"
	IssuerCopy struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"issuer_copy"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	Tracing struct {
		Enabled     bool    `mapstructure:"enabled"`
		SampleRatio float64 `mapstructure:"sample_ratio"`
	} `mapstructure:"tracing"`
}
