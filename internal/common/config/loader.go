package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top and applies
// environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	bindEnv(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment overlay is optional

	return finalize(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finalize(v)
}

func bindEnv(v *viper.Viper) {
	// INTEGRATIONS_PDFMONKEY_API_KEY overrides integrations.pdfmonkey.api_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func finalize(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig falls back to the plain variable names used by existing deployments.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Integrations.Cloudinary.CloudName, "CLOUDINARY_CLOUD_NAME")
	setIfEmpty(&cfg.Integrations.Cloudinary.UploadPreset, "CLOUDINARY_UPLOAD_PRESET")

	setIfEmpty(&cfg.Integrations.PDFMonkey.APIKey, "PDFMONKEY_API_KEY")
	setIfEmpty(&cfg.Integrations.PDFMonkey.TemplateID, "PDFMONKEY_TEMPLATE_ID")

	setIfEmpty(&cfg.Integrations.GHL.APIKey, "GHL_API_KEY")
	setIfEmpty(&cfg.Integrations.GHL.LocationID, "GHL_LOCATION_ID")

	setIfEmpty(&cfg.Integrations.AWS.Region, "AWS_REGION")

	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
}

func setIfEmpty(field *string, envKey string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "roof-report-service"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 50 << 20
	}
	if cfg.Server.AllowedOrigin == "" {
		cfg.Server.AllowedOrigin = "*"
	}

	if cfg.Pipeline.Timeout == 0 {
		cfg.Pipeline.Timeout = 90000
	}
	if cfg.Pipeline.PhotoUploadConcurrency == 0 {
		cfg.Pipeline.PhotoUploadConcurrency = 1
	}
	if cfg.Pipeline.ReportIDAttempts == 0 {
		cfg.Pipeline.ReportIDAttempts = 5
	}

	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.PhotoCacheTTL == 0 {
		cfg.Database.Redis.PhotoCacheTTL = int((24 * time.Hour).Milliseconds())
	}
	if cfg.Database.Redis.ReportIDTTL == 0 {
		cfg.Database.Redis.ReportIDTTL = int((366 * 24 * time.Hour).Milliseconds())
	}

	if cfg.Integrations.Cloudinary.BaseURL == "" {
		cfg.Integrations.Cloudinary.BaseURL = "https://api.cloudinary.com"
	}
	if cfg.Integrations.Cloudinary.Timeout == 0 {
		cfg.Integrations.Cloudinary.Timeout = 30000
	}
	if cfg.Integrations.PDFMonkey.BaseURL == "" {
		cfg.Integrations.PDFMonkey.BaseURL = "https://api.pdfmonkey.io"
	}
	if cfg.Integrations.PDFMonkey.Timeout == 0 {
		cfg.Integrations.PDFMonkey.Timeout = 15000
	}
	if cfg.Integrations.PDFMonkey.PollInterval == 0 {
		cfg.Integrations.PDFMonkey.PollInterval = 2000
	}
	if cfg.Integrations.PDFMonkey.PollMaxAttempts == 0 {
		cfg.Integrations.PDFMonkey.PollMaxAttempts = 30
	}
	if cfg.Integrations.GHL.BaseURL == "" {
		cfg.Integrations.GHL.BaseURL = "https://services.leadconnectorhq.com"
	}
	if cfg.Integrations.GHL.APIVersion == "" {
		cfg.Integrations.GHL.APIVersion = "2021-07-28"
	}
	if cfg.Integrations.GHL.Timeout == 0 {
		cfg.Integrations.GHL.Timeout = 15000
	}
	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = os.Getenv("AWS_REGION")
	}

	if cfg.Notifications.Provider == "" {
		cfg.Notifications.Provider = "ghl"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Observability.Tracing.SampleRatio == 0 {
		cfg.Observability.Tracing.SampleRatio = 1
	}

	if cfg.Workers == nil {
		cfg.Workers = make(map[string]WorkerConfig)
	}
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = cfg.Pipeline.Timeout + 10000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Integrations.PDFMonkey.PollInterval < 0 {
		return fmt.Errorf("integrations.pdfmonkey.poll_interval must not be negative")
	}
	if cfg.Integrations.PDFMonkey.PollMaxAttempts < 0 {
		return fmt.Errorf("integrations.pdfmonkey.poll_max_attempts must not be negative")
	}
	if cfg.Pipeline.PhotoUploadConcurrency < 0 {
		return fmt.Errorf("pipeline.photo_upload_concurrency must not be negative")
	}

	switch cfg.Notifications.Provider {
	case "ghl", "sns":
	default:
		return fmt.Errorf("notifications.provider must be one of ghl, sns (got %q)", cfg.Notifications.Provider)
	}
	if cfg.Notifications.Provider == "sns" && cfg.Integrations.AWS.Region == "" {
		return fmt.Errorf("integrations.aws.region is required for the sns notification provider")
	}
	if cfg.Notifications.IssuerCopy.Enabled && cfg.Integrations.AWS.SES.FromEmail == "" {
		return fmt.Errorf("integrations.aws.ses.from_email is required when notifications.issuer_copy is enabled")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       false,
		MaxJobsActive: 5,
		Timeout:       cfg.Pipeline.Timeout + 10000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled reports whether the named worker is switched on. Workers are opt-in.
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return false
}
