package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: roof-report-service
integrations:
  cloudinary:
    cloud_name: demo
    upload_preset: unsigned
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 90000, cfg.Pipeline.Timeout)
	assert.Equal(t, 1, cfg.Pipeline.PhotoUploadConcurrency)
	assert.Equal(t, 2000, cfg.Integrations.PDFMonkey.PollInterval)
	assert.Equal(t, 30, cfg.Integrations.PDFMonkey.PollMaxAttempts)
	assert.Equal(t, "https://api.pdfmonkey.io", cfg.Integrations.PDFMonkey.BaseURL)
	assert.Equal(t, "https://services.leadconnectorhq.com", cfg.Integrations.GHL.BaseURL)
	assert.Equal(t, "2021-07-28", cfg.Integrations.GHL.APIVersion)
	assert.Equal(t, "ghl", cfg.Notifications.Provider)
	assert.Equal(t, "demo", cfg.Integrations.Cloudinary.CloudName)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile_EnvFallbacks(t *testing.T) {
	t.Setenv("PDFMONKEY_API_KEY", "pm-key")
	t.Setenv("PDFMONKEY_TEMPLATE_ID", "tpl-1")
	t.Setenv("GHL_API_KEY", "ghl-key")
	t.Setenv("GHL_LOCATION_ID", "loc-1")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "env-cloud")

	path := writeConfig(t, `
integrations:
  cloudinary:
    upload_preset: "${TEST_UPLOAD_PRESET}"
`)
	t.Setenv("TEST_UPLOAD_PRESET", "expanded-preset")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "pm-key", cfg.Integrations.PDFMonkey.APIKey)
	assert.Equal(t, "tpl-1", cfg.Integrations.PDFMonkey.TemplateID)
	assert.Equal(t, "ghl-key", cfg.Integrations.GHL.APIKey)
	assert.Equal(t, "loc-1", cfg.Integrations.GHL.LocationID)
	assert.Equal(t, "env-cloud", cfg.Integrations.Cloudinary.CloudName)
	assert.Equal(t, "expanded-preset", cfg.Integrations.Cloudinary.UploadPreset)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "unknown notification provider",
			body: `
notifications:
  provider: carrier-pigeon
`,
			wantErr: "notifications.provider",
		},
		{
			name: "issuer copy without sender",
			body: `
notifications:
  issuer_copy:
    enabled: true
`,
			wantErr: "from_email",
		},
		{
			name: "postgres enabled without host",
			body: `
database:
  postgres:
    enabled: true
    database: reports
    user: reports
`,
			wantErr: "database.postgres.host",
		},
		{
			name: "redis enabled without address",
			body: `
database:
  redis:
    enabled: true
`,
			wantErr: "database.redis.address",
		},
		{
			name: "camunda enabled without broker",
			body: `
camunda:
  enabled: true
`,
			wantErr: "camunda.broker_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  timeout: 60000
workers:
  generate-report:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	worker := GetWorkerConfig(cfg, "generate-report")
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 70000, worker.Timeout)
	assert.True(t, IsWorkerEnabled(cfg, "generate-report"))
	assert.False(t, IsWorkerEnabled(cfg, "unknown"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, GetDuration(2000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "reports", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=reports sslmode=disable", p.GetDSN())
}
