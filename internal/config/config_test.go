package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, SourceAuto, cfg.Validation.Source)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 3, cfg.PipelineSettings().MaxAttempts)
	assert.False(t, cfg.PipelineSettings().DisableHistory)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, `
pipeline:
  max_attempts: 5
  disable_history: true
  stage_timeout: 45s
model:
  name: gemini-2.5-pro
validation:
  source: text
worker:
  workers: 8
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Pipeline.MaxAttempts)
	assert.True(t, cfg.Pipeline.DisableHistory)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.StageTimeout)
	assert.Equal(t, "gemini-2.5-pro", cfg.ModelSettings().Model)
	assert.Equal(t, SourceText, cfg.Validation.Source)
	assert.Equal(t, 8, cfg.Worker.Workers)
	assert.Equal(t, 100, cfg.Worker.QueueSize, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "gcs:\n  bucket: from-file\n")

	t.Setenv("GCS_BUCKET", "from-env")
	t.Setenv("MAX_ATTEMPTS", "2")
	t.Setenv("STAGE_TIMEOUT", "1m")
	t.Setenv("PORT", "9090")
	t.Setenv("NOTION_DB_ID", "db-123")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.GCS.Bucket)
	assert.Equal(t, 2, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Pipeline.StageTimeout)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "db-123", cfg.Notion.DatabaseID)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.CORSOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "zero attempts", yaml: "pipeline:\n  max_attempts: 0\n"},
		{name: "negative attempts", yaml: "pipeline:\n  max_attempts: -2\n"},
		{name: "unknown source", yaml: "validation:\n  source: oracle\n"},
		{name: "no workers", yaml: "worker:\n  workers: 0\n"},
		{name: "bigquery without project", yaml: "bigquery:\n  enabled: true\n"},
		{name: "bad yaml", yaml: "pipeline: [\n"},
		{name: "bad env number", env: map[string]string{"MAX_ATTEMPTS": "three"}},
		{name: "bad env duration", env: map[string]string{"STAGE_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOOGLE_CLOUD_PROJECT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
