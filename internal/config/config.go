package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source reader modes for the validation stage.
const (
	SourceAuto  = "auto"
	SourceText  = "text"
	SourceModel = "model"
)

// Config is the full application configuration.
type Config struct {
	Pipeline   PipelineConfig `yaml:"pipeline"`
	Model      ModelConfig    `yaml:"model"`
	Validation Validation     `yaml:"validation"`
	GCS        GCSConfig      `yaml:"gcs"`
	BigQuery   BigQueryConfig `yaml:"bigquery"`
	Notion     NotionConfig   `yaml:"notion"`
	Server     ServerConfig   `yaml:"server"`
	Worker     WorkerConfig   `yaml:"worker"`
	Log        LogConfig      `yaml:"log"`
}

// PipelineConfig mirrors pipeline.Config with YAML-friendly durations.
type PipelineConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	DisableHistory bool          `yaml:"disable_history"`
	StageTimeout   time.Duration `yaml:"stage_timeout"`
	// Concurrency bounds how many documents one CLI invocation processes at once.
	Concurrency int `yaml:"concurrency"`
}

// ModelConfig selects the Gemini model.
type ModelConfig struct {
	Name        string  `yaml:"name"`
	APIVersion  string  `yaml:"api_version"`
	Temperature float32 `yaml:"temperature"`
}

// Validation selects how the source ledger is read: auto, text or model.
type Validation struct {
	Source string `yaml:"source"`
}

type GCSConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type BigQueryConfig struct {
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
	Enabled   bool   `yaml:"enabled"`
}

type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type WorkerConfig struct {
	Workers    int `yaml:"workers"`
	QueueSize  int `yaml:"queue_size"`
	MaxRetries int `yaml:"max_retries"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file or environment is given.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			MaxAttempts: pipeline.DefaultMaxAttempts,
			Concurrency: 4,
		},
		Model: ModelConfig{
			Name:       llm.DefaultModelName,
			APIVersion: "v1",
		},
		Validation: Validation{Source: SourceAuto},
		BigQuery:   BigQueryConfig{Dataset: "statements"},
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  20 << 20,
		},
		Worker: WorkerConfig{
			Workers:    2,
			QueueSize:  100,
			MaxRetries: 3,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then a .env file in the working directory (if present),
// then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("Load: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("Load: parsing %s: %w", path, err)
		}
	}

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("Load: reading .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.GCS.Bucket, "GCS_BUCKET")
	setString(&c.BigQuery.ProjectID, "GOOGLE_CLOUD_PROJECT")
	setString(&c.BigQuery.Dataset, "BQ_DATASET")
	setString(&c.Model.Name, "GEMINI_MODEL")
	setString(&c.Notion.Token, "NOTION_TOKEN")
	setString(&c.Notion.DatabaseID, "NOTION_DB_ID")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Server.Port, "PORT")
	setString(&c.Validation.Source, "VALIDATION_SOURCE")

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, o)
			}
		}
	}
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("applyEnv: MAX_ATTEMPTS: %w", err)
		}
		c.Pipeline.MaxAttempts = n
	}
	if v := os.Getenv("STAGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("applyEnv: STAGE_TIMEOUT: %w", err)
		}
		c.Pipeline.StageTimeout = d
	}
	if v := os.Getenv("BQ_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("applyEnv: BQ_ENABLED: %w", err)
		}
		c.BigQuery.Enabled = b
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the loaded values.
func (c Config) Validate() error {
	if err := c.PipelineSettings().Validate(); err != nil {
		return fmt.Errorf("Validate: pipeline: %w", err)
	}
	switch c.Validation.Source {
	case SourceAuto, SourceText, SourceModel:
	default:
		return fmt.Errorf("Validate: validation.source must be auto, text or model, got %q", c.Validation.Source)
	}
	if c.Worker.Workers <= 0 {
		return fmt.Errorf("Validate: worker.workers must be positive, got %d", c.Worker.Workers)
	}
	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("Validate: worker.queue_size must be positive, got %d", c.Worker.QueueSize)
	}
	if c.BigQuery.Enabled && c.BigQuery.ProjectID == "" {
		return errors.New("Validate: bigquery.enabled requires a project id (GOOGLE_CLOUD_PROJECT)")
	}
	return nil
}

// PipelineSettings returns the controller configuration.
func (c Config) PipelineSettings() pipeline.Config {
	return pipeline.Config{
		MaxAttempts:    c.Pipeline.MaxAttempts,
		DisableHistory: c.Pipeline.DisableHistory,
		StageTimeout:   c.Pipeline.StageTimeout,
	}
}

// ModelSettings returns the Gemini client configuration.
func (c Config) ModelSettings() llm.Config {
	return llm.Config{
		Model:       c.Model.Name,
		APIVersion:  c.Model.APIVersion,
		Temperature: c.Model.Temperature,
	}
}
