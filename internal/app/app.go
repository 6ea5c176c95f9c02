// Package app builds the runtime components shared by the CLI and the API
// server from a loaded configuration.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/extraction"
	infraBQ "github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/dvloznov/statement-extractor/internal/validation"
)

// NewSourceReader returns the source reader selected by validation.source.
// gen may be nil only in text mode.
func NewSourceReader(cfg config.Config, gen llm.Generator) (validation.SourceReader, error) {
	switch cfg.Validation.Source {
	case config.SourceText:
		return validation.TextLedgerReader{}, nil
	case config.SourceModel:
		if gen == nil {
			return nil, fmt.Errorf("NewSourceReader: model source requires a generator")
		}
		return validation.NewGeminiSourceReader(gen), nil
	case config.SourceAuto, "":
		r := validation.AutoReader{}
		if gen != nil {
			r.Model = validation.NewGeminiSourceReader(gen)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("NewSourceReader: unknown source %q", cfg.Validation.Source)
	}
}

// NewControllerWithGenerator wires the extraction and validation stages
// around gen.
func NewControllerWithGenerator(cfg config.Config, gen llm.Generator) (*pipeline.Controller, error) {
	reader, err := NewSourceReader(cfg, gen)
	if err != nil {
		return nil, err
	}

	ctrl, err := pipeline.NewController(
		extraction.NewGeminiExtractor(gen),
		validation.NewLedgerValidator(reader),
		cfg.PipelineSettings(),
	)
	if err != nil {
		return nil, fmt.Errorf("NewControllerWithGenerator: %w", err)
	}
	return ctrl, nil
}

// NewController creates the Gemini client and the controller.
func NewController(ctx context.Context, cfg config.Config) (*pipeline.Controller, error) {
	gen, err := llm.NewGeminiClient(ctx, cfg.ModelSettings())
	if err != nil {
		return nil, fmt.Errorf("NewController: %w", err)
	}
	return NewControllerWithGenerator(cfg, gen)
}

// OpenRunRepository returns the BigQuery run repository, or nil when
// persistence is disabled.
func OpenRunRepository(ctx context.Context, cfg config.Config) (infraBQ.RunRepository, error) {
	if !cfg.BigQuery.Enabled {
		return nil, nil
	}
	repo, err := infraBQ.NewBigQueryRunRepository(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset, cfg.PipelineSettings().MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("OpenRunRepository: %w", err)
	}
	return repo, nil
}
