package app

import (
	"context"
	"testing"

	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/dvloznov/statement-extractor/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockGenerator is a mock implementation of llm.Generator.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, req llm.Request) (llm.Response, error)
}

func (m *MockGenerator) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return llm.Response{Text: "[]"}, nil
}

func TestNewSourceReader(t *testing.T) {
	gen := &MockGenerator{}

	tests := []struct {
		name    string
		source  string
		gen     llm.Generator
		want    interface{}
		wantErr bool
	}{
		{name: "text", source: config.SourceText, want: validation.TextLedgerReader{}},
		{name: "model", source: config.SourceModel, gen: gen, want: &validation.GeminiSourceReader{}},
		{name: "model without generator", source: config.SourceModel, wantErr: true},
		{name: "auto", source: config.SourceAuto, gen: gen, want: validation.AutoReader{}},
		{name: "unknown", source: "ocr", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Validation.Source = tt.source

			r, err := NewSourceReader(cfg, tt.gen)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, r)
		})
	}
}

func TestNewControllerWithGenerator_TextLedger(t *testing.T) {
	cfg := config.Default()
	cfg.Validation.Source = config.SourceText

	calls := 0
	gen := &MockGenerator{GenerateFunc: func(ctx context.Context, req llm.Request) (llm.Response, error) {
		calls++
		if calls == 1 {
			return llm.Response{Text: `[{"date":"2024-01-15","memo":"Salary","amount":5000.00}]`}, nil
		}
		return llm.Response{Text: `[{"date":"2024-01-15","memo":"Salary","amount":5000.00},` +
			`{"date":"2024-01-16","memo":"ATM","amount":-200.00}]`}, nil
	}}

	ctrl, err := NewControllerWithGenerator(cfg, gen)
	require.NoError(t, err)

	doc := document.FromText("jan.txt", "15 Jan 2024  Salary  5000.00\n16 Jan 2024  ATM  -200.00\n")
	out, err := ctrl.Run(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusSuccess, out.Status)
	assert.Equal(t, 2, out.Attempt)
	assert.Len(t, out.Transactions, 2)
	assert.Equal(t, "4800", out.NetAmount().String())
}

func TestNewControllerWithGenerator_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.MaxAttempts = -1

	_, err := NewControllerWithGenerator(cfg, &MockGenerator{})
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)
}

func TestOpenRunRepository_Disabled(t *testing.T) {
	repo, err := OpenRunRepository(context.Background(), config.Default())
	require.NoError(t, err)
	assert.Nil(t, repo)
}
