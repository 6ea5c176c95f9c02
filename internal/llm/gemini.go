package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model used by both stages.
const DefaultModelName = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Attachment is binary content sent alongside the prompt (e.g. a PDF).
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Request is a single independent model call. No conversation state is kept
// between requests.
type Request struct {
	Prompt     string
	Attachment *Attachment
	// Schema, when set, switches the model into JSON response mode.
	Schema *genai.Schema
}

// Response carries the model text and token usage.
type Response struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Generator provides an interface for model calls.
// This interface enables mocking and testing of the stages that use a model.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Config holds Gemini client settings.
type Config struct {
	Model       string
	APIVersion  string
	Temperature float32
}

// GeminiClient is the concrete implementation of Generator backed by Gemini.
// Vertex vs Gemini Dev is controlled via env vars:
//   - GOOGLE_GENAI_USE_VERTEXAI=True  -> Vertex AI
//   - GOOGLE_CLOUD_PROJECT
//   - GOOGLE_CLOUD_LOCATION
type GeminiClient struct {
	client *genai.Client
	model  string
	temp   float32
}

// NewGeminiClient creates a Gemini client. Empty fields fall back to defaults.
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModelName
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v1"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: cfg.APIVersion},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: cfg.Model, temp: cfg.Temperature}, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Generate sends the prompt (and attachment, if any) to the model.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	parts := []*genai.Part{{Text: req.Prompt}}
	if req.Attachment != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.Attachment.MIMEType,
				Data:     req.Attachment.Data,
			},
		})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temp),
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.Schema
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return Response{}, fmt.Errorf("Generate: generate content: %w", err)
	}

	out := Response{Text: resp.Text()}
	if resp.UsageMetadata != nil {
		out.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	if out.Text == "" {
		return out, ErrEmptyResponse
	}

	return out, nil
}

// TransactionListSchema describes a JSON array of {date, memo, amount}.
func TransactionListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"date": {
					Type:        genai.TypeString,
					Description: "Transaction date in YYYY-MM-DD format",
				},
				"memo": {
					Type:        genai.TypeString,
					Description: "Transaction description exactly as printed",
				},
				"amount": {
					Type:        genai.TypeNumber,
					Description: "Signed amount: negative for money out, positive for money in",
				},
			},
			Required:         []string{"date", "memo", "amount"},
			PropertyOrdering: []string{"date", "memo", "amount"},
		},
	}
}

var _ Generator = (*GeminiClient)(nil)
