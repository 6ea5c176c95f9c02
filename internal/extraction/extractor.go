package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/llm"
	"github.com/dvloznov/statement-extractor/internal/logger"
)

// GeminiExtractor extracts transactions by asking a model to list them.
// Each call is independent; feedback reaches the model only through the prompt.
type GeminiExtractor struct {
	gen llm.Generator
}

// NewGeminiExtractor creates a new instance of GeminiExtractor.
func NewGeminiExtractor(gen llm.Generator) *GeminiExtractor {
	return &GeminiExtractor{gen: gen}
}

// Extract returns the transactions of doc in statement order.
//
// Empty and unreadable documents and unparseable model output are hard
// failures (domain.ErrHardFailure). Errors from the model call itself are
// returned as-is.
func (e *GeminiExtractor) Extract(ctx context.Context, doc document.Document, feedback []domain.Issue) ([]domain.Transaction, error) {
	req, err := BuildRequest(doc, feedback)
	if err != nil {
		return nil, err
	}
	req.Schema = llm.TransactionListSchema()

	log := logger.FromContext(ctx)
	log.Debug().
		Str("document", doc.Name).
		Int("feedback_issues", len(feedback)).
		Msg("Calling model for extraction")

	resp, err := e.gen.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyResponse) {
			return nil, fmt.Errorf("Extract: %w: %v", domain.ErrMalformedOutput, err)
		}
		return nil, fmt.Errorf("Extract: %w", err)
	}

	log.Debug().
		Int64("tokens_input", resp.InputTokens).
		Int64("tokens_output", resp.OutputTokens).
		Msg("Extraction response received")

	txs, err := domain.ParseTransactions([]byte(llm.CleanJSON(resp.Text)))
	if err != nil {
		return nil, fmt.Errorf("Extract: %w: %v", domain.ErrMalformedOutput, err)
	}

	return txs, nil
}

// BuildRequest prepares the model request for doc. Text documents are inlined
// in the prompt; PDFs and images are attached as bytes.
func BuildRequest(doc document.Document, feedback []domain.Issue) (llm.Request, error) {
	if doc.IsEmpty() {
		return llm.Request{}, fmt.Errorf("BuildRequest: %s: %w", doc.Name, domain.ErrEmptyDocument)
	}

	switch {
	case doc.IsText():
		text, err := doc.Text()
		if err != nil {
			return llm.Request{}, fmt.Errorf("BuildRequest: %w: %v", domain.ErrUnreadableDocument, err)
		}
		return llm.Request{Prompt: buildPrompt(text, feedback)}, nil

	case doc.MIMEType == document.MIMEPDF || strings.HasPrefix(doc.MIMEType, "image/"):
		return llm.Request{
			Prompt: buildPrompt("", feedback),
			Attachment: &llm.Attachment{
				MIMEType: doc.MIMEType,
				Data:     doc.Content,
			},
		}, nil

	default:
		return llm.Request{}, fmt.Errorf("BuildRequest: %w: unsupported type %s", domain.ErrUnreadableDocument, doc.MIMEType)
	}
}
