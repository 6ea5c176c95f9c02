package pipeline

import (
	"context"

	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/domain"
)

// Extractor turns a document into an ordered list of transactions.
//
// feedback is nil on the first attempt and otherwise holds the issues of the
// previous failed verdict. Errors wrapping domain.ErrHardFailure end the run
// with a fatal_error outcome; any other error is returned from Controller.Run.
type Extractor interface {
	Extract(ctx context.Context, doc document.Document, feedback []domain.Issue) ([]domain.Transaction, error)
}

// Validator checks candidate records against the document.
// Its verdict must pass exactly when it carries no issues.
type Validator interface {
	Validate(ctx context.Context, doc document.Document, records []domain.Transaction) (domain.Verdict, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, doc document.Document, feedback []domain.Issue) ([]domain.Transaction, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, doc document.Document, feedback []domain.Issue) ([]domain.Transaction, error) {
	return f(ctx, doc, feedback)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, doc document.Document, records []domain.Transaction) (domain.Verdict, error)

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, doc document.Document, records []domain.Transaction) (domain.Verdict, error) {
	return f(ctx, doc, records)
}
