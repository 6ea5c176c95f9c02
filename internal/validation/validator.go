package validation

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/logger"
)

// LedgerValidator checks candidates against the document's own ledger:
// the SourceReader lists what is printed, Reconcile compares.
type LedgerValidator struct {
	reader SourceReader
}

// NewLedgerValidator creates a new instance of LedgerValidator.
func NewLedgerValidator(reader SourceReader) *LedgerValidator {
	return &LedgerValidator{reader: reader}
}

// Validate returns a verdict for records. Reader errors are returned as-is
// (wrapped) and produce no verdict.
func (v *LedgerValidator) Validate(ctx context.Context, doc document.Document, records []domain.Transaction) (domain.Verdict, error) {
	source, err := v.reader.ReadSource(ctx, doc)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("Validate: %w", err)
	}

	verdict := Reconcile(source, records)

	log := logger.FromContext(ctx)
	log.Debug().
		Int("source_transactions", len(source)).
		Int("candidates", len(records)).
		Bool("passed", verdict.Passed).
		Int("issues", len(verdict.Issues)).
		Msg("Reconciled candidates against source")

	return verdict, nil
}

// Reader returns the configured source reader.
func (v *LedgerValidator) Reader() SourceReader {
	return v.reader
}
