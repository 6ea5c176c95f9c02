package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
)

// DocumentLoader fetches a document by URI.
type DocumentLoader interface {
	Load(ctx context.Context, uri string) (document.Document, error)
}

// Runner executes the extract/validate loop. *pipeline.Controller satisfies it.
type Runner interface {
	Run(ctx context.Context, doc document.Document) (pipeline.Outcome, error)
}

// OutcomeRecorder persists a finished run and returns its run ID.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, doc document.Document, outcome pipeline.Outcome) (string, error)
}

// NewStatementHandler returns a JobHandler that loads the job's document,
// runs it through runner and stores the outcome on the job. recorder may be nil.
//
// Only errors from loading, running or recording are returned, so only those
// are retried by the queue. Exhausted and fatal_error outcomes are final.
func NewStatementHandler(loader DocumentLoader, runner Runner, recorder OutcomeRecorder) JobHandler {
	return func(ctx context.Context, job Job) error {
		stmtJob, ok := job.(*ProcessStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx)
		log.Info().Str("uri", stmtJob.DocumentURI).Msg("Processing statement job")

		doc, err := loader.Load(ctx, stmtJob.DocumentURI)
		if err != nil {
			return fmt.Errorf("loading document: %w", err)
		}
		if stmtJob.DocumentName != "" {
			doc.Name = stmtJob.DocumentName
		}

		outcome, err := runner.Run(ctx, doc)
		if err != nil {
			return err
		}

		if recorder != nil {
			runID, err := recorder.RecordOutcome(ctx, doc, outcome)
			if err != nil {
				return fmt.Errorf("recording outcome: %w", err)
			}
			stmtJob.RunID = runID
		}

		stmtJob.Outcome = &outcome

		log.Info().
			Str("status", string(outcome.Status)).
			Int("attempt", outcome.Attempt).
			Msg("Statement job finished")

		return nil
	}
}
