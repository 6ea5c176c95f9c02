package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	runsTable         = "runs"
	attemptsTable     = "attempts"
	transactionsTable = "transactions"
)

// RunRepository persists finished runs.
type RunRepository interface {
	// RecordOutcome stores the run, its attempt history and its final
	// transactions, and returns the generated run ID.
	RecordOutcome(ctx context.Context, doc document.Document, outcome pipeline.Outcome) (string, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*RunRow, error)

	// ListRunTransactions returns the stored transactions of one run in order.
	ListRunTransactions(ctx context.Context, runID string) ([]*TransactionRow, error)

	// Close releases the underlying client.
	Close() error
}

// BigQueryRunRepository is the concrete implementation of RunRepository
// that interacts with BigQuery. It holds a shared client to avoid creating
// a new connection for each operation.
type BigQueryRunRepository struct {
	client      *bigquery.Client
	projectID   string
	datasetID   string
	maxAttempts int
}

// NewBigQueryRunRepository creates a repository writing to projectID.datasetID.
// maxAttempts is recorded alongside each run.
func NewBigQueryRunRepository(ctx context.Context, projectID, datasetID string, maxAttempts int) (*BigQueryRunRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRunRepository: creating client: %w", err)
	}
	return &BigQueryRunRepository{
		client:      client,
		projectID:   projectID,
		datasetID:   datasetID,
		maxAttempts: maxAttempts,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *BigQueryRunRepository) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", r.projectID, r.datasetID, name)
}

// RecordOutcome implements RunRepository. The run row goes through a DML
// INSERT so it is immediately queryable; attempts and transactions are
// streamed.
func (r *BigQueryRunRepository) RecordOutcome(ctx context.Context, doc document.Document, outcome pipeline.Outcome) (string, error) {
	runID := uuid.NewString()

	rows, err := BuildOutcomeRows(runID, doc, r.maxAttempts, outcome, time.Now())
	if err != nil {
		return "", fmt.Errorf("RecordOutcome: %w", err)
	}

	if err := r.insertRun(ctx, &rows.Run); err != nil {
		return "", err
	}
	if err := putRows(ctx, r, attemptsTable, rows.Attempts); err != nil {
		return "", fmt.Errorf("RecordOutcome: inserting attempts: %w", err)
	}
	if err := putRows(ctx, r, transactionsTable, rows.Transactions); err != nil {
		return "", fmt.Errorf("RecordOutcome: inserting transactions: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("run_id", runID).
		Str("status", rows.Run.Status).
		Int("attempts", len(rows.Attempts)).
		Int("transactions", len(rows.Transactions)).
		Msg("Run recorded")

	return runID, nil
}

func (r *BigQueryRunRepository) insertRun(ctx context.Context, row *RunRow) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			run_id, document_name, document_uri, mime_type, checksum_sha256,
			status, attempt, max_attempts, transaction_count, net_amount,
			error_message, finished_ts
		)
		VALUES (
			@run_id, @document_name, @document_uri, @mime_type, @checksum_sha256,
			@status, @attempt, @max_attempts, @transaction_count, @net_amount,
			@error_message, @finished_ts
		)
	`, r.table(runsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: row.RunID},
		{Name: "document_name", Value: row.DocumentName},
		{Name: "document_uri", Value: row.DocumentURI},
		{Name: "mime_type", Value: row.MIMEType},
		{Name: "checksum_sha256", Value: row.Checksum},
		{Name: "status", Value: row.Status},
		{Name: "attempt", Value: row.Attempt},
		{Name: "max_attempts", Value: row.MaxAttempts},
		{Name: "transaction_count", Value: row.TransactionCount},
		{Name: "net_amount", Value: row.NetAmount},
		{Name: "error_message", Value: row.ErrorMessage},
		{Name: "finished_ts", Value: row.FinishedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertRun: running insert query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("InsertRun: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("InsertRun: job error: %w", err)
	}

	return nil
}

func putRows[T any](ctx context.Context, r *BigQueryRunRepository, table string, rows []*T) error {
	if len(rows) == 0 {
		return nil
	}
	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(table).Inserter()
	return inserter.Put(ctx, rows)
}

// ListRuns implements RunRepository.
func (r *BigQueryRunRepository) ListRuns(ctx context.Context, limit int) ([]*RunRow, error) {
	if limit <= 0 {
		limit = 50
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT
			run_id, document_name, document_uri, mime_type, checksum_sha256,
			status, attempt, max_attempts, transaction_count, net_amount,
			error_message, finished_ts
		FROM %s
		ORDER BY finished_ts DESC
		LIMIT @limit
	`, r.table(runsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: query read: %w", err)
	}

	var rows []*RunRow
	for {
		var row RunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRuns: iter next: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}

// ListRunTransactions implements RunRepository.
func (r *BigQueryRunRepository) ListRunTransactions(ctx context.Context, runID string) ([]*TransactionRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id, run_id, attempt, line_no,
			transaction_date, memo, amount, validated, created_ts
		FROM %s
		WHERE run_id = @run_id
		ORDER BY line_no
	`, r.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRunTransactions: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRunTransactions: iter next: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}

var _ RunRepository = (*BigQueryRunRepository)(nil)
