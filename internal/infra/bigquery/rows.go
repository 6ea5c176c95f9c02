package bigquery

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/google/uuid"
)

const maxErrorLen = 2000

// RunRow is one finished controller run.
type RunRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED

	DocumentName string `bigquery:"document_name"` // REQUIRED
	DocumentURI  string `bigquery:"document_uri"`  // NULLABLE
	MIMEType     string `bigquery:"mime_type"`     // NULLABLE
	Checksum     string `bigquery:"checksum_sha256"`

	Status      string `bigquery:"status"`  // success | exhausted | fatal_error
	Attempt     int64  `bigquery:"attempt"` // REQUIRED
	MaxAttempts int64  `bigquery:"max_attempts"`

	TransactionCount int64    `bigquery:"transaction_count"`
	NetAmount        *big.Rat `bigquery:"net_amount"` // NUMERIC

	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE

	FinishedTS time.Time `bigquery:"finished_ts"` // REQUIRED
}

// AttemptRow is one completed extract/validate cycle of a run.
type AttemptRow struct {
	RunID   string `bigquery:"run_id"`  // REQUIRED
	Attempt int64  `bigquery:"attempt"` // REQUIRED

	Passed           bool              `bigquery:"passed"`
	TransactionCount int64             `bigquery:"transaction_count"`
	IssueCount       int64             `bigquery:"issue_count"`
	Issues           bigquery.NullJSON `bigquery:"issues"` // NULLABLE JSON array
}

// TransactionRow is one record from the run's final attempt.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	RunID         string `bigquery:"run_id"`         // REQUIRED
	Attempt       int64  `bigquery:"attempt"`
	LineNo        int64  `bigquery:"line_no"` // position in the extracted list

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Memo            string     `bigquery:"memo"`             // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC

	Validated bool      `bigquery:"validated"`
	CreatedTS time.Time `bigquery:"created_ts"`
}

// OutcomeRows groups the rows written for one run.
type OutcomeRows struct {
	Run          RunRow
	Attempts     []*AttemptRow
	Transactions []*TransactionRow
}

// BuildOutcomeRows converts a finished outcome into table rows.
// Transactions of exhausted runs are stored with Validated=false; fatal
// runs carry no transactions.
func BuildOutcomeRows(runID string, doc document.Document, maxAttempts int, outcome pipeline.Outcome, now time.Time) (OutcomeRows, error) {
	rows := OutcomeRows{
		Run: RunRow{
			RunID:            runID,
			DocumentName:     doc.Name,
			DocumentURI:      doc.URI,
			MIMEType:         doc.MIMEType,
			Checksum:         doc.Checksum(),
			Status:           string(outcome.Status),
			Attempt:          int64(outcome.Attempt),
			MaxAttempts:      int64(maxAttempts),
			TransactionCount: int64(len(outcome.Transactions)),
			NetAmount:        outcome.NetAmount().Rat(),
			FinishedTS:       now,
		},
	}

	if outcome.Error != "" {
		msg := outcome.Error
		if len(msg) > maxErrorLen {
			msg = msg[:maxErrorLen]
		}
		rows.Run.ErrorMessage = bigquery.NullString{StringVal: msg, Valid: true}
	}

	for _, rec := range outcome.History {
		issues, err := issuesJSON(rec.Verdict.Issues)
		if err != nil {
			return OutcomeRows{}, fmt.Errorf("BuildOutcomeRows: attempt %d: %w", rec.Attempt, err)
		}
		rows.Attempts = append(rows.Attempts, &AttemptRow{
			RunID:            runID,
			Attempt:          int64(rec.Attempt),
			Passed:           rec.Verdict.Passed,
			TransactionCount: int64(len(rec.Transactions)),
			IssueCount:       int64(len(rec.Verdict.Issues)),
			Issues:           issues,
		})
	}

	for i, tx := range outcome.Transactions {
		rows.Transactions = append(rows.Transactions, transactionRow(runID, outcome, i, tx, now))
	}

	return rows, nil
}

func transactionRow(runID string, outcome pipeline.Outcome, i int, tx domain.Transaction, now time.Time) *TransactionRow {
	return &TransactionRow{
		TransactionID:   uuid.NewString(),
		RunID:           runID,
		Attempt:         int64(outcome.Attempt),
		LineNo:          int64(i + 1),
		TransactionDate: tx.Date,
		Memo:            tx.Memo,
		Amount:          tx.Amount.Rat(),
		Validated:       outcome.Succeeded(),
		CreatedTS:       now,
	}
}

func issuesJSON(issues []domain.Issue) (bigquery.NullJSON, error) {
	if len(issues) == 0 {
		return bigquery.NullJSON{}, nil
	}
	data, err := json.Marshal(issues)
	if err != nil {
		return bigquery.NullJSON{}, err
	}
	return bigquery.NullJSON{JSONVal: string(data), Valid: true}, nil
}
