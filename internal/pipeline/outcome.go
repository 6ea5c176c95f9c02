package pipeline

import (
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/shopspring/decimal"
)

// Status is the terminal status of a run.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusExhausted Status = "exhausted"
	StatusFatal     Status = "fatal_error"
)

// AttemptRecord is one completed extract/validate cycle.
type AttemptRecord struct {
	Attempt      int                  `json:"attempt"`
	Transactions []domain.Transaction `json:"transactions"`
	Verdict      domain.Verdict       `json:"verdict"`
}

// Clone deep-copies the record.
func (a AttemptRecord) Clone() AttemptRecord {
	return AttemptRecord{
		Attempt:      a.Attempt,
		Transactions: domain.CloneTransactions(a.Transactions),
		Verdict:      a.Verdict.Clone(),
	}
}

// Outcome is the result of Controller.Run. It shares no memory with the
// controller or the stages.
//
//   - success:     Attempt is the passing attempt, Transactions the validated records.
//   - exhausted:   Attempt is the last attempt, Transactions and Issues come from it.
//   - fatal_error: Attempt is where the hard failure happened, Error describes it.
//
// History holds every completed cycle unless disabled in the Config.
type Outcome struct {
	Status       Status               `json:"status"`
	Attempt      int                  `json:"attempt"`
	Transactions []domain.Transaction `json:"transactions,omitempty"`
	Issues       []domain.Issue       `json:"issues,omitempty"`
	History      []AttemptRecord      `json:"history,omitempty"`
	Error        string               `json:"error,omitempty"`

	// Cause is the hard failure behind a fatal_error outcome, for errors.Is.
	Cause error `json:"-"`
}

// Succeeded reports whether validation passed.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// NetAmount sums the outcome's transactions.
func (o Outcome) NetAmount() decimal.Decimal {
	return domain.NetAmount(o.Transactions)
}

// Clone deep-copies the outcome.
func (o Outcome) Clone() Outcome {
	out := o
	out.Transactions = domain.CloneTransactions(o.Transactions)
	out.Issues = domain.CloneIssues(o.Issues)
	if o.History != nil {
		out.History = make([]AttemptRecord, len(o.History))
		for i, h := range o.History {
			out.History[i] = h.Clone()
		}
	}
	return out
}
