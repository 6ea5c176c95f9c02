package domain

import (
	"fmt"
	"strings"
)

// IssueKind identifies the kind of problem a validation finding reports.
type IssueKind string

const (
	// KindMissing: a source transaction has no candidate record.
	KindMissing IssueKind = "missing_transaction"
	// KindExtra: a candidate record has no source transaction (hallucinated or duplicated).
	KindExtra IssueKind = "extra_transaction"
	// KindAmountMismatch: date and memo match a source line, amount does not.
	KindAmountMismatch IssueKind = "amount_mismatch"
	// KindDateMismatch: memo and amount match a source line, date does not.
	KindDateMismatch IssueKind = "date_mismatch"
	// KindMemoMismatch: date and amount match a source line, memo does not.
	KindMemoMismatch IssueKind = "memo_mismatch"
	// KindDateFormat: a raw record carries a date that is not YYYY-MM-DD.
	KindDateFormat IssueKind = "date_format"
	// KindAmbiguous: a candidate partially matches several source lines.
	KindAmbiguous IssueKind = "ambiguous_match"
	// KindMalformed: a raw record is missing fields or has wrong types.
	KindMalformed IssueKind = "malformed_record"
	// KindOrder: a candidate matches a source line but is listed out of place.
	KindOrder IssueKind = "order_mismatch"
)

// NoIndex marks an index that does not apply to a finding.
const NoIndex = -1

// Issue is a single validation finding. Index points into the candidate
// sequence, SourceIndex into the source document's transactions.
type Issue struct {
	Kind        IssueKind    `json:"kind"`
	Index       int          `json:"index"`
	SourceIndex int          `json:"source_index"`
	Expected    *Transaction `json:"expected,omitempty"`
	Actual      *Transaction `json:"actual,omitempty"`
	Candidates  []int        `json:"candidates,omitempty"`
	Detail      string       `json:"detail"`
}

// MissingIssue reports a source transaction absent from the extraction.
func MissingIssue(sourceIndex int, expected Transaction) Issue {
	return Issue{
		Kind:        KindMissing,
		Index:       NoIndex,
		SourceIndex: sourceIndex,
		Expected:    &expected,
		Detail:      fmt.Sprintf("source transaction %s was not extracted", expected),
	}
}

// ExtraIssue reports a candidate that matches nothing in the source.
func ExtraIssue(index int, actual Transaction) Issue {
	return Issue{
		Kind:        KindExtra,
		Index:       index,
		SourceIndex: NoIndex,
		Actual:      &actual,
		Detail:      fmt.Sprintf("record %d %s does not appear in the document", index, actual),
	}
}

// MismatchIssue reports a candidate paired with a source line that differs in one field.
func MismatchIssue(kind IssueKind, index, sourceIndex int, expected, actual Transaction) Issue {
	var detail string
	switch kind {
	case KindAmountMismatch:
		detail = fmt.Sprintf("record %d amount is %s, document shows %s", index, actual.Amount, expected.Amount)
	case KindDateMismatch:
		detail = fmt.Sprintf("record %d date is %s, document shows %s", index, actual.Date, expected.Date)
	case KindMemoMismatch:
		detail = fmt.Sprintf("record %d memo is %q, document shows %q", index, actual.Memo, expected.Memo)
	default:
		detail = fmt.Sprintf("record %d differs from source transaction %d", index, sourceIndex)
	}
	return Issue{
		Kind:        kind,
		Index:       index,
		SourceIndex: sourceIndex,
		Expected:    &expected,
		Actual:      &actual,
		Detail:      detail,
	}
}

// AmbiguousIssue reports a candidate that could belong to several source lines.
func AmbiguousIssue(index int, actual Transaction, sourceIndexes []int) Issue {
	return Issue{
		Kind:        KindAmbiguous,
		Index:       index,
		SourceIndex: NoIndex,
		Actual:      &actual,
		Candidates:  append([]int(nil), sourceIndexes...),
		Detail: fmt.Sprintf("record %d %s partially matches source transactions %v; cannot tell which one it is",
			index, actual, sourceIndexes),
	}
}

// OrderIssue reports a candidate that matches source line sourceIndex but
// appears at the wrong position relative to the other matched records.
func OrderIssue(index, sourceIndex int, actual Transaction) Issue {
	return Issue{
		Kind:        KindOrder,
		Index:       index,
		SourceIndex: sourceIndex,
		Actual:      &actual,
		Detail: fmt.Sprintf("record %d %s is source transaction %d but is listed out of document order",
			index, actual, sourceIndex),
	}
}

// DateFormatIssue reports a raw record whose date is not YYYY-MM-DD.
func DateFormatIssue(index int, value string) Issue {
	return Issue{
		Kind:        KindDateFormat,
		Index:       index,
		SourceIndex: NoIndex,
		Detail:      fmt.Sprintf("record %d date %q is not in YYYY-MM-DD format", index, value),
	}
}

// MalformedIssue reports a raw record that cannot be turned into a Transaction.
func MalformedIssue(index int, detail string) Issue {
	return Issue{
		Kind:        KindMalformed,
		Index:       index,
		SourceIndex: NoIndex,
		Detail:      detail,
	}
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s", i.Kind, i.Detail)
}

// Clone returns a copy that shares no pointers with i.
func (i Issue) Clone() Issue {
	out := i
	if i.Expected != nil {
		e := *i.Expected
		out.Expected = &e
	}
	if i.Actual != nil {
		a := *i.Actual
		out.Actual = &a
	}
	if i.Candidates != nil {
		out.Candidates = append([]int(nil), i.Candidates...)
	}
	return out
}

// CloneIssues deep-copies an issue slice, keeping nil as nil.
func CloneIssues(issues []Issue) []Issue {
	if issues == nil {
		return nil
	}
	out := make([]Issue, len(issues))
	for i, is := range issues {
		out[i] = is.Clone()
	}
	return out
}

// Verdict is the outcome of one validation call.
// Issues is empty exactly when Passed is true.
type Verdict struct {
	Passed bool    `json:"passed"`
	Issues []Issue `json:"issues"`
}

// Pass returns a passing verdict.
func Pass() Verdict {
	return Verdict{Passed: true, Issues: []Issue{}}
}

// Fail returns a failing verdict carrying the given findings.
// A Fail with no findings does not pass Check.
func Fail(issues ...Issue) Verdict {
	return Verdict{Passed: false, Issues: CloneIssues(issues)}
}

// NewVerdict passes when issues is empty and fails otherwise.
func NewVerdict(issues []Issue) Verdict {
	if len(issues) == 0 {
		return Pass()
	}
	return Fail(issues...)
}

// Check enforces the passed-iff-no-issues invariant.
func (v Verdict) Check() error {
	if v.Passed && len(v.Issues) > 0 {
		return fmt.Errorf("%w: passed with %d issue(s)", ErrInconsistentVerdict, len(v.Issues))
	}
	if !v.Passed && len(v.Issues) == 0 {
		return fmt.Errorf("%w: failed without issues", ErrInconsistentVerdict)
	}
	return nil
}

// Clone deep-copies the verdict.
func (v Verdict) Clone() Verdict {
	return Verdict{Passed: v.Passed, Issues: CloneIssues(v.Issues)}
}

// Summary renders the findings one per line, for prompts and logs.
func (v Verdict) Summary() string {
	if v.Passed {
		return "PASS"
	}
	var b strings.Builder
	b.WriteString("FAIL")
	for _, is := range v.Issues {
		b.WriteString("\n- ")
		b.WriteString(is.String())
	}
	return b.String()
}
