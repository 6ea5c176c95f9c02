package domain

import (
	"encoding/json"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTx(day int, memo, amount string) Transaction {
	return Transaction{
		Date:   civil.Date{Year: 2024, Month: 1, Day: day},
		Memo:   memo,
		Amount: decimal.RequireFromString(amount),
	}
}

func TestVerdictInvariant(t *testing.T) {
	issue := MissingIssue(0, sampleTx(1, "Salary", "100"))

	tests := []struct {
		name    string
		verdict Verdict
		wantErr bool
	}{
		{name: "pass", verdict: Pass()},
		{name: "fail with issues", verdict: Fail(issue)},
		{name: "new verdict empty passes", verdict: NewVerdict(nil)},
		{name: "new verdict with issues fails", verdict: NewVerdict([]Issue{issue})},
		{name: "fail without issues", verdict: Fail(), wantErr: true},
		{name: "passed with issues", verdict: Verdict{Passed: true, Issues: []Issue{issue}}, wantErr: true},
		{name: "zero value", verdict: Verdict{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verdict.Check()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInconsistentVerdict)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.True(t, NewVerdict(nil).Passed)
	assert.False(t, NewVerdict([]Issue{issue}).Passed)
}

func TestIssueCloneIsIndependent(t *testing.T) {
	orig := AmbiguousIssue(2, sampleTx(3, "Coffee", "-3.50"), []int{4, 5})
	clone := orig.Clone()

	clone.Actual.Memo = "Tea"
	clone.Candidates[0] = 9

	assert.Equal(t, "Coffee", orig.Actual.Memo)
	assert.Equal(t, []int{4, 5}, orig.Candidates)
}

func TestMismatchIssueDetail(t *testing.T) {
	expected := sampleTx(3, "Coffee", "-3.50")
	actual := sampleTx(3, "Coffee", "-35.00")

	is := MismatchIssue(KindAmountMismatch, 1, 4, expected, actual)
	assert.Equal(t, KindAmountMismatch, is.Kind)
	assert.Equal(t, 1, is.Index)
	assert.Equal(t, 4, is.SourceIndex)
	assert.Contains(t, is.Detail, "-35")
	assert.Contains(t, is.Detail, "-3.5")
}

func TestVerdictJSON(t *testing.T) {
	v := Fail(ExtraIssue(0, sampleTx(2, "Ghost", "1.00")))

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var back struct {
		Passed bool `json:"passed"`
		Issues []struct {
			Kind   string          `json:"kind"`
			Index  int             `json:"index"`
			Actual json.RawMessage `json:"actual"`
		} `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.False(t, back.Passed)
	require.Len(t, back.Issues, 1)
	assert.Equal(t, "extra_transaction", back.Issues[0].Kind)
	assert.JSONEq(t, `{"date":"2024-01-02","memo":"Ghost","amount":1}`, string(back.Issues[0].Actual))

	passData, err := json.Marshal(Pass())
	require.NoError(t, err)
	assert.JSONEq(t, `{"passed":true,"issues":[]}`, string(passData))
}

func TestVerdictSummary(t *testing.T) {
	assert.Equal(t, "PASS", Pass().Summary())

	s := Fail(MissingIssue(1, sampleTx(2, "ATM", "-200"))).Summary()
	assert.Contains(t, s, "FAIL")
	assert.Contains(t, s, "missing_transaction")
}
