package validation

import (
	"testing"

	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCheckFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []domain.IssueKind
	}{
		{
			name: "valid array",
			raw:  `[{"date":"2024-01-15","memo":"Salary","amount":5000.00}]`,
		},
		{
			name: "valid object payload",
			raw:  `{"transactions":[{"date":"2024-01-15","memo":"Salary","amount":-1}]}`,
		},
		{
			name: "empty array",
			raw:  `[]`,
		},
		{
			name: "invalid json",
			raw:  `[{"date":`,
			want: []domain.IssueKind{domain.KindMalformed},
		},
		{
			name: "scalar payload",
			raw:  `42`,
			want: []domain.IssueKind{domain.KindMalformed},
		},
		{
			name: "object without transactions",
			raw:  `{"rows":[]}`,
			want: []domain.IssueKind{domain.KindMalformed},
		},
		{
			name: "bad date format",
			raw:  `[{"date":"15/01/2024","memo":"Salary","amount":1}]`,
			want: []domain.IssueKind{domain.KindDateFormat},
		},
		{
			name: "string amount and missing memo",
			raw:  `[{"date":"2024-01-15","amount":"12.00"}]`,
			want: []domain.IssueKind{domain.KindMalformed, domain.KindMalformed},
		},
		{
			name: "issues from several records",
			raw:  `[{"date":"2024-01-15","memo":"ok","amount":1}, "oops", {"date":"2024/01/16","memo":" ","amount":2}]`,
			want: []domain.IssueKind{domain.KindMalformed, domain.KindDateFormat, domain.KindMalformed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := CheckFormat([]byte(tt.raw))
			assert.NoError(t, v.Check())
			if len(tt.want) == 0 {
				assert.True(t, v.Passed, v.Summary())
				return
			}
			assert.False(t, v.Passed)
			assert.Equal(t, tt.want, kinds(v))
		})
	}
}

func TestCheckFormat_IndexesRecords(t *testing.T) {
	v := CheckFormat([]byte(`[{"date":"2024-01-15","memo":"a","amount":1},{"date":"x","memo":"b","amount":2}]`))
	if assert.Len(t, v.Issues, 1) {
		assert.Equal(t, 1, v.Issues[0].Index)
		assert.Contains(t, v.Issues[0].Detail, `"x"`)
	}
}
