package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

var requiredFields = []string{"date", "memo", "amount"}

// CheckFormat validates a raw wire payload without looking at any source
// document: the payload must be a JSON array (or {"transactions": [...]}) of
// objects with a YYYY-MM-DD date, a non-empty memo and a numeric amount.
// Every problem found is reported, not only the first.
func CheckFormat(raw []byte) domain.Verdict {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var parsed interface{}
	if err := dec.Decode(&parsed); err != nil {
		return domain.Fail(domain.MalformedIssue(domain.NoIndex, fmt.Sprintf("invalid JSON: %v", err)))
	}

	var items []interface{}
	switch v := parsed.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		list, ok := v["transactions"].([]interface{})
		if !ok {
			return domain.Fail(domain.MalformedIssue(domain.NoIndex, "object payload has no 'transactions' array"))
		}
		items = list
	default:
		return domain.Fail(domain.MalformedIssue(domain.NoIndex, fmt.Sprintf("payload is %T, want array", parsed)))
	}

	var issues []domain.Issue
	for i, item := range items {
		issues = append(issues, checkRecord(i, item)...)
	}
	return domain.NewVerdict(issues)
}

func checkRecord(i int, item interface{}) []domain.Issue {
	obj, ok := item.(map[string]interface{})
	if !ok {
		return []domain.Issue{domain.MalformedIssue(i, fmt.Sprintf("record %d is %T, want object", i, item))}
	}

	var issues []domain.Issue
	for _, f := range requiredFields {
		if v, ok := obj[f]; !ok || v == nil {
			issues = append(issues, domain.MalformedIssue(i, fmt.Sprintf("record %d missing required field %q", i, f)))
		}
	}

	if v, ok := obj["date"]; ok && v != nil {
		s, isStr := v.(string)
		switch {
		case !isStr:
			issues = append(issues, domain.MalformedIssue(i, fmt.Sprintf("record %d date has type %T, want string", i, v)))
		default:
			if _, err := domain.ParseDate(s); err != nil || strings.TrimSpace(s) != s {
				issues = append(issues, domain.DateFormatIssue(i, s))
			}
		}
	}

	if v, ok := obj["memo"]; ok && v != nil {
		s, isStr := v.(string)
		if !isStr || strings.TrimSpace(s) == "" {
			issues = append(issues, domain.MalformedIssue(i, fmt.Sprintf("record %d memo must be a non-empty string", i)))
		}
	}

	if v, ok := obj["amount"]; ok && v != nil {
		if _, isNum := v.(json.Number); !isNum {
			issues = append(issues, domain.MalformedIssue(i, fmt.Sprintf("record %d amount has type %T, want number", i, v)))
		}
	}

	return issues
}
