package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

// NormalizeMemo is the memo form used for comparison: case-folded, with runs
// of whitespace collapsed to one space and the ends trimmed.
func NormalizeMemo(memo string) string {
	return strings.ToLower(strings.Join(strings.Fields(memo), " "))
}

type fieldMatch struct {
	date, memo, amount bool
}

func compare(source, candidate domain.Transaction) fieldMatch {
	return fieldMatch{
		date:   source.Date == candidate.Date,
		memo:   NormalizeMemo(source.Memo) == NormalizeMemo(candidate.Memo),
		amount: source.Amount.Equal(candidate.Amount),
	}
}

func (m fieldMatch) count() int {
	n := 0
	for _, ok := range []bool{m.date, m.memo, m.amount} {
		if ok {
			n++
		}
	}
	return n
}

// mismatchKind names the single field that differs in a two-of-three match.
func (m fieldMatch) mismatchKind() domain.IssueKind {
	switch {
	case !m.amount:
		return domain.KindAmountMismatch
	case !m.date:
		return domain.KindDateMismatch
	default:
		return domain.KindMemoMismatch
	}
}

// Reconcile compares candidate records against the transactions listed in the
// source document and returns the verdict.
//
// Pairing runs in two passes. First every candidate is paired with an
// unmatched source transaction equal in all three fields. Then each remaining
// candidate is compared against the remaining sources on a two-of-three basis:
//   - no partial match: extra_transaction
//   - exactly one partial match that no other candidate shares: a field mismatch
//   - several partial matches, or one shared with another candidate:
//     ambiguous_match, and the sources involved stay unmatched
//
// Paired candidates must follow source order. The largest in-order subset is
// kept; every other paired candidate is reported as order_mismatch.
//
// Every source left unmatched is reported as missing_transaction. Findings are
// ordered by candidate index, followed by missing sources in source order.
func Reconcile(source, candidates []domain.Transaction) domain.Verdict {
	byCandidate := make([][]domain.Issue, len(candidates))

	sourceUsed := make([]bool, len(source))
	candDone := make([]bool, len(candidates))
	paired := make([]int, len(candidates))
	for ci := range paired {
		paired[ci] = domain.NoIndex
	}

	// Structurally broken candidates cannot be paired with anything.
	for ci, c := range candidates {
		if err := c.Validate(); err != nil {
			byCandidate[ci] = append(byCandidate[ci], domain.MalformedIssue(ci, fmt.Sprintf("record %d: %v", ci, err)))
			candDone[ci] = true
		}
	}

	// Pass 1: exact matches, in candidate order.
	for ci, c := range candidates {
		if candDone[ci] {
			continue
		}
		for si, s := range source {
			if sourceUsed[si] {
				continue
			}
			if compare(s, c).count() == 3 {
				sourceUsed[si] = true
				candDone[ci] = true
				paired[ci] = si
				break
			}
		}
	}

	// Pass 2: partial matches against what is left.
	partials := make(map[int][]int, len(candidates))
	claims := make(map[int]int, len(source))
	for ci, c := range candidates {
		if candDone[ci] {
			continue
		}
		for si, s := range source {
			if !sourceUsed[si] && compare(s, c).count() == 2 {
				partials[ci] = append(partials[ci], si)
				claims[si]++
			}
		}
	}

	for ci, c := range candidates {
		if candDone[ci] {
			continue
		}
		matches := partials[ci]
		switch {
		case len(matches) == 0:
			byCandidate[ci] = append(byCandidate[ci], domain.ExtraIssue(ci, c))
		case len(matches) == 1 && claims[matches[0]] == 1:
			si := matches[0]
			sourceUsed[si] = true
			paired[ci] = si
			byCandidate[ci] = append(byCandidate[ci], domain.MismatchIssue(compare(source[si], c).mismatchKind(), ci, si, source[si], c))
		default:
			byCandidate[ci] = append(byCandidate[ci], domain.AmbiguousIssue(ci, c, matches))
		}
	}

	inOrder := inOrderPairs(paired)
	for ci, si := range paired {
		if si != domain.NoIndex && !inOrder[ci] {
			byCandidate[ci] = append(byCandidate[ci], domain.OrderIssue(ci, si, candidates[ci]))
		}
	}

	var issues []domain.Issue
	for _, found := range byCandidate {
		issues = append(issues, found...)
	}
	for si, s := range source {
		if !sourceUsed[si] {
			issues = append(issues, domain.MissingIssue(si, s))
		}
	}

	return domain.NewVerdict(issues)
}

// inOrderPairs marks the candidates forming a longest subsequence whose
// paired source indexes strictly increase. Unpaired candidates (NoIndex) are
// ignored.
func inOrderPairs(paired []int) []bool {
	// tails[k] is the candidate ending the best increasing run of length k+1.
	var tails []int
	prev := make([]int, len(paired))
	for ci, si := range paired {
		prev[ci] = -1
		if si == domain.NoIndex {
			continue
		}
		k := sort.Search(len(tails), func(i int) bool { return paired[tails[i]] >= si })
		if k > 0 {
			prev[ci] = tails[k-1]
		}
		if k == len(tails) {
			tails = append(tails, ci)
		} else {
			tails[k] = ci
		}
	}

	keep := make([]bool, len(paired))
	if len(tails) == 0 {
		return keep
	}
	for ci := tails[len(tails)-1]; ci >= 0; ci = prev[ci] {
		keep[ci] = true
	}
	return keep
}
