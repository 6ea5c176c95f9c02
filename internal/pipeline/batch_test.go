package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/dvloznov/statement-extractor/internal/document"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll(t *testing.T) {
	var inFlight, peak atomic.Int32

	// Stateless stages so one controller can serve every document.
	ext := ExtractorFunc(func(ctx context.Context, doc document.Document, feedback []domain.Issue) ([]domain.Transaction, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		if doc.IsEmpty() {
			return nil, domain.ErrEmptyDocument
		}
		return []domain.Transaction{tx(1, doc.Name, "1.00")}, nil
	})
	val := ValidatorFunc(func(ctx context.Context, doc document.Document, records []domain.Transaction) (domain.Verdict, error) {
		return domain.Pass(), nil
	})

	ctrl := newTestController(t, ext, val, DefaultConfig())

	var docs []document.Document
	for i := 0; i < 8; i++ {
		docs = append(docs, document.FromText(fmt.Sprintf("doc-%d.txt", i), "content"))
	}
	docs = append(docs, document.FromText("empty.txt", ""))

	outcomes, err := RunAll(context.Background(), ctrl, docs, 3)
	require.NoError(t, err)
	require.Len(t, outcomes, len(docs))

	for i := 0; i < 8; i++ {
		assert.Equal(t, StatusSuccess, outcomes[i].Status)
		assert.Equal(t, fmt.Sprintf("doc-%d.txt", i), outcomes[i].Transactions[0].Memo)
	}
	assert.Equal(t, StatusFatal, outcomes[8].Status)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRunAll_PropagatesFirstError(t *testing.T) {
	boom := errors.New("model backend down")
	ext := ExtractorFunc(func(ctx context.Context, doc document.Document, feedback []domain.Issue) ([]domain.Transaction, error) {
		if doc.Name == "bad.txt" {
			return nil, boom
		}
		return []domain.Transaction{tx(1, "x", "1.00")}, nil
	})
	val := ValidatorFunc(func(ctx context.Context, doc document.Document, records []domain.Transaction) (domain.Verdict, error) {
		return domain.Pass(), nil
	})

	ctrl := newTestController(t, ext, val, DefaultConfig())
	docs := []document.Document{
		document.FromText("ok.txt", "a"),
		document.FromText("bad.txt", "b"),
	}

	_, err := RunAll(context.Background(), ctrl, docs, 0)
	assert.ErrorIs(t, err, boom)
}
