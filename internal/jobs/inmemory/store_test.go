package inmemory

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/jobs"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndGetCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	tx, err := domain.NewTransaction(civil.Date{Year: 2024, Month: time.January, Day: 2}, "Coffee", decimal.RequireFromString("-3.50"))
	require.NoError(t, err)

	job := &jobs.ProcessStatementJob{
		JobID:   "job-1",
		Status:  jobs.JobStatusCompleted,
		Outcome: &pipeline.Outcome{Status: pipeline.StatusSuccess, Attempt: 1, Transactions: []domain.Transaction{tx}},
	}
	require.NoError(t, store.SaveJob(ctx, job))

	// Mutating the caller's value after saving must not leak into the store.
	job.Outcome.Transactions[0].Memo = "changed"
	job.Status = jobs.JobStatusFailed

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusCompleted, got.Status)
	assert.Equal(t, "Coffee", got.Outcome.Transactions[0].Memo)

	got.Outcome.Transactions[0].Memo = "also changed"
	again, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "Coffee", again.Outcome.Transactions[0].Memo)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	assert.Error(t, store.SaveJob(ctx, &jobs.ProcessStatementJob{}))

	_, err := store.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	err = store.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, "boom")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestStore_UpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.SaveJob(ctx, &jobs.ProcessStatementJob{JobID: "j", Status: jobs.JobStatusRunning}))

	require.NoError(t, store.UpdateJobStatus(ctx, "j", jobs.JobStatusFailed, "boom"))
	got, err := store.GetJob(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := []jobs.ProcessStatementJob{
		{JobID: "a", DocumentName: "jan.pdf", Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "b", DocumentName: "feb.pdf", Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Minute)},
		{JobID: "c", DocumentName: "jan.pdf", Status: jobs.JobStatusPending, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range seed {
		require.NoError(t, store.SaveJob(ctx, &seed[i]))
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{name: "all newest first", want: []string{"c", "b", "a"}},
		{name: "by document", filter: jobs.JobFilter{DocumentName: "jan.pdf"}, want: []string{"c", "a"}},
		{name: "by status", filter: jobs.JobFilter{Status: jobs.JobStatusFailed}, want: []string{"b"}},
		{name: "limit", filter: jobs.JobFilter{Limit: 2}, want: []string{"c", "b"}},
		{name: "offset", filter: jobs.JobFilter{Offset: 1, Limit: 1}, want: []string{"b"}},
		{name: "offset past end", filter: jobs.JobFilter{Offset: 5}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListJobs(ctx, tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, j := range got {
				ids = append(ids, j.JobID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
