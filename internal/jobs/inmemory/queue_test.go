package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/statement-extractor/internal/jobs"
	"github.com/dvloznov/statement-extractor/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ProcessStatementJob {
	t.Helper()
	var got *jobs.ProcessStatementJob
	require.Eventually(t, func() bool {
		job, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		got = job
		return job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_CompletesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 2, store)

	handler := func(ctx context.Context, job jobs.Job) error {
		j := job.(*jobs.ProcessStatementJob)
		j.Outcome = &pipeline.Outcome{Status: pipeline.StatusExhausted, Attempt: 3}
		return nil
	}
	require.NoError(t, q.Start(ctx, handler))
	defer q.Stop(context.Background())

	job := &jobs.ProcessStatementJob{DocumentURI: "gs://b/a.pdf", DocumentName: "a.pdf"}
	require.NoError(t, q.PublishProcessStatement(ctx, job))
	require.NotEmpty(t, job.JobID)
	assert.Equal(t, 3, job.MaxRetries)

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	require.NotNil(t, got.Outcome)
	assert.Equal(t, pipeline.StatusExhausted, got.Outcome.Status, "an exhausted run is a completed job")
	assert.Zero(t, got.RetryCount)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
}

func TestQueue_RetriesHandlerErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store).WithBackoff(time.Millisecond)

	var calls atomic.Int32
	handler := func(ctx context.Context, job jobs.Job) error {
		if calls.Add(1) < 3 {
			return errors.New("model backend unavailable")
		}
		return nil
	}
	require.NoError(t, q.Start(ctx, handler))
	defer q.Stop(context.Background())

	job := &jobs.ProcessStatementJob{DocumentURI: "a.txt", MaxRetries: 5}
	require.NoError(t, q.PublishProcessStatement(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 2, got.RetryCount)
	assert.Empty(t, got.Error)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStore()
	q := NewQueue(10, 1, store).WithBackoff(time.Millisecond)

	var calls atomic.Int32
	handler := func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return errors.New("always broken")
	}
	require.NoError(t, q.Start(ctx, handler))
	defer q.Stop(context.Background())

	job := &jobs.ProcessStatementJob{DocumentURI: "a.txt", MaxRetries: 2}
	require.NoError(t, q.PublishProcessStatement(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "always broken", got.Error)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_PublishAfterStop(t *testing.T) {
	q := NewQueue(1, 1, nil)
	require.NoError(t, q.Stop(context.Background()))
	require.NoError(t, q.Close(), "stopping twice is a no-op")

	err := q.PublishProcessStatement(context.Background(), &jobs.ProcessStatementJob{DocumentURI: "a.txt"})
	assert.ErrorIs(t, err, jobs.ErrQueueClosed)
	assert.ErrorIs(t, q.Start(context.Background(), nil), jobs.ErrQueueClosed)
}

func TestQueue_PublishRespectsContext(t *testing.T) {
	q := NewQueue(0, 1, nil)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// Unbuffered and no workers: the send can only end through ctx.
	err := q.PublishProcessStatement(ctx, &jobs.ProcessStatementJob{DocumentURI: "a.txt"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_WithMaxRetries(t *testing.T) {
	store := NewStore()
	q := NewQueue(1, 1, store).WithMaxRetries(5)

	job := &jobs.ProcessStatementJob{DocumentName: "a.pdf"}
	require.NoError(t, q.PublishProcessStatement(context.Background(), job))
	assert.Equal(t, 5, job.MaxRetries)

	explicit := &jobs.ProcessStatementJob{DocumentName: "b.pdf", MaxRetries: 1}
	q2 := NewQueue(1, 1, store).WithMaxRetries(5)
	require.NoError(t, q2.PublishProcessStatement(context.Background(), explicit))
	assert.Equal(t, 1, explicit.MaxRetries)
}
