package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskforge-ai/taskforge/agent"
	"go.uber.org/zap"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	q, err := New(Config{
		Addr:       mr.Addr(),
		ResultTTL:  time.Hour,
		PopTimeout: 50 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q, mr
}

func TestEnqueueAndPop(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, Job{ID: "job-1", Request: "find papers"}))
	require.NoError(t, q.Enqueue(ctx, Job{ID: "job-2", Request: "draft email"}))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)

	// FIFO: first enqueued pops first.
	job, err := q.pop(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, "find papers", job.Request)

	job, err = q.pop(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "job-2", job.ID)
}

func TestEnqueueRequiresID(t *testing.T) {
	q, _ := newTestQueue(t)
	err := q.Enqueue(context.Background(), Job{Request: "no id"})
	require.Error(t, err)
}

func TestPopTimeoutReturnsNil(t *testing.T) {
	q, _ := newTestQueue(t)
	job, err := q.pop(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestResultRoundTrip(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	_, ok, err := q.Result(ctx, "job-9")
	require.NoError(t, err)
	assert.False(t, ok, "result should be absent before the job runs")

	require.NoError(t, q.StoreResult(ctx, JobResult{
		ID:     "job-9",
		Status: "success",
	}))

	got, ok, err := q.Result(ctx, "job-9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "success", got.Status)

	// Results expire after the TTL.
	mr.FastForward(2 * time.Hour)
	_, ok, err = q.Result(ctx, "job-9")
	require.NoError(t, err)
	assert.False(t, ok)
}

type stubProcessor struct {
	resp *agent.Response
	err  error
}

func (s *stubProcessor) ProcessRequest(ctx context.Context, input string) (*agent.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func waitForResult(t *testing.T, q *Queue, id string) *JobResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		res, ok, err := q.Result(context.Background(), id)
		require.NoError(t, err)
		if ok {
			return res
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for job result")
	return nil
}

func TestWorkerProcessesJobs(t *testing.T) {
	q, _ := newTestQueue(t)
	proc := &stubProcessor{resp: &agent.Response{
		Status:  "success",
		Intent:  "research",
		Message: "Tasks completed successfully",
	}}

	w := NewWorker(q, proc, zap.NewNop())
	w.Start()
	defer w.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "job-w", Request: "research topic"}))

	res := waitForResult(t, q, "job-w")
	assert.Equal(t, "success", res.Status)
	assert.Empty(t, res.Error)
}

func TestWorkerRecordsFailure(t *testing.T) {
	q, _ := newTestQueue(t)
	proc := &stubProcessor{err: errors.New("agent unavailable")}

	w := NewWorker(q, proc, zap.NewNop())
	w.Start()
	defer w.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "job-f", Request: "anything"}))

	res := waitForResult(t, q, "job-f")
	assert.Equal(t, "failed", res.Status)
	assert.Contains(t, res.Error, "agent unavailable")
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	q, _ := newTestQueue(t)
	w := NewWorker(q, &stubProcessor{resp: &agent.Response{Status: "success"}}, zap.NewNop())
	w.Start()
	w.Stop()
	w.Stop()
}
