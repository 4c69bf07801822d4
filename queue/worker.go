package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/taskforge-ai/taskforge/agent"
	"go.uber.org/zap"
)

// Processor handles a dequeued request. *agent.Agent satisfies it.
type Processor interface {
	ProcessRequest(ctx context.Context, input string) (*agent.Response, error)
}

// Worker drains the queue in the background, processing each job through
// the configured Processor and storing its result for polling.
type Worker struct {
	queue     *Queue
	processor Processor
	logger    *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewWorker creates a worker bound to a queue and processor.
func NewWorker(q *Queue, p Processor, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:     q,
		processor: p,
		logger:    logger.With(zap.String("component", "queue_worker")),
	}
}

// Start launches the drain loop. It is a no-op if already running.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = true
	go w.run(ctx)
	w.logger.Info("worker started")
}

// Stop cancels the drain loop and waits for the in-flight job to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	cancel, done := w.cancel, w.done
	w.started = false
	w.mu.Unlock()

	cancel()
	<-done
	w.logger.Info("worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := w.queue.pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Warn("pop failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *Job) {
	w.logger.Info("processing job", zap.String("job_id", job.ID))

	result := JobResult{ID: job.ID, FinishedAt: time.Now().UTC()}
	resp, err := w.processor.ProcessRequest(ctx, job.Request)
	if err != nil {
		result.Status = "failed"
		result.Error = err.Error()
	} else {
		result.Status = resp.Status
		result.Response = resp
	}

	// Use a fresh context so a cancelled worker still records the outcome
	// of the job it already ran.
	storeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.queue.StoreResult(storeCtx, result); err != nil {
		w.logger.Error("store result failed",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}
