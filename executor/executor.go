// Package executor runs task batches against the capability registry.
//
// The core contract is per-task failure isolation: a handler error, panic,
// or missing registration never aborts the batch. The output is always one
// result per input task, positionally matching input order, whether the
// batch runs sequentially or fanned out.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/taskforge-ai/taskforge/capability"
	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Metrics receives one observation per executed task. The Prometheus
// collector implements it.
type Metrics interface {
	RecordTask(kind, status string, duration time.Duration)
}

// Executor dispatches tasks to capability handlers.
type Executor struct {
	registry *capability.Registry
	metrics  Metrics
	logger   *zap.Logger
}

// Option configures an executor.
type Option func(*Executor)

// WithMetrics attaches a per-task metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// New creates an executor bound to a capability registry.
func New(registry *capability.Registry, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		registry: registry,
		logger:   logger.With(zap.String("component", "executor")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes tasks sequentially, in order. Each task reaches a terminal
// status exactly once and its result is mirrored into the returned slice at
// the task's position.
//
// A cancelled context stops dispatching: the remaining tasks are failed with
// the context error rather than skipped, preserving the one-result-per-task
// contract.
func (e *Executor) Run(ctx context.Context, tasks []*types.Task) []*types.TaskResult {
	results := make([]*types.TaskResult, len(tasks))
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			task.Fail(err)
			results[i] = task.Result
			continue
		}
		results[i] = e.runOne(ctx, task)
	}
	return results
}

// RunParallel executes independent tasks concurrently while preserving the
// positional correspondence between input order and result order. Isolation
// is identical to Run: one failed task never affects another.
func (e *Executor) RunParallel(ctx context.Context, tasks []*types.Task) []*types.TaskResult {
	results := make([]*types.TaskResult, len(tasks))

	g, ctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				task.Fail(err)
				results[i] = task.Result
				return nil
			}
			results[i] = e.runOne(ctx, task)
			// Failures are recorded per task, never propagated: returning an
			// error here would cancel sibling tasks.
			return nil
		})
	}
	g.Wait()

	return results
}

// runOne dispatches a single task and converts every failure mode into a
// terminal task state.
func (e *Executor) runOne(ctx context.Context, task *types.Task) *types.TaskResult {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordTask(string(task.Kind), string(task.Status), time.Since(start))
		}
	}()

	handler, ok := e.registry.Get(task.Kind)
	if !ok {
		// No registered capability: a generic no-op completion, not an error.
		task.Complete(types.SuccessResult(map[string]any{
			"message": fmt.Sprintf("Processed %s", task.Kind),
		}))
		return task.Result
	}

	result, err := e.dispatch(ctx, handler, task)
	if err != nil {
		e.logger.Warn("task failed",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.Error(err),
		)
		task.Fail(err)
		return task.Result
	}

	// A handler may report failure through the result instead of an error;
	// the task's status must agree with its result either way.
	task.Finish(result)
	if task.Status == types.StatusFailed {
		e.logger.Warn("task failed",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.String("error", task.Result.Error),
		)
		return task.Result
	}
	e.logger.Debug("task completed",
		zap.String("task_id", task.ID),
		zap.String("kind", string(task.Kind)),
	)
	return task.Result
}

// dispatch invokes the handler, converting panics into errors so a broken
// handler cannot take down the batch.
func (e *Executor) dispatch(ctx context.Context, handler capability.Handler, task *types.Task) (result *types.TaskResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = types.NewError(types.ErrHandlerFailure,
				fmt.Sprintf("handler %s panicked: %v", handler.Name(), r))
		}
	}()
	return handler.Execute(ctx, task.Description)
}
