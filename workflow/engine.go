// Package workflow executes named, ordered step sequences where later steps
// reference earlier steps' results through a shared run context.
//
// Two policies are deliberate and uniform with the task executor:
//
//   - Step failures are isolated. A failed step is recorded in its outcome
//     and in the context, and the run continues; the run itself always
//     completes. Callers inspect per-step results.
//   - A step description referencing a name not yet in the context fails
//     that step with an unresolved-placeholder error. Placeholders are never
//     passed through literally.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskforge-ai/taskforge/memory"
	"github.com/taskforge-ai/taskforge/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Dispatcher runs one resolved step description as a fresh user request
// through the router and executor pipeline. The agent implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, input string) (*types.TaskResult, error)
}

// Metrics receives one observation per workflow run and per executed step.
// The Prometheus collector implements it.
type Metrics interface {
	RecordWorkflowRun(workflow, status string, duration time.Duration)
	RecordWorkflowStep(workflow, status string)
}

// Engine executes workflows.
type Engine struct {
	dispatcher Dispatcher
	store      memory.Store
	metrics    Metrics
	tracer     trace.Tracer
	logger     *zap.Logger
}

// Option configures an engine.
type Option func(*Engine)

// WithMetrics attaches a run and step metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a workflow engine. The memory store may be nil, in which
// case step persistence is skipped.
func NewEngine(dispatcher Dispatcher, store memory.Store, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		dispatcher: dispatcher,
		store:      store,
		tracer:     otel.Tracer("github.com/taskforge-ai/taskforge/workflow"),
		logger:     logger.With(zap.String("component", "workflow_engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every step of wf in declared order and returns the ordered
// result log plus the final context. It returns an error only for invalid
// workflows or context cancellation; step failures are recorded in the
// result log instead.
func (e *Engine) Execute(ctx context.Context, wf *types.Workflow) (*types.WorkflowResult, error) {
	if wf == nil || len(wf.Steps) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "workflow has no steps")
	}
	if e.dispatcher == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "workflow engine has no dispatcher")
	}

	runID := uuid.NewString()
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "workflow.execute", trace.WithAttributes(
		attribute.String("workflow.name", wf.Name),
		attribute.String("workflow.run_id", runID),
		attribute.Int("workflow.steps", len(wf.Steps)),
	))
	defer span.End()

	logger := e.logger.With(
		zap.String("workflow", wf.Name),
		zap.String("run_id", runID),
	)
	logger.Info("workflow started", zap.Int("steps", len(wf.Steps)))

	wctx := types.NewWorkflowContext()
	outcomes := make([]types.StepOutcome, 0, len(wf.Steps))

	for _, step := range wf.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		emit(ctx, Event{Type: EventStepStart, Workflow: wf.Name, Step: step.Name})
		logger.Info("executing step", zap.String("step", step.Name))

		stepCtx, stepSpan := e.tracer.Start(ctx, "workflow.step", trace.WithAttributes(
			attribute.String("workflow.name", wf.Name),
			attribute.String("workflow.step", step.Name),
		))
		result := e.executeStep(stepCtx, step, wctx)
		stepSpan.SetAttributes(attribute.String("workflow.step_status", string(result.Status)))
		stepSpan.End()

		outcome := types.StepOutcome{
			Step:      step.Name,
			Result:    result,
			Timestamp: time.Now().UTC(),
		}
		outcomes = append(outcomes, outcome)
		wctx.Set(step.Name, result)

		if e.metrics != nil {
			e.metrics.RecordWorkflowStep(wf.Name, string(result.Status))
		}
		if result.Succeeded() {
			emit(ctx, Event{Type: EventStepComplete, Workflow: wf.Name, Step: step.Name, Data: result.Data})
		} else {
			emit(ctx, Event{Type: EventStepError, Workflow: wf.Name, Step: step.Name, Error: result.Error})
			logger.Warn("step failed",
				zap.String("step", step.Name),
				zap.String("error", result.Error),
			)
		}

		e.persistStep(ctx, wf, step, result, logger)
	}

	emit(ctx, Event{Type: EventRunComplete, Workflow: wf.Name})
	logger.Info("workflow completed")

	runStatus := "completed"
	for _, outcome := range outcomes {
		if !outcome.Result.Succeeded() {
			runStatus = "partial"
			break
		}
	}
	if e.metrics != nil {
		e.metrics.RecordWorkflowRun(wf.Name, runStatus, time.Since(start))
	}
	span.SetAttributes(attribute.String("workflow.status", runStatus))

	return &types.WorkflowResult{
		Workflow: wf.Name,
		RunID:    runID,
		Status:   types.RunCompleted,
		Results:  outcomes,
		Context:  wctx.Map(),
	}, nil
}

// executeStep resolves the step template and dispatches it, converting every
// failure mode into a failed result. Failures never escape the step.
func (e *Engine) executeStep(ctx context.Context, step types.WorkflowStep, wctx *types.WorkflowContext) *types.TaskResult {
	description, err := resolveTemplate(step.Description, wctx)
	if err != nil {
		return types.FailureResult(err)
	}

	result, err := e.dispatch(ctx, description)
	if err != nil {
		return types.FailureResult(err)
	}
	if result == nil {
		result = types.SuccessResult(nil)
	}
	return result
}

// dispatch shields the run from a panicking dispatcher.
func (e *Engine) dispatch(ctx context.Context, input string) (result *types.TaskResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = types.NewError(types.ErrHandlerFailure, fmt.Sprintf("step dispatch panicked: %v", r))
		}
	}()
	return e.dispatcher.Dispatch(ctx, input)
}

// persistStep writes a textual summary of the step outcome to the memory
// store, tagged with workflow and step names. Persistence problems are
// logged, never fatal to the run.
func (e *Engine) persistStep(ctx context.Context, wf *types.Workflow, step types.WorkflowStep, result *types.TaskResult, logger *zap.Logger) {
	if e.store == nil {
		return
	}

	serialized, err := json.Marshal(result)
	if err != nil {
		serialized = []byte(fmt.Sprintf("%q", result.Error))
	}
	content := fmt.Sprintf("Workflow step: %s\nResult: %s", step.Name, serialized)

	if err := e.store.Store(ctx, content, map[string]string{
		"workflow": wf.Name,
		"step":     step.Name,
	}); err != nil {
		logger.Warn("failed to persist step to memory",
			zap.String("step", step.Name),
			zap.Error(err),
		)
	}
}
