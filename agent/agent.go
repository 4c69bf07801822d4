// Package agent provides the top-level orchestrator: it routes a free-text
// request into typed tasks, executes them against the capability registry,
// and synthesizes an aggregate response.
//
// Business-level failures never surface as errors from ProcessRequest; the
// aggregate response carries per-task statuses and the caller inspects them.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taskforge-ai/taskforge/executor"
	"github.com/taskforge-ai/taskforge/memory"
	"github.com/taskforge-ai/taskforge/router"
	"github.com/taskforge-ai/taskforge/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config configures the agent.
type Config struct {
	// Parallel fans independent tasks of one request out concurrently.
	// Positional result ordering is preserved either way.
	Parallel bool `yaml:"parallel"`
	// Timeout bounds one processed request end to end. Zero means no bound
	// beyond the caller's context.
	Timeout time.Duration `yaml:"timeout"`
}

// Response is the synthesized outcome of one processed request.
type Response struct {
	Status    string              `json:"status"`
	Intent    string              `json:"intent"`
	Results   []*types.TaskResult `json:"results"`
	Message   string              `json:"message"`
	Timestamp time.Time           `json:"timestamp"`
}

// Agent orchestrates the router and executor.
type Agent struct {
	router   *router.Router
	executor *executor.Executor
	store    memory.Store
	cfg      Config
	tracer   trace.Tracer
	logger   *zap.Logger
}

// Option configures an agent.
type Option func(*Agent)

// WithMemory records every processed interaction to the given store.
func WithMemory(store memory.Store) Option {
	return func(a *Agent) { a.store = store }
}

// New creates an agent.
func New(r *router.Router, e *executor.Executor, cfg Config, logger *zap.Logger, opts ...Option) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		router:   r,
		executor: e,
		cfg:      cfg,
		tracer:   otel.Tracer("github.com/taskforge-ai/taskforge/agent"),
		logger:   logger.With(zap.String("component", "agent")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ProcessRequest is the main entry point: analyze the request, break it into
// tasks, execute them, and synthesize a response. It returns an error only
// for context cancellation; task failures are reported inside the response.
func (a *Agent) ProcessRequest(ctx context.Context, input string) (*Response, error) {
	start := time.Now()
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	ctx, span := a.tracer.Start(ctx, "agent.process_request")
	defer span.End()

	classification, tasks, err := a.router.Route(ctx, input)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("agent.intent", classification.Intent),
		attribute.Int("agent.tasks", len(tasks)),
	)

	var results []*types.TaskResult
	if a.cfg.Parallel {
		results = a.executor.RunParallel(ctx, tasks)
	} else {
		results = a.executor.Run(ctx, tasks)
	}

	resp := a.synthesize(classification, results)
	span.SetAttributes(attribute.String("agent.status", resp.Status))

	a.recordInteraction(ctx, input, resp)
	a.logger.Info("request processed",
		zap.String("intent", classification.Intent),
		zap.Int("tasks", len(tasks)),
		zap.String("status", resp.Status),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// recordInteraction persists a textual summary of the processed request to
// the memory store, so later searches surface past interactions. Problems
// are logged, never fatal to the request.
func (a *Agent) recordInteraction(ctx context.Context, input string, resp *Response) {
	if a.store == nil {
		return
	}
	content := fmt.Sprintf("User request: %s\nOutcome: %s (%s)", input, resp.Status, resp.Message)
	if err := a.store.Store(ctx, content, map[string]string{
		"type":   "interaction",
		"intent": resp.Intent,
	}); err != nil {
		a.logger.Warn("failed to record interaction", zap.Error(err))
	}
}

// Dispatch runs input as a fresh request and folds the aggregate response
// into a single task result, which is how the workflow engine consumes the
// router and executor pipeline.
func (a *Agent) Dispatch(ctx context.Context, input string) (*types.TaskResult, error) {
	resp, err := a.ProcessRequest(ctx, input)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"status":  resp.Status,
		"intent":  resp.Intent,
		"results": resp.Results,
		"message": resp.Message,
	}
	if resp.Status == "failed" {
		return &types.TaskResult{
			Status: types.StatusFailed,
			Data:   data,
			Error:  resp.Message,
		}, nil
	}
	return types.SuccessResult(data), nil
}

// synthesize combines per-task results into a coherent aggregate. Status is
// "success" when every task completed, "partial" on a mix, and "failed"
// when nothing completed.
func (a *Agent) synthesize(classification *types.Classification, results []*types.TaskResult) *Response {
	completed := 0
	for _, r := range results {
		if r.Succeeded() {
			completed++
		}
	}

	status := "success"
	message := "Tasks completed successfully"
	switch {
	case len(results) == 0:
		status = "failed"
		message = "No tasks produced"
	case completed == 0:
		status = "failed"
		message = a.failureSummary(results)
	case completed < len(results):
		status = "partial"
		message = fmt.Sprintf("%d of %d tasks completed", completed, len(results))
	}

	return &Response{
		Status:    status,
		Intent:    classification.Intent,
		Results:   results,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func (a *Agent) failureSummary(results []*types.TaskResult) string {
	var msgs []string
	for _, r := range results {
		if r.Error != "" {
			msgs = append(msgs, r.Error)
		}
	}
	if len(msgs) == 0 {
		return "All tasks failed"
	}
	return "All tasks failed: " + strings.Join(msgs, "; ")
}
