// Package router turns raw user text into an ordered, typed task list.
//
// Classification is delegated to an external Classifier (usually LLM-backed);
// every classifier failure, including malformed output, is recovered locally
// through a deterministic keyword fallback. Routing therefore never fails
// for classification reasons.
package router

import (
	"context"
	"fmt"

	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// Metrics receives one observation per routed request. Source is "llm" when
// the classifier answered and "fallback" otherwise.
type Metrics interface {
	RecordClassification(intent, source string)
}

// Router classifies requests and materializes them as task batches.
type Router struct {
	classifier Classifier
	metrics    Metrics
	logger     *zap.Logger
}

// Option configures a router.
type Option func(*Router)

// WithMetrics attaches a per-classification metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// New creates a router. A nil classifier is allowed; routing then always
// uses the fallback classification.
func New(classifier Classifier, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		classifier: classifier,
		logger:     logger.With(zap.String("component", "router")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route classifies input and returns the classification plus its task batch.
// Task IDs are "<intent>_<index>", deterministic within the batch; unknown
// task-kind strings map to the default kind.
func (r *Router) Route(ctx context.Context, input string) (*types.Classification, []*types.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	classification, source := r.classify(ctx, input)
	tasks := r.createTasks(classification)

	if r.metrics != nil {
		r.metrics.RecordClassification(classification.Intent, source)
	}
	r.logger.Info("request routed",
		zap.String("intent", classification.Intent),
		zap.String("source", source),
		zap.Int("tasks", len(tasks)),
	)
	return classification, tasks, nil
}

func (r *Router) classify(ctx context.Context, input string) (*types.Classification, string) {
	if r.classifier == nil {
		return FallbackClassify(input), "fallback"
	}

	classification, err := r.classifier.Classify(ctx, input)
	if err != nil || classification == nil || len(classification.Tasks) == 0 {
		if err != nil {
			r.logger.Warn("classifier failed, using fallback", zap.Error(err))
		}
		return FallbackClassify(input), "fallback"
	}
	return classification, "llm"
}

func (r *Router) createTasks(classification *types.Classification) []*types.Task {
	tasks := make([]*types.Task, 0, len(classification.Tasks))
	for i, name := range classification.Tasks {
		kind, known := types.ParseTaskKind(name)
		if !known {
			r.logger.Debug("unknown task kind mapped to default",
				zap.String("name", name),
				zap.String("kind", string(kind)),
			)
		}
		task := types.NewTask(classification.Intent, i, kind, fmt.Sprintf("Execute %s", name))
		tasks = append(tasks, task)
	}
	return tasks
}
