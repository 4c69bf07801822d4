// Package taskforge provides a top-level convenience entry point for
// assembling the request pipeline with minimal boilerplate.
//
// Usage:
//
//	import "github.com/taskforge-ai/taskforge"
//
//	tf, err := taskforge.New(taskforge.WithLLM(llm.Config{APIKey: key}))
//	resp, err := tf.Agent.ProcessRequest(ctx, "research quantum computing")
//	result, err := tf.Engine.Execute(ctx, wf)
//
// Handlers that need external credentials are not registered here; use the
// capability package directly, or run the full service via cmd/taskforge.
package taskforge

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskforge-ai/taskforge/agent"
	"github.com/taskforge-ai/taskforge/capability"
	"github.com/taskforge-ai/taskforge/executor"
	"github.com/taskforge-ai/taskforge/llm"
	"github.com/taskforge-ai/taskforge/memory"
	"github.com/taskforge-ai/taskforge/router"
	"github.com/taskforge-ai/taskforge/types"
	"github.com/taskforge-ai/taskforge/workflow"
)

// Pipeline bundles the assembled components: the registry for adding
// capabilities, the agent for ad-hoc requests, and the engine plus library
// for workflow runs.
type Pipeline struct {
	Registry *capability.Registry
	Agent    *agent.Agent
	Engine   *workflow.Engine
	Library  *workflow.Library
}

type options struct {
	logger     *zap.Logger
	llmConfig  llm.Config
	classifier router.Classifier
	store      memory.Store
	parallel   bool
}

// Option configures the pipeline created by [New].
type Option func(*options)

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLLM configures the chat-completion client used for classification
// and for the generation capabilities.
func WithLLM(cfg llm.Config) Option {
	return func(o *options) { o.llmConfig = cfg }
}

// WithClassifier overrides the classifier, bypassing the LLM client.
func WithClassifier(c router.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

// WithMemory sets the store that workflow steps and processed interactions
// are persisted to. Defaults to an in-process store.
func WithMemory(store memory.Store) Option {
	return func(o *options) { o.store = store }
}

// WithParallel runs a request's tasks concurrently instead of in order.
func WithParallel() Option {
	return func(o *options) { o.parallel = true }
}

// New assembles a pipeline with the generation and search capabilities
// registered. The returned registry accepts additional handlers before the
// first request.
func New(opts ...Option) (*Pipeline, error) {
	o := &options{store: memory.NewInMemoryStore(memory.InMemoryConfig{})}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		o.logger = logger
	}

	client := llm.NewClient(o.llmConfig, o.logger)
	if o.classifier == nil {
		o.classifier = router.NewLLMClassifier(client, o.logger)
	}

	registry := capability.NewRegistry(o.logger)
	webSearch := capability.NewWebSearchHandler(capability.WebSearchConfig{}, o.logger)
	registry.Register(types.KindWebSearch, webSearch)
	registry.Register(types.KindResearch, capability.NewResearchHandler(webSearch, client, o.logger))
	registry.Register(types.KindCodeGeneration, capability.NewCodeGenHandler(client, o.logger))
	registry.Register(types.KindReportGeneration, capability.NewReportHandler(client, o.logger))

	rt := router.New(o.classifier, o.logger)
	exec := executor.New(registry, o.logger)
	ag := agent.New(rt, exec, agent.Config{Parallel: o.parallel}, o.logger, agent.WithMemory(o.store))
	engine := workflow.NewEngine(ag, o.store, o.logger)

	return &Pipeline{
		Registry: registry,
		Agent:    ag,
		Engine:   engine,
		Library:  workflow.NewLibrary(workflow.BuiltinWorkflows()...),
	}, nil
}

// Process routes and executes one request. Shorthand for Agent.ProcessRequest.
func (p *Pipeline) Process(ctx context.Context, input string) (*agent.Response, error) {
	return p.Agent.ProcessRequest(ctx, input)
}
