package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/taskforge-ai/taskforge/agent"
	"github.com/taskforge-ai/taskforge/api/handlers"
	"github.com/taskforge-ai/taskforge/capability"
	"github.com/taskforge-ai/taskforge/config"
	"github.com/taskforge-ai/taskforge/executor"
	"github.com/taskforge-ai/taskforge/internal/metrics"
	"github.com/taskforge-ai/taskforge/internal/server"
	"github.com/taskforge-ai/taskforge/internal/telemetry"
	"github.com/taskforge-ai/taskforge/llm"
	"github.com/taskforge-ai/taskforge/memory"
	"github.com/taskforge-ai/taskforge/queue"
	"github.com/taskforge-ai/taskforge/router"
	"github.com/taskforge-ai/taskforge/scheduler"
	"github.com/taskforge-ai/taskforge/types"
	"github.com/taskforge-ai/taskforge/workflow"
)

// Server assembles and owns every component of the service.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	otel   *telemetry.Providers

	db          *gorm.DB
	memoryStore memory.Store
	registry    *capability.Registry
	agent       *agent.Agent
	engine      *workflow.Engine
	library     *workflow.Library

	taskQueue *queue.Queue
	worker    *queue.Worker
	sched     *scheduler.Scheduler
	collector *metrics.Collector

	httpManager    *server.Manager
	metricsManager *server.Manager

	rateLimiterCancel context.CancelFunc
	depthCancel       context.CancelFunc
}

// NewServer creates an unstarted server around the resolved configuration.
func NewServer(cfg *config.Config, logger *zap.Logger, otel *telemetry.Providers) *Server {
	return &Server{cfg: cfg, logger: logger, otel: otel}
}

// Start wires the pipeline and launches the HTTP, metrics, worker, and
// scheduler components.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("taskforge", nil, s.logger)

	s.initPipeline()

	if err := s.initQueue(); err != nil {
		s.logger.Warn("task queue unavailable, async endpoints disabled", zap.Error(err))
	}
	if s.cfg.Scheduler.Enabled {
		if err := s.initScheduler(); err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}

	s.logger.Info("all components started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("queue_enabled", s.taskQueue != nil),
		zap.Bool("scheduler_enabled", s.sched != nil),
	)
	return nil
}

// initPipeline builds the request path: LLM client, classifier, capability
// registry, router, executor, agent, and workflow engine.
func (s *Server) initPipeline() {
	llmClient := llm.NewClient(llm.Config{
		APIKey:          s.cfg.LLM.APIKey,
		BaseURL:         s.cfg.LLM.BaseURL,
		Model:           s.cfg.LLM.Model,
		Timeout:         s.cfg.LLM.Timeout,
		MaxPromptTokens: s.cfg.LLM.MaxPromptTokens,
		Temperature:     float32(s.cfg.LLM.Temperature),
		MaxTokens:       s.cfg.LLM.MaxTokens,
	}, s.logger, llm.WithMetrics(s.collector))
	if !llmClient.Configured() {
		s.logger.Warn("LLM API key not configured, classification falls back to keyword rules")
	}

	s.openDatabase()

	webSearch := capability.NewWebSearchHandler(capability.WebSearchConfig{}, s.logger)
	slack := capability.NewSlackHandler(capability.SlackConfig{
		BotToken: s.cfg.Integrations.Slack.BotToken,
		Channel:  s.cfg.Integrations.Slack.Channel,
	}, s.logger)

	s.registry = capability.NewRegistry(s.logger)
	s.registry.Register(types.KindWebSearch, webSearch)
	s.registry.Register(types.KindResearch, capability.NewResearchHandler(webSearch, llmClient, s.logger))
	s.registry.Register(types.KindCodeGeneration, capability.NewCodeGenHandler(llmClient, s.logger))
	s.registry.Register(types.KindReportGeneration, capability.NewReportHandler(llmClient, s.logger))
	s.registry.Register(types.KindEmail, capability.NewEmailHandler(capability.EmailConfig{
		APIKey:    s.cfg.Integrations.Email.APIKey,
		FromEmail: s.cfg.Integrations.Email.FromEmail,
		ToEmail:   s.cfg.Integrations.Email.ToEmail,
	}, s.logger))
	s.registry.Register(types.KindGitHub, capability.NewGitHubHandler(capability.GitHubConfig{
		Token: s.cfg.Integrations.GitHub.Token,
	}, s.logger))
	s.registry.Register(types.KindSlack, slack)

	if s.db != nil {
		if dbHandler, err := capability.NewDatabaseHandler(s.db, s.logger); err != nil {
			s.logger.Warn("data analysis handler unavailable", zap.Error(err))
		} else {
			s.registry.Register(types.KindDataAnalysis, dbHandler)
		}
	}

	s.initMemoryStore()

	classifier := router.NewLLMClassifier(llmClient, s.logger)
	rt := router.New(classifier, s.logger, router.WithMetrics(s.collector))
	exec := executor.New(s.registry, s.logger, executor.WithMetrics(s.collector))
	s.agent = agent.New(rt, exec, agent.Config{
		Parallel: s.cfg.Agent.Parallel,
		Timeout:  s.cfg.Agent.RequestTimeout,
	}, s.logger, agent.WithMemory(s.memoryStore))

	s.engine = workflow.NewEngine(s.agent, s.memoryStore, s.logger, workflow.WithMetrics(s.collector))
	s.library = workflow.NewLibrary(workflow.BuiltinWorkflows()...)
}

func (s *Server) openDatabase() {
	db, err := memory.OpenDatabase(memory.GormStoreConfig{
		Driver: s.cfg.Database.Driver,
		DSN:    s.cfg.Database.DSN(),
	})
	if err != nil {
		s.logger.Warn("database unavailable, history and memory persistence disabled", zap.Error(err))
		return
	}
	s.db = db
	s.logger.Info("database connected", zap.String("driver", s.cfg.Database.Driver))
}

func (s *Server) initMemoryStore() {
	if !s.cfg.Memory.Enabled {
		s.logger.Info("memory persistence disabled")
		return
	}
	if s.db == nil {
		s.memoryStore = memory.Instrument(memory.NewInMemoryStore(memory.InMemoryConfig{}), s.collector)
		s.logger.Info("using in-process memory store")
		return
	}
	store, err := memory.NewGormStore(s.db, memory.GormStoreConfig{
		Driver:        s.cfg.Database.Driver,
		MaxCandidates: s.cfg.Memory.MaxCandidates,
	}, s.logger)
	if err != nil {
		s.logger.Warn("memory store unavailable", zap.Error(err))
		return
	}
	s.memoryStore = memory.Instrument(store, s.collector)
}

func (s *Server) initQueue() error {
	q, err := queue.New(queue.Config{
		Addr:       s.cfg.Redis.Addr,
		Password:   s.cfg.Redis.Password,
		DB:         s.cfg.Redis.DB,
		ResultTTL:  s.cfg.Redis.ResultTTL,
		PopTimeout: s.cfg.Redis.PopTimeout,
	}, s.logger)
	if err != nil {
		return err
	}
	s.taskQueue = q
	s.worker = queue.NewWorker(q, s.agent, s.logger)
	s.worker.Start()

	depthCtx, cancel := context.WithCancel(context.Background())
	s.depthCancel = cancel
	go s.sampleQueueDepth(depthCtx)
	return nil
}

// sampleQueueDepth feeds the queue depth gauge while the queue is connected.
func (s *Server) sampleQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := s.taskQueue.Depth(ctx)
			if err != nil {
				continue
			}
			s.collector.SetQueueDepth(depth)
		}
	}
}

func (s *Server) initScheduler() error {
	s.sched = scheduler.New(s.engine, scheduler.Config{
		RunTimeout: s.cfg.Scheduler.RunTimeout,
	}, s.scheduleAlert, s.logger)
	if err := s.sched.RegisterLibrary(s.library); err != nil {
		return err
	}
	s.sched.Start()
	return nil
}

// scheduleAlert routes scheduled-run failures back through the agent as an
// urgent request, so the alert reaches whatever channels are configured.
func (s *Server) scheduleAlert(ctx context.Context, message string) {
	if s.agent == nil {
		s.logger.Warn("schedule alert", zap.String("message", message))
		return
	}
	resp, err := s.agent.ProcessRequest(ctx, "Send urgent alert: "+message)
	if err != nil {
		s.logger.Warn("failed to deliver schedule alert", zap.Error(err))
		return
	}
	s.logger.Info("schedule alert dispatched",
		zap.String("status", resp.Status),
		zap.String("message", message))
}

func (s *Server) startHTTPServer() error {
	healthHandler := handlers.NewHealthHandler(s.registry, s.library.Names, s.logger)
	agentHandler := handlers.NewAgentHandler(s.agent, s.taskQueue, s.logger)
	workflowHandler := handlers.NewWorkflowHandler(s.engine, s.library, s.logger)
	memoryHandler := handlers.NewMemoryHandler(s.memoryStore, s.logger)
	schedulerHandler := handlers.NewSchedulerHandler(s.sched, s.library, s.logger)
	pluginHandler := handlers.NewPluginHandler(map[string]capability.Handler{
		"weather":   capability.NewWeatherHandler(capability.WeatherConfig{}, s.logger),
		"sentiment": capability.NewSentimentHandler(s.logger),
		"scraper":   capability.NewScraperHandler(capability.ScraperConfig{}, s.logger),
	}, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", healthHandler.HandleRoot)
	mux.HandleFunc("GET /healthz", healthHandler.HandleHealthz)

	mux.HandleFunc("POST /agent/chat", agentHandler.HandleChat)
	mux.HandleFunc("POST /agent/task", agentHandler.HandleSubmitTask)
	mux.HandleFunc("GET /agent/task/{id}", agentHandler.HandleTaskResult)

	mux.HandleFunc("GET /workflows", workflowHandler.HandleList)
	mux.HandleFunc("POST /workflow/execute", workflowHandler.HandleExecute)
	mux.HandleFunc("POST /workflow/schedule", schedulerHandler.HandleSchedule)
	mux.HandleFunc("GET /workflow/stream", workflowHandler.HandleStream)

	mux.HandleFunc("GET /memory/search", memoryHandler.HandleSearch)

	mux.HandleFunc("GET /plugins", pluginHandler.HandleList)
	mux.HandleFunc("POST /plugin/{name}", pluginHandler.HandleExecute)

	skipAuthPaths := []string{"/", "/healthz"}
	rateLimiterCtx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
	}
	if s.cfg.Server.RateLimit > 0 {
		middlewares = append(middlewares,
			RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimit, s.cfg.Server.RateBurst, s.logger))
	}
	if s.cfg.Auth.Enabled {
		middlewares = append(middlewares,
			JWTAuth(s.cfg.Auth.JWTSecret, skipAuthPaths, s.logger))
	}
	handler := Chain(mux, middlewares...)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.httpManager.Start()
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.metricsManager.Start()
}

// WaitForShutdown blocks until a termination signal, then tears everything
// down in reverse dependency order.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown stops all components gracefully.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")
	ctx := context.Background()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.depthCancel != nil {
		s.depthCancel()
	}
	if s.sched != nil {
		s.sched.Stop()
	}
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			s.logger.Warn("queue close failed", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Warn("HTTP server shutdown failed", zap.Error(err))
		}
	}
	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			s.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	s.logger.Info("graceful shutdown complete")
}
