// Package scheduler runs workflows on cron schedules. Workflows in the
// library that declare a schedule are registered at startup; runs execute
// through the workflow engine, and failures are reported through an
// optional alert hook.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/taskforge-ai/taskforge/types"
	"github.com/taskforge-ai/taskforge/workflow"
	"go.uber.org/zap"
)

// AlertFunc is invoked when a scheduled run fails. The message describes
// the workflow and the failure.
type AlertFunc func(ctx context.Context, message string)

// Config configures the scheduler.
type Config struct {
	// RunTimeout bounds a single scheduled workflow run.
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// Scheduler registers workflow schedules with a cron runner.
type Scheduler struct {
	engine *workflow.Engine
	cron   *cron.Cron
	cfg    Config
	alert  AlertFunc
	logger *zap.Logger

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

// New creates a scheduler around a workflow engine.
func New(engine *workflow.Engine, cfg Config, alert AlertFunc, logger *zap.Logger) *Scheduler {
	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		engine: engine,
		cron:   cron.New(),
		cfg:    cfg,
		alert:  alert,
		logger: logger.With(zap.String("component", "scheduler")),
		jobs:   make(map[string]cron.EntryID),
	}
}

// ScheduleInfo describes one accepted schedule registration.
type ScheduleInfo struct {
	Workflow string    `json:"workflow"`
	Schedule string    `json:"schedule"`
	NextRun  time.Time `json:"next_run"`
}

// Register schedules a workflow under its declared schedule. Workflows
// without a schedule are skipped.
func (s *Scheduler) Register(wf *types.Workflow) error {
	if wf == nil {
		return types.NewError(types.ErrInvalidRequest, "workflow is nil")
	}
	if wf.Schedule == "" {
		return nil
	}
	_, err := s.Schedule(wf, wf.Schedule)
	return err
}

// Schedule registers wf to run on the given cron expression and reports
// when the first run is due. The expression overrides any schedule the
// workflow itself declares.
func (s *Scheduler) Schedule(wf *types.Workflow, spec string) (*ScheduleInfo, error) {
	if wf == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "workflow is nil")
	}

	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("invalid schedule %q for workflow %q", spec, wf.Name)).WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[wf.Name]; exists {
		return nil, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("workflow %q is already scheduled", wf.Name))
	}

	id := s.cron.Schedule(sched, cron.FuncJob(func() { s.runWorkflow(wf) }))
	s.jobs[wf.Name] = id
	s.logger.Info("workflow scheduled",
		zap.String("workflow", wf.Name),
		zap.String("schedule", spec))

	return &ScheduleInfo{
		Workflow: wf.Name,
		Schedule: spec,
		NextRun:  sched.Next(time.Now()),
	}, nil
}

// NextRun reports when the named workflow will next run. The zero time is
// returned before the scheduler has started.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// RegisterLibrary schedules every workflow in the library that declares a
// schedule.
func (s *Scheduler) RegisterLibrary(lib *workflow.Library) error {
	for _, name := range lib.Names() {
		wf, ok := lib.Get(name)
		if !ok {
			continue
		}
		if err := s.Register(wf); err != nil {
			return err
		}
	}
	return nil
}

// Scheduled reports the names of registered workflows.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Start begins dispatching scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop halts scheduling and waits for in-flight runs to complete.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runWorkflow(wf *types.Workflow) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	s.logger.Info("scheduled run starting", zap.String("workflow", wf.Name))
	result, err := s.engine.Execute(ctx, wf)
	if err != nil {
		s.logger.Error("scheduled run failed",
			zap.String("workflow", wf.Name),
			zap.Error(err))
		s.notify(ctx, fmt.Sprintf("Scheduled workflow %q failed: %v", wf.Name, err))
		return
	}

	failed := 0
	for _, outcome := range result.Results {
		if !outcome.Result.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		s.notify(ctx, fmt.Sprintf("Scheduled workflow %q completed with %d failed step(s)",
			wf.Name, failed))
	}
	s.logger.Info("scheduled run finished",
		zap.String("workflow", wf.Name),
		zap.String("run_id", result.RunID),
		zap.Int("failed_steps", failed))
}

func (s *Scheduler) notify(ctx context.Context, message string) {
	if s.alert == nil {
		return
	}
	s.alert(ctx, message)
}
