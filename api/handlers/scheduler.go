package handlers

import (
	"net/http"

	"github.com/taskforge-ai/taskforge/scheduler"
	"github.com/taskforge-ai/taskforge/types"
	"github.com/taskforge-ai/taskforge/workflow"
	"go.uber.org/zap"
)

// ScheduleWorkflowRequest is the body of POST /workflow/schedule.
type ScheduleWorkflowRequest struct {
	Workflow string `json:"workflow"`
	Schedule string `json:"schedule"`
}

// SchedulerHandler serves on-demand workflow scheduling.
type SchedulerHandler struct {
	sched   *scheduler.Scheduler
	library *workflow.Library
	logger  *zap.Logger
}

// NewSchedulerHandler creates the handler. A nil scheduler is tolerated;
// scheduling requests then answer 503.
func NewSchedulerHandler(sched *scheduler.Scheduler, library *workflow.Library, logger *zap.Logger) *SchedulerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerHandler{
		sched:   sched,
		library: library,
		logger:  logger.With(zap.String("component", "scheduler_handler")),
	}
}

// HandleSchedule serves POST /workflow/schedule: register a library workflow
// under a cron expression and report when it first runs.
func (h *SchedulerHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	if h.sched == nil {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "scheduler is disabled").
			WithHTTPStatus(http.StatusServiceUnavailable), h.logger)
		return
	}

	var req ScheduleWorkflowRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Workflow == "" || req.Schedule == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "workflow and schedule are required"), h.logger)
		return
	}

	wf, ok := h.library.Get(req.Workflow)
	if !ok {
		WriteError(w, types.NewError(types.ErrWorkflowNotFound,
			"workflow "+req.Workflow+" not found"), h.logger)
		return
	}

	info, err := h.sched.Schedule(wf, req.Schedule)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteSuccess(w, map[string]any{
		"status":   "scheduled",
		"workflow": info.Workflow,
		"schedule": info.Schedule,
		"next_run": info.NextRun,
	})
}
