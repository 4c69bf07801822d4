package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskforge-ai/taskforge/agent"
	"github.com/taskforge-ai/taskforge/queue"
	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

// ChatRequest is the body of POST /agent/chat.
type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

// TaskRequest is the body of POST /agent/task.
type TaskRequest struct {
	Task   string `json:"task"`
	UserID string `json:"user_id,omitempty"`
}

// Processor handles a chat request synchronously. *agent.Agent satisfies it.
type Processor interface {
	ProcessRequest(ctx context.Context, input string) (*agent.Response, error)
}

// AgentHandler serves the synchronous chat endpoint and the asynchronous
// task queue endpoints.
type AgentHandler struct {
	processor Processor
	queue     *queue.Queue
	logger    *zap.Logger
}

// NewAgentHandler creates the handler. queue may be nil, in which case the
// async endpoints report the queue as unavailable.
func NewAgentHandler(processor Processor, q *queue.Queue, logger *zap.Logger) *AgentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentHandler{
		processor: processor,
		queue:     q,
		logger:    logger.With(zap.String("component", "agent_handler")),
	}
}

// HandleChat serves POST /agent/chat: classify, execute, and respond in
// one round trip.
func (h *AgentHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "message is required"), h.logger)
		return
	}

	resp, err := h.processor.ProcessRequest(r.Context(), req.Message)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, resp)
}

// HandleSubmitTask serves POST /agent/task: enqueue for background
// processing and return the job ID immediately.
func (h *AgentHandler) HandleSubmitTask(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		WriteError(w, types.NewError(types.ErrQueueFailure, "task queue is not configured"), h.logger)
		return
	}

	var req TaskRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "task is required"), h.logger)
		return
	}

	job := queue.Job{
		ID:      uuid.NewString(),
		Request: req.Task,
		UserID:  req.UserID,
	}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusAccepted, Response{
		Success: true,
		Data: map[string]any{
			"task_id": job.ID,
			"status":  "queued",
		},
		Timestamp: time.Now().UTC(),
	})
}

// HandleTaskResult serves GET /agent/task/{id}: poll a queued job.
func (h *AgentHandler) HandleTaskResult(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		WriteError(w, types.NewError(types.ErrQueueFailure, "task queue is not configured"), h.logger)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "task id is required"), h.logger)
		return
	}

	result, ok, err := h.queue.Result(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if !ok {
		WriteSuccess(w, map[string]any{
			"task_id": id,
			"status":  "pending",
		})
		return
	}
	WriteSuccess(w, result)
}
