package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/taskforge-ai/taskforge/types"
	"github.com/taskforge-ai/taskforge/workflow"
	"go.uber.org/zap"
)

// ExecuteWorkflowRequest is the body of POST /workflow/execute. Either a
// library workflow name or an inline workflow definition must be given.
type ExecuteWorkflowRequest struct {
	Name     string          `json:"name,omitempty"`
	Workflow *types.Workflow `json:"workflow,omitempty"`
}

// WorkflowHandler serves workflow listing, execution, and streaming.
type WorkflowHandler struct {
	engine  *workflow.Engine
	library *workflow.Library
	logger  *zap.Logger
}

// NewWorkflowHandler creates the handler.
func NewWorkflowHandler(engine *workflow.Engine, library *workflow.Library, logger *zap.Logger) *WorkflowHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowHandler{
		engine:  engine,
		library: library,
		logger:  logger.With(zap.String("component", "workflow_handler")),
	}
}

// HandleList serves GET /workflows with the library contents.
func (h *WorkflowHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	workflows := make([]*types.Workflow, 0, len(h.library.Names()))
	for _, name := range h.library.Names() {
		if wf, ok := h.library.Get(name); ok {
			workflows = append(workflows, wf)
		}
	}
	WriteSuccess(w, map[string]any{"workflows": workflows})
}

// HandleExecute serves POST /workflow/execute synchronously.
func (h *WorkflowHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.resolveWorkflow(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Execute(r.Context(), wf)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, result)
}

// HandleStream serves GET /workflow/stream: a websocket that accepts one
// execution request and streams step events until the run completes.
func (h *WorkflowHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()

	var req ExecuteWorkflowRequest
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = wsjson.Read(readCtx, conn, &req)
	cancel()
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, "invalid execution request")
		return
	}

	wf, werr := h.lookupWorkflow(&req)
	if werr != nil {
		_ = wsjson.Write(ctx, conn, workflow.Event{
			Type:  workflow.EventStepError,
			Error: werr.Error(),
		})
		conn.Close(websocket.StatusPolicyViolation, "unknown workflow")
		return
	}

	// Serialize event writes through a channel; the engine emits from the
	// execution goroutine.
	events := make(chan workflow.Event, 16)
	runCtx := workflow.WithEmitter(ctx, func(ev workflow.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := h.engine.Execute(runCtx, wf); err != nil {
			select {
			case events <- workflow.Event{
				Type:     workflow.EventStepError,
				Workflow: wf.Name,
				Error:    err.Error(),
			}:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				return
			}
			if ev.Type == workflow.EventRunComplete {
				<-done
				conn.Close(websocket.StatusNormalClosure, "run complete")
				return
			}
		case <-done:
			// Execution ended without a completion event (hard failure);
			// drain anything already queued and close.
			for {
				select {
				case ev := <-events:
					if err := wsjson.Write(ctx, conn, ev); err != nil {
						return
					}
				default:
					conn.Close(websocket.StatusNormalClosure, "run ended")
					return
				}
			}
		}
	}
}

func (h *WorkflowHandler) resolveWorkflow(w http.ResponseWriter, r *http.Request) (*types.Workflow, bool) {
	var req ExecuteWorkflowRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return nil, false
	}
	wf, err := h.lookupWorkflow(&req)
	if err != nil {
		WriteError(w, err, h.logger)
		return nil, false
	}
	return wf, true
}

func (h *WorkflowHandler) lookupWorkflow(req *ExecuteWorkflowRequest) (*types.Workflow, error) {
	if req.Workflow != nil {
		if len(req.Workflow.Steps) == 0 {
			return nil, types.NewError(types.ErrInvalidRequest, "workflow has no steps")
		}
		return req.Workflow, nil
	}
	if req.Name == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "workflow name or definition is required")
	}
	wf, ok := h.library.Get(req.Name)
	if !ok {
		return nil, types.NewError(types.ErrWorkflowNotFound, "workflow not found: "+req.Name)
	}
	return wf, nil
}
