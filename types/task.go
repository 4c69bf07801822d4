package types

import (
	"fmt"
	"time"
)

// TaskKind identifies the capability a task is dispatched to.
// The set is closed; unknown incoming strings are mapped to KindResearch
// by ParseTaskKind rather than rejected.
type TaskKind string

const (
	KindResearch         TaskKind = "research"
	KindCodeGeneration   TaskKind = "code_generation"
	KindEmail            TaskKind = "email"
	KindDataAnalysis     TaskKind = "data_analysis"
	KindWebSearch        TaskKind = "web_search"
	KindGitHub           TaskKind = "github"
	KindSlack            TaskKind = "slack"
	KindReportGeneration TaskKind = "report_generation"
)

// AllTaskKinds lists every recognized task kind in a stable order.
func AllTaskKinds() []TaskKind {
	return []TaskKind{
		KindResearch,
		KindCodeGeneration,
		KindEmail,
		KindDataAnalysis,
		KindWebSearch,
		KindGitHub,
		KindSlack,
		KindReportGeneration,
	}
}

// ParseTaskKind maps a raw kind string to a TaskKind. Unrecognized strings
// map to KindResearch, the default fallback kind; the second return value
// reports whether the input named a known kind.
func ParseTaskKind(s string) (TaskKind, bool) {
	k := TaskKind(s)
	switch k {
	case KindResearch, KindCodeGeneration, KindEmail, KindDataAnalysis,
		KindWebSearch, KindGitHub, KindSlack, KindReportGeneration:
		return k, true
	}
	return KindResearch, false
}

// TaskStatus is the lifecycle state of a task. A task starts Pending and
// transitions exactly once to Completed or Failed.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TaskResult is the explicit success/failure variant returned by a handler
// invocation. Failure is represented by data, not by exception propagation:
// the executor converts handler errors into a TaskResult with a non-empty
// Error field.
type TaskResult struct {
	Status TaskStatus     `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Succeeded reports whether the result represents a successful execution.
func (r *TaskResult) Succeeded() bool {
	return r != nil && r.Status == StatusCompleted && r.Error == ""
}

// SuccessResult builds a completed TaskResult carrying the given data.
func SuccessResult(data map[string]any) *TaskResult {
	return &TaskResult{Status: StatusCompleted, Data: data}
}

// FailureResult builds a failed TaskResult from an error.
func FailureResult(err error) *TaskResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &TaskResult{Status: StatusFailed, Error: msg}
}

// Task is one unit of work, routed to exactly one capability handler.
// Tasks are created by the router, mutated only by the executor, and never
// reused across requests.
type Task struct {
	ID          string      `json:"id"`
	Kind        TaskKind    `json:"kind"`
	Description string      `json:"description"`
	Status      TaskStatus  `json:"status"`
	Result      *TaskResult `json:"result,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewTask creates a pending task. The ID convention is "<intent>_<index>",
// unique within one routed batch.
func NewTask(intent string, index int, kind TaskKind, description string) *Task {
	if description == "" {
		description = fmt.Sprintf("Execute %s", kind)
	}
	return &Task{
		ID:          fmt.Sprintf("%s_%d", intent, index),
		Kind:        kind,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// Complete marks the task completed with the given result. It is a no-op if
// the task already reached a terminal state.
func (t *Task) Complete(result *TaskResult) {
	if t.Status.Terminal() {
		return
	}
	t.Status = StatusCompleted
	t.Result = result
}

// Finish records a handler-produced result, mirroring the result's status
// onto the task. A result with an empty status is treated as completed; a
// result that marks itself failed fails the task while keeping the result's
// data. It is a no-op if the task already reached a terminal state.
func (t *Task) Finish(result *TaskResult) {
	if t.Status.Terminal() {
		return
	}
	if result == nil {
		result = SuccessResult(nil)
	}
	if result.Status != StatusFailed {
		result.Status = StatusCompleted
	}
	t.Status = result.Status
	t.Result = result
}

// Fail marks the task failed, recording the error message on the result.
// It is a no-op if the task already reached a terminal state.
func (t *Task) Fail(err error) {
	if t.Status.Terminal() {
		return
	}
	t.Status = StatusFailed
	t.Result = FailureResult(err)
}

// Classification is the router's view of a user request: the primary intent
// plus an ordered sequence of task-kind identifiers.
type Classification struct {
	Intent string   `json:"intent"`
	Tasks  []string `json:"tasks"`
}
