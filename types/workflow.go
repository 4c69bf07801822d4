package types

import "time"

// RunStatus is the lifecycle state of a workflow run.
// A run moves not_started → running → completed. Step failures are recorded
// in the step's outcome and do not produce a failed run state; callers
// inspect per-step results.
type RunStatus string

const (
	RunNotStarted RunStatus = "not_started"
	RunRunning    RunStatus = "running"
	RunCompleted  RunStatus = "completed"
)

// WorkflowStep is one step of a workflow. Description is a template string
// that may contain placeholders of the form {name} referencing the results
// of earlier steps in the same workflow.
type WorkflowStep struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Workflow is a named, ordered list of steps. Later steps may reference
// earlier steps' results via the shared WorkflowContext.
type Workflow struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Schedule    string         `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Steps       []WorkflowStep `json:"steps" yaml:"steps"`
}

// WorkflowContext maps step names to their results, insertion-ordered.
// It is owned exclusively by a single in-flight workflow run and discarded
// after the run.
type WorkflowContext struct {
	order  []string
	values map[string]*TaskResult
}

// NewWorkflowContext creates an empty workflow context.
func NewWorkflowContext() *WorkflowContext {
	return &WorkflowContext{values: make(map[string]*TaskResult)}
}

// Set stores a step result under name. Setting an existing name overwrites
// the value but keeps its original position in the insertion order.
func (c *WorkflowContext) Set(name string, result *TaskResult) {
	if _, ok := c.values[name]; !ok {
		c.order = append(c.order, name)
	}
	c.values[name] = result
}

// Get returns the result stored under name.
func (c *WorkflowContext) Get(name string) (*TaskResult, bool) {
	r, ok := c.values[name]
	return r, ok
}

// Names returns the step names in insertion order.
func (c *WorkflowContext) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of entries in the context.
func (c *WorkflowContext) Len() int {
	return len(c.values)
}

// Map returns the context as a plain map keyed by step name.
func (c *WorkflowContext) Map() map[string]*TaskResult {
	out := make(map[string]*TaskResult, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// StepOutcome is one entry of a workflow run's ordered result log.
type StepOutcome struct {
	Step      string      `json:"step"`
	Result    *TaskResult `json:"result"`
	Timestamp time.Time   `json:"timestamp"`
}

// WorkflowResult is the aggregate outcome of one workflow run.
type WorkflowResult struct {
	Workflow string                 `json:"workflow"`
	RunID    string                 `json:"run_id"`
	Status   RunStatus              `json:"status"`
	Results  []StepOutcome          `json:"results"`
	Context  map[string]*TaskResult `json:"context"`
}
