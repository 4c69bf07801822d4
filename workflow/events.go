package workflow

import "context"

// EventType identifies a workflow stream event.
type EventType string

const (
	// EventStepStart is emitted before a step begins execution.
	EventStepStart EventType = "step_start"
	// EventStepComplete is emitted after a step finishes successfully.
	EventStepComplete EventType = "step_complete"
	// EventStepError is emitted when a step fails.
	EventStepError EventType = "step_error"
	// EventRunComplete is emitted once after the final step.
	EventRunComplete EventType = "run_complete"
)

// Event carries information about one workflow execution event.
type Event struct {
	Type     EventType `json:"type"`
	Workflow string    `json:"workflow"`
	Step     string    `json:"step,omitempty"`
	Data     any       `json:"data,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Emitter is a callback that receives workflow stream events.
type Emitter func(Event)

type emitterKey struct{}

// WithEmitter stores an Emitter in the context so the engine can stream
// step progress without plumbing a parameter through every call.
func WithEmitter(ctx context.Context, emitter Emitter) context.Context {
	if emitter == nil {
		return ctx
	}
	return context.WithValue(ctx, emitterKey{}, emitter)
}

// emitterFromContext retrieves the Emitter from context.
func emitterFromContext(ctx context.Context) (Emitter, bool) {
	if ctx == nil {
		return nil, false
	}
	emit, ok := ctx.Value(emitterKey{}).(Emitter)
	return emit, ok && emit != nil
}

func emit(ctx context.Context, event Event) {
	if emitter, ok := emitterFromContext(ctx); ok {
		emitter(event)
	}
}
