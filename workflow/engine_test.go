package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskforge-ai/taskforge/internal/metrics"
	"github.com/taskforge-ai/taskforge/memory"
	"github.com/taskforge-ai/taskforge/types"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// spyDispatcher records every dispatched description and replies from a
// per-call script.
type spyDispatcher struct {
	inputs  []string
	results []*types.TaskResult
	errs    []error
}

func (d *spyDispatcher) Dispatch(ctx context.Context, input string) (*types.TaskResult, error) {
	i := len(d.inputs)
	d.inputs = append(d.inputs, input)
	var err error
	if i < len(d.errs) {
		err = d.errs[i]
	}
	var result *types.TaskResult
	if i < len(d.results) {
		result = d.results[i]
	} else if err == nil {
		result = types.SuccessResult(map[string]any{"seq": i})
	}
	return result, err
}

func TestExecuteThreadsContextBetweenSteps(t *testing.T) {
	dispatcher := &spyDispatcher{
		results: []*types.TaskResult{
			types.SuccessResult(map[string]any{"answer": "result-of-s1"}),
			types.SuccessResult(map[string]any{"answer": "result-of-s2"}),
		},
	}
	engine := NewEngine(dispatcher, nil, nil)

	wf := &types.Workflow{
		Name: "demo",
		Steps: []types.WorkflowStep{
			{Name: "s1", Description: "X"},
			{Name: "s2", Description: "Y from {s1}"},
		},
	}

	result, err := engine.Execute(context.Background(), wf)
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.Equal(t, types.RunCompleted, result.Status)
	assert.Equal(t, "s1", result.Results[0].Step)
	assert.Equal(t, "s2", result.Results[1].Step)
	assert.NotEmpty(t, result.RunID)

	// The dispatched description for s2 contains s1's substituted result.
	require.Len(t, dispatcher.inputs, 2)
	assert.Equal(t, "X", dispatcher.inputs[0])
	assert.Contains(t, dispatcher.inputs[1], "result-of-s1")
	assert.NotContains(t, dispatcher.inputs[1], "{s1}")

	// Context holds both step results.
	require.Contains(t, result.Context, "s1")
	require.Contains(t, result.Context, "s2")
	assert.Equal(t, "result-of-s1", result.Context["s1"].Data["answer"])
}

func TestExecuteStepFailureIsIsolated(t *testing.T) {
	dispatcher := &spyDispatcher{
		errs: []error{nil, errors.New("capability exploded"), nil},
	}
	engine := NewEngine(dispatcher, nil, nil)

	wf := &types.Workflow{
		Name: "partial",
		Steps: []types.WorkflowStep{
			{Name: "a", Description: "first"},
			{Name: "b", Description: "second"},
			{Name: "c", Description: "third"},
		},
	}

	result, err := engine.Execute(context.Background(), wf)
	require.NoError(t, err)

	require.Len(t, result.Results, 3)
	assert.Equal(t, types.RunCompleted, result.Status)
	assert.Equal(t, types.StatusCompleted, result.Results[0].Result.Status)
	assert.Equal(t, types.StatusFailed, result.Results[1].Result.Status)
	assert.Contains(t, result.Results[1].Result.Error, "capability exploded")
	assert.Equal(t, types.StatusCompleted, result.Results[2].Result.Status)
	// All three steps ran despite the failure in the middle.
	assert.Len(t, dispatcher.inputs, 3)
}

func TestExecuteUnresolvedPlaceholderFailsStep(t *testing.T) {
	dispatcher := &spyDispatcher{}
	engine := NewEngine(dispatcher, nil, nil)

	wf := &types.Workflow{
		Name: "forward_ref",
		Steps: []types.WorkflowStep{
			{Name: "first", Description: "uses {later} before it exists"},
			{Name: "later", Description: "fine"},
		},
	}

	result, err := engine.Execute(context.Background(), wf)
	require.NoError(t, err)

	assert.Equal(t, types.StatusFailed, result.Results[0].Result.Status)
	assert.Contains(t, result.Results[0].Result.Error, "later")
	// The broken step was never dispatched; the next one ran normally.
	require.Len(t, dispatcher.inputs, 1)
	assert.Equal(t, "fine", dispatcher.inputs[0])
}

func TestExecuteFailedStepRendersIntoLaterSteps(t *testing.T) {
	dispatcher := &spyDispatcher{
		errs: []error{errors.New("no data"), nil},
	}
	engine := NewEngine(dispatcher, nil, nil)

	wf := &types.Workflow{
		Name: "failure_chain",
		Steps: []types.WorkflowStep{
			{Name: "fetch", Description: "get data"},
			{Name: "report", Description: "summarize {fetch}"},
		},
	}

	result, err := engine.Execute(context.Background(), wf)
	require.NoError(t, err)

	require.Len(t, dispatcher.inputs, 2)
	assert.Contains(t, dispatcher.inputs[1], "failed: no data")
	assert.Equal(t, types.StatusCompleted, result.Results[1].Result.Status)
}

func TestExecutePersistsStepsToMemory(t *testing.T) {
	store := memory.NewInMemoryStore(memory.InMemoryConfig{})
	dispatcher := &spyDispatcher{}
	engine := NewEngine(dispatcher, store, nil)

	wf := &types.Workflow{
		Name: "persisted",
		Steps: []types.WorkflowStep{
			{Name: "only", Description: "do the thing"},
		},
	}

	_, err := engine.Execute(context.Background(), wf)
	require.NoError(t, err)

	records, err := store.Search(context.Background(), "Workflow step only", 5)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "persisted", records[0].Metadata["workflow"])
	assert.Equal(t, "only", records[0].Metadata["step"])
}

func TestExecuteEmitsEvents(t *testing.T) {
	dispatcher := &spyDispatcher{
		errs: []error{nil, errors.New("boom")},
	}
	engine := NewEngine(dispatcher, nil, nil)

	var events []Event
	ctx := WithEmitter(context.Background(), func(e Event) {
		events = append(events, e)
	})

	wf := &types.Workflow{
		Name: "streamed",
		Steps: []types.WorkflowStep{
			{Name: "good", Description: "ok"},
			{Name: "bad", Description: "fails"},
		},
	}

	_, err := engine.Execute(ctx, wf)
	require.NoError(t, err)

	gotTypes := make([]EventType, 0, len(events))
	for _, e := range events {
		gotTypes = append(gotTypes, e.Type)
	}
	assert.Equal(t, []EventType{
		EventStepStart, EventStepComplete,
		EventStepStart, EventStepError,
		EventRunComplete,
	}, gotTypes)
}

func TestExecuteRecordsRunAndStepMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector("taskforge", promReg, nil)

	dispatcher := &spyDispatcher{
		errs: []error{nil, errors.New("step blew up")},
	}
	engine := NewEngine(dispatcher, nil, nil, WithMetrics(collector))

	wf := &types.Workflow{
		Name: "metered",
		Steps: []types.WorkflowStep{
			{Name: "s1", Description: "X"},
			{Name: "s2", Description: "Y"},
		},
	}
	_, err := engine.Execute(context.Background(), wf)
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(promReg, "taskforge_workflow_runs_total"))
	// One series per step status: completed and failed.
	assert.Equal(t, 2, testutil.CollectAndCount(promReg, "taskforge_workflow_steps_total"))
}

func TestExecuteEmitsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	engine := NewEngine(&spyDispatcher{}, nil, nil)
	wf := &types.Workflow{
		Name:  "traced",
		Steps: []types.WorkflowStep{{Name: "s1", Description: "X"}},
	}
	_, err := engine.Execute(context.Background(), wf)
	require.NoError(t, err)

	names := make([]string, 0)
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	assert.Contains(t, names, "workflow.execute")
	assert.Contains(t, names, "workflow.step")
}

func TestExecuteRejectsEmptyWorkflow(t *testing.T) {
	engine := NewEngine(&spyDispatcher{}, nil, nil)

	_, err := engine.Execute(context.Background(), &types.Workflow{Name: "empty"})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestExecuteCancelledContext(t *testing.T) {
	engine := NewEngine(&spyDispatcher{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Execute(ctx, &types.Workflow{
		Name:  "cancelled",
		Steps: []types.WorkflowStep{{Name: "a", Description: "x"}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLibrary(t *testing.T) {
	lib := NewLibrary(BuiltinWorkflows()...)

	assert.Equal(t, []string{"daily_research_report", "data_pipeline", "github_automation"}, lib.Names())

	wf, ok := lib.Get("daily_research_report")
	require.True(t, ok)
	assert.Len(t, wf.Steps, 4)

	_, ok = lib.Get("missing")
	assert.False(t, ok)
}
