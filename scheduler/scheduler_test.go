package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskforge-ai/taskforge/types"
	"github.com/taskforge-ai/taskforge/workflow"
	"go.uber.org/zap"
)

type stubDispatcher struct {
	fail bool
}

func (s *stubDispatcher) Dispatch(ctx context.Context, input string) (*types.TaskResult, error) {
	if s.fail {
		return types.FailureResult(errors.New("handler down")), nil
	}
	return types.SuccessResult(map[string]any{"message": "ok"}), nil
}

func newTestScheduler(t *testing.T, fail bool) (*Scheduler, *[]string) {
	t.Helper()
	engine := workflow.NewEngine(&stubDispatcher{fail: fail}, nil, zap.NewNop())
	var alerts []string
	alert := func(ctx context.Context, message string) {
		alerts = append(alerts, message)
	}
	return New(engine, Config{}, alert, zap.NewNop()), &alerts
}

func TestRegisterSkipsUnscheduled(t *testing.T) {
	s, _ := newTestScheduler(t, false)
	wf := &types.Workflow{
		Name:  "ad_hoc",
		Steps: []types.WorkflowStep{{Name: "s1", Description: "do a thing"}},
	}
	require.NoError(t, s.Register(wf))
	assert.Empty(t, s.Scheduled())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s, _ := newTestScheduler(t, false)
	wf := &types.Workflow{
		Name:     "daily",
		Schedule: "0 9 * * *",
		Steps:    []types.WorkflowStep{{Name: "s1", Description: "do a thing"}},
	}
	require.NoError(t, s.Register(wf))
	err := s.Register(wf)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestRegisterRejectsBadSchedule(t *testing.T) {
	s, _ := newTestScheduler(t, false)
	wf := &types.Workflow{
		Name:     "broken",
		Schedule: "not a cron expression",
		Steps:    []types.WorkflowStep{{Name: "s1", Description: "do a thing"}},
	}
	err := s.Register(wf)
	require.Error(t, err)
	assert.Empty(t, s.Scheduled())
}

func TestRegisterLibrary(t *testing.T) {
	s, _ := newTestScheduler(t, false)
	require.NoError(t, s.RegisterLibrary(workflow.NewLibrary(workflow.BuiltinWorkflows()...)))

	// Only the builtins that declare schedules should be registered.
	names := s.Scheduled()
	assert.Contains(t, names, "daily_research_report")
	assert.Contains(t, names, "github_automation")
	assert.NotContains(t, names, "data_pipeline")
}

func TestScheduleReportsNextRun(t *testing.T) {
	s, _ := newTestScheduler(t, false)
	wf := &types.Workflow{
		Name:  "on_demand",
		Steps: []types.WorkflowStep{{Name: "s1", Description: "do a thing"}},
	}

	info, err := s.Schedule(wf, "0 9 * * *")
	require.NoError(t, err)
	assert.Equal(t, "on_demand", info.Workflow)
	assert.Equal(t, "0 9 * * *", info.Schedule)
	assert.True(t, info.NextRun.After(time.Now()))
	assert.Equal(t, 9, info.NextRun.Hour())

	// The expression overrides the workflow's declared schedule, and the
	// registration shows up like any other.
	assert.Contains(t, s.Scheduled(), "on_demand")

	_, err = s.Schedule(wf, "0 10 * * *")
	assert.Error(t, err, "duplicate names are rejected")
}

func TestScheduleRejectsBadExpression(t *testing.T) {
	s, _ := newTestScheduler(t, false)
	wf := &types.Workflow{
		Name:  "bad",
		Steps: []types.WorkflowStep{{Name: "s1", Description: "x"}},
	}
	_, err := s.Schedule(wf, "not cron")
	require.Error(t, err)

	var terr *types.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, types.ErrInvalidRequest, terr.Code)
}

func TestNextRunAfterStart(t *testing.T) {
	s, _ := newTestScheduler(t, false)
	wf := &types.Workflow{
		Name:     "hourly",
		Schedule: "0 * * * *",
		Steps:    []types.WorkflowStep{{Name: "s1", Description: "x"}},
	}
	require.NoError(t, s.Register(wf))

	s.Start()
	defer s.Stop()

	next, ok := s.NextRun("hourly")
	require.True(t, ok)
	assert.True(t, next.After(time.Now()))

	_, ok = s.NextRun("missing")
	assert.False(t, ok)
}

func TestRunWorkflowAlertsOnStepFailure(t *testing.T) {
	s, alerts := newTestScheduler(t, true)
	wf := &types.Workflow{
		Name:  "failing",
		Steps: []types.WorkflowStep{{Name: "s1", Description: "do a thing"}},
	}
	s.runWorkflow(wf)
	require.Len(t, *alerts, 1)
	assert.Contains(t, (*alerts)[0], "failing")
	assert.Contains(t, (*alerts)[0], "1 failed step")
}

func TestRunWorkflowQuietOnSuccess(t *testing.T) {
	s, alerts := newTestScheduler(t, false)
	wf := &types.Workflow{
		Name:  "healthy",
		Steps: []types.WorkflowStep{{Name: "s1", Description: "do a thing"}},
	}
	s.runWorkflow(wf)
	assert.Empty(t, *alerts)
}

func TestStartStop(t *testing.T) {
	s, _ := newTestScheduler(t, false)
	s.Start()
	s.Stop()
}
