package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskforge-ai/taskforge/scheduler"
	"github.com/taskforge-ai/taskforge/workflow"
	"go.uber.org/zap"
)

func newSchedulerHandler(t *testing.T) *SchedulerHandler {
	t.Helper()
	engine := workflow.NewEngine(&stubDispatcher{}, nil, zap.NewNop())
	sched := scheduler.New(engine, scheduler.Config{}, nil, zap.NewNop())
	library := workflow.NewLibrary(workflow.BuiltinWorkflows()...)
	return NewSchedulerHandler(sched, library, zap.NewNop())
}

func TestHandleSchedule(t *testing.T) {
	h := newSchedulerHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workflow/schedule",
		strings.NewReader(`{"workflow":"data_pipeline","schedule":"0 6 * * *"}`))
	h.HandleSchedule(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Status   string    `json:"status"`
			Workflow string    `json:"workflow"`
			Schedule string    `json:"schedule"`
			NextRun  time.Time `json:"next_run"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "scheduled", envelope.Data.Status)
	assert.Equal(t, "data_pipeline", envelope.Data.Workflow)
	assert.Equal(t, "0 6 * * *", envelope.Data.Schedule)
	assert.True(t, envelope.Data.NextRun.After(time.Now()))
}

func TestHandleScheduleUnknownWorkflow(t *testing.T) {
	h := newSchedulerHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workflow/schedule",
		strings.NewReader(`{"workflow":"missing","schedule":"0 6 * * *"}`))
	h.HandleSchedule(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleScheduleBadRequest(t *testing.T) {
	h := newSchedulerHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing fields", `{}`},
		{"bad cron", `{"workflow":"data_pipeline","schedule":"whenever"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/workflow/schedule", strings.NewReader(tt.body))
			h.HandleSchedule(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleScheduleDisabled(t *testing.T) {
	library := workflow.NewLibrary(workflow.BuiltinWorkflows()...)
	h := NewSchedulerHandler(nil, library, zap.NewNop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workflow/schedule",
		strings.NewReader(`{"workflow":"data_pipeline","schedule":"0 6 * * *"}`))
	h.HandleSchedule(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
