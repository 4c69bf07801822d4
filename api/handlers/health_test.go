package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskforge-ai/taskforge/capability"
	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

func TestHandleRoot(t *testing.T) {
	registry := capability.NewRegistry(zap.NewNop())
	registry.Register(types.KindWebSearch, capability.NewHandlerFunc("web_search",
		func(ctx context.Context, input string) (*types.TaskResult, error) {
			return types.SuccessResult(nil), nil
		}))

	h := NewHealthHandler(registry, func() []string { return []string{"data_pipeline"} }, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var info ServiceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "taskforge", info.Service)
	assert.Equal(t, "running", info.Status)
	assert.Contains(t, info.Capabilities, "web_search")
	assert.Contains(t, info.Workflows, "data_pipeline")
}

func TestHandleHealthz(t *testing.T) {
	h := NewHealthHandler(nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}
