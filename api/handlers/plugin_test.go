package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskforge-ai/taskforge/capability"
	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

func newPluginMux(t *testing.T) *http.ServeMux {
	t.Helper()
	echo := capability.NewHandlerFunc("echo",
		func(ctx context.Context, input string) (*types.TaskResult, error) {
			return types.SuccessResult(map[string]any{"echo": input}), nil
		})
	h := NewPluginHandler(map[string]capability.Handler{"echo": echo}, zap.NewNop())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /plugins", h.HandleList)
	mux.HandleFunc("POST /plugin/{name}", h.HandleExecute)
	return mux
}

func TestPluginList(t *testing.T) {
	mux := newPluginMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plugins", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "echo")
}

func TestPluginExecute(t *testing.T) {
	mux := newPluginMux(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plugin/echo",
		strings.NewReader(`{"input":"San Francisco"}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "San Francisco")
}

func TestPluginExecuteUnknown(t *testing.T) {
	mux := newPluginMux(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plugin/nope", strings.NewReader(`{"input":"x"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
