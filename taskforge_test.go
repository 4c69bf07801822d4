package taskforge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

type fixedClassifier struct {
	classification *types.Classification
}

func (f *fixedClassifier) Classify(ctx context.Context, input string) (*types.Classification, error) {
	return f.classification, nil
}

func TestNewAssemblesPipeline(t *testing.T) {
	tf, err := New(WithLogger(zap.NewNop()))
	require.NoError(t, err)

	assert.NotNil(t, tf.Registry)
	assert.NotNil(t, tf.Agent)
	assert.NotNil(t, tf.Engine)
	assert.Equal(t, 4, tf.Registry.Len())
	assert.Len(t, tf.Library.Names(), 3)
}

func TestProcessWithCustomClassifier(t *testing.T) {
	tf, err := New(
		WithLogger(zap.NewNop()),
		WithClassifier(&fixedClassifier{classification: &types.Classification{
			Intent: "general",
			Tasks:  []string{"process"},
		}}),
	)
	require.NoError(t, err)

	// "process" is not a registered kind, so the task no-op completes.
	resp, err := tf.Process(context.Background(), "do something ordinary")
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.Results, 1)
}

func TestEngineRunsWorkflows(t *testing.T) {
	tf, err := New(
		WithLogger(zap.NewNop()),
		WithClassifier(&fixedClassifier{classification: &types.Classification{
			Intent: "general",
			Tasks:  []string{"process"},
		}}),
	)
	require.NoError(t, err)

	wf := &types.Workflow{
		Name: "smoke",
		Steps: []types.WorkflowStep{
			{Name: "s1", Description: "first"},
			{Name: "s2", Description: "second uses {s1}"},
		},
	}
	result, err := tf.Engine.Execute(context.Background(), wf)
	require.NoError(t, err)
	assert.Equal(t, types.RunCompleted, result.Status)
	assert.Len(t, result.Results, 2)
}

func TestBuiltinWorkflowsAvailable(t *testing.T) {
	tf, err := New(WithLogger(zap.NewNop()))
	require.NoError(t, err)

	_, ok := tf.Library.Get("daily_research_report")
	assert.True(t, ok)
	_, ok = tf.Library.Get("github_automation")
	assert.True(t, ok)
}
