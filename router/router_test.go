package router

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskforge-ai/taskforge/internal/metrics"
	"github.com/taskforge-ai/taskforge/types"
	"pgregory.net/rapid"
)

type stubClassifier struct {
	classification *types.Classification
	err            error
	calls          int
}

func (s *stubClassifier) Classify(ctx context.Context, input string) (*types.Classification, error) {
	s.calls++
	return s.classification, s.err
}

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.reply, s.err
}

func TestFallbackClassify(t *testing.T) {
	tests := []struct {
		input  string
		intent string
		tasks  []string
	}{
		{"Research quantum computing", "research", []string{"web_search", "synthesize"}},
		{"please FIND me a restaurant", "research", []string{"web_search", "synthesize"}},
		{"build me a web scraper", "code", []string{"code_generation"}},
		{"Send an email to the team", "email", []string{"draft_email", "send_email"}},
		{"hello there", "general", []string{"process"}},
		{"", "general", []string{"process"}},
		{"   \t\n", "general", []string{"process"}},
	}

	for _, tt := range tests {
		got := FallbackClassify(tt.input)
		assert.Equal(t, tt.intent, got.Intent, "input %q", tt.input)
		assert.Equal(t, tt.tasks, got.Tasks, "input %q", tt.input)
	}
}

func TestFallbackClassifyTotalAndIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.String().Draw(t, "input")

		first := FallbackClassify(input)
		second := FallbackClassify(input)

		assert.NotEmpty(t, first.Tasks, "fallback must return at least one task")
		assert.Equal(t, first.Intent, second.Intent)
		assert.Equal(t, first.Tasks, second.Tasks)
	})
}

func TestRouteUsesClassifier(t *testing.T) {
	classifier := &stubClassifier{
		classification: &types.Classification{
			Intent: "research",
			Tasks:  []string{"web_search", "report_generation"},
		},
	}
	r := New(classifier, nil)

	classification, tasks, err := r.Route(context.Background(), "look into something")
	require.NoError(t, err)

	assert.Equal(t, "research", classification.Intent)
	require.Len(t, tasks, 2)
	assert.Equal(t, "research_0", tasks[0].ID)
	assert.Equal(t, types.KindWebSearch, tasks[0].Kind)
	assert.Equal(t, "Execute web_search", tasks[0].Description)
	assert.Equal(t, "research_1", tasks[1].ID)
	assert.Equal(t, types.KindReportGeneration, tasks[1].Kind)
	assert.Equal(t, types.StatusPending, tasks[1].Status)
}

func TestRouteFallsBackOnClassifierError(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("llm unavailable")}
	r := New(classifier, nil)

	classification, tasks, err := r.Route(context.Background(), "Send an email to the team")
	require.NoError(t, err)

	assert.Equal(t, "email", classification.Intent)
	assert.Equal(t, []string{"draft_email", "send_email"}, classification.Tasks)
	require.Len(t, tasks, 2)
	assert.Equal(t, "email_0", tasks[0].ID)
	assert.Equal(t, "email_1", tasks[1].ID)
	// Unknown task names map to the default kind.
	assert.Equal(t, types.KindResearch, tasks[0].Kind)
}

func TestRouteFallsBackOnEmptyClassification(t *testing.T) {
	classifier := &stubClassifier{classification: &types.Classification{Intent: "odd"}}
	r := New(classifier, nil)

	_, tasks, err := r.Route(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, tasks)
}

func TestRouteNilClassifier(t *testing.T) {
	r := New(nil, nil)
	_, tasks, err := r.Route(context.Background(), "build a thing")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, types.KindCodeGeneration, tasks[0].Kind)
}

func TestRouteRecordsClassificationMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector("taskforge", promReg, nil)

	r := New(nil, nil, WithMetrics(collector))
	_, _, err := r.Route(context.Background(), "Send an email to the team")
	require.NoError(t, err)

	assert.Equal(t, 1, testutil.CollectAndCount(promReg, "taskforge_classifications_total"))

	families, err := promReg.Gather()
	require.NoError(t, err)
	labels := map[string]string{}
	for _, mf := range families {
		if mf.GetName() != "taskforge_classifications_total" {
			continue
		}
		for _, pair := range mf.GetMetric()[0].GetLabel() {
			labels[pair.GetName()] = pair.GetValue()
		}
	}
	assert.Equal(t, "email", labels["intent"])
	assert.Equal(t, "fallback", labels["source"])
}

func TestRouteCancelledContext(t *testing.T) {
	r := New(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := r.Route(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLLMClassifierParsesWrappedJSON(t *testing.T) {
	completer := &stubCompleter{reply: "Sure! Here you go:\n```json\n{\"intent\": \"research\", \"tasks\": [\"web_search\"]}\n```"}
	c := NewLLMClassifier(completer, nil)

	got, err := c.Classify(context.Background(), "look into agents")
	require.NoError(t, err)
	assert.Equal(t, "research", got.Intent)
	assert.Equal(t, []string{"web_search"}, got.Tasks)
}

func TestLLMClassifierMalformedReply(t *testing.T) {
	tests := []string{
		"I could not decide",
		"{not json}",
		`{"intent": "x", "tasks": []}`,
	}
	for _, reply := range tests {
		c := NewLLMClassifier(&stubCompleter{reply: reply}, nil)
		_, err := c.Classify(context.Background(), "anything")
		require.Error(t, err, "reply %q", reply)
		assert.Equal(t, types.ErrClassifierFailure, types.GetErrorCode(err))
	}
}

func TestLLMClassifierCompleterError(t *testing.T) {
	c := NewLLMClassifier(&stubCompleter{err: errors.New("timeout")}, nil)
	_, err := c.Classify(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, types.ErrClassifierFailure, types.GetErrorCode(err))
}
