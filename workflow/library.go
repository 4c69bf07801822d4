package workflow

import (
	"sort"
	"sync"

	"github.com/taskforge-ai/taskforge/types"
)

// Library holds named workflow definitions. Like the capability registry it
// is an explicit object owned by the caller, not a process-wide map.
type Library struct {
	mu        sync.RWMutex
	workflows map[string]*types.Workflow
}

// NewLibrary creates a library, optionally seeded with definitions.
func NewLibrary(workflows ...*types.Workflow) *Library {
	l := &Library{workflows: make(map[string]*types.Workflow)}
	for _, wf := range workflows {
		l.Add(wf)
	}
	return l
}

// Add registers a workflow under its name, replacing any previous one.
func (l *Library) Add(wf *types.Workflow) {
	if wf == nil || wf.Name == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.workflows[wf.Name] = wf
}

// Get returns the workflow registered under name.
func (l *Library) Get(name string) (*types.Workflow, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	wf, ok := l.workflows[name]
	return wf, ok
}

// Names returns the registered workflow names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.workflows))
	for name := range l.workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuiltinWorkflows returns the example workflow definitions shipped with the
// service: a daily research report, GitHub issue triage, and a data pipeline.
func BuiltinWorkflows() []*types.Workflow {
	return []*types.Workflow{
		{
			Name:        "daily_research_report",
			Description: "Research AI news and email a summary",
			Schedule:    "0 9 * * *",
			Steps: []types.WorkflowStep{
				{Name: "search_news", Description: "Search for latest AI news from the past 24 hours"},
				{Name: "analyze_trends", Description: "Analyze the news from {search_news} and identify key trends"},
				{Name: "generate_report", Description: "Create a detailed report from {analyze_trends}"},
				{Name: "send_email", Description: "Email the report {generate_report} to team@example.com"},
			},
		},
		{
			Name:        "github_automation",
			Description: "Monitor issues and auto-assign",
			Schedule:    "0 * * * *",
			Steps: []types.WorkflowStep{
				{Name: "fetch_issues", Description: "Get all open GitHub issues with label \"needs-triage\""},
				{Name: "categorize", Description: "Categorize each issue in {fetch_issues} by type and priority"},
				{Name: "assign_reviewers", Description: "Auto-assign appropriate team members based on {categorize}"},
				{Name: "notify_slack", Description: "Post summary to Slack #dev channel"},
			},
		},
		{
			Name:        "data_pipeline",
			Description: "Process uploaded data and generate insights",
			Steps: []types.WorkflowStep{
				{Name: "validate_data", Description: "Check data quality and format"},
				{Name: "analyze", Description: "Perform statistical analysis on {validate_data}"},
				{Name: "visualize", Description: "Create charts and graphs from {analyze}"},
				{Name: "generate_insights", Description: "Use AI to generate business insights from {analyze}"},
				{Name: "store_results", Description: "Save results to database and generate shareable link"},
			},
		},
	}
}
