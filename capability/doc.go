// Package capability defines the pluggable capability handler contract and
// the concrete integrations behind it (web search, email, database history,
// GitHub, Slack, code generation, research, report generation, weather).
//
// The orchestration core only depends on the Handler interface and the
// Registry; all domain semantics of an integration live inside its handler.
// Handlers return structured TaskResults and report problems as error
// returns, never by panicking.
package capability
