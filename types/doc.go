// Package types provides unified type definitions for the TaskForge service.
//
// It contains the task model (Task, TaskKind, TaskStatus, TaskResult), the
// classification produced by the request router, the workflow model
// (Workflow, WorkflowStep, WorkflowContext), memory records, and the
// structured error type shared across packages.
//
// The package has no dependencies on other TaskForge packages so that every
// layer (router, executor, workflow engine, capability handlers, API) can
// import it without cycles.
package types
