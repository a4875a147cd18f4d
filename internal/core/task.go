package core

import "time"

// TaskType identifies the kind of background operation.
type TaskType string

const (
	TaskTypeBulkUpload TaskType = "bulk_upload"
	TaskTypeExport     TaskType = "export"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task tracks one background bulk import or export.
// PID is stale once the status is terminal.
type Task struct {
	ID        int64      `json:"id"`
	Type      TaskType   `json:"type"`
	Status    TaskStatus `json:"status"`
	PID       int        `json:"pid,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// JobStatus is returned to the caller right after a worker is spawned.
// WarnParallelism tells the presentation layer that a background writer may
// be running against the same database file.
type JobStatus struct {
	TaskID          int64      `json:"task_id"`
	PID             int        `json:"pid"`
	Status          TaskStatus `json:"status"`
	WarnParallelism bool       `json:"warn_parallelism"`
}

// ReconcileResult summarizes one liveness pass over in-progress tasks.
type ReconcileResult struct {
	Running         []int64 `json:"running"`
	Failed          []int64 `json:"failed"`
	WarnParallelism bool    `json:"warn_parallelism"`
}
