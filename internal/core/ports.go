package core

import "context"

// TemplateIntrospector returns the ordered, de-duplicated placeholder names
// referenced by a template string.
type TemplateIntrospector func(template string) ([]string, error)

// ProcessInfo describes an OS process as seen by a ProcessInspector.
type ProcessInfo struct {
	PID     int
	Exists  bool
	Running bool
	PPID    int
}

// ProcessInspector looks up processes in the OS process table.
type ProcessInspector interface {
	Inspect(ctx context.Context, pid int) (ProcessInfo, error)
}

// TaskStore is the slice of the record store used by background job
// bookkeeping.
type TaskStore interface {
	CreateTask(ctx context.Context, taskType TaskType) (int64, error)
	SetTaskPID(ctx context.Context, id int64, pid int) error
	CompleteTask(ctx context.Context, id int64) error
	FailTask(ctx context.Context, id int64, cause string) error
	// FailTaskIfInProgress fails the task only while it is still in
	// progress and reports whether it did.
	FailTaskIfInProgress(ctx context.Context, id int64, cause string) (bool, error)
	GetTask(ctx context.Context, id int64) (*Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
	ListTasksByStatus(ctx context.Context, status TaskStatus) ([]Task, error)
}
