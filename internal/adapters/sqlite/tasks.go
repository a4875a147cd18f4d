package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

var _ core.TaskStore = (*Store)(nil)

const taskColumns = "id, type, status, COALESCE(pid, 0), COALESCE(error, ''), created_at"

// CreateTask inserts an in-progress task.
func (s *Store) CreateTask(ctx context.Context, taskType core.TaskType) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks (type, status, created_at) VALUES (?, ?, ?)",
		string(taskType), string(core.TaskStatusInProgress), s.now())
	if err != nil {
		return 0, fmt.Errorf("inserting task: %w", err)
	}
	return lastInsertID(res)
}

// SetTaskPID records the worker process of a task.
func (s *Store) SetTaskPID(ctx context.Context, id int64, pid int) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE tasks SET pid = ? WHERE id = ?", pid, id); err != nil {
		return fmt.Errorf("setting task pid: %w", err)
	}
	return nil
}

// CompleteTask marks a task completed whatever its current status.
func (s *Store) CompleteTask(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status = ? WHERE id = ?",
		string(core.TaskStatusCompleted), id); err != nil {
		return fmt.Errorf("completing task: %w", err)
	}
	return nil
}

// FailTask marks a task failed and records why.
func (s *Store) FailTask(ctx context.Context, id int64, cause string) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status = ?, error = ? WHERE id = ?",
		string(core.TaskStatusFailed), cause, id); err != nil {
		return fmt.Errorf("failing task: %w", err)
	}
	return nil
}

// FailTaskIfInProgress fails the task unless it already finished.
func (s *Store) FailTaskIfInProgress(ctx context.Context, id int64, cause string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status = ?, error = ? WHERE id = ? AND status = ?",
		string(core.TaskStatusFailed), cause, id, string(core.TaskStatusInProgress))
	if err != nil {
		return false, fmt.Errorf("failing task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n > 0, nil
}

// GetTask returns the task, or nil when it does not exist.
func (s *Store) GetTask(ctx context.Context, id int64) (*core.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading task: %w", err)
	}
	return t, nil
}

// ListTasks returns every task, newest first.
func (s *Store) ListTasks(ctx context.Context) ([]core.Task, error) {
	return s.listTasks(ctx, "SELECT "+taskColumns+" FROM tasks ORDER BY created_at DESC, id DESC")
}

// ListTasksByStatus returns the tasks in one status, oldest first.
func (s *Store) ListTasksByStatus(ctx context.Context, status core.TaskStatus) ([]core.Task, error) {
	return s.listTasks(ctx, "SELECT "+taskColumns+" FROM tasks WHERE status = ? ORDER BY id", string(status))
}

func (s *Store) listTasks(ctx context.Context, q string, args ...any) ([]core.Task, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(r rowScanner) (*core.Task, error) {
	var t core.Task
	var taskType, status string
	var created timestamp
	if err := r.Scan(&t.ID, &taskType, &status, &t.PID, &t.Error, &created); err != nil {
		return nil, err
	}
	t.Type = core.TaskType(taskType)
	t.Status = core.TaskStatus(status)
	t.CreatedAt = created.Time
	return &t, nil
}
