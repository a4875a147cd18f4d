// Package monitor reconciles in-progress tasks with the worker processes
// that are supposed to be running them.
package monitor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/logging"
)

// Failure causes recorded on orphaned tasks.
const (
	CauseNotFound = "worker process not found"
	CauseNotChild = "worker process is not a child of this process"
)

// Monitor checks task liveness.
type Monitor struct {
	store        core.TaskStore
	inspector    core.ProcessInspector
	selfPID      int
	maxProbes    int
	pollInterval time.Duration
	watchDir     string
	logger       *logging.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSelfPID sets the pid workers must be children of.
func WithSelfPID(pid int) Option {
	return func(m *Monitor) {
		m.selfPID = pid
	}
}

// WithMaxProbes bounds the number of concurrent process lookups.
func WithMaxProbes(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.maxProbes = n
		}
	}
}

// WithPollInterval sets how often Wait and Watch re-check without a file
// event.
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithWatchDir makes Wait and Watch wake up on writes in dir, normally the
// database directory.
func WithWatchDir(dir string) Option {
	return func(m *Monitor) {
		m.watchDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// New creates a monitor.
func New(store core.TaskStore, inspector core.ProcessInspector, opts ...Option) *Monitor {
	m := &Monitor{
		store:        store,
		inspector:    inspector,
		selfPID:      os.Getpid(),
		maxProbes:    8,
		pollInterval: 2 * time.Second,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reconcile looks at every in-progress task and fails those whose worker is
// gone or was not spawned by this process. It never signals workers.
func (m *Monitor) Reconcile(ctx context.Context) (core.ReconcileResult, error) {
	result := core.ReconcileResult{Running: []int64{}, Failed: []int64{}}

	tasks, err := m.store.ListTasksByStatus(ctx, core.TaskStatusInProgress)
	if err != nil {
		return result, fmt.Errorf("listing in-progress tasks: %w", err)
	}

	causes := make([]string, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxProbes)
	for i, task := range tasks {
		g.Go(func() error {
			cause, err := m.probe(gctx, task)
			if err != nil {
				return fmt.Errorf("probing task %d: %w", task.ID, err)
			}
			causes[i] = cause
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	for i, task := range tasks {
		if causes[i] == "" {
			result.Running = append(result.Running, task.ID)
			continue
		}
		changed, err := m.store.FailTaskIfInProgress(ctx, task.ID, causes[i])
		if err != nil {
			return result, err
		}
		if changed {
			m.logger.WithTask(task.ID).Warn("task orphaned", "pid", task.PID, "cause", causes[i])
			result.Failed = append(result.Failed, task.ID)
		}
	}
	result.WarnParallelism = len(result.Running) > 0
	return result, nil
}

// probe returns "" when the task's worker is alive and ours, otherwise the
// failure cause.
func (m *Monitor) probe(ctx context.Context, task core.Task) (string, error) {
	info, err := m.inspector.Inspect(ctx, task.PID)
	if err != nil {
		return "", err
	}
	if !info.Exists || !info.Running {
		return CauseNotFound, nil
	}
	if info.PPID != m.selfPID {
		return CauseNotChild, nil
	}
	return "", nil
}

// Wait reconciles until the task reaches a terminal status and returns it.
func (m *Monitor) Wait(ctx context.Context, taskID int64) (*core.Task, error) {
	wake, stop := m.wakeups()
	defer stop()
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := m.Reconcile(ctx); err != nil {
			return nil, err
		}
		task, err := m.store.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, core.ErrNotFound("task", taskID)
		}
		if task.Status.IsTerminal() {
			return task, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		case <-wake:
		}
	}
}

// Watch calls fn with the full task list now and after every change until
// ctx is done. It only observes: nothing is reconciled, so it is safe to run
// from a process that did not spawn the workers.
func (m *Monitor) Watch(ctx context.Context, fn func([]core.Task)) error {
	wake, stop := m.wakeups()
	defer stop()
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	var last string
	for {
		tasks, err := m.store.ListTasks(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if sig := signature(tasks); sig != last {
			last = sig
			fn(tasks)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-wake:
		}
	}
}

func signature(tasks []core.Task) string {
	sig := make([]byte, 0, len(tasks)*16)
	for _, t := range tasks {
		sig = fmt.Appendf(sig, "%d:%s:%d;", t.ID, t.Status, t.PID)
	}
	return string(sig)
}

// wakeups delivers a signal whenever something in the watch directory is
// written. Without a watch directory, or if the watcher cannot start, the
// channel never fires and callers fall back to polling.
func (m *Monitor) wakeups() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	if m.watchDir == "" {
		return ch, func() {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Debug("file watcher unavailable, polling", "error", err)
		return ch, func() {}
	}
	if err := watcher.Add(m.watchDir); err != nil {
		_ = watcher.Close()
		m.logger.Debug("cannot watch directory, polling", "dir", m.watchDir, "error", err)
		return ch, func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return ch, func() {
		close(done)
		_ = watcher.Close()
	}
}
