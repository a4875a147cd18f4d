package bulk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/promptbank/internal/adapters/sqlite"
	"github.com/hugo-lorenzo-mato/promptbank/internal/config"
	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/logging"
	"github.com/hugo-lorenzo-mato/promptbank/internal/template"
)

// Worker executes one job against the database file named in it.
type Worker struct {
	logger     *logging.Logger
	introspect core.TemplateIntrospector
}

// NewWorker creates a worker.
func NewWorker(logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{logger: logger, introspect: template.NamedArguments}
}

// Run executes job and records the outcome on its task. A failure is
// recorded as the task's error and also returned.
//
// In direct mode an import writes the live file item by item and an export
// reads a private snapshot. In clone mode the whole job, task status
// included, runs on a scratch copy that then replaces the live content,
// dropping anything written to the live file in the meantime.
func (w *Worker) Run(ctx context.Context, job *Job) error {
	logger := w.logger.WithTask(job.TaskID).With("kind", job.Kind, "mode", job.Mode)
	logger.Info("worker started", "pid", os.Getpid())

	live, err := sqlite.Open(job.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer live.Close()

	if job.Mode == config.BulkModeClone {
		err = w.runCloned(ctx, live, job)
	} else {
		err = w.runDirect(ctx, live, job)
	}
	if err != nil {
		logger.Error("worker failed", "error", err)
		return err
	}
	logger.Info("worker finished")
	return nil
}

func (w *Worker) runDirect(ctx context.Context, live *sqlite.Store, job *Job) error {
	if job.Kind == KindImport {
		return finish(ctx, live, job, w.importItems(ctx, live, job))
	}

	snap, cleanup, err := w.snapshot(ctx, live, job)
	if err != nil {
		return finish(ctx, live, job, err)
	}
	defer cleanup()
	return finish(ctx, live, job, w.export(ctx, snap, live, job))
}

func (w *Worker) runCloned(ctx context.Context, live *sqlite.Store, job *Job) error {
	clone, cleanup, err := w.snapshot(ctx, live, job)
	if err != nil {
		return finish(ctx, live, job, err)
	}
	defer cleanup()

	var runErr error
	if job.Kind == KindImport {
		runErr = w.importItems(ctx, clone, job)
	} else {
		runErr = w.export(ctx, clone, clone, job)
	}
	runErr = finish(ctx, clone, job, runErr)

	// Copy back whatever happened, then make sure the task outcome is on the
	// live file even if the copy-back itself failed.
	if err := clone.Close(); err != nil {
		return finish(ctx, live, job, errors.Join(runErr, fmt.Errorf("closing clone: %w", err)))
	}
	if err := live.ReplaceFrom(ctx, clone.Path()); err != nil {
		return finish(ctx, live, job, errors.Join(runErr, fmt.Errorf("copying clone back: %w", err)))
	}
	return runErr
}

// snapshot clones the live file into the scratch directory and opens it.
// cleanup closes the clone and removes its files.
func (w *Worker) snapshot(ctx context.Context, live *sqlite.Store, job *Job) (*sqlite.Store, func(), error) {
	path := filepath.Join(job.ScratchDir, fmt.Sprintf("task-%d-%s.db", job.TaskID, uuid.NewString()))
	if err := live.Snapshot(ctx, path); err != nil {
		return nil, nil, err
	}
	clone, err := sqlite.Open(path, sqlite.WithIntrospector(w.introspect))
	if err != nil {
		removeDBFiles(path)
		return nil, nil, fmt.Errorf("opening clone: %w", err)
	}
	return clone, func() {
		_ = clone.Close()
		removeDBFiles(path)
	}, nil
}

func removeDBFiles(path string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
}

// finish records the outcome of a job on st and passes runErr through.
func finish(ctx context.Context, st core.TaskStore, job *Job, runErr error) error {
	if runErr == nil {
		if err := st.CompleteTask(ctx, job.TaskID); err != nil {
			return fmt.Errorf("completing task %d: %w", job.TaskID, err)
		}
		return nil
	}
	if err := st.FailTask(ctx, job.TaskID, runErr.Error()); err != nil {
		return errors.Join(runErr, fmt.Errorf("failing task %d: %w", job.TaskID, err))
	}
	return runErr
}

// importItems stores each item as its own prompt. Items commit one by one;
// the first failure stops the loop and keeps what was already stored.
func (w *Worker) importItems(ctx context.Context, st *sqlite.Store, job *Job) error {
	declared := make(map[string]bool, len(job.Keys))
	for _, k := range job.Keys {
		if k != job.CompletionKey {
			declared[k] = true
		}
	}

	for i, item := range job.Items {
		values := make(map[string]string, len(item))
		var completions []string
		for key, value := range item {
			switch {
			case key == job.CompletionKey:
				completions = append(completions, value)
			case declared[key]:
				values[key] = value
			}
		}
		if _, err := st.ImportItem(ctx, job.ProjectID, job.StyleID, values, completions, job.Tags); err != nil {
			return core.ErrExecution(core.CodeWorkerFailed, fmt.Sprintf("importing item %d", i)).WithCause(err)
		}
	}
	return nil
}

// RunJobFile is the worker process entry point: it consumes the job file,
// logs to the job's log file and runs the job.
func RunJobFile(ctx context.Context, path string) error {
	job, err := ReadJob(path)
	if err != nil {
		return err
	}
	logger, closer, err := logging.NewFile(job.LogPath(), job.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()
	return NewWorker(logger).Run(ctx, job)
}
