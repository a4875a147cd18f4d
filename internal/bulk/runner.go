package bulk

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/promptbank/internal/config"
	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/logging"
)

// Store is the part of the record store the runner needs.
type Store interface {
	core.TaskStore
	GetStyle(ctx context.Context, id int64) (*core.Style, error)
	ListStyleKeys(ctx context.Context, styleID int64) ([]core.StyleKey, error)
	Path() string
}

// Spawner starts a worker for a job file and returns its process id.
// The worker must outlive the call.
type Spawner interface {
	Spawn(ctx context.Context, jobPath string) (int, error)
}

// Settings locate the files shared between runner and worker.
type Settings struct {
	InstanceDir     string
	ExportsDir      string
	DefaultFilename string
	Mode            string
	LogLevel        string
}

// SettingsFromConfig derives runner settings from the loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		InstanceDir:     cfg.Instance.Dir,
		ExportsDir:      cfg.Exports.Dir,
		DefaultFilename: cfg.Exports.DefaultFilename,
		Mode:            cfg.Bulk.Mode,
		LogLevel:        cfg.Log.Level,
	}
}

// ImportRequest describes a bulk import.
type ImportRequest struct {
	Items     []map[string]string
	Tags      []string
	ProjectID int64
	StyleID   int64
}

// ExportRequest describes an export. Limit and Offset of Filter are
// ignored.
type ExportRequest struct {
	Filename string
	Filter   core.SearchFilter
}

// Runner records a task for each bulk operation and hands it to a detached
// worker.
type Runner struct {
	store    Store
	spawner  Spawner
	settings Settings
	logger   *logging.Logger
}

// NewRunner creates a runner.
func NewRunner(store Store, spawner Spawner, settings Settings, logger *logging.Logger) *Runner {
	if settings.Mode == "" {
		settings.Mode = config.BulkModeDirect
	}
	if settings.DefaultFilename == "" {
		settings.DefaultFilename = "export.json"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{store: store, spawner: spawner, settings: settings, logger: logger}
}

// Import validates the target style, records a bulk_upload task and starts
// the worker. It returns as soon as the worker is running.
func (r *Runner) Import(ctx context.Context, req ImportRequest) (core.JobStatus, error) {
	style, err := r.store.GetStyle(ctx, req.StyleID)
	if err != nil {
		return core.JobStatus{}, fmt.Errorf("loading style: %w", err)
	}
	if style == nil {
		return core.JobStatus{}, core.ErrValidation(core.CodeUnknownStyle,
			fmt.Sprintf("style %d does not exist", req.StyleID))
	}
	projectID := req.ProjectID
	if projectID == 0 {
		projectID = style.ProjectID
	}
	if projectID != style.ProjectID {
		return core.JobStatus{}, core.ErrValidation(core.CodeStyleMismatch,
			fmt.Sprintf("style %d belongs to project %d, not %d", style.ID, style.ProjectID, projectID))
	}

	keys, err := r.store.ListStyleKeys(ctx, style.ID)
	if err != nil {
		return core.JobStatus{}, fmt.Errorf("loading style keys: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.Name)
	}

	job := r.newJob(KindImport)
	job.Items = req.Items
	job.Tags = req.Tags
	job.ProjectID = projectID
	job.StyleID = style.ID
	job.Keys = names
	job.CompletionKey = style.CompletionKey

	r.logger.WithProject(projectID).WithStyle(style.ID).Info("starting bulk import", "items", len(req.Items))
	return r.launch(ctx, core.TaskTypeBulkUpload, job)
}

// Export records an export task and starts the worker. An empty filename
// uses the configured default.
func (r *Runner) Export(ctx context.Context, req ExportRequest) (core.JobStatus, error) {
	filename := req.Filename
	if filename == "" {
		filename = r.settings.DefaultFilename
	}
	if err := ValidateFilename(filename); err != nil {
		return core.JobStatus{}, err
	}

	job := r.newJob(KindExport)
	job.Filename = filename
	job.Filter = req.Filter
	job.Filter.Limit = 0
	job.Filter.Offset = 0

	r.logger.Info("starting export", "filename", filename)
	return r.launch(ctx, core.TaskTypeExport, job)
}

func (r *Runner) newJob(kind Kind) *Job {
	return &Job{
		Kind:       kind,
		DBPath:     absPath(r.store.Path()),
		ExportsDir: absPath(r.settings.ExportsDir),
		ScratchDir: absPath(filepath.Join(r.settings.InstanceDir, "scratch")),
		LogDir:     absPath(filepath.Join(r.settings.InstanceDir, "logs")),
		LogLevel:   r.settings.LogLevel,
		Mode:       r.settings.Mode,
	}
}

func (r *Runner) launch(ctx context.Context, taskType core.TaskType, job *Job) (core.JobStatus, error) {
	taskID, err := r.store.CreateTask(ctx, taskType)
	if err != nil {
		return core.JobStatus{}, fmt.Errorf("creating task: %w", err)
	}
	job.TaskID = taskID
	logger := r.logger.WithTask(taskID)

	fail := func(cause error) (core.JobStatus, error) {
		if err := r.store.FailTask(ctx, taskID, cause.Error()); err != nil {
			logger.Error("recording spawn failure", "error", err)
		}
		return core.JobStatus{}, core.ErrExecution(core.CodeWorkerSpawnFailed, "could not start worker").
			WithCause(cause).
			WithDetail("task_id", taskID)
	}

	jobPath, err := WriteJob(filepath.Join(r.settings.InstanceDir, "jobs"), job)
	if err != nil {
		return fail(err)
	}
	pid, err := r.spawner.Spawn(ctx, jobPath)
	if err != nil {
		return fail(err)
	}
	if err := r.store.SetTaskPID(ctx, taskID, pid); err != nil {
		return core.JobStatus{}, fmt.Errorf("recording worker pid: %w", err)
	}

	logger.Info("worker spawned", "pid", pid, "mode", job.Mode, "log", job.LogPath())
	return core.JobStatus{
		TaskID:          taskID,
		PID:             pid,
		Status:          core.TaskStatusInProgress,
		WarnParallelism: true,
	}, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
