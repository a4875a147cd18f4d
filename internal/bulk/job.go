// Package bulk runs long imports and exports in a detached worker process.
// The caller gets a task id back immediately and follows progress through
// the tasks table.
package bulk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/promptbank/internal/config"
	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/fsutil"
)

// Kind names the work a job carries.
type Kind string

const (
	KindImport Kind = "import"
	KindExport Kind = "export"
)

// Job is everything a worker needs, written to disk by the runner and
// consumed once by the worker.
type Job struct {
	Kind       Kind   `json:"kind"`
	TaskID     int64  `json:"task_id"`
	DBPath     string `json:"db_path"`
	ExportsDir string `json:"exports_dir,omitempty"`
	ScratchDir string `json:"scratch_dir"`
	LogDir     string `json:"log_dir"`
	LogLevel   string `json:"log_level,omitempty"`
	Mode       string `json:"mode"`

	Items         []map[string]string `json:"items,omitempty"`
	Tags          []string            `json:"tags,omitempty"`
	ProjectID     int64               `json:"project_id,omitempty"`
	StyleID       int64               `json:"style_id,omitempty"`
	Keys          []string            `json:"keys,omitempty"`
	CompletionKey string              `json:"completion_key,omitempty"`

	Filter   core.SearchFilter `json:"filter"`
	Filename string            `json:"filename,omitempty"`
}

// Validate checks that the job can be executed.
func (j *Job) Validate() error {
	invalid := func(msg string) error {
		return core.ErrValidation(core.CodeInvalidJob, msg)
	}
	if j.TaskID <= 0 {
		return invalid("task id required")
	}
	if j.DBPath == "" {
		return invalid("database path required")
	}
	if j.ScratchDir == "" {
		return invalid("scratch directory required")
	}
	if j.Mode != config.BulkModeDirect && j.Mode != config.BulkModeClone {
		return invalid(fmt.Sprintf("unknown mode %q", j.Mode))
	}
	switch j.Kind {
	case KindImport:
		if j.StyleID <= 0 || j.CompletionKey == "" {
			return invalid("import needs a style and its completion key")
		}
	case KindExport:
		if j.ExportsDir == "" {
			return invalid("exports directory required")
		}
		if err := ValidateFilename(j.Filename); err != nil {
			return err
		}
	default:
		return invalid(fmt.Sprintf("unknown kind %q", j.Kind))
	}
	return nil
}

// LogPath is where the worker for this job writes its log.
func (j *Job) LogPath() string {
	return filepath.Join(j.LogDir, fmt.Sprintf("task-%d.log", j.TaskID))
}

// WriteJob stores job as a uniquely named file in dir and returns its path.
func WriteJob(dir string, job *Job) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating job directory: %w", err)
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encoding job: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+".json")
	if err := fsutil.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing job file: %w", err)
	}
	return path, nil
}

// ReadJob loads and removes a job file.
func ReadJob(path string) (*Job, error) {
	data, err := fsutil.ConsumeFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job file: %w", err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidJob, "job file is not valid JSON").WithCause(err)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// ValidateFilename accepts plain file names only, so exports cannot escape
// the exports directory.
func ValidateFilename(name string) error {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return core.ErrValidation(core.CodeInvalidFilename,
			fmt.Sprintf("export filename must be a plain file name, got %q", name))
	}
	return nil
}
