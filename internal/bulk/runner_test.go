package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/promptbank/internal/adapters/sqlite"
	"github.com/hugo-lorenzo-mato/promptbank/internal/config"
	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/logging"
)

// inProcessSpawner runs the worker synchronously inside the test process.
type inProcessSpawner struct {
	runErr error
	jobs   []*Job
}

func (s *inProcessSpawner) Spawn(ctx context.Context, jobPath string) (int, error) {
	job, err := ReadJob(jobPath)
	if err != nil {
		return 0, err
	}
	s.jobs = append(s.jobs, job)
	s.runErr = NewWorker(logging.NewNop()).Run(ctx, job)
	return os.Getpid(), nil
}

type failingSpawner struct{}

func (failingSpawner) Spawn(context.Context, string) (int, error) {
	return 0, errors.New("exec format error")
}

type env struct {
	store     *sqlite.Store
	dir       string
	projectID int64
	styleID   int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := sqlite.Open(filepath.Join(dir, "promptbank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	projectID, err := store.AddProject(ctx, "geo", "")
	require.NoError(t, err)
	styleID, err := store.AddStyle(ctx, core.Style{
		IDText:        "qa",
		Template:      "{context}\nQ: {question}\nA: {answer}",
		CompletionKey: "answer",
		PreviewKey:    "question",
		ProjectID:     projectID,
	}, []string{"context", "question", "answer"})
	require.NoError(t, err)

	return &env{store: store, dir: dir, projectID: projectID, styleID: styleID}
}

func (e *env) runner(spawner Spawner, mode string) *Runner {
	return NewRunner(e.store, spawner, Settings{
		InstanceDir: filepath.Join(e.dir, "instance"),
		ExportsDir:  filepath.Join(e.dir, "exports"),
		Mode:        mode,
	}, logging.NewNop())
}

func TestRunnerImport_Direct(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	spawner := &inProcessSpawner{}

	status, err := e.runner(spawner, config.BulkModeDirect).Import(ctx, ImportRequest{
		Items: []map[string]string{
			{"question": "capital of France?", "answer": "Paris", "source": "atlas"},
			{"question": "capital of Spain?", "answer": "Madrid", "context": "europe"},
			{"question": "no answer yet"},
		},
		Tags:    []string{"geo", "bulk"},
		StyleID: e.styleID,
	})
	require.NoError(t, err)
	require.NoError(t, spawner.runErr)

	assert.Equal(t, core.TaskStatusInProgress, status.Status)
	assert.True(t, status.WarnParallelism)
	assert.Equal(t, os.Getpid(), status.PID)
	assert.Equal(t, e.projectID, spawner.jobs[0].ProjectID, "project defaults to the style's project")

	task, err := e.store.GetTask(ctx, status.TaskID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusCompleted, task.Status)
	assert.Equal(t, core.TaskTypeBulkUpload, task.Type)

	page, err := e.store.SearchPrompts(ctx, core.SearchFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	assert.ElementsMatch(t, []string{"geo", "bulk"}, page.Results[0].Tags)

	first := page.Results[0].Prompt.ID
	values, err := e.store.ListPromptValues(ctx, first)
	require.NoError(t, err)
	require.Len(t, values, 1, "undeclared keys and the completion key are not stored as values")
	assert.Equal(t, "question", values[0].Key)

	examples, err := e.store.ListExamplesByPrompt(ctx, first, false)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "Paris", examples[0].Completion)

	examples, err = e.store.ListExamplesByPrompt(ctx, page.Results[2].Prompt.ID, false)
	require.NoError(t, err)
	assert.Empty(t, examples)
}

func TestRunnerImport_Clone(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	spawner := &inProcessSpawner{}

	status, err := e.runner(spawner, config.BulkModeClone).Import(ctx, ImportRequest{
		Items:     []map[string]string{{"question": "q", "answer": "a"}},
		ProjectID: e.projectID,
		StyleID:   e.styleID,
	})
	require.NoError(t, err)
	require.NoError(t, spawner.runErr)

	task, err := e.store.GetTask(ctx, status.TaskID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusCompleted, task.Status, "status written to the clone must be copied back")

	page, err := e.store.SearchPrompts(ctx, core.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	entries, err := os.ReadDir(filepath.Join(e.dir, "instance", "scratch"))
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch clone must be removed")
}

func TestRunnerImport_UnknownStyle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	spawner := &inProcessSpawner{}

	_, err := e.runner(spawner, config.BulkModeDirect).Import(ctx, ImportRequest{StyleID: e.styleID + 100})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
	assert.Empty(t, spawner.jobs)

	tasks, err := e.store.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks, "no task is created for an unknown style")
}

func TestRunnerImport_ProjectMismatch(t *testing.T) {
	e := newEnv(t)
	_, err := e.runner(&inProcessSpawner{}, config.BulkModeDirect).Import(context.Background(), ImportRequest{
		ProjectID: e.projectID + 1,
		StyleID:   e.styleID,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrValidation(core.CodeStyleMismatch, "")))
}

func TestRunner_SpawnFailureFailsTask(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.runner(failingSpawner{}, config.BulkModeDirect).Import(ctx, ImportRequest{StyleID: e.styleID})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatExecution))

	failed, err := e.store.ListTasksByStatus(ctx, core.TaskStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "exec format error")
}

func TestRunnerExport_Direct(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	paris, err := e.store.AddPrompt(ctx, e.projectID, e.styleID, map[string]string{"question": "capital of France?"}, []string{"eu"})
	require.NoError(t, err)
	_, err = e.store.AddExample(ctx, paris, "Paris", nil)
	require.NoError(t, err)
	_, err = e.store.AddExample(ctx, paris, "Lutetia", nil)
	require.NoError(t, err)
	lonely, err := e.store.AddPrompt(ctx, e.projectID, e.styleID, map[string]string{"question": "unanswered"}, nil)
	require.NoError(t, err)
	require.NotZero(t, lonely)

	spawner := &inProcessSpawner{}
	status, err := e.runner(spawner, config.BulkModeDirect).Export(ctx, ExportRequest{
		Filter: core.SearchFilter{Limit: 1, Offset: 5},
	})
	require.NoError(t, err)
	require.NoError(t, spawner.runErr)
	assert.True(t, status.WarnParallelism)
	assert.Equal(t, "export.json", spawner.jobs[0].Filename)
	assert.Zero(t, spawner.jobs[0].Filter.Limit, "pagination is dropped for exports")

	data, err := os.ReadFile(filepath.Join(e.dir, "exports", "export.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"context": "", "question": "capital of France?", "answer": "Paris"},
		{"context": "", "question": "capital of France?", "answer": "Lutetia"}
	]`, string(data))

	exports, err := e.store.ListExports(ctx)
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, "export.json", exports[0].Filename)

	task, err := e.store.GetTask(ctx, status.TaskID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusCompleted, task.Status)
	assert.Equal(t, core.TaskTypeExport, task.Type)
}

func TestRunnerExport_ExampleFilterKeepsAllExamples(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	sum, err := e.store.AddPrompt(ctx, e.projectID, e.styleID, map[string]string{"question": "2+2?"}, nil)
	require.NoError(t, err)
	_, err = e.store.AddExample(ctx, sum, "four", nil)
	require.NoError(t, err)
	_, err = e.store.AddExample(ctx, sum, "4", nil)
	require.NoError(t, err)
	other, err := e.store.AddPrompt(ctx, e.projectID, e.styleID, map[string]string{"question": "3+3?"}, nil)
	require.NoError(t, err)
	_, err = e.store.AddExample(ctx, other, "6", nil)
	require.NoError(t, err)

	spawner := &inProcessSpawner{}
	_, err = e.runner(spawner, config.BulkModeDirect).Export(ctx, ExportRequest{
		Filename: "sums.json",
		Filter:   core.SearchFilter{Example: "four"},
	})
	require.NoError(t, err)
	require.NoError(t, spawner.runErr)

	data, err := os.ReadFile(filepath.Join(e.dir, "exports", "sums.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"context": "", "question": "2+2?", "answer": "four"},
		{"context": "", "question": "2+2?", "answer": "4"}
	]`, string(data))
}

func TestRunnerExport_RejectsPathFilename(t *testing.T) {
	e := newEnv(t)
	_, err := e.runner(&inProcessSpawner{}, config.BulkModeDirect).Export(context.Background(), ExportRequest{Filename: "../out.json"})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestRunnerExport_CloneModeRecordsExport(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	promptID, err := e.store.AddPrompt(ctx, e.projectID, e.styleID, map[string]string{"question": "q"}, nil)
	require.NoError(t, err)
	_, err = e.store.AddExample(ctx, promptID, "a", nil)
	require.NoError(t, err)

	spawner := &inProcessSpawner{}
	status, err := e.runner(spawner, config.BulkModeClone).Export(ctx, ExportRequest{Filename: "clone.json"})
	require.NoError(t, err)
	require.NoError(t, spawner.runErr)

	task, err := e.store.GetTask(ctx, status.TaskID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusCompleted, task.Status)

	exports, err := e.store.ListExports(ctx)
	require.NoError(t, err)
	require.Len(t, exports, 1)

	var records []map[string]string
	data, err := os.ReadFile(filepath.Join(e.dir, "exports", "clone.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &records))
	assert.Len(t, records, 1)
}

func TestWorker_FailureIsKeyedByTask(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	taskID, err := e.store.CreateTask(ctx, core.TaskTypeExport)
	require.NoError(t, err)

	// A directory where the export file should go makes the commit fail.
	exportsDir := filepath.Join(e.dir, "exports")
	require.NoError(t, os.MkdirAll(filepath.Join(exportsDir, "taken.json", "child"), 0o750))
	promptID, err := e.store.AddPrompt(ctx, e.projectID, e.styleID, map[string]string{"question": "q"}, nil)
	require.NoError(t, err)
	_, err = e.store.AddExample(ctx, promptID, "a", nil)
	require.NoError(t, err)

	job := &Job{
		Kind:       KindExport,
		TaskID:     taskID,
		DBPath:     e.store.Path(),
		ExportsDir: exportsDir,
		ScratchDir: filepath.Join(e.dir, "scratch"),
		LogDir:     filepath.Join(e.dir, "logs"),
		Mode:       config.BulkModeDirect,
		Filename:   "taken.json",
	}
	require.NoError(t, job.Validate())

	err = NewWorker(logging.NewNop()).Run(ctx, job)
	require.Error(t, err)

	task, err := e.store.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusFailed, task.Status)
	assert.NotEmpty(t, task.Error)

	exports, err := e.store.ListExports(ctx)
	require.NoError(t, err)
	assert.Empty(t, exports)
}

func TestRunJobFile_WritesTaskLog(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	taskID, err := e.store.CreateTask(ctx, core.TaskTypeBulkUpload)
	require.NoError(t, err)
	job := &Job{
		Kind:          KindImport,
		TaskID:        taskID,
		DBPath:        e.store.Path(),
		ScratchDir:    filepath.Join(e.dir, "scratch"),
		LogDir:        filepath.Join(e.dir, "logs"),
		Mode:          config.BulkModeDirect,
		Items:         []map[string]string{{"question": "q", "answer": "a"}},
		ProjectID:     e.projectID,
		StyleID:       e.styleID,
		Keys:          []string{"context", "question", "answer"},
		CompletionKey: "answer",
	}
	path, err := WriteJob(filepath.Join(e.dir, "jobs"), job)
	require.NoError(t, err)

	require.NoError(t, RunJobFile(ctx, path))

	logData, err := os.ReadFile(job.LogPath())
	require.NoError(t, err)
	assert.Contains(t, string(logData), "worker finished")

	task, err := e.store.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusCompleted, task.Status)
}
