package bulk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/promptbank/internal/config"
	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

func validImportJob() *Job {
	return &Job{
		Kind:          KindImport,
		TaskID:        3,
		DBPath:        "/data/promptbank.db",
		ScratchDir:    "/data/scratch",
		LogDir:        "/data/logs",
		Mode:          config.BulkModeDirect,
		Items:         []map[string]string{{"question": "q", "answer": "a"}},
		Tags:          []string{"t"},
		ProjectID:     1,
		StyleID:       2,
		Keys:          []string{"question", "answer"},
		CompletionKey: "answer",
	}
}

func TestWriteJobReadJob_ConsumesFile(t *testing.T) {
	dir := t.TempDir()
	job := validImportJob()

	path, err := WriteJob(filepath.Join(dir, "jobs"), job)
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(path))

	got, err := ReadJob(path)
	require.NoError(t, err)
	assert.Equal(t, job, got)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "job file must be removed after reading")
}

func TestWriteJob_UniqueNames(t *testing.T) {
	dir := t.TempDir()
	a, err := WriteJob(dir, validImportJob())
	require.NoError(t, err)
	b, err := WriteJob(dir, validImportJob())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestReadJob_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := ReadJob(path)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Job)
	}{
		{"no task", func(j *Job) { j.TaskID = 0 }},
		{"no db", func(j *Job) { j.DBPath = "" }},
		{"no scratch", func(j *Job) { j.ScratchDir = "" }},
		{"bad mode", func(j *Job) { j.Mode = "merge" }},
		{"bad kind", func(j *Job) { j.Kind = "delete" }},
		{"import without completion key", func(j *Job) { j.CompletionKey = "" }},
		{"export without dir", func(j *Job) { j.Kind = KindExport; j.Filename = "x.json" }},
		{"export with path", func(j *Job) { j.Kind = KindExport; j.ExportsDir = "/e"; j.Filename = "../x.json" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := validImportJob()
			tt.mutate(job)
			assert.Error(t, job.Validate())
		})
	}

	assert.NoError(t, validImportJob().Validate())
}

func TestValidateFilename(t *testing.T) {
	for _, ok := range []string{"export.json", "data-2024.json", ".hidden"} {
		assert.NoError(t, ValidateFilename(ok), ok)
	}
	for _, bad := range []string{"", ".", "..", "a/b.json", "../escape.json", "/abs.json"} {
		err := ValidateFilename(bad)
		require.Error(t, err, bad)
		assert.True(t, core.IsCategory(err, core.ErrCatValidation))
	}
}

func TestJobLogPath(t *testing.T) {
	job := validImportJob()
	assert.Equal(t, filepath.Join("/data/logs", "task-3.log"), job.LogPath())
}
