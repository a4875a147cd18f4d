package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hugo-lorenzo-mato/promptbank/internal/adapters/sqlite"
	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/template"
)

// NewStore opens a fresh record store in a temporary directory. It is closed
// when the test ends.
func NewStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "promptbank.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Fixture identifies seeded rows.
type Fixture struct {
	ProjectID int64
	StyleID   int64
}

// SeedStyle creates a project and a style "qa" from tmpl. The style's keys
// are the template's placeholders.
func SeedStyle(t *testing.T, store *sqlite.Store, tmpl, completionKey, previewKey string) Fixture {
	t.Helper()
	ctx := context.Background()

	keys, err := template.NamedArguments(tmpl)
	if err != nil {
		t.Fatalf("parsing template: %v", err)
	}
	projectID, err := store.AddProject(ctx, "geo", "")
	if err != nil {
		t.Fatalf("adding project: %v", err)
	}
	styleID, err := store.AddStyle(ctx, core.Style{
		IDText:        "qa",
		Template:      tmpl,
		CompletionKey: completionKey,
		PreviewKey:    previewKey,
		ProjectID:     projectID,
	}, keys)
	if err != nil {
		t.Fatalf("adding style: %v", err)
	}
	return Fixture{ProjectID: projectID, StyleID: styleID}
}

// StartTask records an in-progress task, with pid when non-zero.
func StartTask(t *testing.T, store core.TaskStore, taskType core.TaskType, pid int) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := store.CreateTask(ctx, taskType)
	if err != nil {
		t.Fatalf("creating task: %v", err)
	}
	if pid != 0 {
		if err := store.SetTaskPID(ctx, id, pid); err != nil {
			t.Fatalf("setting task pid: %v", err)
		}
	}
	return id
}
