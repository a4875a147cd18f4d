package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/promptbank/internal/bulk"
	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/testutil"
)

// syncSpawner runs the worker entry point in the test process before
// returning, so the task is terminal by the time the command prints.
type syncSpawner struct {
	err error
}

func (s *syncSpawner) Spawn(ctx context.Context, jobPath string) (int, error) {
	s.err = bulk.RunJobFile(ctx, jobPath)
	return os.Getpid(), nil
}

// idleSpawner pretends to start a worker that never reports back.
type idleSpawner struct{}

func (idleSpawner) Spawn(context.Context, string) (int, error) {
	return os.Getpid(), nil
}

type harness struct {
	dir     string
	cfg     string
	spawner bulk.Spawner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	content := "log:\n  level: error\n  format: text\n" +
		"database:\n  path: \"" + filepath.ToSlash(filepath.Join(dir, "db", "promptbank.db")) + "\"\n" +
		"instance:\n  dir: \"" + filepath.ToSlash(filepath.Join(dir, "instance")) + "\"\n" +
		"exports:\n  dir: \"" + filepath.ToSlash(filepath.Join(dir, "exports")) + "\"\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o600))
	return &harness{dir: dir, cfg: cfg}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(&rootOptions{v: viper.New(), spawner: h.spawner})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", h.cfg}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, "promptbank %v", args)
	return out
}

// seed creates project 1 with style 1 "qa" (completion answer, preview
// question).
func (h *harness) seed(t *testing.T) {
	t.Helper()
	assert.Equal(t, "Created project 1\n", h.mustRun(t, "project", "add", "geo", "-d", "geography"))
	assert.Equal(t, "Created style 1\n", h.mustRun(t, "style", "add", "qa", "--project", "1",
		"--template", "Q: {question}\nA: {answer}",
		"--completion-key", "answer", "--preview-key", "question"))
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3", "abc", "today")
	h := newHarness(t)

	out := h.mustRun(t, "version")
	assert.Contains(t, out, "promptbank 1.2.3")
	assert.Contains(t, out, "commit: abc")
	assert.Equal(t, "1.2.3", GetVersion())
}

func TestPromptLifecycle(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	assert.Equal(t, "Created prompt 1\n", h.mustRun(t, "prompt", "add", "--style", "qa",
		"--value", "question=Capital of France?", "--tag", "geo", "--tag", "europe"))
	assert.Equal(t, "Created example 1\n", h.mustRun(t, "example", "add", "1", "--completion", "Paris"))

	var view struct {
		ID       int64             `json:"id"`
		Values   map[string]string `json:"values"`
		Tags     []string          `json:"tags"`
		Examples []core.Example    `json:"examples"`
	}
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "prompt", "show", "1")), &view))
	assert.Equal(t, int64(1), view.ID)
	assert.Equal(t, map[string]string{"question": "Capital of France?"}, view.Values)
	assert.ElementsMatch(t, []string{"geo", "europe"}, view.Tags)
	require.Len(t, view.Examples, 1)
	assert.Equal(t, "Paris", view.Examples[0].Completion)

	var page core.SearchPage
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "search", "--content", "france", "--json")), &page))
	assert.Equal(t, 1, page.Total)

	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "search", "--content", "berlin", "--json")), &page))
	assert.Equal(t, 0, page.Total)

	h.mustRun(t, "prompt", "update", "1", "--clear-tags")
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "prompt", "show", "1")), &view))
	assert.Empty(t, view.Tags)

	h.mustRun(t, "prompt", "delete", "1")
	_, err := h.run(t, "prompt", "show", "1")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestStyleAdd_CompletionKeyMustBePlaceholder(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "project", "add", "geo")

	_, err := h.run(t, "style", "add", "qa", "--project", "1",
		"--template", "Q: {question}", "--completion-key", "answer", "--preview-key", "question")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestStyleAdd_UnknownProject(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "style", "add", "qa", "--project", "7",
		"--template", "{q} {a}", "--completion-key", "a", "--preview-key", "q")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestPromptAdd_RejectsUndeclaredKey(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	_, err := h.run(t, "prompt", "add", "--style", "qa", "--value", "topic=geo")
	require.Error(t, err)
	var domErr *core.DomainError
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, core.CodeUnknownKey, domErr.Code)
}

func TestResolveStyle(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)

	projectID, err := store.AddProject(ctx, "p", "")
	require.NoError(t, err)
	for _, name := range []string{"question-answer", "summary"} {
		_, err := store.AddStyle(ctx, core.Style{IDText: name, Template: "{a}", CompletionKey: "a", PreviewKey: "a", ProjectID: projectID}, []string{"a"})
		require.NoError(t, err)
	}

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "summary", want: "summary"},
		{ref: "1", want: "question-answer"},
		{ref: "qans", want: "question-answer"},
		{ref: "s", wantErr: true},
		{ref: "zzz", wantErr: true},
		{ref: "99", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			style, err := resolveStyle(ctx, store, tt.ref, 0)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, style.IDText)
		})
	}
}

func TestImportAndExport(t *testing.T) {
	h := newHarness(t)
	spawner := &syncSpawner{}
	h.spawner = spawner
	h.seed(t)

	items := filepath.Join(h.dir, "items.json")
	require.NoError(t, os.WriteFile(items, []byte(`[
		{"question": "Capital of France?", "answer": "Paris"},
		{"question": "Capital of Spain?", "answer": "Madrid"}
	]`), 0o600))

	out := h.mustRun(t, "import", items, "--style", "qa", "--tag", "bulk")
	require.NoError(t, spawner.err)
	assert.Contains(t, out, "Started task 1")
	assert.Contains(t, h.mustRun(t, "tasks", "list"), "completed")

	var page core.SearchPage
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "search", "--tag", "bulk", "--json")), &page))
	assert.Equal(t, 2, page.Total)

	// The example filter picks the prompt; all of its examples are exported.
	h.mustRun(t, "example", "add", "1", "--completion", "Lutetia")
	out = h.mustRun(t, "export", "geo.json", "--example", "Paris")
	require.NoError(t, spawner.err)
	assert.Contains(t, out, "Started task 2")

	data, err := os.ReadFile(filepath.Join(h.dir, "exports", "geo.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"question": "Capital of France?", "answer": "Paris"},
		{"question": "Capital of France?", "answer": "Lutetia"}
	]`, string(data))
	assert.Contains(t, h.mustRun(t, "exports", "list"), "geo.json")

	shown := h.mustRun(t, "exports", "show", "1")
	shown = testutil.ScrubTimestamps(testutil.ScrubPaths(shown, h.dir))
	testutil.NewGolden(t, "testdata").AssertString("exports_show", testutil.Normalize(shown))
}

func TestExport_RejectsPathFilename(t *testing.T) {
	h := newHarness(t)
	h.spawner = &syncSpawner{}

	_, err := h.run(t, "export", "../escape.json")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestTasksCheck_FailsTaskOfAnotherParent(t *testing.T) {
	h := newHarness(t)
	h.spawner = idleSpawner{}
	h.seed(t)

	items := filepath.Join(h.dir, "items.yaml")
	require.NoError(t, os.WriteFile(items, []byte("- question: q\n  answer: a\n"), 0o600))
	h.mustRun(t, "import", items, "--style", "qa")

	// The recorded pid is this test process, whose parent is not itself.
	out := h.mustRun(t, "tasks", "check")
	assert.Contains(t, out, "failed: [1]")
	assert.Contains(t, h.mustRun(t, "tasks", "list"), "not a child")
}

func TestInitDB_RequiresForceOnData(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "project", "add", "geo")

	_, err := h.run(t, "init-db")
	require.Error(t, err)

	h.mustRun(t, "init-db", "--force")
	assert.Equal(t, "No projects.\n", h.mustRun(t, "project", "list"))
}

func TestConfigInit(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "new", "config.yaml")

	h.mustRun(t, "config", "init", path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mode: direct")

	_, err = h.run(t, "config", "init", path)
	assert.Error(t, err)
}

func TestParseValues(t *testing.T) {
	values, err := parseValues([]string{"question=a=b", " answer =x", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"question": "a=b", "answer": "x", "empty": ""}, values)

	_, err = parseValues([]string{"novalue"})
	assert.Error(t, err)
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n b\tc", 10))
	assert.Equal(t, "abcd…", oneLine("abcdefgh", 5))
}
