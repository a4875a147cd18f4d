package bulk

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/promptbank/internal/adapters/sqlite"
	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/fsutil"
)

// ExportSource provides the rows an export is built from.
type ExportSource interface {
	ExportCandidates(ctx context.Context, f core.SearchFilter) ([]core.ExportCandidate, error)
	ListExamplesByPrompt(ctx context.Context, promptID int64, withTags bool) ([]core.Example, error)
	ListPromptValues(ctx context.Context, promptID int64) ([]core.PromptValue, error)
}

// export writes the export file from src and records it on sink. The file
// only appears under its final name once complete.
func (w *Worker) export(ctx context.Context, src, sink *sqlite.Store, job *Job) error {
	if err := os.MkdirAll(job.ExportsDir, 0o750); err != nil {
		return fmt.Errorf("creating exports directory: %w", err)
	}
	target := filepath.Join(job.ExportsDir, job.Filename)

	pf, err := fsutil.NewPendingFile(target, 0o644)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	n, err := WriteExport(ctx, pf, src, job.Filter, w.introspect)
	if err != nil {
		return err
	}
	if err := pf.Commit(); err != nil {
		return fmt.Errorf("publishing %s: %w", target, err)
	}
	if _, err := sink.AddExport(ctx, job.Filename); err != nil {
		return err
	}

	w.logger.WithTask(job.TaskID).Info("export written", "file", target, "records", n)
	return nil
}

// WriteExport streams a JSON array with one flat record per example of each
// matching prompt and returns the number of records. The filter only selects
// prompts; every example of a selected prompt is written. Record keys
// follow the template's placeholder order; placeholders with no stored
// value are empty strings and the completion key holds the example text.
func WriteExport(ctx context.Context, out io.Writer, src ExportSource, f core.SearchFilter, introspect core.TemplateIntrospector) (int, error) {
	candidates, err := src.ExportCandidates(ctx, f)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(out)
	if _, err := bw.WriteString("[\n"); err != nil {
		return 0, err
	}

	count := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		placeholders, err := introspect(c.Template)
		if err != nil {
			return count, core.ErrState(core.CodeInvalidTemplate,
				fmt.Sprintf("template of style %d is malformed", c.Prompt.StyleID)).WithCause(err)
		}
		values, err := src.ListPromptValues(ctx, c.Prompt.ID)
		if err != nil {
			return count, err
		}
		examples, err := src.ListExamplesByPrompt(ctx, c.Prompt.ID, false)
		if err != nil {
			return count, err
		}

		stored := make(map[string]string, len(values))
		for _, v := range values {
			stored[v.Key] = v.Value
		}

		for _, ex := range examples {
			rec := core.NewRow(len(placeholders) + 1)
			for _, name := range placeholders {
				rec.Set(name, stored[name])
			}
			rec.Set(c.CompletionKey, ex.Completion)

			data, err := json.MarshalIndent(rec, "", "    ")
			if err != nil {
				return count, fmt.Errorf("encoding record for prompt %d: %w", c.Prompt.ID, err)
			}
			if count > 0 {
				if _, err := bw.WriteString(",\n"); err != nil {
					return count, err
				}
			}
			if _, err := bw.Write(data); err != nil {
				return count, err
			}
			count++
		}
	}

	if _, err := bw.WriteString("\n]\n"); err != nil {
		return count, err
	}
	if err := bw.Flush(); err != nil {
		return count, fmt.Errorf("flushing export: %w", err)
	}
	return count, nil
}
