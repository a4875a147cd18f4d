package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/promptbank/internal/adapters/sqlite"
	"github.com/hugo-lorenzo-mato/promptbank/internal/bulk"
	"github.com/hugo-lorenzo-mato/promptbank/internal/config"
	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/logging"
	"github.com/hugo-lorenzo-mato/promptbank/internal/monitor"
	"github.com/hugo-lorenzo-mato/promptbank/internal/template"
)

// app holds the dependencies a command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	store   *sqlite.Store
	spawner bulk.Spawner
}

func (a *app) Close() error {
	return a.store.Close()
}

// loadConfig loads and validates configuration using the root's viper so
// flag bindings win over files and environment.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	loader := config.NewLoaderWithViper(o.v)
	if o.cfgFile != "" {
		loader.WithConfigFile(o.cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// open loads configuration and opens the record store.
func (o *rootOptions) open(cmd *cobra.Command) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})

	store, err := sqlite.Open(cfg.Database.Path,
		sqlite.WithIntrospector(template.NamedArguments),
		sqlite.WithDefaultLimit(cfg.Search.DefaultLimit),
		sqlite.WithBusyTimeout(cfg.Database.BusyTimeoutDuration()),
	)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	logger.Debug("database opened", "path", cfg.Database.Path)

	return &app{cfg: cfg, logger: logger, store: store, spawner: o.spawner}, nil
}

func (a *app) runner() (*bulk.Runner, error) {
	spawner := a.spawner
	if spawner == nil {
		ps, err := bulk.NewProcessSpawner()
		if err != nil {
			return nil, err
		}
		spawner = ps
	}
	return bulk.NewRunner(a.store, spawner, bulk.SettingsFromConfig(a.cfg), a.logger), nil
}

func (a *app) monitor() *monitor.Monitor {
	return monitor.New(a.store, monitor.NewProcessInspector(),
		monitor.WithMaxProbes(a.cfg.Monitor.MaxProbes),
		monitor.WithPollInterval(a.cfg.Monitor.Interval()),
		monitor.WithWatchDir(filepath.Dir(a.store.Path())),
		monitor.WithLogger(a.logger),
	)
}

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrValidation(core.CodeInvalidID, fmt.Sprintf("invalid %s id %q", kind, arg))
	}
	return id, nil
}

// parseValues turns repeated key=value flags into a map. The first '='
// separates key from value so values may contain '='.
func parseValues(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, core.ErrValidation(core.CodeUnknownKey, fmt.Sprintf("expected key=value, got %q", pair))
		}
		values[key] = value
	}
	return values, nil
}

// checkKeys rejects values for keys the style does not declare.
func checkKeys(ctx context.Context, store *sqlite.Store, styleID int64, values map[string]string) error {
	keys, err := store.ListStyleKeys(ctx, styleID)
	if err != nil {
		return err
	}
	declared := make(map[string]bool, len(keys))
	for _, k := range keys {
		declared[k.Name] = true
	}
	for key := range values {
		if !declared[key] {
			return core.ErrValidation(core.CodeUnknownKey,
				fmt.Sprintf("style %d has no placeholder %q", styleID, key))
		}
	}
	return nil
}

// resolveStyle accepts a numeric style id or a style's id text. Id text is
// matched exactly first, then fuzzily; a fuzzy match must be unambiguous.
// projectID narrows the candidates when non-zero.
func resolveStyle(ctx context.Context, store *sqlite.Store, ref string, projectID int64) (*core.Style, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		style, err := store.GetStyle(ctx, id)
		if err != nil {
			return nil, err
		}
		if style == nil {
			return nil, core.ErrNotFound("style", id)
		}
		return style, nil
	}

	var styles []core.Style
	var err error
	if projectID != 0 {
		styles, err = store.ListStylesByProject(ctx, projectID)
	} else {
		styles, err = store.ListStyles(ctx)
	}
	if err != nil {
		return nil, err
	}

	var exact []core.Style
	names := make([]string, len(styles))
	for i, s := range styles {
		names[i] = s.IDText
		if s.IDText == ref {
			exact = append(exact, s)
		}
	}
	if len(exact) == 1 {
		return &exact[0], nil
	}
	if len(exact) > 1 {
		return nil, core.ErrValidation(core.CodeUnknownStyle,
			fmt.Sprintf("style %q exists in several projects, pass --project or a numeric id", ref))
	}

	matches := fuzzy.Find(ref, names)
	switch len(matches) {
	case 0:
		return nil, core.ErrValidation(core.CodeUnknownStyle, fmt.Sprintf("no style matches %q", ref))
	case 1:
		return &styles[matches[0].Index], nil
	default:
		candidates := make([]string, 0, len(matches))
		for _, m := range matches {
			candidates = append(candidates, m.Str)
		}
		return nil, core.ErrValidation(core.CodeUnknownStyle,
			fmt.Sprintf("style %q is ambiguous: %s", ref, strings.Join(candidates, ", ")))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
