package bulk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/fsutil"
)

// LoadItems reads a list of item mappings from a JSON or YAML file. The
// format follows the extension; anything other than .yaml or .yml is
// parsed as JSON.
func LoadItems(path string) ([]map[string]string, error) {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}

	var raw []map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&raw)
	}
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidItems, "items must be a list of mappings").WithCause(err)
	}
	return NormalizeItems(raw)
}

// NormalizeItems renders every item value as text.
func NormalizeItems(raw []map[string]any) ([]map[string]string, error) {
	items := make([]map[string]string, 0, len(raw))
	for i, item := range raw {
		out := make(map[string]string, len(item))
		for key, value := range item {
			text, err := valueText(value)
			if err != nil {
				return nil, core.ErrValidation(core.CodeInvalidItems,
					fmt.Sprintf("item %d key %q cannot be rendered as text", i, key)).WithCause(err)
			}
			out[key] = text
		}
		items = append(items, out)
	}
	return items, nil
}

func valueText(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(t), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
