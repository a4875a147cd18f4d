// Package template extracts named placeholders from style templates.
//
// Templates use brace-delimited replacement fields: {name}, {name:spec},
// {name!r}, {name.attr} and {name[0]} all reference "name". Doubled braces
// are literal. Positional fields ({} and {0}) are not named and are skipped.
package template

import (
	"fmt"
	"strings"
)

// NamedArguments returns the placeholder names referenced by tmpl in order of
// first appearance, without duplicates.
func NamedArguments(tmpl string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)

	for i := 0; i < len(tmpl); i++ {
		switch tmpl[i] {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				i++
				continue
			}
			end, err := fieldEnd(tmpl, i)
			if err != nil {
				return nil, err
			}
			name := fieldName(tmpl[i+1 : end])
			if name != "" && !isPositional(name) && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			i = end
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				i++
				continue
			}
			return nil, fmt.Errorf("single '}' at offset %d", i)
		}
	}
	return names, nil
}

// fieldEnd returns the index of the brace closing the field opened at start.
// Format specs may nest one level of fields, e.g. {value:{width}}.
func fieldEnd(tmpl string, start int) (int, error) {
	depth := 0
	for j := start; j < len(tmpl); j++ {
		switch tmpl[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j, nil
			}
		}
	}
	return 0, fmt.Errorf("unclosed '{' at offset %d", start)
}

func fieldName(field string) string {
	if idx := strings.IndexAny(field, "!:.["); idx >= 0 {
		field = field[:idx]
	}
	return strings.TrimSpace(field)
}

func isPositional(name string) bool {
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
