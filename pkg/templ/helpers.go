package templ

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/goccy/go-yaml"
)

// helperFuncs returns the deterministic domain helpers. They override any
// sprig function of the same name.
func helperFuncs() template.FuncMap {
	return template.FuncMap{
		"indent":         indentHelper,
		"join":           joinHelper,
		"toJson":         toJSONHelper,
		"toJsonc":        toJSONHelper,
		"toYaml":         toYamlHelper,
		"frontmatter":    frontmatterHelper,
		"generatedStamp": generatedStampHelper,
	}
}

// indentHelper prefixes each non-empty line of text with n spaces.
func indentHelper(text string, n int) string {
	if n < 0 {
		n = 0
	}
	pad := strings.Repeat(" ", n)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

// joinHelper concatenates a string list with sep. Non-string elements are
// stringified.
func joinHelper(list any, sep string) string {
	switch v := list.(type) {
	case []string:
		return strings.Join(v, sep)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			if s, ok := item.(string); ok {
				parts[i] = s
			} else {
				parts[i] = fmt.Sprint(item)
			}
		}
		return strings.Join(parts, sep)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// toJSONHelper emits pretty JSON. encoding/json sorts map keys
// lexicographically, which is exactly the determinism contract.
func toJSONHelper(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// toYamlHelper emits YAML from a key-sorted structure, without a trailing
// newline.
func toYamlHelper(v any) (string, error) {
	data, err := yaml.Marshal(sortValue(v))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// frontmatterHelper wraps key-sorted YAML in a frontmatter block.
func frontmatterHelper(v any) (string, error) {
	y, err := toYamlHelper(v)
	if err != nil {
		return "", err
	}
	return "---\n" + y + "\n---\n", nil
}

// generatedStampHelper emits the comment-form generation marker with
// compact JSON metadata.
func generatedStampHelper(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return "<!-- @generated by agents: " + string(data) + " -->", nil
}

// sortValue rewrites maps into ordered forms so emission order is stable.
// encoding/json already sorts map[string]any keys; yaml.MapSlice carries
// explicit ordering for the YAML path.
func sortValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(yaml.MapSlice, 0, len(t))
		for _, k := range keys {
			out = append(out, yaml.MapItem{Key: k, Value: sortValue(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = sortValue(item)
		}
		return out
	default:
		return v
	}
}
