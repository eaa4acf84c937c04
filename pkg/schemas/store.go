// Package schemas validates .agents/ documents against the repository's
// Draft-07 JSON Schemas. Schemas compile lazily and are cached for the
// lifetime of the store.
package schemas

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/logger"
)

var log = logger.New("schemas:store")

// SchemaKind names a document kind with a dedicated schema file.
type SchemaKind string

const (
	KindManifest        SchemaKind = "manifest"
	KindPolicy          SchemaKind = "policy"
	KindSkill           SchemaKind = "skill"
	KindScope           SchemaKind = "scope"
	KindAdapter         SchemaKind = "adapter"
	KindState           SchemaKind = "state"
	KindModeFrontmatter SchemaKind = "mode-frontmatter"
)

// SchemaFileName returns the schema file under .agents/schemas/.
func (k SchemaKind) SchemaFileName() string {
	return string(k) + ".schema.json"
}

// SchemaInvalid reports a document that failed schema validation.
type SchemaInvalid struct {
	Path    string
	Schema  string
	Pointer string
	Message string
	Hint    string
}

func (e *SchemaInvalid) Error() string {
	if e.Pointer != "" {
		return fmt.Sprintf("%s: schema %s: %s: %s", e.Path, e.Schema, e.Pointer, e.Message)
	}
	return fmt.Sprintf("%s: schema %s: %s", e.Path, e.Schema, e.Message)
}

// Store compiles and caches the repository's schemas.
type Store struct {
	repoRoot string

	mu       sync.Mutex
	compiled map[SchemaKind]*jsonschema.Schema
}

// NewStore creates a store rooted at the repository.
func NewStore(repoRoot string) *Store {
	return &Store{
		repoRoot: repoRoot,
		compiled: make(map[SchemaKind]*jsonschema.Schema),
	}
}

func (s *Store) get(kind SchemaKind) (*jsonschema.Schema, *SchemaInvalid) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if schema, ok := s.compiled[kind]; ok {
		return schema, nil
	}

	schemaPath := fsutil.AgentsDir(s.repoRoot) + "/schemas/" + kind.SchemaFileName()
	log.Printf("compiling schema %s", schemaPath)

	text, err := fsutil.ReadString(schemaPath)
	if err != nil {
		return nil, &SchemaInvalid{
			Path:    schemaPath,
			Schema:  kind.SchemaFileName(),
			Message: err.Error(),
		}
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return nil, &SchemaInvalid{
			Path:    schemaPath,
			Schema:  kind.SchemaFileName(),
			Message: fmt.Sprintf("invalid schema json: %v", err),
		}
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)
	url := "file:///agents/schemas/" + kind.SchemaFileName()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, &SchemaInvalid{
			Path:    schemaPath,
			Schema:  kind.SchemaFileName(),
			Message: fmt.Sprintf("failed to add schema resource: %v", err),
		}
	}

	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, &SchemaInvalid{
			Path:    schemaPath,
			Schema:  kind.SchemaFileName(),
			Message: fmt.Sprintf("failed to compile schema: %v", err),
		}
	}

	s.compiled[kind] = schema
	return schema, nil
}

// ValidateValue validates an already-decoded document against a kind's
// schema. path is attached to any failure for diagnostics.
func (s *Store) ValidateValue(kind SchemaKind, path string, value any) *SchemaInvalid {
	schema, serr := s.get(kind)
	if serr != nil {
		return serr
	}

	if err := schema.Validate(value); err != nil {
		pointer, message := flattenValidationError(err)
		return &SchemaInvalid{
			Path:    path,
			Schema:  kind.SchemaFileName(),
			Pointer: pointer,
			Message: message,
			Hint:    hintFor(message),
		}
	}
	return nil
}

// YamlToValue converts YAML text into the plain JSON value shape the
// validator expects.
func YamlToValue(text string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return normalizeValue(v), nil
}

// normalizeValue rewrites YAML decode artifacts into JSON-compatible values.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeValue(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = normalizeValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = normalizeValue(vv)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	default:
		return v
	}
}

// flattenValidationError walks to the deepest cause for the most precise
// pointer and message.
func flattenValidationError(err error) (string, string) {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return "", err.Error()
	}
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	pointer := "/" + strings.Join(verr.InstanceLocation, "/")
	if pointer == "/" && len(verr.InstanceLocation) == 0 {
		pointer = ""
	}
	return pointer, verr.Error()
}

// hintFor derives a remediation hint from common validation error shapes.
func hintFor(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "additional propert"):
		return "remove the unknown field, or move custom data under `x`"
	case strings.Contains(lower, "missing propert"), strings.Contains(lower, "required"):
		return "add the missing required field"
	case strings.Contains(lower, "value must be one of"), strings.Contains(lower, "enum"):
		return "use one of the allowed values listed in the schema"
	}
	return ""
}
