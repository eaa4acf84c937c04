// Package templ renders adapter templates in strict mode with a
// deterministic helper set. Unknown variables are render errors; toJson and
// toYaml emit lexicographically key-sorted objects so two renders of the
// same context are byte-identical.
package templ

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/logger"
)

var log = logger.New("templ:engine")

// RenderError wraps a template parse or execution failure.
type RenderError struct {
	Template string
	Message  string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("template render error in %s: %s", e.Template, e.Message)
}

// Engine holds a template set with all partials registered. Template names
// are forward-slash paths relative to the adapter's templates directory.
type Engine struct {
	root *template.Template
}

// NewEngine creates an engine with sprig's text functions plus the domain
// helpers, which take precedence on name clashes.
func NewEngine() *Engine {
	root := template.New("").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Funcs(helperFuncs())
	return &Engine{root: root}
}

// RegisterPartialsFromDir parses every file under templatesDir into the
// engine. A missing directory is not an error.
func (e *Engine) RegisterPartialsFromDir(templatesDir string) error {
	files, err := fsutil.WalkFiles(templatesDir)
	if err != nil {
		// Missing template dirs are tolerated; adapters without templates
		// simply have nothing to register.
		return nil
	}

	for _, rel := range files {
		content, err := fsutil.ReadString(filepath.Join(templatesDir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		if _, err := e.root.New(rel).Parse(content); err != nil {
			return &RenderError{Template: rel, Message: err.Error()}
		}
		log.Printf("registered template %s", rel)
	}
	return nil
}

// Render executes a registered template by name.
func (e *Engine) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := e.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", &RenderError{Template: name, Message: err.Error()}
	}
	return normalizeOutput(buf.String()), nil
}

// RenderInline parses and executes a template supplied as a string.
// Built-in adapters use this for their embedded templates.
func (e *Engine) RenderInline(text string, data any) (string, error) {
	t, err := e.root.Clone()
	if err != nil {
		return "", &RenderError{Template: "<inline>", Message: err.Error()}
	}
	parsed, err := t.New("<inline>").Parse(text)
	if err != nil {
		return "", &RenderError{Template: "<inline>", Message: err.Error()}
	}

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, data); err != nil {
		return "", &RenderError{Template: "<inline>", Message: err.Error()}
	}
	return normalizeOutput(buf.String()), nil
}

// normalizeOutput converts CRLF to LF and guarantees a trailing newline.
func normalizeOutput(s string) string {
	out := strings.ReplaceAll(s, "\r\n", "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
