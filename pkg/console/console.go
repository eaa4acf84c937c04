// Package console renders human-facing CLI output: status messages,
// validation errors with file positions, and simple lists. Styling is
// applied only when stdout is a terminal.
package console

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/agentsfolder/agents-cli/pkg/styles"
)

// Position locates a finding inside a source document.
type Position struct {
	File   string
	Line   int
	Column int
}

// ValidationError is a structured document error rendered in
// file:line:col: error: message form, with an optional hint.
type ValidationError struct {
	Position Position
	Kind     string // "error", "warning", "info"
	Message  string
	Hint     string
}

func isTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("NO_COLOR") == ""
}

func applyStyle(style lipgloss.Style, text string) string {
	if isTTY() {
		return style.Render(text)
	}
	return text
}

// ToRelativePath rewrites an absolute path relative to the working directory
// when possible, for shorter diagnostics.
func ToRelativePath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil {
		return path
	}
	return rel
}

// FormatValidationError renders a ValidationError in an IDE-parseable form.
func FormatValidationError(err ValidationError) string {
	var out strings.Builder

	style := styles.Error
	prefix := "error"
	switch err.Kind {
	case "warning":
		style = styles.Warning
		prefix = "warning"
	case "info":
		style = styles.Info
		prefix = "info"
	}

	if err.Position.File != "" {
		location := fmt.Sprintf("%s:%d:%d:", ToRelativePath(err.Position.File), err.Position.Line, err.Position.Column)
		out.WriteString(applyStyle(styles.Path, location))
		out.WriteString(" ")
	}
	out.WriteString(applyStyle(style, prefix+":"))
	out.WriteString(" ")
	out.WriteString(err.Message)
	out.WriteString("\n")

	if err.Hint != "" {
		out.WriteString(applyStyle(styles.Muted, "  hint: "+err.Hint))
		out.WriteString("\n")
	}
	return out.String()
}

// FormatSuccessMessage renders a success line.
func FormatSuccessMessage(message string) string {
	return applyStyle(styles.Success, "✓ ") + message
}

// FormatInfoMessage renders an informational line.
func FormatInfoMessage(message string) string {
	return applyStyle(styles.Info, message)
}

// FormatWarningMessage renders a warning line.
func FormatWarningMessage(message string) string {
	return applyStyle(styles.Warning, "warning: ") + message
}

// FormatErrorMessage renders an error line.
func FormatErrorMessage(message string) string {
	return applyStyle(styles.Error, "error: ") + message
}

// FormatPathMessage highlights a repository path.
func FormatPathMessage(path string) string {
	return applyStyle(styles.Path, path)
}

// FormatHint renders an indented hint line.
func FormatHint(hint string) string {
	return applyStyle(styles.Muted, "  hint: "+hint)
}

// RenderKeyValues prints aligned key: value pairs in the given order.
func RenderKeyValues(pairs [][2]string) string {
	width := 0
	for _, kv := range pairs {
		if len(kv[0]) > width {
			width = len(kv[0])
		}
	}

	var out strings.Builder
	for _, kv := range pairs {
		key := fmt.Sprintf("%-*s", width, kv[0])
		out.WriteString(applyStyle(styles.Muted, key))
		out.WriteString("  ")
		out.WriteString(kv[1])
		out.WriteString("\n")
	}
	return out.String()
}

// RenderList prints items with a bullet prefix, one per line.
func RenderList(items []string) string {
	var out strings.Builder
	for _, item := range items {
		out.WriteString("  - ")
		out.WriteString(item)
		out.WriteString("\n")
	}
	return out.String()
}
