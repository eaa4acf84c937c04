package console

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValidationErrorPlain(t *testing.T) {
	// Tests run without a TTY, so output must be unstyled and parseable.
	out := FormatValidationError(ValidationError{
		Position: Position{File: "manifest.yaml", Line: 3, Column: 5},
		Kind:     "error",
		Message:  "additional properties are not allowed",
		Hint:     "remove the unknown field",
	})

	assert.Contains(t, out, "manifest.yaml:3:5:")
	assert.Contains(t, out, "error:")
	assert.Contains(t, out, "additional properties are not allowed")
	assert.Contains(t, out, "hint: remove the unknown field")
}

func TestFormatValidationErrorKinds(t *testing.T) {
	warning := FormatValidationError(ValidationError{Kind: "warning", Message: "m"})
	assert.Contains(t, warning, "warning:")

	info := FormatValidationError(ValidationError{Kind: "info", Message: "m"})
	assert.Contains(t, info, "info:")
}

func TestToRelativePath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	assert.Equal(t, "already/relative.md", ToRelativePath("already/relative.md"))
	assert.Equal(t, "file.md", ToRelativePath(filepath.Join(wd, "file.md")))
}

func TestRenderKeyValuesAligned(t *testing.T) {
	out := RenderKeyValues([][2]string{
		{"mode", "build"},
		{"policy", "safe"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	// Values start at the same column.
	assert.Equal(t, strings.Index(lines[0], "build"), strings.Index(lines[1], "safe"))
}

func TestRenderList(t *testing.T) {
	out := RenderList([]string{"a", "b"})
	assert.Equal(t, "  - a\n  - b\n", out)
}
