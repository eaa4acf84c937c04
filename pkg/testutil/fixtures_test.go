package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixtureFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newFixture builds a fixture whose adapter "a" renders out.md from a
// static template, and returns the fixture root.
func newFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFixtureFile(t, root, "repo/.agents/manifest.yaml", `specVersion: "0.1"
defaults:
  mode: build
  policy: safe
  backend: materialize
enabled:
  modes: [build]
  policies: [safe]
  skills: []
  adapters: [a]
`)
	writeFixtureFile(t, root, "repo/.agents/prompts/base.md", "base\n")
	writeFixtureFile(t, root, "repo/.agents/prompts/project.md", "project\n")
	writeFixtureFile(t, root, "repo/.agents/modes/build.md", "---\nid: build\n---\nbody\n")
	writeFixtureFile(t, root, "repo/.agents/policies/safe.yaml", `id: safe
description: p
capabilities: {}
paths: {}
confirmations: {}
`)
	writeFixtureFile(t, root, "repo/.agents/adapters/a/adapter.yaml", `agentId: a
version: "1"
backendDefaults:
  preferred: materialize
  fallback: materialize
outputs:
  - path: out.md
    renderer:
      type: template
      template: out.md.tmpl
`)
	writeFixtureFile(t, root, "repo/.agents/adapters/a/templates/out.md.tmpl", "hello\n")
	return root
}

func expectedStampedOutput(t *testing.T, fixtureRoot string) string {
	t.Helper()
	// Run once against an empty expect tree to capture the actual bytes.
	report, err := RunFixture(fixtureRoot, "")
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)

	data, err := os.ReadFile(filepath.Join(report.Failures[0].ActualDir, "out.md"))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(report.Failures[0].ActualDir))
	return string(data)
}

func TestRunFixturePasses(t *testing.T) {
	root := newFixture(t)
	golden := expectedStampedOutput(t, root)
	writeFixtureFile(t, root, "expect/a/out.md", golden)

	report, err := RunFixture(root, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 0, report.Failed)
}

func TestRunFixtureContentMismatch(t *testing.T) {
	root := newFixture(t)
	writeFixtureFile(t, root, "expect/a/out.md", "wrong content\n")

	report, err := RunFixture(root, "")
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)

	failure := report.Failures[0]
	require.Len(t, failure.Mismatches, 1)
	assert.Equal(t, "content", failure.Mismatches[0].Kind)
	assert.Contains(t, failure.Mismatches[0].Diff, "-wrong content")
	require.NoError(t, os.RemoveAll(failure.ActualDir))
}

func TestRunFixtureMissingExpectedFile(t *testing.T) {
	root := newFixture(t)
	golden := expectedStampedOutput(t, root)
	writeFixtureFile(t, root, "expect/a/out.md", golden)
	writeFixtureFile(t, root, "expect/a/extra.md", "extra\n")

	report, err := RunFixture(root, "")
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)

	kinds := map[string]string{}
	for _, m := range report.Failures[0].Mismatches {
		kinds[m.Path] = m.Kind
	}
	assert.Equal(t, "missing", kinds["extra.md"])
	require.NoError(t, os.RemoveAll(report.Failures[0].ActualDir))
}

func TestRunFixtureAgentFilter(t *testing.T) {
	root := newFixture(t)

	report, err := RunFixture(root, "not-an-agent")
	require.NoError(t, err)
	assert.Zero(t, report.Passed)
	assert.Zero(t, report.Failed)
}

func TestRunFixtureMatrixCases(t *testing.T) {
	root := newFixture(t)
	golden := expectedStampedOutput(t, root)
	writeFixtureFile(t, root, "matrix.yaml", `cases:
  - name: default-case
  - name: review-case
    mode: build
`)
	writeFixtureFile(t, root, "expect/a/default-case/out.md", golden)
	writeFixtureFile(t, root, "expect/a/review-case/out.md", golden)

	report, err := RunFixture(root, "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 0, report.Failed)
}
