package loadag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeMinimalRepo(t *testing.T, root string) {
	t.Helper()
	writeFile(t, root, ".agents/manifest.yaml", `specVersion: "0.1"
defaults:
  mode: build
  policy: safe
enabled:
  modes: [build]
  policies: [safe]
  skills: []
  adapters: []
`)
	writeFile(t, root, ".agents/prompts/base.md", "base prompt\n")
	writeFile(t, root, ".agents/prompts/project.md", "project prompt\n")
	writeFile(t, root, ".agents/modes/build.md", "---\nid: build\n---\nBuild mode body.\n")
	writeFile(t, root, ".agents/policies/safe.yaml", `id: safe
description: default policy
capabilities: {}
paths: {}
confirmations: {}
`)
}

func TestLoadMinimalRepo(t *testing.T) {
	root := t.TempDir()
	writeMinimalRepo(t, root)

	cfg, report, err := Load(root, Options{})
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "0.1", cfg.Manifest.SpecVersion)
	assert.Contains(t, cfg.Modes, "build")
	assert.Contains(t, cfg.Policies, "safe")
	assert.Equal(t, "base prompt\n", cfg.Prompts.BaseMD)

	// Schemas dir is absent: warning, not error.
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0].Message, "schemas")

	// The built-in core adapter is always present.
	assert.Contains(t, cfg.Adapters, "core")
	core := cfg.Adapters["core"]
	require.Len(t, core.Outputs, 1)
	assert.Equal(t, "AGENTS.md", core.Outputs[0].Path)
	assert.Equal(t, "shared:AGENTS.md", core.Outputs[0].Surface)
}

func TestLoadNotInitialized(t *testing.T) {
	root := t.TempDir()
	_, _, err := Load(root, Options{})
	var notInit *NotInitializedError
	require.ErrorAs(t, err, &notInit)
}

func TestLoadMissingPrompts(t *testing.T) {
	root := t.TempDir()
	writeMinimalRepo(t, root)
	require.NoError(t, os.Remove(filepath.Join(root, ".agents", "prompts", "project.md")))

	_, _, err := Load(root, Options{})
	var notInit *NotInitializedError
	require.ErrorAs(t, err, &notInit)
	assert.Contains(t, notInit.Path, "project.md")
}

func TestLoadRequireSchemasDir(t *testing.T) {
	root := t.TempDir()
	writeMinimalRepo(t, root)

	_, _, err := Load(root, Options{RequireSchemasDir: true})
	var notInit *NotInitializedError
	require.ErrorAs(t, err, &notInit)
}

func TestLoadReferentialIntegrity(t *testing.T) {
	root := t.TempDir()
	writeMinimalRepo(t, root)
	writeFile(t, root, ".agents/manifest.yaml", `specVersion: "0.1"
defaults:
  mode: build
  policy: safe
enabled:
  modes: [build, missing-mode]
  policies: [safe]
  skills: []
  adapters: []
`)

	_, _, err := Load(root, Options{})
	var missing *MissingIDError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "modes", missing.Kind)
	assert.Equal(t, "missing-mode", missing.ID)
}

func TestLoadDuplicateModeID(t *testing.T) {
	root := t.TempDir()
	writeMinimalRepo(t, root)
	// Second file whose frontmatter claims the same id.
	writeFile(t, root, ".agents/modes/zz-other.md", "---\nid: build\n---\nduplicate\n")

	_, _, err := Load(root, Options{})
	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "modes", dup.Kind)
	assert.Equal(t, "build", dup.ID)
}

func TestLoadRejectsUnknownFieldsInPolicy(t *testing.T) {
	root := t.TempDir()
	writeMinimalRepo(t, root)
	writeFile(t, root, ".agents/policies/bad.yaml", `id: bad
description: x
capabilities: {}
paths: {}
confirmations: {}
surpriseField: true
`)

	_, _, err := Load(root, Options{})
	var parse *ParseError
	require.ErrorAs(t, err, &parse)
	assert.Contains(t, parse.Path, "bad.yaml")
}

func TestLoadSnippetsScopesSkillsAdaptersState(t *testing.T) {
	root := t.TempDir()
	writeMinimalRepo(t, root)
	writeFile(t, root, ".agents/prompts/snippets/style.md", "style snippet\n")
	writeFile(t, root, ".agents/scopes/api.yaml", `id: api
applyTo: ["packages/api/**"]
priority: 10
overrides:
  includeSnippets: [style]
`)
	writeFile(t, root, ".agents/skills/fmt/skill.yaml", `id: fmt
version: "1"
title: Formatter
description: formats code
activation: instruction_only
interface:
  type: cli
contract:
  inputs: {}
  outputs: {}
requirements:
  capabilities:
    filesystem: write
    exec: restricted
    network: none
`)
	writeFile(t, root, ".agents/adapters/copilot/adapter.yaml", `agentId: copilot
version: "1"
backendDefaults:
  preferred: materialize
  fallback: materialize
outputs:
  - path: .github/copilot-instructions.md
    renderer:
      type: template
      template: instructions.md.tmpl
`)
	writeFile(t, root, ".agents/adapters/copilot/templates/instructions.md.tmpl", "{{ .effective.prompts.composed_md }}")
	writeFile(t, root, ".agents/state/state.yaml", "mode: build\nprofile: dev\n")
	writeFile(t, root, ".agents/profiles/dev.yaml", "speed: fast\n")

	cfg, _, err := Load(root, Options{})
	require.NoError(t, err)

	assert.Equal(t, "style snippet\n", cfg.Prompts.Snippets["style"])
	assert.Contains(t, cfg.Scopes, "api")
	assert.Contains(t, cfg.Skills, "fmt")
	assert.Contains(t, cfg.SkillDirs, "fmt")
	assert.Contains(t, cfg.Adapters, "copilot")
	assert.Contains(t, cfg.AdapterTemplateDirs["copilot"], filepath.Join("adapters", "copilot", "templates"))
	require.NotNil(t, cfg.State)
	assert.Equal(t, "build", cfg.State.Mode)
	assert.Equal(t, "dev", cfg.State.Profile)
	assert.Equal(t, map[string]any{"speed": "fast"}, map[string]any(cfg.Profiles["dev"]))
}

func TestRepoProvidedCoreAdapterWins(t *testing.T) {
	root := t.TempDir()
	writeMinimalRepo(t, root)
	writeFile(t, root, ".agents/adapters/core/adapter.yaml", `agentId: core
version: "2"
backendDefaults:
  preferred: materialize
  fallback: materialize
outputs: []
`)

	cfg, _, err := Load(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, "2", cfg.Adapters["core"].Version)
	assert.Empty(t, cfg.Adapters["core"].Outputs)
}
