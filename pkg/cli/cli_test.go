package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsfolder/agents-cli/pkg/driftx"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/stamps"
)

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// scaffoldRepo builds the S1 fixture: adapter "a" with a single out.md
// output rendered from a template containing "hello\n".
func scaffoldRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeRepoFile(t, root, ".agents/manifest.yaml", `specVersion: "0.1"
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
	writeRepoFile(t, root, ".agents/prompts/base.md", "base\n")
	writeRepoFile(t, root, ".agents/prompts/project.md", "project\n")
	writeRepoFile(t, root, ".agents/modes/build.md", "---\nid: build\n---\nbody\n")
	writeRepoFile(t, root, ".agents/policies/safe.yaml", `id: safe
description: p
capabilities: {}
paths: {}
confirmations: {}
`)
	writeRepoFile(t, root, ".agents/adapters/a/adapter.yaml", `agentId: a
version: "1"
backendDefaults:
  preferred: materialize
  fallback: materialize
outputs:
  - path: out.md
    renderer:
      type: template
      template: out.md.tmpl
    driftDetection:
      method: sha256
      stamp: comment
`)
	writeRepoFile(t, root, ".agents/adapters/a/templates/out.md.tmpl", "hello\n")
	return root
}

func diffEntries(t *testing.T, root string) []driftx.DiffEntry {
	t.Helper()
	cfg, _, appErr := loadRepo(root)
	require.Nil(t, appErr)
	effective, err := resolv.NewResolver(cfg).Resolve(&resolv.Request{RepoRoot: root})
	require.NoError(t, err)
	res, err := outputs.Plan(cfg, effective, "a")
	require.NoError(t, err)
	report, err := driftx.DiffPlan(root, &res.Plan)
	require.NoError(t, err)
	return report.Entries
}

func TestScenarioNoopAfterSync(t *testing.T) {
	root := scaffoldRepo(t)
	ctx := &appContext{RepoRoot: root, Quiet: true}

	require.NoError(t, cmdSync(ctx, "a", ""))

	entries := diffEntries(t, root)
	require.Len(t, entries, 1)
	assert.Equal(t, driftx.DiffNoop, entries[0].Kind)
	assert.Equal(t, "out.md", entries[0].Path)
}

func TestScenarioDriftDetected(t *testing.T) {
	root := scaffoldRepo(t)
	ctx := &appContext{RepoRoot: root, Quiet: true}
	require.NoError(t, cmdSync(ctx, "a", ""))

	// Manual edit after sync.
	path := filepath.Join(root, "out.md")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, []byte("\nmanual edit\n")...), 0o644))

	entries := diffEntries(t, root)
	require.Len(t, entries, 1)
	assert.Equal(t, driftx.DiffDrifted, entries[0].Kind)
	assert.Contains(t, entries[0].UnifiedDiff, "hello")
	assert.Contains(t, entries[0].UnifiedDiff, "-manual edit")
}

func TestScenarioUnmanagedRefusal(t *testing.T) {
	root := scaffoldRepo(t)
	writeRepoFile(t, root, "out.md", "manual\n")
	ctx := &appContext{RepoRoot: root, Quiet: true}

	err := cmdSync(ctx, "a", "")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CategoryConflict, appErr.Category)
	assert.Equal(t, 5, appErr.Category.ExitCode())

	// The file is unchanged.
	data, readErr := os.ReadFile(filepath.Join(root, "out.md"))
	require.NoError(t, readErr)
	assert.Equal(t, "manual\n", string(data))
}

func TestScenarioSharedOwnerViolation(t *testing.T) {
	root := scaffoldRepo(t)
	writeRepoFile(t, root, ".agents/manifest.yaml", `specVersion: "0.1"
defaults:
  mode: build
  policy: safe
  backend: materialize
  sharedSurfacesOwner: core
enabled:
  modes: [build]
  policies: [safe]
  skills: []
  adapters: [a]
`)
	writeRepoFile(t, root, ".agents/adapters/a/adapter.yaml", `agentId: a
version: "1"
backendDefaults:
  preferred: materialize
  fallback: materialize
outputs:
  - path: AGENTS.md
    surface: "shared:AGENTS.md"
    collision: shared_owner
    renderer:
      type: template
      template: out.md.tmpl
`)

	cfg, _, appErr := loadRepo(root)
	require.Nil(t, appErr)
	effective, err := resolv.NewResolver(cfg).Resolve(&resolv.Request{RepoRoot: root})
	require.NoError(t, err)

	_, err = outputs.Plan(cfg, effective, "a")
	var violation *outputs.SharedOwnerViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "core", violation.Owner)
	assert.Equal(t, "a", violation.AgentID)
}

func TestScenarioScopeExpansion(t *testing.T) {
	root := scaffoldRepo(t)
	writeRepoFile(t, root, ".agents/scopes/api.v2.yaml", `id: api.v2
applyTo: ["packages/api/**"]
overrides: {}
`)
	writeRepoFile(t, root, ".agents/scopes/web.yaml", `id: web
applyTo: ["packages/web/**"]
overrides: {}
`)
	writeRepoFile(t, root, ".agents/adapters/a/adapter.yaml", `agentId: a
version: "1"
backendDefaults:
  preferred: materialize
  fallback: materialize
outputs:
  - path: ".github/instructions/{{scopeId}}.instructions.md"
    renderer:
      type: template
      template: out.md.tmpl
`)

	cfg, _, appErr := loadRepo(root)
	require.Nil(t, appErr)
	effective, err := resolv.NewResolver(cfg).Resolve(&resolv.Request{RepoRoot: root})
	require.NoError(t, err)

	res, err := outputs.Plan(cfg, effective, "a")
	require.NoError(t, err)
	require.Len(t, res.Plan.Outputs, 2)
	assert.Equal(t, ".github/instructions/api_v2.instructions.md", res.Plan.Outputs[0].Path.String())
	assert.Equal(t, ".github/instructions/web.instructions.md", res.Plan.Outputs[1].Path.String())
}

func TestScenarioCleanupSafety(t *testing.T) {
	root := scaffoldRepo(t)
	writeRepoFile(t, root, ".agents/adapters/a/adapter.yaml", `agentId: a
version: "1"
backendDefaults:
  preferred: materialize
  fallback: materialize
outputs:
  - path: gen/a.md
    renderer:
      type: template
      template: a.md.tmpl
  - path: gen/b.md
    renderer:
      type: template
      template: b.md.tmpl
`)
	writeRepoFile(t, root, ".agents/adapters/a/templates/a.md.tmpl", "content a\n")
	writeRepoFile(t, root, ".agents/adapters/a/templates/b.md.tmpl", "content b\n")

	ctx := &appContext{RepoRoot: root, Quiet: true}
	require.NoError(t, cmdSync(ctx, "a", ""))

	// Replace gen/b.md with unstamped content.
	writeRepoFile(t, root, "gen/b.md", "manual\n")

	require.NoError(t, cmdClean(ctx, "a", false, true))

	assert.NoFileExists(t, filepath.Join(root, "gen", "a.md"))
	assert.FileExists(t, filepath.Join(root, "gen", "b.md"))
	// gen/ still holds b.md, so it is not pruned.
	assert.DirExists(t, filepath.Join(root, "gen"))
}

func TestInitThenValidate(t *testing.T) {
	root := t.TempDir()
	ctx := &appContext{RepoRoot: root, Quiet: true}

	require.NoError(t, cmdInit(ctx, "standard"))
	assert.FileExists(t, filepath.Join(root, ".agents", "manifest.yaml"))
	assert.FileExists(t, filepath.Join(root, ".agents", "schemas", "manifest.schema.json"))
	assert.FileExists(t, filepath.Join(root, ".agents", "state", ".gitignore"))

	require.NoError(t, cmdValidate(ctx))

	// A second init refuses to clobber.
	err := cmdInit(ctx, "standard")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CategoryInvalidArgs, appErr.Category)
}

func TestInitMinimalPreset(t *testing.T) {
	root := t.TempDir()
	ctx := &appContext{RepoRoot: root, Quiet: true}

	require.NoError(t, cmdInit(ctx, "minimal"))
	assert.FileExists(t, filepath.Join(root, ".agents", "manifest.yaml"))
	assert.NoDirExists(t, filepath.Join(root, ".agents", "schemas"))
}

func TestInitUnknownPreset(t *testing.T) {
	ctx := &appContext{RepoRoot: t.TempDir(), Quiet: true}
	err := cmdInit(ctx, "nope")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 2, appErr.Category.ExitCode())
}

func TestSyncPersistsExplainRecords(t *testing.T) {
	root := scaffoldRepo(t)
	ctx := &appContext{RepoRoot: root, Quiet: true}
	require.NoError(t, cmdSync(ctx, "a", ""))

	hash := stamps.ContentSha256("out.md")
	assert.FileExists(t, filepath.Join(root, ".agents", "state", "explain", hash+".json"))

	// explain resolves the persisted record.
	require.NoError(t, cmdExplain(ctx, "out.md"))
}

func TestExplainFallsBackToStamp(t *testing.T) {
	root := scaffoldRepo(t)
	ctx := &appContext{RepoRoot: root, Quiet: true}
	require.NoError(t, cmdSync(ctx, "a", ""))

	// Remove the explain store; the stamp fallback must still answer.
	require.NoError(t, os.RemoveAll(filepath.Join(root, ".agents", "state", "explain")))
	require.NoError(t, cmdExplain(ctx, "out.md"))
}

func TestExplainUnknownFile(t *testing.T) {
	root := scaffoldRepo(t)
	ctx := &appContext{RepoRoot: root, Quiet: true}
	writeRepoFile(t, root, "plain.md", "no stamp here\n")

	err := cmdExplain(ctx, "plain.md")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
}

func TestStatusRuns(t *testing.T) {
	root := scaffoldRepo(t)
	require.NoError(t, cmdStatus(&appContext{RepoRoot: root, Quiet: true}))
}

func TestSetModePersistsState(t *testing.T) {
	root := scaffoldRepo(t)
	ctx := &appContext{RepoRoot: root, Quiet: true}

	require.NoError(t, cmdSetMode(ctx, "build", ""))
	assert.FileExists(t, filepath.Join(root, ".agents", "state", "state.yaml"))
	assert.FileExists(t, filepath.Join(root, ".agents", "state", ".gitignore"))

	err := cmdSetMode(ctx, "ghost", "")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CategoryInvalidArgs, appErr.Category)
}

func TestDoctorFixCreatesSchemasAndGitignore(t *testing.T) {
	root := scaffoldRepo(t)
	ctx := &appContext{RepoRoot: root, Quiet: true}

	require.NoError(t, cmdDoctor(ctx, true, false))
	assert.FileExists(t, filepath.Join(root, ".agents", "schemas", "manifest.schema.json"))
	assert.FileExists(t, filepath.Join(root, ".agents", "state", ".gitignore"))

	// Second run is clean.
	require.NoError(t, cmdDoctor(ctx, false, false))
}

func TestDoctorCIEscalatesWarnings(t *testing.T) {
	root := scaffoldRepo(t)
	ctx := &appContext{RepoRoot: root, Quiet: true}

	// Without schemas dir, --ci escalates the warning to an error.
	err := cmdDoctor(ctx, false, true)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 4, appErr.Category.ExitCode())
}

func TestCompatMatrix(t *testing.T) {
	root := scaffoldRepo(t)
	cfg, _, appErr := loadRepo(root)
	require.Nil(t, appErr)

	entries, err := buildCompatMatrix(cfg)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].AgentID)
	assert.Equal(t, []string{"out.md"}, entries[0].OutputPaths)
	assert.Equal(t, "advisory", entries[0].PolicyMapping)
}

func TestImportCopilot(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, ".github/copilot-instructions.md", "Use tabs.\n")
	writeRepoFile(t, root, ".github/instructions/api.instructions.md", "---\napplyTo: \"packages/api/**\"\n---\nAPI rules.\n")

	ctx := &appContext{RepoRoot: root, Quiet: true}
	require.NoError(t, cmdImport(ctx, "copilot", ""))

	data, err := os.ReadFile(filepath.Join(root, ".agents", "prompts", "project.md"))
	require.NoError(t, err)
	assert.Equal(t, "Use tabs.\n", string(data))

	assert.FileExists(t, filepath.Join(root, ".agents", "scopes", "api.yaml"))
	assert.FileExists(t, filepath.Join(root, ".agents", "prompts", "snippets", "api.md"))

	// Already-initialized repos are refused.
	err = cmdImport(ctx, "copilot", "")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CategoryInvalidArgs, appErr.Category)
}

func TestImportUnsupportedSource(t *testing.T) {
	ctx := &appContext{RepoRoot: t.TempDir(), Quiet: true}
	err := cmdImport(ctx, "cursor", "")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CategoryInvalidArgs, appErr.Category)
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 2, CategoryInvalidArgs.ExitCode())
	assert.Equal(t, 3, CategoryNotInitialized.ExitCode())
	assert.Equal(t, 4, CategorySchemaInvalid.ExitCode())
	assert.Equal(t, 5, CategoryIo.ExitCode())
	assert.Equal(t, 5, CategoryConflict.ExitCode())
	assert.Equal(t, 5, CategoryPolicyDenied.ExitCode())
	assert.Equal(t, 5, CategoryExternalToolMissing.ExitCode())
}

func TestNotInitializedCategory(t *testing.T) {
	err := cmdStatus(&appContext{RepoRoot: t.TempDir(), Quiet: true})
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CategoryNotInitialized, appErr.Category)
	assert.Equal(t, 3, appErr.Category.ExitCode())
}
