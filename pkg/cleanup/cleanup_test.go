package cleanup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/stamps"
)

// cleanupRepo builds a repo whose adapter "a" plans gen/a.md and gen/b.md.
func cleanupRepo(t *testing.T) (*loadag.RepoConfig, *resolv.EffectiveConfig) {
	t.Helper()
	root := t.TempDir()

	templatesDir := filepath.Join(root, ".agents", "adapters", "a", "templates")
	require.NoError(t, os.MkdirAll(templatesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(templatesDir, "a.md.tmpl"), []byte("content a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(templatesDir, "b.md.tmpl"), []byte("content b\n"), 0o644))

	repo := &loadag.RepoConfig{
		RepoRoot: root,
		Manifest: model.Manifest{
			SpecVersion: "0.1",
			Defaults:    model.Defaults{Mode: "build", Policy: "safe"},
		},
		Policies: map[string]model.Policy{"safe": {ID: "safe"}},
		Skills:   map[string]model.Skill{},
		Scopes:   map[string]model.Scope{},
		Modes:    map[string]model.ModeFile{"build": {Body: "b\n"}},
		Adapters: map[string]model.Adapter{
			"a": {
				AgentID: "a",
				Version: "1",
				BackendDefaults: model.BackendDefaults{
					Preferred: model.BackendMaterialize,
					Fallback:  model.BackendMaterialize,
				},
				Outputs: []model.AdapterOutput{
					{Path: "gen/a.md", Renderer: model.OutputRenderer{Type: model.RendererTemplate, Template: "a.md.tmpl"}},
					{Path: "gen/b.md", Renderer: model.OutputRenderer{Type: model.RendererTemplate, Template: "b.md.tmpl"}},
				},
			},
		},
		AdapterTemplateDirs: map[string]string{"a": templatesDir},
		Profiles:            map[string]map[string]any{},
		Prompts: loadag.PromptLibrary{
			BaseMD:    "base\n",
			ProjectMD: "project\n",
			Snippets:  map[string]string{},
		},
	}
	eff := &resolv.EffectiveConfig{ModeID: "build", PolicyID: "safe", Backend: model.BackendMaterialize}
	return repo, eff
}

func stampedFile(t *testing.T, root, rel, content, adapter string) {
	t.Helper()
	meta := stamps.StampMeta{
		Generator:           "agents",
		AdapterAgentID:      adapter,
		ManifestSpecVersion: "0.1",
		Mode:                "build",
		Policy:              "safe",
		Backend:             model.BackendMaterialize,
		ContentSha256:       stamps.ContentSha256(content),
	}
	stamped, err := stamps.Apply(content, meta, model.StampComment)
	require.NoError(t, err)
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(stamped), 0o644))
}

func TestIdentifyDeletableEligibleAndSkipped(t *testing.T) {
	repo, eff := cleanupRepo(t)

	// gen/a.md: stamped, matching hash -> eligible.
	stampedFile(t, repo.RepoRoot, "gen/a.md", "content a\n", "a")
	// gen/b.md: unstamped -> skipped with NoStamp.
	require.NoError(t, os.MkdirAll(filepath.Join(repo.RepoRoot, "gen"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo.RepoRoot, "gen", "b.md"), []byte("manual\n"), 0o644))

	report, err := IdentifyDeletable(repo, eff, []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, []string{"gen/a.md"}, report.Eligible)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "gen/b.md", report.Skipped[0].Path)
	assert.Equal(t, SkipNoStamp, report.Skipped[0].Reason)
}

func TestIdentifyDeletableDrifted(t *testing.T) {
	repo, eff := cleanupRepo(t)

	stampedFile(t, repo.RepoRoot, "gen/a.md", "content a\n", "a")
	// Append a manual edit after stamping: hash no longer matches.
	path := filepath.Join(repo.RepoRoot, "gen", "a.md")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, []byte("edited\n")...), 0o644))

	report, err := IdentifyDeletable(repo, eff, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, report.Eligible)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, SkipDrifted, report.Skipped[0].Reason)
}

func TestIdentifyDeletableDifferentAdapter(t *testing.T) {
	repo, eff := cleanupRepo(t)
	stampedFile(t, repo.RepoRoot, "gen/a.md", "content a\n", "other")

	report, err := IdentifyDeletable(repo, eff, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, report.Eligible)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, SkipDifferentAdapter, report.Skipped[0].Reason)
}

func TestDeletePathsDryRun(t *testing.T) {
	repo, _ := cleanupRepo(t)
	stampedFile(t, repo.RepoRoot, "gen/a.md", "content a\n", "a")

	report, err := DeletePaths(repo.RepoRoot, []string{"gen/a.md"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen/a.md"}, report.Deleted)
	assert.FileExists(t, filepath.Join(repo.RepoRoot, "gen", "a.md"))
}

func TestDeletePathsRemovesAndPrunes(t *testing.T) {
	repo, _ := cleanupRepo(t)
	stampedFile(t, repo.RepoRoot, "gen/a.md", "content a\n", "a")

	report, err := DeletePaths(repo.RepoRoot, []string{"gen/a.md"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen/a.md"}, report.Deleted)
	assert.Equal(t, []string{"gen"}, report.PrunedDirs)
	assert.NoDirExists(t, filepath.Join(repo.RepoRoot, "gen"))
}

func TestDeletePathsKeepsNonEmptyParent(t *testing.T) {
	repo, _ := cleanupRepo(t)
	stampedFile(t, repo.RepoRoot, "gen/a.md", "content a\n", "a")
	require.NoError(t, os.WriteFile(filepath.Join(repo.RepoRoot, "gen", "b.md"), []byte("manual\n"), 0o644))

	report, err := DeletePaths(repo.RepoRoot, []string{"gen/a.md"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen/a.md"}, report.Deleted)
	assert.Empty(t, report.PrunedDirs)
	assert.FileExists(t, filepath.Join(repo.RepoRoot, "gen", "b.md"))
}

func TestDeletePathsRejectsEscape(t *testing.T) {
	repo, _ := cleanupRepo(t)
	_, err := DeletePaths(repo.RepoRoot, []string{"../outside.md"}, false)
	require.Error(t, err)
}
