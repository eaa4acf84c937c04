package matwiz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/stamps"
)

func plannedOutput(t *testing.T, repoRoot, rel string, mode model.WriteMode, gitignore bool) *outputs.PlannedOutput {
	t.Helper()
	path, err := fsutil.RepoRelPath(repoRoot, rel)
	require.NoError(t, err)
	return &outputs.PlannedOutput{
		Path:        path,
		Format:      model.FormatMd,
		WritePolicy: model.WritePolicy{Mode: &mode, Gitignore: gitignore},
	}
}

func renderedFor(content string) *outputs.Rendered {
	meta := stamps.StampMeta{
		Generator:           "agents",
		AdapterAgentID:      "a",
		ManifestSpecVersion: "0.1",
		Mode:                "build",
		Policy:              "safe",
		Backend:             model.BackendMaterialize,
		ContentSha256:       stamps.ContentSha256(content),
	}
	stamped, _ := stamps.Apply(content, meta, model.StampComment)
	return &outputs.Rendered{
		ContentWithoutStamp: content,
		ContentWithStamp:    stamped,
		Format:              model.FormatMd,
		Meta:                meta,
	}
}

func TestApplyWritesNewFile(t *testing.T) {
	root := t.TempDir()
	session, err := Prepare(root, &outputs.OutputPlan{AgentID: "a"})
	require.NoError(t, err)

	out := plannedOutput(t, root, "gen/out.md", model.WriteIfGenerated, false)
	report, err := Apply(session, []RenderedOutput{{Output: out, Rendered: renderedFor("hello\n")}})
	require.NoError(t, err)

	assert.Equal(t, []string{"gen/out.md"}, report.Written)
	assert.Empty(t, report.Conflicts)

	data, err := os.ReadFile(filepath.Join(root, "gen", "out.md"))
	require.NoError(t, err)
	assert.NotNil(t, stamps.Parse(string(data)))
}

func TestApplyRefusesUnmanaged(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "out.md"), []byte("manual\n"), 0o644))

	session, err := Prepare(root, &outputs.OutputPlan{AgentID: "a"})
	require.NoError(t, err)

	out := plannedOutput(t, root, "out.md", model.WriteIfGenerated, false)
	report, err := Apply(session, []RenderedOutput{{Output: out, Rendered: renderedFor("hello\n")}})
	require.NoError(t, err)

	assert.Equal(t, []string{"out.md"}, report.Conflicts)
	require.Len(t, report.ConflictDetails, 1)
	assert.Equal(t, ConflictUnmanaged, report.ConflictDetails[0].Reason)

	// The file is unchanged.
	data, err := os.ReadFile(filepath.Join(root, "out.md"))
	require.NoError(t, err)
	assert.Equal(t, "manual\n", string(data))
}

func TestApplyOverwritesManaged(t *testing.T) {
	root := t.TempDir()
	session, err := Prepare(root, &outputs.OutputPlan{AgentID: "a"})
	require.NoError(t, err)

	out := plannedOutput(t, root, "out.md", model.WriteIfGenerated, false)
	_, err = Apply(session, []RenderedOutput{{Output: out, Rendered: renderedFor("v1\n")}})
	require.NoError(t, err)

	report, err := Apply(session, []RenderedOutput{{Output: out, Rendered: renderedFor("v2\n")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"out.md"}, report.Written)

	data, err := os.ReadFile(filepath.Join(root, "out.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "v2")
}

func TestApplyAlwaysOverwritesUnmanaged(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "out.md"), []byte("manual\n"), 0o644))

	session, err := Prepare(root, &outputs.OutputPlan{AgentID: "a"})
	require.NoError(t, err)

	out := plannedOutput(t, root, "out.md", model.WriteAlways, false)
	report, err := Apply(session, []RenderedOutput{{Output: out, Rendered: renderedFor("forced\n")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"out.md"}, report.Written)
}

func TestApplyNeverSkips(t *testing.T) {
	root := t.TempDir()
	session, err := Prepare(root, &outputs.OutputPlan{AgentID: "a"})
	require.NoError(t, err)

	out := plannedOutput(t, root, "out.md", model.WriteNever, false)
	report, err := Apply(session, []RenderedOutput{{Output: out, Rendered: renderedFor("x\n")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"out.md"}, report.Skipped)
	assert.NoFileExists(t, filepath.Join(root, "out.md"))
}

func TestGitignoreBlockCreated(t *testing.T) {
	root := t.TempDir()
	session, err := Prepare(root, &outputs.OutputPlan{AgentID: "a"})
	require.NoError(t, err)

	out := plannedOutput(t, root, "gen/out.md", model.WriteAlways, true)
	_, err = Apply(session, []RenderedOutput{{Output: out, Rendered: renderedFor("x\n")}})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "# BEGIN agents (generated)\ngen/out.md\n# END agents\n", string(data))
}

func TestGitignoreBlockPreservesSurroundings(t *testing.T) {
	root := t.TempDir()
	existing := "node_modules/\n# BEGIN agents (generated)\nstale.md\n# END agents\ndist/\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte(existing), 0o644))

	require.NoError(t, UpdateGitignoreBlock(root, []string{"b.md", "a.md", "b.md"}))

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "node_modules/\n# BEGIN agents (generated)\na.md\nb.md\n# END agents\ndist/\n", string(data))
}

func TestGitignoreBlockIdempotent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, UpdateGitignoreBlock(root, []string{"x.md"}))
	first, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)

	require.NoError(t, UpdateGitignoreBlock(root, []string{"x.md"}))
	second, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
