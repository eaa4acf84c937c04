package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
)

func repoWithPrompts(base, project string, snippets map[string]string) *loadag.RepoConfig {
	return &loadag.RepoConfig{
		Prompts: loadag.PromptLibrary{
			BaseMD:    base,
			ProjectMD: project,
			Snippets:  snippets,
		},
	}
}

func TestComposeSections(t *testing.T) {
	repo := repoWithPrompts("base line\n", "project line\n", map[string]string{
		"a-style": "snippet a\n",
		"b-style": "snippet b\n",
	})
	eff := &resolv.EffectiveConfig{SnippetIDsIncluded: []string{"a-style", "b-style"}}

	result, sources, err := Compose(repo, eff)
	require.NoError(t, err)

	assert.Equal(t, "base line\n\nproject line\n\nsnippet a\n\nsnippet b\n", result.ComposedMD)

	require.Len(t, sources, 4)
	assert.Equal(t, "base", sources[0].Kind)
	assert.Equal(t, ".agents/prompts/base.md", sources[0].Path)
	assert.Equal(t, "snippet", sources[2].Kind)
	assert.Equal(t, ".agents/prompts/snippets/a-style.md", sources[2].Path)
}

func TestComposeSkipsEmptySections(t *testing.T) {
	repo := repoWithPrompts("base\n", "   \n", nil)
	eff := &resolv.EffectiveConfig{}

	result, _, err := Compose(repo, eff)
	require.NoError(t, err)
	assert.Equal(t, "base\n", result.ComposedMD)
}

func TestComposeNormalizesCRLFAndTrailingNewlines(t *testing.T) {
	repo := repoWithPrompts("base\r\nsecond", "project\n\n\n", nil)
	eff := &resolv.EffectiveConfig{}

	result, _, err := Compose(repo, eff)
	require.NoError(t, err)
	assert.Equal(t, "base\nsecond\n\nproject\n", result.ComposedMD)
}

func TestComposeUnknownSnippet(t *testing.T) {
	repo := repoWithPrompts("base\n", "project\n", nil)
	eff := &resolv.EffectiveConfig{SnippetIDsIncluded: []string{"ghost"}}

	_, _, err := Compose(repo, eff)
	var unknown *UnknownSnippetError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.ID)
}

func TestComposeDeterministic(t *testing.T) {
	repo := repoWithPrompts("base\n", "project\n", map[string]string{"s": "snip\n"})
	eff := &resolv.EffectiveConfig{SnippetIDsIncluded: []string{"s"}}

	first, _, err := Compose(repo, eff)
	require.NoError(t, err)
	second, _, err := Compose(repo, eff)
	require.NoError(t, err)
	assert.Equal(t, first.ComposedMD, second.ComposedMD)
}

func TestRedactor(t *testing.T) {
	policy := &model.Policy{
		Paths: model.Paths{Redact: []string{"secrets/**", "**/*.pem"}},
	}
	r, err := NewRedactor(policy)
	require.NoError(t, err)

	assert.True(t, r.IsRedacted("secrets/api-key.txt"))
	assert.True(t, r.IsRedacted("certs/server.pem"))
	assert.False(t, r.IsRedacted("README.md"))
	assert.Equal(t, "[REDACTED]", r.Placeholder())
}
