package loadag

import (
	"github.com/agentsfolder/agents-cli/pkg/model"
)

// PromptLibrary is the mandatory base + project prompt pair plus any
// snippets keyed by file stem.
type PromptLibrary struct {
	BaseMD    string
	ProjectMD string
	Snippets  map[string]string
}

// RepoConfig aggregates every loaded .agents/ document for one command
// invocation. It is immutable after load and shared by reference.
type RepoConfig struct {
	RepoRoot string

	Manifest model.Manifest

	Policies  map[string]model.Policy
	Skills    map[string]model.Skill
	SkillDirs map[string]string

	Scopes map[string]model.Scope

	Modes map[string]model.ModeFile

	Adapters            map[string]model.Adapter
	AdapterTemplateDirs map[string]string

	Profiles map[string]map[string]any

	Prompts PromptLibrary

	State *model.State
}

// SharedSurfacesOwner returns the adapter that owns shared surfaces,
// defaulting to the built-in core adapter.
func (c *RepoConfig) SharedSurfacesOwner() string {
	if owner := c.Manifest.Defaults.SharedSurfacesOwner; owner != "" {
		return owner
	}
	return "core"
}
