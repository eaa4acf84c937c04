// Package skillpl computes the set of enabled skills for an effective
// configuration and enforces agent/backend compatibility.
package skillpl

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
)

var log = logger.New("skillpl:planner")

// SkillRef pairs a skill definition with its on-disk directory.
type SkillRef struct {
	ID    string
	Dir   string
	Skill model.Skill
}

// EffectiveSkills is the planning result, sorted by skill id.
type EffectiveSkills struct {
	Enabled []SkillRef
	Backend model.BackendKind
	AgentID string
}

// MissingSkillError reports an enabled skill with no loaded definition.
type MissingSkillError struct{ ID string }

func (e *MissingSkillError) Error() string { return fmt.Sprintf("missing skill id: %s", e.ID) }

// NotEnabledError reports a skill enabled by a scope or mode but absent
// from the manifest's enabled set.
type NotEnabledError struct{ ID string }

func (e *NotEnabledError) Error() string { return fmt.Sprintf("skill not enabled in manifest: %s", e.ID) }

// IncompatibleAgentError reports a skill whose compatibility list excludes
// the requesting agent.
type IncompatibleAgentError struct {
	AgentID string
	SkillID string
}

func (e *IncompatibleAgentError) Error() string {
	return fmt.Sprintf("skill incompatible with agent %s: %s", e.AgentID, e.SkillID)
}

// IncompatibleBackendError reports a skill whose compatibility list
// excludes the effective backend.
type IncompatibleBackendError struct {
	Backend model.BackendKind
	SkillID string
}

func (e *IncompatibleBackendError) Error() string {
	return fmt.Sprintf("skill incompatible with backend %s: %s", e.Backend, e.SkillID)
}

// Planner evaluates skill enablement against one RepoConfig.
type Planner struct {
	repo *loadag.RepoConfig
}

func NewPlanner(repo *loadag.RepoConfig) *Planner {
	return &Planner{repo: repo}
}

// Plan seeds the candidate set from the manifest, applies scope
// enable/disable in specificity order, applies mode frontmatter, then
// checks each survivor: it must be manifest-enabled, defined, and
// compatible with the agent (when given) and backend.
func (p *Planner) Plan(effective *resolv.EffectiveConfig, agentID string) (*EffectiveSkills, error) {
	candidate := map[string]bool{}
	for _, id := range p.repo.Manifest.Enabled.Skills {
		candidate[id] = true
	}

	ascending := make([]resolv.ScopeMatch, len(effective.ScopesMatched))
	copy(ascending, effective.ScopesMatched)
	sort.SliceStable(ascending, func(i, j int) bool {
		a, b := ascending[i], ascending[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})

	for _, m := range ascending {
		scope, ok := p.repo.Scopes[m.ID]
		if !ok {
			continue
		}
		for _, s := range scope.Overrides.EnableSkills {
			candidate[s] = true
		}
		for _, s := range scope.Overrides.DisableSkills {
			delete(candidate, s)
		}
	}

	if mode, ok := p.repo.Modes[effective.ModeID]; ok && mode.Frontmatter != nil {
		for _, s := range mode.Frontmatter.EnableSkills {
			candidate[s] = true
		}
		for _, s := range mode.Frontmatter.DisableSkills {
			delete(candidate, s)
		}
	}

	ids := make([]string, 0, len(candidate))
	for id := range candidate {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	manifestEnabled := map[string]bool{}
	for _, id := range p.repo.Manifest.Enabled.Skills {
		manifestEnabled[id] = true
	}

	enabled := make([]SkillRef, 0, len(ids))
	for _, id := range ids {
		if !manifestEnabled[id] {
			return nil, &NotEnabledError{ID: id}
		}
		skill, ok := p.repo.Skills[id]
		if !ok {
			return nil, &MissingSkillError{ID: id}
		}

		dir, ok := p.repo.SkillDirs[id]
		if !ok {
			dir = filepath.Join(fsutil.AgentsDir(p.repo.RepoRoot), "skills", id)
		}

		if comp := skill.Compatibility; comp != nil {
			if agentID != "" && len(comp.Agents) > 0 && !contains(comp.Agents, agentID) {
				return nil, &IncompatibleAgentError{AgentID: agentID, SkillID: id}
			}
			if len(comp.Backends) > 0 && !containsBackend(comp.Backends, effective.Backend) {
				return nil, &IncompatibleBackendError{Backend: effective.Backend, SkillID: id}
			}
		}

		enabled = append(enabled, SkillRef{ID: id, Dir: dir, Skill: skill})
	}

	log.Printf("planned skills: %d enabled (agent=%q backend=%s)", len(enabled), agentID, effective.Backend)
	return &EffectiveSkills{
		Enabled: enabled,
		Backend: effective.Backend,
		AgentID: agentID,
	}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsBackend(list []model.BackendKind, b model.BackendKind) bool {
	for _, v := range list {
		if v == b {
			return true
		}
	}
	return false
}
