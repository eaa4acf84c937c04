package outputs

import (
	"encoding/json"

	"github.com/agentsfolder/agents-cli/pkg/constants"
	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/prompts"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/skillpl"
)

// buildRenderContext assembles the value snapshot templates render
// against. Every subtree is cloned; nothing references back into the
// RepoConfig.
func buildRenderContext(
	repo *loadag.RepoConfig,
	effective *resolv.EffectiveConfig,
	agentID string,
	effPrompts *prompts.EffectivePrompts,
	skills *skillpl.EffectiveSkills,
) (map[string]any, error) {
	mode := repo.Modes[effective.ModeID]
	policy := repo.Policies[effective.PolicyID]

	policyValue, err := toValue(policy)
	if err != nil {
		return nil, err
	}

	var frontmatterValue any
	if mode.Frontmatter != nil {
		frontmatterValue, err = toValue(mode.Frontmatter)
		if err != nil {
			return nil, err
		}
	}

	promptsValue, err := toValue(effPrompts)
	if err != nil {
		return nil, err
	}

	skillIDs := make([]string, 0, len(skills.Enabled))
	for _, s := range skills.Enabled {
		skillIDs = append(skillIDs, s.ID)
	}

	scopeIDs := make([]string, 0, len(effective.ScopesMatched))
	for _, m := range effective.ScopesMatched {
		scopeIDs = append(scopeIDs, m.ID)
	}

	var profile any
	if effective.Profile != "" {
		profile = effective.Profile
	}

	ctx := map[string]any{
		"effective": map[string]any{
			"mode": map[string]any{
				"frontmatter": frontmatterValue,
				"body":        mode.Body,
			},
			"policy": policyValue,
			"skills": map[string]any{
				"ids": skillIDs,
			},
			"prompts": promptsValue,
		},
		"backend":       string(effective.Backend),
		"profile":       profile,
		"scopesMatched": scopeIDs,
		"scope":         nil,
		"generation": map[string]any{
			"stamp": map[string]any{
				"generator":            constants.GeneratorName,
				"adapter_agent_id":     agentID,
				"manifest_spec_version": repo.Manifest.SpecVersion,
				"mode":                 effective.ModeID,
				"profile":              profile,
			},
		},
		"adapter": map[string]any{
			"agentId": agentID,
		},
	}
	return ctx, nil
}

// cloneContext deep-copies a render context so per-scope mutation cannot
// leak between planned outputs.
func cloneContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// toValue converts a typed struct into plain maps via its JSON encoding,
// so templates see the same field names as serialized output.
func toValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
