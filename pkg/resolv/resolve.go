package resolv

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/model"
)

var log = logger.New("resolv:resolve")

// Request carries the inputs of one resolution.
type Request struct {
	RepoRoot   string
	TargetPath string // default "."

	OverrideMode    string
	OverridePolicy  string
	OverrideProfile string
	OverrideBackend *model.BackendKind
	OverrideScopes  []string

	EnableUserOverlay bool
	UserOverlayRoot   string
}

// EffectiveConfig is the resolved configuration. It is a pure value with no
// references back into the source repo.
type EffectiveConfig struct {
	ModeID             string
	PolicyID           string
	Profile            string
	Backend            model.BackendKind
	ScopesMatched      []ScopeMatch
	SkillIDsEnabled    []string
	SnippetIDsIncluded []string
}

// MissingIDError reports a resolved reference with no loaded entity.
type MissingIDError struct {
	Kind string
	ID   string
}

func (e *MissingIDError) Error() string {
	return fmt.Sprintf("missing id %s in %s", e.ID, e.Kind)
}

// Resolver layers the precedence chain over one RepoConfig.
type Resolver struct {
	repo *loadag.RepoConfig
}

func NewResolver(repo *loadag.RepoConfig) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve applies precedence low to high: user overlay, manifest defaults,
// scope overrides (ascending specificity), persisted state, CLI overrides,
// then mode frontmatter contributions.
func (r *Resolver) Resolve(req *Request) (*EffectiveConfig, error) {
	targetPath := req.TargetPath
	if targetPath == "" {
		targetPath = "."
	}

	scopesMatched, err := r.matchOrOverrideScopes(req, targetPath)
	if err != nil {
		return nil, err
	}

	// User overlay sits below manifest defaults: it may only supply values
	// the manifest leaves unset.
	overlay := r.loadOverlayDefaults(req)

	modeID := r.repo.Manifest.Defaults.Mode
	policyID := r.repo.Manifest.Defaults.Policy
	profile := r.repo.Manifest.Defaults.Profile
	if profile == "" {
		profile = overlay.Profile
	}

	backend := model.BackendVfsContainer
	switch {
	case r.repo.Manifest.Defaults.Backend != nil:
		backend = *r.repo.Manifest.Defaults.Backend
	case overlay.Backend != nil:
		backend = *overlay.Backend
	}

	// Apply scopes least specific first so more specific wins.
	ascending := make([]ScopeMatch, len(scopesMatched))
	copy(ascending, scopesMatched)
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

	enableSkills := map[string]bool{}
	disableSkills := map[string]bool{}
	includeSnippets := map[string]bool{}

	for _, m := range ascending {
		scope := r.repo.Scopes[m.ID]
		if scope.Overrides.Mode != "" {
			modeID = scope.Overrides.Mode
		}
		if scope.Overrides.Policy != "" {
			policyID = scope.Overrides.Policy
		}
		for _, s := range scope.Overrides.EnableSkills {
			enableSkills[s] = true
		}
		for _, s := range scope.Overrides.DisableSkills {
			disableSkills[s] = true
		}
		for _, s := range scope.Overrides.IncludeSnippets {
			includeSnippets[s] = true
		}
	}

	// Persisted state.
	if state := r.repo.State; state != nil {
		modeID = state.Mode
		if state.Profile != "" {
			profile = state.Profile
		}
		if state.Backend != nil {
			backend = *state.Backend
		}
	}

	// CLI overrides.
	if req.OverrideMode != "" {
		modeID = req.OverrideMode
	}
	if req.OverridePolicy != "" {
		policyID = req.OverridePolicy
	}
	if req.OverrideProfile != "" {
		profile = req.OverrideProfile
	}
	if req.OverrideBackend != nil {
		backend = *req.OverrideBackend
	}

	// Validate resolved references before reading mode frontmatter.
	mode, ok := r.repo.Modes[modeID]
	if !ok {
		return nil, &MissingIDError{Kind: "modes", ID: modeID}
	}
	if _, ok := r.repo.Policies[policyID]; !ok {
		return nil, &MissingIDError{Kind: "policies", ID: policyID}
	}
	if profile != "" {
		if _, ok := r.repo.Profiles[profile]; !ok {
			return nil, &MissingIDError{Kind: "profiles", ID: profile}
		}
	}

	// Mode frontmatter contributes enables/disables, snippet inclusions,
	// and an optional policy override.
	if fm := mode.Frontmatter; fm != nil {
		for _, s := range fm.EnableSkills {
			enableSkills[s] = true
		}
		for _, s := range fm.DisableSkills {
			disableSkills[s] = true
		}
		for _, s := range fm.IncludeSnippets {
			includeSnippets[s] = true
		}
		if fm.Policy != "" {
			policyID = fm.Policy
			if _, ok := r.repo.Policies[policyID]; !ok {
				return nil, &MissingIDError{Kind: "policies", ID: policyID}
			}
		}
	}

	skillIDs := unionMinus(r.repo.Manifest.Enabled.Skills, enableSkills, disableSkills)
	snippetIDs := setToSorted(includeSnippets)

	for _, id := range skillIDs {
		if _, ok := r.repo.Skills[id]; !ok {
			return nil, &MissingIDError{Kind: "skills", ID: id}
		}
	}
	for _, id := range snippetIDs {
		if _, ok := r.repo.Prompts.Snippets[id]; !ok {
			return nil, &MissingIDError{Kind: "snippets", ID: id}
		}
	}

	log.Printf("resolved mode=%s policy=%s backend=%s profile=%q scopes=%d",
		modeID, policyID, backend, profile, len(scopesMatched))

	return &EffectiveConfig{
		ModeID:             modeID,
		PolicyID:           policyID,
		Profile:            profile,
		Backend:            backend,
		ScopesMatched:      scopesMatched,
		SkillIDsEnabled:    skillIDs,
		SnippetIDsIncluded: snippetIDs,
	}, nil
}

func (r *Resolver) matchOrOverrideScopes(req *Request, targetPath string) ([]ScopeMatch, error) {
	if len(req.OverrideScopes) == 0 {
		return MatchScopes(r.repo, targetPath)
	}

	// Explicit scope list: deterministic order by id.
	matches := make([]ScopeMatch, 0, len(req.OverrideScopes))
	for _, id := range req.OverrideScopes {
		scope, ok := r.repo.Scopes[id]
		if !ok {
			return nil, &MissingIDError{Kind: "scopes", ID: id}
		}
		matches = append(matches, ScopeMatch{
			ID:       id,
			Score:    SpecificityScore(scope.ApplyTo),
			Priority: scope.Priority,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

// overlayDefaults are the values a user overlay may contribute. They rank
// below manifest defaults and never override concrete repo values.
type overlayDefaults struct {
	Profile string
	Backend *model.BackendKind
}

func (r *Resolver) loadOverlayDefaults(req *Request) overlayDefaults {
	if !req.EnableUserOverlay || req.UserOverlayRoot == "" {
		return overlayDefaults{}
	}

	path := filepath.Join(req.UserOverlayRoot, "defaults.yaml")
	text, err := fsutil.ReadString(path)
	if err != nil {
		return overlayDefaults{}
	}

	var doc struct {
		Profile string             `yaml:"profile,omitempty"`
		Backend *model.BackendKind `yaml:"backend,omitempty"`
	}
	if err := model.DecodeStrict([]byte(text), &doc); err != nil {
		log.Printf("ignoring invalid user overlay at %s: %v", path, err)
		return overlayDefaults{}
	}
	return overlayDefaults{Profile: doc.Profile, Backend: doc.Backend}
}

// unionMinus builds sorted(base ∪ enabled − disabled).
func unionMinus(base []string, enabled, disabled map[string]bool) []string {
	set := map[string]bool{}
	for _, s := range base {
		set[s] = true
	}
	for s := range enabled {
		set[s] = true
	}
	for s := range disabled {
		delete(set, s)
	}
	return setToSorted(set)
}

func setToSorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
